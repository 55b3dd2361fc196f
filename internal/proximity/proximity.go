// Package proximity decides, per frame, whether a hand is touching the face or neck.
package proximity

import (
	"math"

	"github.com/ayusman/handsoff/internal/detector"
)

// DefaultThreshold is the contact distance in normalized frame units.
const DefaultThreshold = 0.15

// DefaultReferences are the face mesh anchors compared against hand points.
var DefaultReferences = []int{
	detector.FaceNoseTip,
	detector.FaceForehead,
	detector.FaceUpperLip,
	detector.FaceLowerLip,
	detector.FaceChin,
	detector.FaceRightJaw,
	detector.FaceLeftJaw,
	detector.FaceRightEdge,
	detector.FaceLeftEdge,
}

// Classify reports whether any hand point lies strictly closer than threshold
// to any reference point of face. An empty refs slice uses every face point.
// Absent sets, out-of-range indices and non-finite coordinates never count as contact.
//
// Distances are 3D when both sets carry depth, 2D otherwise.
func Classify(hand, face *detector.LandmarkSet, refs []int, threshold float64) bool {
	return classify(hand, face, refs, threshold, true)
}

func classify(hand, face *detector.LandmarkSet, refs []int, threshold float64, allowDepth bool) bool {
	if hand.Len() == 0 || face.Len() == 0 {
		return false
	}
	depth := allowDepth && hand.Is3D() && face.Is3D()
	return anyWithin(hand, referencePoints(face, refs), depth, threshold)
}

// referencePoints resolves refs against face, skipping indices it doesn't have.
func referencePoints(face *detector.LandmarkSet, refs []int) []detector.Point {
	if len(refs) == 0 {
		return face.Points
	}
	points := make([]detector.Point, 0, len(refs))
	for _, idx := range refs {
		if p, ok := face.At(idx); ok {
			points = append(points, p)
		}
	}
	return points
}

func anyWithin(hand *detector.LandmarkSet, refs []detector.Point, depth bool, threshold float64) bool {
	for _, h := range hand.Points {
		if !finite(h) {
			continue
		}
		for _, r := range refs {
			if !finite(r) {
				continue
			}
			if Distance(h, r, depth) < threshold {
				return true
			}
		}
	}
	return false
}

// Distance is the Euclidean distance between a and b, ignoring Z unless depth is set.
func Distance(a, b detector.Point, depth bool) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if !depth {
		return math.Sqrt(dx*dx + dy*dy)
	}
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func finite(p detector.Point) bool {
	for _, v := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NeckPoint approximates the neck as the midpoint between the shoulders.
// Returns false if pose is absent or lacks either shoulder.
func NeckPoint(pose *detector.LandmarkSet) (detector.Point, bool) {
	left, ok := pose.At(detector.PoseLeftShoulder)
	if !ok {
		return detector.Point{}, false
	}
	right, ok := pose.At(detector.PoseRightShoulder)
	if !ok {
		return detector.Point{}, false
	}
	neck := detector.Point{
		X: (left.X + right.X) / 2,
		Y: (left.Y + right.Y) / 2,
	}
	if !finite(neck) {
		return detector.Point{}, false
	}
	return neck, true
}
