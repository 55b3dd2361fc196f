// Package detector provides landmark detection interfaces and types for hand/face proximity monitoring.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist         = 0
	ThumbCMC      = 1
	ThumbMCP      = 2
	ThumbIP       = 3
	ThumbTip      = 4
	IndexMCP      = 5
	IndexPIP      = 6
	IndexDIP      = 7
	IndexTip      = 8
	MiddleMCP     = 9
	MiddlePIP     = 10
	MiddleDIP     = 11
	MiddleTip     = 12
	RingMCP       = 13
	RingPIP       = 14
	RingDIP       = 15
	RingTip       = 16
	PinkyMCP      = 17
	PinkyPIP      = 18
	PinkyDIP      = 19
	PinkyTip      = 20
	HandLandmarks = 21
)

// Face mesh indices used as proximity anchors.
// The refined face mesh has 478 points; only a handful of stable ones are named here.
const (
	FaceForehead  = 10
	FaceNoseTip   = 1
	FaceUpperLip  = 13
	FaceLowerLip  = 14
	FaceChin      = 152
	FaceRightJaw  = 172
	FaceLeftJaw   = 397
	FaceRightEdge = 234
	FaceLeftEdge  = 454
	FaceLandmarks = 478
)

// Pose indices used for the neck approximation.
const (
	PoseLeftShoulder  = 11
	PoseRightShoulder = 12
	PoseLandmarks     = 33
)

// Point is a coordinate in normalized [0,1] camera-frame space.
// Z is only meaningful when the owning set has Dims == 3.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkSet is the ordered point list for one detected entity in one frame.
type LandmarkSet struct {
	Points []Point `json:"points"`
	Dims   int     `json:"dims"`
	Label  string  `json:"label,omitempty"` // "Left" or "Right" for hands
	Score  float64 `json:"score,omitempty"`
}

// Len returns the number of points, treating a nil set as empty.
func (s *LandmarkSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// At returns the point at index i and whether it exists.
func (s *LandmarkSet) At(i int) (Point, bool) {
	if s == nil || i < 0 || i >= len(s.Points) {
		return Point{}, false
	}
	return s.Points[i], true
}

// Is3D reports whether the set carries depth.
func (s *LandmarkSet) Is3D() bool {
	return s != nil && s.Dims == 3
}

// Detection is everything the detector found in a single frame.
// Face and Pose are nil when not detected.
type Detection struct {
	Hands []LandmarkSet `json:"hands"`
	Face  *LandmarkSet  `json:"face,omitempty"`
	Pose  *LandmarkSet  `json:"pose,omitempty"`
}

// Empty reports whether nothing was detected.
func (d Detection) Empty() bool {
	return len(d.Hands) == 0 && d.Face.Len() == 0 && d.Pose.Len() == 0
}
