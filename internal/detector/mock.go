package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	detection Detection
	err       error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetection sets the result that will be returned by Detect.
func (m *MockDetector) SetDetection(det Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detection = det
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured detection or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Detection{}, m.err
	}
	return m.detection, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Face fixture geometry, in normalized frame coordinates.
const (
	fixtureFaceX      = 0.5
	fixtureFaceY      = 0.35
	fixtureFaceRadius = 0.12
)

// FaceFixture returns a full refined face mesh centred in the frame.
// Mesh points are spread on an ellipse around the face centre and the
// named anchors are placed where a frontal face would have them.
func FaceFixture() *LandmarkSet {
	face := &LandmarkSet{
		Points: make([]Point, FaceLandmarks),
		Dims:   3,
		Score:  0.97,
	}

	for i := range face.Points {
		angle := 2 * math.Pi * float64(i) / float64(FaceLandmarks)
		ring := 0.4 + 0.6*float64(i%5)/4
		face.Points[i] = Point{
			X: fixtureFaceX + fixtureFaceRadius*0.8*ring*math.Cos(angle),
			Y: fixtureFaceY + fixtureFaceRadius*ring*math.Sin(angle),
		}
	}

	face.Points[FaceForehead] = Point{X: 0.50, Y: 0.24}
	face.Points[FaceNoseTip] = Point{X: 0.50, Y: 0.36, Z: -0.05}
	face.Points[FaceUpperLip] = Point{X: 0.50, Y: 0.40}
	face.Points[FaceLowerLip] = Point{X: 0.50, Y: 0.42}
	face.Points[FaceChin] = Point{X: 0.50, Y: 0.47}
	face.Points[FaceRightJaw] = Point{X: 0.43, Y: 0.44}
	face.Points[FaceLeftJaw] = Point{X: 0.57, Y: 0.44}
	face.Points[FaceRightEdge] = Point{X: 0.40, Y: 0.35}
	face.Points[FaceLeftEdge] = Point{X: 0.60, Y: 0.35}

	return face
}

// PoseFixture returns pose landmarks with shoulders below the face fixture.
func PoseFixture() *LandmarkSet {
	pose := &LandmarkSet{
		Points: make([]Point, PoseLandmarks),
		Dims:   3,
		Score:  0.9,
	}
	for i := range pose.Points {
		pose.Points[i] = Point{X: 0.5, Y: 0.9}
	}
	pose.Points[PoseLeftShoulder] = Point{X: 0.65, Y: 0.62}
	pose.Points[PoseRightShoulder] = Point{X: 0.35, Y: 0.62}
	return pose
}

// HandAt returns a right hand whose index fingertip sits at (x, y).
// The rest of the hand extends downward from the fingertip.
func HandAt(x, y float64) LandmarkSet {
	hand := LandmarkSet{
		Points: make([]Point, HandLandmarks),
		Dims:   3,
		Label:  "Right",
		Score:  0.95,
	}

	// Wrist sits well below the fingertip, fingers fan out above it.
	wrist := Point{X: x + 0.02, Y: y + 0.20}
	hand.Points[Wrist] = wrist
	for i := 1; i < HandLandmarks; i++ {
		finger := float64((i - 1) / 4)
		joint := float64((i-1)%4 + 1)
		hand.Points[i] = Point{
			X: wrist.X - 0.04 + 0.02*finger,
			Y: wrist.Y - 0.035*joint,
			Z: -0.01 * joint,
		}
	}
	hand.Points[IndexTip] = Point{X: x, Y: y, Z: -0.04}

	return hand
}

// HandNearFaceDetection returns a frame with one hand touching the chin.
func HandNearFaceDetection() Detection {
	return Detection{
		Hands: []LandmarkSet{HandAt(0.51, 0.48)},
		Face:  FaceFixture(),
		Pose:  PoseFixture(),
	}
}

// HandAwayDetection returns a frame with one hand resting far below the face.
func HandAwayDetection() Detection {
	return Detection{
		Hands: []LandmarkSet{HandAt(0.85, 0.70)},
		Face:  FaceFixture(),
		Pose:  PoseFixture(),
	}
}
