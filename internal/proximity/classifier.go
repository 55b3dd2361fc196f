package proximity

import "github.com/ayusman/handsoff/internal/detector"

// Config holds the tunables for contact classification.
type Config struct {
	// Threshold is the strict upper bound on hand-to-reference distance.
	Threshold float64

	// References are face mesh indices used as anchors; empty means all points.
	References []int

	// Neck adds the shoulder midpoint as an extra anchor when pose is available.
	Neck bool

	// Depth uses Z in distances when both sets are 3D. MediaPipe's hand and face
	// depths are on different scales, so this is off by default.
	Depth bool
}

// DefaultConfig returns the default classification settings.
func DefaultConfig() Config {
	refs := make([]int, len(DefaultReferences))
	copy(refs, DefaultReferences)
	return Config{
		Threshold:  DefaultThreshold,
		References: refs,
		Neck:       true,
	}
}

// Classifier turns a frame's detection into a single contact observation.
type Classifier struct {
	config Config
}

// NewClassifier creates a Classifier. A non-positive threshold falls back to DefaultThreshold.
func NewClassifier(config Config) *Classifier {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	return &Classifier{config: config}
}

// Config returns the classifier settings.
func (c *Classifier) Config() Config {
	return c.config
}

// Contact reports whether any detected hand is near the face or neck.
// A frame without a face is never contact.
func (c *Classifier) Contact(det detector.Detection) bool {
	if det.Face.Len() == 0 {
		return false
	}

	var neck []detector.Point
	if c.config.Neck {
		if p, ok := NeckPoint(det.Pose); ok {
			neck = append(neck, p)
		}
	}

	for i := range det.Hands {
		hand := &det.Hands[i]
		if classify(hand, det.Face, c.config.References, c.config.Threshold, c.config.Depth) {
			return true
		}
		if len(neck) > 0 && anyWithin(hand, neck, false, c.config.Threshold) {
			return true
		}
	}
	return false
}
