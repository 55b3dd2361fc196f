package capture

import (
	"testing"
)

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{name: "explicit", threshold: 5.0, want: 5.0},
		{name: "low", threshold: 0.5, want: 0.5},
		{name: "zero takes default", threshold: 0, want: DefaultMotionThreshold},
		{name: "negative takes default", threshold: -1, want: DefaultMotionThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if md.Threshold() != tt.want {
				t.Errorf("Threshold() = %f, want %f", md.Threshold(), tt.want)
			}
			if md.Primed() {
				t.Error("new detector should not be primed")
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	a := SolidFrame(160, 120, 40)
	defer a.Close()
	b := SolidFrame(160, 120, 40)
	defer b.Close()

	if moved, change := md.Detect(&a); moved || change != 0 {
		t.Errorf("first frame: moved=%v change=%f, want priming only", moved, change)
	}
	if moved, change := md.Detect(&b); moved {
		t.Errorf("identical frames reported motion, change=%f", change)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	black := SolidFrame(160, 120, 0)
	defer black.Close()
	white := SolidFrame(160, 120, 255)
	defer white.Close()

	md.Detect(&black)
	moved, change := md.Detect(&white)
	if !moved {
		t.Errorf("black to white should be motion, change=%f", change)
	}
	if change < 50 {
		t.Errorf("change = %f, want > 50", change)
	}
}

func TestMotionDetector_SizeChangeRePrimes(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	small := SolidFrame(80, 60, 0)
	defer small.Close()
	large := SolidFrame(160, 120, 255)
	defer large.Close()

	md.Detect(&small)
	if moved, _ := md.Detect(&large); moved {
		t.Error("a resolution change should re-prime rather than report motion")
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := SolidFrame(160, 120, 0)
	defer frame.Close()

	md.Detect(&frame)
	if !md.Primed() {
		t.Fatal("detector should be primed after first Detect")
	}

	md.Reset()
	if md.Primed() {
		t.Error("detector should not be primed after Reset")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	if md.Threshold() != 5.0 {
		t.Errorf("Threshold() = %f, want 5.0", md.Threshold())
	}

	md.SetThreshold(-1.0)
	if md.Threshold() != 5.0 {
		t.Errorf("negative threshold should be ignored, got %f", md.Threshold())
	}
}

func TestMotionDetector_NilFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if moved, change := md.Detect(nil); moved || change != 0 {
		t.Errorf("nil frame: moved=%v change=%f", moved, change)
	}
}

func TestMotionDetector_CloseThenReuse(t *testing.T) {
	md := NewMotionDetector(1.0)

	frame := SolidFrame(160, 120, 0)
	defer frame.Close()

	md.Detect(&frame)
	md.Close()
	md.Close()

	if moved, _ := md.Detect(&frame); moved {
		t.Error("first frame after Close should only prime")
	}
	md.Close()
}
