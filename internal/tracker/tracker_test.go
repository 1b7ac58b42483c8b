package tracker

import (
	"math"
	"testing"
)

func TestMapFaceToGaze_Center(t *testing.T) {
	x, y := MapFaceToGaze(160, 120, 320, 240)
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("center face gave gaze (%v, %v), want origin", x, y)
	}
}

func TestMapFaceToGaze_Mirrored(t *testing.T) {
	// A face on the left of the mirrored camera image is to the viewer's
	// right, so the eyes look right (positive X).
	x, _ := MapFaceToGaze(0, 120, 320, 240)
	if x <= 0 {
		t.Errorf("left-of-frame face gave x = %v, want positive", x)
	}
	x, _ = MapFaceToGaze(320, 120, 320, 240)
	if x >= 0 {
		t.Errorf("right-of-frame face gave x = %v, want negative", x)
	}
}

func TestMapFaceToGaze_VerticalInverted(t *testing.T) {
	// Top of the frame is above the screen, so the eyes look up.
	_, y := MapFaceToGaze(160, 0, 320, 240)
	if y <= 0 {
		t.Errorf("top-of-frame face gave y = %v, want positive", y)
	}
	_, y = MapFaceToGaze(160, 240, 320, 240)
	if y >= 0 {
		t.Errorf("bottom-of-frame face gave y = %v, want negative", y)
	}
}

func TestMapFaceToGaze_Dampened(t *testing.T) {
	for _, cx := range []float64{0, 50, 160, 300, 320} {
		for _, cy := range []float64{0, 60, 120, 200, 240} {
			x, y := MapFaceToGaze(cx, cy, 320, 240)
			if x < -0.8 || x > 0.8 {
				t.Errorf("gaze x = %v at (%v, %v), want within [-0.8, 0.8]", x, cx, cy)
			}
			if y < -0.5 || y > 0.5 {
				t.Errorf("gaze y = %v at (%v, %v), want within [-0.5, 0.5]", y, cx, cy)
			}
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		t.Errorf("smoothing = %v", cfg.Smoothing)
	}
	if cfg.NoFaceThreshold <= 0 {
		t.Errorf("no-face threshold = %d", cfg.NoFaceThreshold)
	}
	if len(cfg.CascadeFiles) == 0 {
		t.Error("no cascade files configured")
	}
}
