package audio

import (
	"math"
	"testing"
)

func TestRMSLevel_Silence(t *testing.T) {
	frame := make([]float32, 4096)
	if level := RMSLevel(frame); level != 0 {
		t.Errorf("expected 0 for silence, got %f", level)
	}
}

func TestRMSLevel_FullScale(t *testing.T) {
	frame := make([]float32, 4096)
	for i := range frame {
		frame[i] = 1.0
	}
	if level := RMSLevel(frame); math.Abs(level-1.0) > 1e-9 {
		t.Errorf("expected 1.0 for full-scale DC, got %f", level)
	}
}

func TestRMSLevel_SignInvariant(t *testing.T) {
	pos := []float32{0.5, 0.5, 0.5, 0.5}
	neg := []float32{-0.5, -0.5, -0.5, -0.5}
	if RMSLevel(pos) != RMSLevel(neg) {
		t.Error("RMS should not depend on sign")
	}
	if got := RMSLevel(pos); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestRMSLevel_EmptyFrame(t *testing.T) {
	if level := RMSLevel(nil); level != 0 {
		t.Errorf("expected 0 for empty frame, got %f", level)
	}
}
