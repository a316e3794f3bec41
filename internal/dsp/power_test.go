package dsp

import (
	"math"
	"testing"
)

func TestPowerReusesScratch(t *testing.T) {
	scratch := make([]float64, 0, 8)
	out := Power(scratch, []complex64{3 + 4i, 1i, 0})
	if len(out) != 3 {
		t.Fatalf("unexpected length %d", len(out))
	}
	if out[0] != 25 || out[1] != 1 || out[2] != 0 {
		t.Fatalf("unexpected power %v", out)
	}
	if &out[0] != &scratch[:1][0] {
		t.Fatalf("expected scratch backing array to be reused")
	}
	grown := Power(nil, make([]complex64, 16))
	if len(grown) != 16 {
		t.Fatalf("expected grown slice, got %d", len(grown))
	}
}

func TestMagnitudeSum(t *testing.T) {
	got := MagnitudeSum([]complex64{3 + 4i, -2, 1i})
	if math.Abs(got-8) > 1e-9 {
		t.Fatalf("expected 8 got %v", got)
	}
	if MagnitudeSum(nil) != 0 {
		t.Fatalf("expected zero for empty input")
	}
}

func TestFirstAtOrAbove(t *testing.T) {
	values := []float64{0.01, 0.04, 0.05, 0.9}
	if idx := FirstAtOrAbove(values, 0.05); idx != 2 {
		t.Fatalf("expected 2 got %d", idx)
	}
	if idx := FirstAtOrAbove(values, 1); idx != -1 {
		t.Fatalf("expected -1 got %d", idx)
	}
}
