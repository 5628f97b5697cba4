package geom

import (
	"math"
	"testing"
)

func TestRoundedArithmetic(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		sum  float64
		diff float64
	}{
		{name: "integers", a: 3, b: 2, sum: 5, diff: 1},
		{name: "one decimal", a: 0.1, b: 0.2, sum: 0.3, diff: -0.1},
		{name: "mixed precision", a: 10.25, b: 0.1, sum: 10.35, diff: 10.15},
		{name: "negative", a: -0.1, b: 0.3, sum: 0.2, diff: -0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundAdd(tt.a, tt.b); got != tt.sum {
				t.Errorf("roundAdd(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.sum)
			}
			if got := roundSub(tt.a, tt.b); got != tt.diff {
				t.Errorf("roundSub(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.diff)
			}
		})
	}
}

func TestPointVectorArithmetic(t *testing.T) {
	p := Point{X: 1.5, Y: 2.5, Z: 0, C: 0, T: 0}
	v := Vector{X: 0.5, Y: 0.5, Z: 1, C: 2, T: 3}

	moved := p.Add(v)
	want := Point{X: 2.0, Y: 3.0, Z: 1, C: 2, T: 3}
	if moved != want {
		t.Errorf("Add = %+v, want %+v", moved, want)
	}

	back := moved.Sub(p)
	if back != v {
		t.Errorf("Sub = %+v, want %+v", back, v)
	}
}

func TestVectorScale(t *testing.T) {
	v := Vector{X: 2, Y: 4, Z: 6, C: 2, T: 4}
	got := v.Scale(0.5)
	want := Vector{X: 1, Y: 2, Z: 3, C: 1, T: 2}
	if got != want {
		t.Errorf("Scale(0.5) = %+v, want %+v", got, want)
	}
}

func TestLengthXY(t *testing.T) {
	v := Vector{X: 3, Y: 4, Z: 100}
	if got := v.LengthXY(); got != 5 {
		t.Errorf("LengthXY = %v, want 5", got)
	}
}

func TestNormalizeXY(t *testing.T) {
	v := Vector{X: 3, Y: 4}
	n := v.NormalizeXY()
	if math.Abs(n.LengthXY()-1) > 1e-12 {
		t.Errorf("normalized length = %v, want 1", n.LengthXY())
	}

	zero := Vector{}
	if got := zero.NormalizeXY(); got != zero {
		t.Errorf("NormalizeXY(zero) = %+v, want zero", got)
	}
}

func TestAllNonNegative(t *testing.T) {
	if !(Vector{X: 1, Y: 0, Z: 2, C: 1, T: 1}).AllNonNegative() {
		t.Error("expected non-negative vector to pass")
	}
	if (Vector{X: 1, Y: -0.5}).AllNonNegative() {
		t.Error("expected negative component to fail")
	}
}

func TestSpaceConversion(t *testing.T) {
	ps := PixelSize{X: 0.5, Y: 0.5, Z: 2.0}

	p := Point{X: 10, Y: 5.5, Z: 4, C: 1, T: 2}
	px := p.ToPixelSpace(ps)
	want := Point{X: 20, Y: 11, Z: 2, C: 1, T: 2}
	if px != want {
		t.Errorf("ToPixelSpace = %+v, want %+v", px, want)
	}

	// C and T never scale, and the round trip restores the real position for
	// exactly representable coordinates.
	real := px.ToRealSpace(ps)
	if real != p {
		t.Errorf("round trip = %+v, want %+v", real, p)
	}
}

func TestConversionTruncates(t *testing.T) {
	ps := PixelSize{X: 1, Y: 1, Z: 1}
	p := Point{X: 9.7, Y: 3.2}
	px := p.ToPixelSpace(ps)
	if px.X != 9 || px.Y != 3 {
		t.Errorf("ToPixelSpace = %+v, want truncated (9, 3)", px)
	}
}

func TestEqualXY(t *testing.T) {
	a := Point{X: 1, Y: 1}
	b := Point{X: 1 + 1e-12, Y: 1}
	c := Point{X: 1 + 1e-6, Y: 1}

	if !a.EqualXY(b) {
		t.Error("points within tolerance should be equal")
	}
	if a.EqualXY(c) {
		t.Error("points past tolerance should differ")
	}
}
