package math3d

import (
	"math"
	"testing"
)

func vecNear(a, b Vec3, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}

func TestVec3Basics(t *testing.T) {
	a := V3(1, 2, 3)
	b := V3(4, 5, 6)

	if got := a.Add(b); got != V3(5, 7, 9) {
		t.Errorf("Add = %v", got)
	}
	if got := b.Sub(a); got != V3(3, 3, 3) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot = %v, want 32", got)
	}
	if got := V3(1, 0, 0).Cross(V3(0, 1, 0)); got != V3(0, 0, 1) {
		t.Errorf("Cross = %v, want +Z", got)
	}
	if got := V3(3, 4, 0).Normalize(); !vecNear(got, V3(0.6, 0.8, 0), 1e-12) {
		t.Errorf("Normalize = %v", got)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero Normalize = %v, want zero", got)
	}
}

func TestVec3Clamp(t *testing.T) {
	got := V3(-0.5, 0.25, 7).Clamp(0, 1)
	if got != V3(0, 0.25, 1) {
		t.Errorf("Clamp = %v", got)
	}
}

func TestVec3IsFinite(t *testing.T) {
	tests := []struct {
		name string
		v    Vec3
		want bool
	}{
		{"finite", V3(1, -2, 3), true},
		{"nan", V3(math.NaN(), 0, 0), false},
		{"inf", V3(0, math.Inf(1), 0), false},
		{"neg inf", V3(0, 0, math.Inf(-1)), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.IsFinite(); got != tc.want {
				t.Errorf("IsFinite(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestWeightedConstant(t *testing.T) {
	c := V3(0.2, 0.4, 0.6)
	got := Weighted(c, c, c, 0.1, 0.7, 0.2)
	if !vecNear(got, c, 1e-12) {
		t.Errorf("Weighted of equal vectors = %v, want %v", got, c)
	}
}

func TestPerspectiveDivide(t *testing.T) {
	if got := V4(2, 4, 6, 2).PerspectiveDivide(); got != V3(1, 2, 3) {
		t.Errorf("PerspectiveDivide = %v", got)
	}
	if got := V4(2, 4, 6, 0).PerspectiveDivide(); got != V3(2, 4, 6) {
		t.Errorf("PerspectiveDivide with w=0 = %v, want passthrough", got)
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.4))
	if got := m.Mul(Identity()); got != m {
		t.Errorf("m * I != m")
	}
	if got := Identity().Mul(m); got != m {
		t.Errorf("I * m != m")
	}
}

func TestTranslateScale(t *testing.T) {
	m := Translate(V3(1, 2, 3)).Mul(Scale(V3(2, 2, 2)))
	got := m.MulPoint(V3(1, 1, 1))
	if got != V4(3, 4, 5, 1) {
		t.Errorf("T*S*p = %v, want (3,4,5,1)", got)
	}
}

func TestRotateY(t *testing.T) {
	got := RotateY(math.Pi / 2).MulPoint(V3(1, 0, 0)).Vec3()
	if !vecNear(got, V3(0, 0, -1), 1e-12) {
		t.Errorf("RotateY(90°)*X = %v, want -Z", got)
	}
}

func TestLookDir(t *testing.T) {
	view := LookDir(V3(0, 0, 3), V3(0, 0, -1), V3(0, 1, 0))
	got := view.MulPoint(V3(0, 0, 0)).Vec3()
	if !vecNear(got, V3(0, 0, -3), 1e-12) {
		t.Errorf("origin in view space = %v, want (0,0,-3)", got)
	}

	// LookAt towards a point along the same ray yields the same matrix
	if at := LookAt(V3(0, 0, 3), V3(0, 0, -10), V3(0, 1, 0)); at != view {
		t.Errorf("LookAt and LookDir disagree")
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := 0.1, 100.0
	proj := Perspective(math.Pi/4, 1, near, far)

	tests := []struct {
		name string
		z    float64
		want float64
	}{
		{"near plane", -near, -1},
		{"far plane", -far, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ndc := proj.MulPoint(V3(0, 0, tc.z)).PerspectiveDivide()
			if math.Abs(ndc.Z-tc.want) > 1e-9 {
				t.Errorf("ndc z = %v, want %v", ndc.Z, tc.want)
			}
		})
	}
}

func TestMat4Get(t *testing.T) {
	m := Translate(V3(7, 8, 9))
	if m.Get(0, 3) != 7 || m.Get(1, 3) != 8 || m.Get(2, 3) != 9 {
		t.Errorf("translation column = (%v, %v, %v)", m.Get(0, 3), m.Get(1, 3), m.Get(2, 3))
	}
}
