package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Perspective(1, 1.5, 0.1, 100)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestMulAppliesRightFirst(t *testing.T) {
	proj := Perspective(1, 1.5, 0.1, 100)
	view := LookAt(Vec3{2, 1, 6}, Vec3{0, 0.5, 0}, Up)
	for _, p := range []Vec3{{}, {1, 0, 0}, {-0.5, 2, 1}} {
		got := proj.Mul(view).TransformVec3(p)
		want := proj.TransformVec3(view.TransformVec3(p))
		if got.Sub(want).Length() > 1e-4 {
			t.Errorf("(P*V)p = %v, P(Vp) = %v", got, want)
		}
	}
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := Vec3{3, 4, 5}
	m := LookAt(eye, Vec3{}, Up)
	got := m.TransformVec3(eye)
	if got.Length() > 1e-4 {
		t.Errorf("eye should map to origin, got %v", got)
	}

	// the target lies on the -Z axis of view space
	target := m.TransformVec3(Vec3{})
	want := -eye.Length()
	if abs(target.X) > 1e-4 || abs(target.Y) > 1e-4 || abs(target.Z-want) > 1e-4 {
		t.Errorf("target in view space = %v, want (0, 0, %v)", target, want)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	m := Perspective(float32(math.Pi/3), 1, 1, 10)
	near := m.TransformVec3(Vec3{0, 0, -1})
	far := m.TransformVec3(Vec3{0, 0, -10})
	if abs(near.Z+1) > 1e-4 {
		t.Errorf("near plane NDC z = %v, want -1", near.Z)
	}
	if abs(far.Z-1) > 1e-4 {
		t.Errorf("far plane NDC z = %v, want 1", far.Z)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
