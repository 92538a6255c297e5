package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatSlerp(t *testing.T) {
	// Test endpoints
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	// At t=0, should equal q1
	result0 := q1.Slerp(q2, 0)
	if math.Abs(float64(result0.W-q1.W)) > 0.001 {
		t.Errorf("Slerp at t=0 should equal q1")
	}

	// At t=1, should equal q2
	result1 := q1.Slerp(q2, 1)
	if math.Abs(float64(result1.W-q2.W)) > 0.001 {
		t.Errorf("Slerp at t=1 should equal q2")
	}

	// At t=0.5, should be halfway
	result5 := q1.Slerp(q2, 0.5)
	// For 90 degree rotation, halfway should be 45 degrees
	expectedW := float32(math.Cos(float64(math.Pi / 8))) // cos(45/2 degrees)
	if math.Abs(float64(result5.W-expectedW)) > 0.01 {
		t.Errorf("Slerp at t=0.5: expected W ~%v, got %v", expectedW, result5.W)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	// 90 degrees around Y axis
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	// Should have Y component and W = cos(45deg)
	expectedW := float32(math.Cos(math.Pi / 4))
	expectedY := float32(math.Sin(math.Pi / 4))

	if math.Abs(float64(q.W-expectedW)) > 0.001 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(float64(q.Y-expectedY)) > 0.001 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}


func TestQuatRotate(t *testing.T) {
	// 90 degrees around Y takes +X to -Z
	q := QuatFromAxisAngle(Up, float32(math.Pi/2))
	got := q.Rotate(Right)
	want := Vec3{0, 0, -1}
	if got.Distance(want) > 1e-5 {
		t.Errorf("Rotate = %v, want %v", got, want)
	}

	back := q.Inverse().Rotate(got)
	if back.Distance(Right) > 1e-5 {
		t.Errorf("Inverse().Rotate = %v, want %v", back, Right)
	}
}

func TestQuatLookRotation(t *testing.T) {
	tests := []struct {
		name        string
		forward, up Vec3
	}{
		{"identity", Forward, Up},
		{"sideways", Right, Up},
		{"down", Vec3{0, -1, 0}, Forward},
		{"up parallel", Up, Up},
		{"skewed", Vec3{1, 2, 3}, Vec3{0, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatLookRotation(tt.forward, tt.up)
			got := q.Rotate(Forward)
			if got.Distance(tt.forward.Normalize()) > 1e-4 {
				t.Errorf("rotated +Z = %v, want %v", got, tt.forward.Normalize())
			}
			y := q.Rotate(Up)
			if abs(y.Dot(got)) > 1e-4 {
				t.Errorf("rotated +Y should stay perpendicular to forward, dot=%v", y.Dot(got))
			}
		})
	}
}

func TestQuatFromToRotation(t *testing.T) {
	tests := []struct {
		name     string
		from, to Vec3
	}{
		{"same", Right, Right},
		{"perpendicular", Right, Up},
		{"opposite", Right, Right.Neg()},
		{"opposite x", Up, Up.Neg()},
		{"arbitrary", Vec3{1, 1, 0}, Vec3{0, 2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatFromToRotation(tt.from, tt.to)
			got := q.Rotate(tt.from.Normalize())
			if got.Distance(tt.to.Normalize()) > 1e-4 {
				t.Errorf("rotated = %v, want %v", got, tt.to.Normalize())
			}
		})
	}
}
