package math

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	got := Right.Cross(Up)
	want := Forward
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 12}
	l := v.Normalize().Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3ClampLength(t *testing.T) {
	tests := []struct {
		name   string
		v      Vec3
		maxLen float32
		want   float32
	}{
		{"shorter", Vec3{1, 0, 0}, 2, 1},
		{"longer", Vec3{0, 3, 4}, 2, 2},
		{"zero", Vec3{}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.ClampLength(tt.maxLen).Length(); abs(got-tt.want) > 1e-5 {
				t.Errorf("ClampLength length = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec3
		want float64
	}{
		{"same", Right, Right, 0},
		{"perpendicular", Right, Up, math.Pi / 2},
		{"opposite", Right, Right.Neg(), math.Pi},
		{"degenerate", Vec3{}, Up, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b)
			if math.Abs(float64(got)-tt.want) > 1e-4 {
				t.Errorf("Angle = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{2, 0, 0}

	tests := []struct {
		name  string
		p     Vec3
		want  Vec3
		wantT float32
	}{
		{"middle", Vec3{1, 1, 0}, Vec3{1, 0, 0}, 0.5},
		{"before start", Vec3{-1, 1, 0}, a, 0},
		{"after end", Vec3{5, -1, 0}, b, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotT := ClosestPointOnSegment(tt.p, a, b)
			if got.Distance(tt.want) > 1e-5 || abs(gotT-tt.wantT) > 1e-5 {
				t.Errorf("ClosestPointOnSegment = %v (t=%v), want %v (t=%v)", got, gotT, tt.want, tt.wantT)
			}
		})
	}

	if d := PointSegmentDistance(Vec3{1, 3, 0}, a, b); abs(d-3) > 1e-5 {
		t.Errorf("PointSegmentDistance = %v, want 3", d)
	}
}
