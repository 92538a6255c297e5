package constraint

import (
	"fmt"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// ColliderShape is the primitive type of a collider.
type ColliderShape uint8

const (
	ShapeSphere  ColliderShape = 0
	ShapeCapsule ColliderShape = 1
)

// String returns a human-readable shape name.
func (s ColliderShape) String() string {
	switch s {
	case ShapeSphere:
		return "Sphere"
	case ShapeCapsule:
		return "Capsule"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Collider is a sphere or a capsule along its local Y axis.
type Collider struct {
	Shape      ColliderShape `yaml:"shape"`
	Center     math.Vec3     `yaml:"center"`
	Rotation   math.Quat     `yaml:"rotation"`
	Radius     float32       `yaml:"radius"`
	HalfLength float32       `yaml:"half_length"`
}

// Segment returns the core segment of the collider. Spheres collapse to
// their centre.
func (c Collider) Segment() (math.Vec3, math.Vec3) {
	if c.Shape != ShapeCapsule || c.HalfLength <= 0 {
		return c.Center, c.Center
	}
	axis := c.Orientation().Rotate(math.Up).Scale(c.HalfLength)
	return c.Center.Sub(axis), c.Center.Add(axis)
}

// Core returns the point of the collider core closest to p.
func (c Collider) Core(p math.Vec3) math.Vec3 {
	a, b := c.Segment()
	core, _ := math.ClosestPointOnSegment(p, a, b)
	return core
}

// Surface returns the closest surface point to p, the outward normal there,
// and the signed distance from the surface (negative inside).
func (c Collider) Surface(p math.Vec3) (math.Vec3, math.Vec3, float32) {
	core := c.Core(p)
	v := p.Sub(core)
	l := v.Length()
	n := c.Orientation().Rotate(math.Up)
	if l > math.Epsilon {
		n = v.Scale(1 / l)
	}
	return core.Add(n.Scale(c.Radius)), n, l - c.Radius
}

// Orientation returns the collider rotation; a zero quaternion means identity.
func (c Collider) Orientation() math.Quat {
	if c.Rotation == (math.Quat{}) {
		return math.QuatIdentity()
	}
	return c.Rotation
}
