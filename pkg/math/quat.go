package math

import "math"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	halfAngle := angle / 2
	s := float32(math.Sin(float64(halfAngle)))
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(float64(halfAngle))),
	}
}

// QuatFromBasis builds a rotation from orthonormal basis columns.
func QuatFromBasis(x, y, z Vec3) Quat {
	trace := x.X + y.Y + z.Z
	var q Quat
	switch {
	case trace > 0:
		s := Sqrt(trace+1) * 2
		q = Quat{
			X: (y.Z - z.Y) / s,
			Y: (z.X - x.Z) / s,
			Z: (x.Y - y.X) / s,
			W: 0.25 * s,
		}
	case x.X > y.Y && x.X > z.Z:
		s := Sqrt(1+x.X-y.Y-z.Z) * 2
		q = Quat{
			X: 0.25 * s,
			Y: (y.X + x.Y) / s,
			Z: (z.X + x.Z) / s,
			W: (y.Z - z.Y) / s,
		}
	case y.Y > z.Z:
		s := Sqrt(1+y.Y-x.X-z.Z) * 2
		q = Quat{
			X: (y.X + x.Y) / s,
			Y: 0.25 * s,
			Z: (z.Y + y.Z) / s,
			W: (z.X - x.Z) / s,
		}
	default:
		s := Sqrt(1+z.Z-x.X-y.Y) * 2
		q = Quat{
			X: (z.X + x.Z) / s,
			Y: (z.Y + y.Z) / s,
			Z: 0.25 * s,
			W: (x.Y - y.X) / s,
		}
	}
	return q.Normalize()
}

// QuatLookRotation returns the rotation that maps +Z onto forward and +Y as
// close to up as possible. A degenerate forward yields identity.
func QuatLookRotation(forward, up Vec3) Quat {
	z := forward.Normalize()
	if z.IsZero() {
		return QuatIdentity()
	}
	x := up.Cross(z)
	if x.IsZero() {
		// up parallel to forward: pick any perpendicular axis
		alt := Right
		if z.Dot(alt) > 0.9 || z.Dot(alt) < -0.9 {
			alt = Up
		}
		x = alt.Cross(z)
	}
	x = x.Normalize()
	y := z.Cross(x)
	return QuatFromBasis(x, y, z)
}

// QuatFromToRotation returns the shortest rotation taking direction from to
// direction to.
func QuatFromToRotation(from, to Vec3) Quat {
	f := from.Normalize()
	t := to.Normalize()
	if f.IsZero() || t.IsZero() {
		return QuatIdentity()
	}
	d := f.Dot(t)
	if d > 0.999999 {
		return QuatIdentity()
	}
	if d < -0.999999 {
		axis := Right.Cross(f)
		if axis.IsZero() {
			axis = Up.Cross(f)
		}
		return QuatFromAxisAngle(axis.Normalize(), math.Pi)
	}
	c := f.Cross(t)
	return Quat{X: c.X, Y: c.Y, Z: c.Z, W: 1 + d}.Normalize()
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Inverse returns the inverse of a unit quaternion.
func (q Quat) Inverse() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// Slerp performs spherical linear interpolation between two quaternions.
// t should be in range [0, 1].
func (q Quat) Slerp(other Quat, t float32) Quat {
	// Compute cos of angle between quaternions
	dot := q.Dot(other)

	// Take the shorter path
	if dot < 0 {
		other = Quat{X: -other.X, Y: -other.Y, Z: -other.Z, W: -other.W}
		dot = -dot
	}

	if dot > 0.9995 {
		return q.Lerp(other, t)
	}

	theta0 := float32(math.Acos(float64(dot)))
	theta := theta0 * t
	sinTheta := float32(math.Sin(float64(theta)))
	sinTheta0 := float32(math.Sin(float64(theta0)))

	s0 := float32(math.Cos(float64(theta))) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quat{
		X: q.X*s0 + other.X*s1,
		Y: q.Y*s0 + other.Y*s1,
		Z: q.Z*s0 + other.Z*s1,
		W: q.W*s0 + other.W*s1,
	}
}

// Lerp performs normalized linear interpolation between two quaternions.
func (q Quat) Lerp(other Quat, t float32) Quat {
	return Quat{
		X: q.X + t*(other.X-q.X),
		Y: q.Y + t*(other.Y-q.Y),
		Z: q.Z + t*(other.Z-q.Z),
		W: q.W + t*(other.W-q.W),
	}.Normalize()
}

// Mul multiplies two quaternions (combines rotations).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}
