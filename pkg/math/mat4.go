package math

import "math"

// Mat4 is a column-major 4x4 matrix, the layout glUniformMatrix4fv expects
// with transpose off. Element (row r, column c) lives at index c*4+r.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// Perspective builds a right-handed projection onto OpenGL clip space:
// view-space z = -near maps to NDC -1 and z = -far to +1. fovY is the full
// vertical angle in radians.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := float32(1 / math.Tan(float64(fovY)/2))
	depth := near - far

	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = (far + near) / depth
	m[11] = -1
	m[14] = 2 * far * near / depth
	return m
}

// LookAt builds the view matrix of a camera at eye facing center. The
// camera looks down its own -Z with up as close to the given up as the
// facing allows.
func LookAt(eye, center, up Vec3) Mat4 {
	back := eye.Sub(center).Normalize()
	right := up.Cross(back).Normalize()
	camUp := back.Cross(right)

	// rows of the rotation are the camera basis
	var m Mat4
	m[0], m[4], m[8] = right.X, right.Y, right.Z
	m[1], m[5], m[9] = camUp.X, camUp.Y, camUp.Z
	m[2], m[6], m[10] = back.X, back.Y, back.Z
	m[12] = -right.Dot(eye)
	m[13] = -camUp.Dot(eye)
	m[14] = -back.Dot(eye)
	m[15] = 1
	return m
}

// Mul returns m * o, so o applies first to a column vector.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * o[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// TransformVec3 applies m to the point v and divides by the resulting w,
// so a projection matrix yields normalized device coordinates.
func (m Mat4) TransformVec3(v Vec3) Vec3 {
	out := Vec3{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12],
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13],
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14],
	}
	if w := m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]; w != 0 && w != 1 {
		out = out.Scale(1 / w)
	}
	return out
}

// Ptr returns the first element for GL uniform uploads.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}
