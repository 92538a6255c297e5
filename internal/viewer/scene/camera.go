package scene

import (
	gomath "math"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// OrbitCamera orbits a center point. Distances are in meters.
type OrbitCamera struct {
	Center math.Vec3

	Distance  float32
	RotationX float32 // pitch, radians
	RotationY float32 // yaw, radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32

	FovY      float32
	Near, Far float32
}

// NewOrbitCamera returns a camera at distance looking slightly down.
func NewOrbitCamera(distance float32) *OrbitCamera {
	if distance <= 0 {
		distance = 2.5
	}
	return &OrbitCamera{
		Distance:        distance,
		RotationX:       0.3,
		MinDistance:     0.1,
		MaxDistance:     100,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            float32(gomath.Pi / 4),
		Near:            0.01,
		Far:             500,
	}
}

// Position returns the eye position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sx, cx := gomath.Sincos(float64(c.RotationX))
	sy, cy := gomath.Sincos(float64(c.RotationY))
	return c.Center.Add(math.Vec3{
		X: c.Distance * float32(cx*sy),
		Y: c.Distance * float32(sx),
		Z: c.Distance * float32(cx*cy),
	})
}

// ViewMatrix returns the world-to-view matrix.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ViewProjection returns projection * view for a viewport of the given size.
func (c *OrbitCamera) ViewProjection(width, height int32) math.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return math.Perspective(c.FovY, aspect, c.Near, c.Far).Mul(c.ViewMatrix())
}

// HandleDrag rotates by a mouse delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX = math.Clamp(c.RotationX+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom scales the distance by a wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = math.Clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// HandlePan moves the center in the camera's ground plane. Speed follows
// distance so panning feels the same at any zoom.
func (c *OrbitCamera) HandlePan(forward, right, up float32) {
	speed := c.Distance * 0.02
	sy, cy := gomath.Sincos(float64(c.RotationY))
	dir := math.Vec3{X: float32(sy), Z: float32(cy)}
	side := math.Vec3{X: float32(cy), Z: float32(-sy)}
	move := dir.Scale(-forward).Add(side.Scale(right)).Add(math.Vec3{Y: up})
	c.Center = c.Center.Add(move.Scale(speed))
}

// FitToBounds centers on the box and backs off far enough to see all of it.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)
	radius := hi.Sub(lo).Length() * 0.5
	d := radius / float32(gomath.Sin(float64(c.FovY)/2))
	c.Distance = math.Clamp(d, c.MinDistance, c.MaxDistance)
}
