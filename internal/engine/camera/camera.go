// Package camera provides the orbit camera used to view and pick a model.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/cooler-configurator/pkg/math"
)

// OrbitCamera orbits around a target point with a perspective projection.
type OrbitCamera struct {
	Target math.Vec3

	// Spherical coordinates around Target
	Distance float32
	Polar    float32 // angle from the +Y axis (radians)
	Azimuth  float32 // angle around Y from +Z (radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPolar    float32
	MaxPolar    float32

	// Projection
	FovY   float32 // radians
	Aspect float32
	Near   float32
	Far    float32

	// Sensitivity
	RotateSpeed float32
	ZoomSpeed   float32
}

// NewOrbitCamera creates a camera framing a product on a turntable: it looks
// at a point half a unit up and cannot dip below the floor.
func NewOrbitCamera(width, height int) *OrbitCamera {
	c := &OrbitCamera{
		Target:      math.Vec3{Y: 0.5},
		Distance:    6,
		Polar:       math32.Pi / 3,
		MinDistance: 2.5,
		MaxDistance: 20,
		MinPolar:    math32.Pi / 6,
		MaxPolar:    math32.Pi / 2.05,
		FovY:        50 * math32.Pi / 180,
		Near:        0.1,
		Far:         100,
		RotateSpeed: 0.005,
		ZoomSpeed:   0.1,
	}
	c.Resize(width, height)
	return c
}

// Resize updates the aspect ratio for a new surface size.
func (c *OrbitCamera) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		c.Aspect = 1
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sp, cp := math32.Sincos(c.Polar)
	sa, ca := math32.Sincos(c.Azimuth)
	return c.Target.Add(math.Vec3{
		X: c.Distance * sp * sa,
		Y: c.Distance * cp,
		Z: c.Distance * sp * ca,
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Target, math.AxisY)
}

// ProjectionMatrix returns the perspective projection.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// HandleDrag rotates around the target from a pointer drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Azimuth -= deltaX * c.RotateSpeed
	c.Polar = clamp(c.Polar-deltaY*c.RotateSpeed, c.MinPolar, c.MaxPolar)
}

// HandleZoom moves toward or away from the target by a wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSpeed, c.MinDistance, c.MaxDistance)
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
