// Package picking converts pointer positions into world-space rays and
// tests them against scene nodes.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

// Rect is the render surface's bounding rectangle in client coordinates.
type Rect struct {
	Left, Top, Width, Height float32
}

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// ClientToNDC maps client coordinates to normalized device coordinates,
// x right and y up, both in [-1, 1] inside rect. ok is false for an empty
// rect.
func ClientToNDC(clientX, clientY float32, rect Rect) (ndc math.Vec2, ok bool) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return math.Vec2{}, false
	}
	return math.Vec2{
		X: (clientX-rect.Left)/rect.Width*2 - 1,
		Y: -((clientY-rect.Top)/rect.Height)*2 + 1,
	}, true
}

// RayFromNDC unprojects ndc through the inverse view-projection matrix.
func RayFromNDC(ndc math.Vec2, invViewProj math.Mat4) Ray {
	nearWorld := invViewProj.TransformPoint(math.Vec3{X: ndc.X, Y: ndc.Y, Z: -1})
	farWorld := invViewProj.TransformPoint(math.Vec3{X: ndc.X, Y: ndc.Y, Z: 1})

	return Ray{
		Origin:    nearWorld,
		Direction: farWorld.Sub(nearWorld).Normalize(),
	}
}

// ScreenToRay converts client coordinates inside rect to a world-space ray.
func ScreenToRay(clientX, clientY float32, rect Rect, viewProj math.Mat4) (Ray, bool) {
	ndc, ok := ClientToNDC(clientX, clientY, rect)
	if !ok {
		return Ray{}, false
	}
	return RayFromNDC(ndc, viewProj.Inverse()), true
}

// IntersectBounds tests the ray against an axis-aligned box using the slab
// method. It returns the entry distance, or the exit distance when the
// origin is inside the box.
func (r Ray) IntersectBounds(box scene.Bounds) (t float32, hit bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	origin := r.Origin.Array()
	dir := r.Direction.Array()
	lo := box.Min.Array()
	hi := box.Max.Array()

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectNode tests the ray against node and all its visible mesh
// descendants, returning the nearest hit distance.
func (r Ray) IntersectNode(node *scene.Node) (t float32, hit bool) {
	nearest := float32(math32.MaxFloat32)
	node.Walk(func(n *scene.Node) {
		if !n.IsMesh() || !n.Visible {
			return
		}
		if d, ok := r.IntersectBounds(n.WorldBounds()); ok && d < nearest {
			nearest = d
			hit = true
		}
	})
	if !hit {
		return 0, false
	}
	return nearest, true
}
