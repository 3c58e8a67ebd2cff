package picking

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

func TestClientToNDC(t *testing.T) {
	rect := Rect{Left: 100, Top: 50, Width: 200, Height: 100}

	tests := []struct {
		name  string
		x, y  float32
		wantX float32
		wantY float32
	}{
		{"center", 200, 100, 0, 0},
		{"top left", 100, 50, -1, 1},
		{"bottom right", 300, 150, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ndc, ok := ClientToNDC(tt.x, tt.y, rect)
			if !ok {
				t.Fatal("ClientToNDC returned !ok")
			}
			if ndc.X != tt.wantX || ndc.Y != tt.wantY {
				t.Errorf("got (%v, %v), want (%v, %v)", ndc.X, ndc.Y, tt.wantX, tt.wantY)
			}
		})
	}

	if _, ok := ClientToNDC(0, 0, Rect{}); ok {
		t.Error("empty rect should not produce NDC")
	}
}

func TestScreenToRayCenter(t *testing.T) {
	view := math.LookAt(math.Vec3{Z: 5}, math.Vec3{}, math.AxisY)
	proj := math.Perspective(gomath.Pi/4, 1, 0.1, 100)
	rect := Rect{Width: 400, Height: 400}

	ray, ok := ScreenToRay(200, 200, rect, proj.Mul(view))
	if !ok {
		t.Fatal("ScreenToRay failed")
	}
	if gomath.Abs(float64(ray.Direction.Z+1)) > 1e-3 {
		t.Errorf("center ray direction = %v, want (0,0,-1)", ray.Direction)
	}
	if gomath.Abs(float64(ray.Origin.X)) > 1e-3 || gomath.Abs(float64(ray.Origin.Y)) > 1e-3 {
		t.Errorf("center ray origin = %v, want on the z axis", ray.Origin)
	}
}

func TestIntersectBounds(t *testing.T) {
	box := scene.Bounds{Min: math.Splat(-1), Max: math.Splat(1)}

	tests := []struct {
		name  string
		ray   Ray
		hit   bool
		wantT float32
	}{
		{"straight on", Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: -1}}, true, 4},
		{"miss beside", Ray{Origin: math.Vec3{X: 3, Z: 5}, Direction: math.Vec3{Z: -1}}, false, 0},
		{"pointing away", Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: 1}}, false, 0},
		{"from inside", Ray{Origin: math.Vec3{}, Direction: math.Vec3{X: 1}}, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, hit := tt.ray.IntersectBounds(box)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && gomath.Abs(float64(d-tt.wantT)) > 1e-5 {
				t.Errorf("t = %v, want %v", d, tt.wantT)
			}
		})
	}
}

func TestIntersectNodeRecursive(t *testing.T) {
	unit := scene.Bounds{Min: math.Splat(-0.5), Max: math.Splat(0.5)}
	handle := scene.NewMesh("Handle", scene.NewMaterial(""), false, unit)
	handle.Transform.Position = math.Vec3{X: 3}
	door := scene.NewGroup("Door", handle)

	ray := Ray{Origin: math.Vec3{X: 3, Z: 5}, Direction: math.Vec3{Z: -1}}
	if _, hit := ray.IntersectNode(door); !hit {
		t.Error("ray should hit a descendant mesh of the group")
	}

	handle.Visible = false
	if _, hit := ray.IntersectNode(door); hit {
		t.Error("hidden meshes should not be hit")
	}
}
