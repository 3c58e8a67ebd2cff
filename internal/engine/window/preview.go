package window

import (
	"cmp"
	"slices"

	"github.com/chewxy/math32"

	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

// Box is one mesh's screen-space footprint in pixels.
type Box struct {
	Name       string
	X, Y, W, H int
	Depth      float32 // NDC depth of the box center
	Color      scene.Color
}

// Layout projects the world bounds of every visible mesh under root and
// returns their clipped screen rectangles ordered far to near. Meshes with a
// corner behind the camera are skipped.
func Layout(root *scene.Node, viewProj math.Mat4, width, height int) []Box {
	var boxes []Box
	var visit func(n *scene.Node)
	visit = func(n *scene.Node) {
		if !n.Visible {
			return
		}
		if n.IsMesh() {
			if b, ok := project(n, viewProj, width, height); ok {
				boxes = append(boxes, b)
			}
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	if root != nil {
		visit(root)
	}
	slices.SortStableFunc(boxes, func(a, b Box) int {
		return cmp.Compare(b.Depth, a.Depth)
	})
	return boxes
}

func project(n *scene.Node, viewProj math.Mat4, width, height int) (Box, bool) {
	wb := n.WorldBounds()
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	var depth float32
	for i := 0; i < 8; i++ {
		p := wb.Min
		if i&1 != 0 {
			p.X = wb.Max.X
		}
		if i&2 != 0 {
			p.Y = wb.Max.Y
		}
		if i&4 != 0 {
			p.Z = wb.Max.Z
		}
		clip := viewProj.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})
		if clip[3] <= 0 {
			return Box{}, false
		}
		x := (clip[0]/clip[3] + 1) / 2 * float32(width)
		y := (1 - clip[1]/clip[3]) / 2 * float32(height)
		minX, maxX = math32.Min(minX, x), math32.Max(maxX, x)
		minY, maxY = math32.Min(minY, y), math32.Max(maxY, y)
		depth += clip[2] / clip[3] / 8
	}

	x0 := int(math32.Max(0, math32.Floor(minX)))
	y0 := int(math32.Max(0, math32.Floor(minY)))
	x1 := int(math32.Min(float32(width), math32.Ceil(maxX)))
	y1 := int(math32.Min(float32(height), math32.Ceil(maxY)))
	if x1 <= x0 || y1 <= y0 {
		return Box{}, false
	}
	return Box{
		Name:  n.Name,
		X:     x0,
		Y:     y0,
		W:     x1 - x0,
		H:     y1 - y0,
		Depth: depth,
		Color: shade(n.Material),
	}, true
}

// shade approximates a material's on-screen color as base plus emission.
func shade(m *scene.Material) scene.Color {
	if m == nil {
		return scene.Color{R: 0.5, G: 0.5, B: 0.5}
	}
	e := m.Emissive.Scale(m.EmissiveIntensity)
	return scene.Color{R: m.Color.R + e.R, G: m.Color.G + e.G, B: m.Color.B + e.B}
}
