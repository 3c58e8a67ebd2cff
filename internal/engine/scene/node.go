// Package scene implements the configurator's scene graph: tagged nodes
// (group, mesh, light), PBR materials, and name-based node resolution.
package scene

import (
	"github.com/google/uuid"

	"github.com/Faultbox/cooler-configurator/pkg/math"
)

// Kind discriminates node variants.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
	KindLight
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindLight:
		return "light"
	default:
		return "group"
	}
}

// Transform is a node's local position, rotation and scale.
type Transform struct {
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
}

// IdentityTransform returns a transform that changes nothing.
func IdentityTransform() Transform {
	return Transform{Rotation: math.QuatIdentity(), Scale: math.Splat(1)}
}

// Matrix returns T * R * S.
func (t Transform) Matrix() math.Mat4 {
	return math.Compose(t.Position, t.Rotation, t.Scale)
}

// Bounds is an axis-aligned box in a node's local space.
type Bounds struct {
	Min, Max math.Vec3
}

// Light holds the parameters of a light node.
type Light struct {
	Color     Color
	Intensity float32
}

// Node is one element of the scene graph. Mesh fields are only meaningful
// when Kind is KindMesh and Light only when Kind is KindLight.
type Node struct {
	ID            string
	Name          string
	Kind          Kind
	Transform     Transform
	Visible       bool
	CastShadow    bool
	ReceiveShadow bool

	// Mesh
	Material *Material
	HasUV    bool
	Bounds   Bounds

	// Light
	Light *Light

	parent   *Node
	children []*Node
}

func newNode(name string, kind Kind) *Node {
	return &Node{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		Transform: IdentityTransform(),
		Visible:   true,
	}
}

// NewGroup creates an empty group node.
func NewGroup(name string, children ...*Node) *Node {
	return newNode(name, KindGroup).Add(children...)
}

// NewMesh creates a mesh node owning mat.
func NewMesh(name string, mat *Material, hasUV bool, bounds Bounds) *Node {
	n := newNode(name, KindMesh)
	n.Material = mat
	n.HasUV = hasUV
	n.Bounds = bounds
	return n
}

// NewLight creates a light node.
func NewLight(name string, light Light) *Node {
	n := newNode(name, KindLight)
	n.Light = &light
	return n
}

// IsMesh reports whether the node is renderable geometry.
func (n *Node) IsMesh() bool { return n != nil && n.Kind == KindMesh }

// IsLight reports whether the node is a light.
func (n *Node) IsLight() bool { return n != nil && n.Kind == KindLight }

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in order. Do not modify the slice.
func (n *Node) Children() []*Node { return n.children }

// Add appends children, detaching each from any previous parent.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// Remove detaches child. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Walk visits n and its descendants depth-first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// SetMaterial makes mat the mesh's only live material, disposing the one it
// replaces.
func (n *Node) SetMaterial(mat *Material) {
	if n.Material == mat {
		return
	}
	old := n.Material
	n.Material = mat
	if mat != nil {
		mat.MarkNeedsUpdate()
	}
	old.Dispose()
}

// WorldMatrix returns the node's transform composed with its ancestors'.
func (n *Node) WorldMatrix() math.Mat4 {
	m := n.Transform.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Matrix().Mul(m)
	}
	return m
}

// WorldBounds returns the axis-aligned box enclosing the mesh's local bounds
// after the world transform.
func (n *Node) WorldBounds() Bounds {
	m := n.WorldMatrix()
	lo, hi := n.Bounds.Min, n.Bounds.Max
	var out Bounds
	for i := 0; i < 8; i++ {
		corner := math.Vec3{X: lo.X, Y: lo.Y, Z: lo.Z}
		if i&1 != 0 {
			corner.X = hi.X
		}
		if i&2 != 0 {
			corner.Y = hi.Y
		}
		if i&4 != 0 {
			corner.Z = hi.Z
		}
		p := m.TransformPoint(corner)
		if i == 0 {
			out = Bounds{Min: p, Max: p}
			continue
		}
		out.Min = out.Min.Min(p)
		out.Max = out.Max.Max(p)
	}
	return out
}

// Clone deep-copies the subtree. Every node gets a fresh ID and every mesh
// its own material clone; texture maps stay shared.
func (n *Node) Clone() *Node {
	c := newNode(n.Name, n.Kind)
	c.Transform = n.Transform
	c.Visible = n.Visible
	c.CastShadow = n.CastShadow
	c.ReceiveShadow = n.ReceiveShadow
	c.HasUV = n.HasUV
	c.Bounds = n.Bounds
	if n.Material != nil {
		c.Material = n.Material.Clone()
	}
	if n.Light != nil {
		l := *n.Light
		c.Light = &l
	}
	for _, child := range n.children {
		c.Add(child.Clone())
	}
	return c
}

// Dispose releases every material in the subtree.
func (n *Node) Dispose() {
	n.Walk(func(x *Node) {
		if x.Material != nil {
			x.Material.Dispose()
			x.Material = nil
		}
	})
}
