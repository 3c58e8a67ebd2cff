package scene

import "strings"

// Find returns the first node, in depth-first order, whose name equals name
// exactly. It returns nil when no node matches; callers treat that as
// "this model variant has no such part".
func Find(root *Node, name string) *Node {
	return findFunc(root, func(n *Node) bool { return n.Name == name })
}

// FindAny returns the first of names that resolves.
func FindAny(root *Node, names ...string) *Node {
	for _, name := range names {
		if n := Find(root, name); n != nil {
			return n
		}
	}
	return nil
}

// FindFold is Find with trimmed, case-insensitive comparison.
func FindFold(root *Node, name string) *Node {
	name = strings.TrimSpace(name)
	return findFunc(root, func(n *Node) bool {
		return strings.EqualFold(strings.TrimSpace(n.Name), name)
	})
}

func findFunc(n *Node, match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for _, c := range n.children {
		if found := findFunc(c, match); found != nil {
			return found
		}
	}
	return nil
}

// MeshesUnder returns node itself and its mesh descendants that have UV
// coordinates. Meshes without UVs cannot show a texture and are skipped.
func MeshesUnder(node *Node) []*Node {
	var out []*Node
	node.Walk(func(n *Node) {
		if n.IsMesh() && n.HasUV {
			out = append(out, n)
		}
	})
	return out
}

// MaterialsNamed returns the distinct materials whose trimmed name equals
// role, ignoring case.
func MaterialsNamed(root *Node, role string) []*Material {
	role = strings.TrimSpace(role)
	return materialsFunc(root, func(name string) bool {
		return strings.EqualFold(strings.TrimSpace(name), role)
	})
}

// MaterialsContaining returns the distinct materials whose name contains
// sub, ignoring case.
func MaterialsContaining(root *Node, sub string) []*Material {
	sub = strings.ToLower(sub)
	return materialsFunc(root, func(name string) bool {
		return strings.Contains(strings.ToLower(name), sub)
	})
}

func materialsFunc(root *Node, match func(string) bool) []*Material {
	var out []*Material
	seen := make(map[*Material]bool)
	root.Walk(func(n *Node) {
		m := n.Material
		if !n.IsMesh() || m == nil || m.Name == "" || seen[m] || !match(m.Name) {
			return
		}
		seen[m] = true
		out = append(out, m)
	})
	return out
}

// Meshes returns every mesh in the subtree.
func Meshes(root *Node) []*Node {
	var out []*Node
	root.Walk(func(n *Node) {
		if n.IsMesh() {
			out = append(out, n)
		}
	})
	return out
}
