// Package lighting manages the lights embedded in a product model.
package lighting

import "github.com/Faultbox/cooler-configurator/internal/engine/scene"

// PruneExcept removes every light node in the subtree whose name is not in
// keep and returns the number removed. Studio lighting comes from the host
// environment, so only named interior lights survive.
func PruneExcept(root *scene.Node, keep ...string) int {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}

	var doomed []*scene.Node
	root.Walk(func(n *scene.Node) {
		if n.IsLight() && !keepSet[n.Name] {
			doomed = append(doomed, n)
		}
	})
	for _, n := range doomed {
		if p := n.Parent(); p != nil {
			p.Remove(n)
		}
	}
	return len(doomed)
}

// PointLight is the interior LED light of a model.
type PointLight struct {
	node *scene.Node
}

// FindPointLight resolves the named light. The result is nil when the model
// has no such light.
func FindPointLight(root *scene.Node, name string) *PointLight {
	n := scene.Find(root, name)
	if !n.IsLight() {
		return nil
	}
	return &PointLight{node: n}
}

// SetLED shows or hides the light at the given intensity. Nil-safe.
func (p *PointLight) SetLED(on bool, intensity float32) {
	if p == nil {
		return
	}
	p.node.Visible = on
	p.node.Light.Intensity = intensity
}

// On reports whether the light is visible.
func (p *PointLight) On() bool {
	return p != nil && p.node.Visible
}

// Intensity returns the current light intensity.
func (p *PointLight) Intensity() float32 {
	if p == nil {
		return 0
	}
	return p.node.Light.Intensity
}
