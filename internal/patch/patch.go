// Package patch applies user edits to mesh materials: texture swaps, color
// and glow changes and the interior LED state.
//
// Every replacement goes through scene.Node.SetMaterial, so the replaced
// material is disposed and its maps released. Texture decodes run on the
// texture loader; completions are matched against a per-(mesh, slot)
// sequence number so the most recent request always wins.
package patch

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
)

// PBR values given to textured panels so the artwork shows unshaded by the
// original paint.
const (
	PanelRoughness = 0.6
	PanelMetalness = 0
)

// Slot describes how a texture is mapped onto one logical panel.
type Slot struct {
	Name         string
	Params       texture.Params
	Brightness   float32
	NormalizePBR bool
	Constraint   texture.Constraint
}

// Options configures an Applier.
type Options struct {
	Logger *zap.Logger
	// OnError receives asynchronous input errors, such as a non-square logo
	// fetched from a URL. Synchronous ones are returned directly.
	OnError func(slot string, err error)
	// OnApplied runs after meshes of slot received a new material, either
	// the texture decoded from src or, with a nil src, a reset.
	OnApplied func(slot string, src *texture.Source, meshes []*scene.Node)
}

type seqKey struct {
	mesh string
	slot string
}

type target struct {
	mesh *scene.Node
	seq  uint64
}

// Applier mutates materials for one scene instance. It is not safe for
// concurrent use; call it from the thread that drains the loader.
type Applier struct {
	loader    *texture.Loader
	log       *zap.Logger
	onError   func(slot string, err error)
	onApplied func(slot string, src *texture.Source, meshes []*scene.Node)
	originals map[string]*scene.Material
	seq       map[seqKey]uint64
	closed    bool
}

// New creates an Applier that decodes through loader.
func New(loader *texture.Loader, opts Options) *Applier {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{
		loader:    loader,
		log:       log.Named("patch"),
		onError:   opts.OnError,
		onApplied: opts.OnApplied,
		originals: make(map[string]*scene.Material),
		seq:       make(map[seqKey]uint64),
	}
}

// Capture snapshots the material of every mesh under root that has not been
// captured yet and returns how many were new. Snapshots are what Reset
// restores.
func (a *Applier) Capture(root *scene.Node) int {
	n := 0
	root.Walk(func(node *scene.Node) {
		if !node.IsMesh() || node.Material == nil {
			return
		}
		if _, ok := a.originals[node.ID]; ok {
			return
		}
		a.originals[node.ID] = node.Material.Clone()
		n++
	})
	return n
}

// Original returns the snapshot taken for mesh, or nil.
func (a *Applier) Original(mesh *scene.Node) *scene.Material {
	if mesh == nil {
		return nil
	}
	return a.originals[mesh.ID]
}

// ApplyTexture starts decoding src and, once decoded, gives every mesh in
// meshes a textured copy of its current material. A nil src resets the
// meshes instead. Either way any decode still pending for the same meshes
// and slot is superseded.
//
// Constraint violations that can be checked up front are returned and
// nothing changes.
func (a *Applier) ApplyTexture(meshes []*scene.Node, slot Slot, src *texture.Source) error {
	if a.closed || len(meshes) == 0 {
		return nil
	}
	if src == nil {
		a.Reset(meshes, slot.Name)
		return nil
	}

	targets := make([]target, len(meshes))
	for i, m := range meshes {
		targets[i] = target{mesh: m, seq: a.seq[seqKey{m.ID, slot.Name}] + 1}
	}
	err := a.loader.Load(texture.Request{
		Source:     src,
		Params:     slot.Params,
		Constraint: slot.Constraint,
		Done: func(tex *texture.Texture, err error) {
			a.complete(targets, slot, src, tex, err)
		},
	})
	if err != nil {
		return err
	}
	for _, t := range targets {
		a.seq[seqKey{t.mesh.ID, slot.Name}] = t.seq
	}
	a.log.Debug("texture requested", zap.String("slot", slot.Name), zap.Stringer("source", src), zap.Int("meshes", len(meshes)))
	return nil
}

func (a *Applier) complete(targets []target, slot Slot, src *texture.Source, tex *texture.Texture, err error) {
	if a.closed {
		tex.Dispose()
		return
	}

	var current []*scene.Node
	for _, t := range targets {
		if a.seq[seqKey{t.mesh.ID, slot.Name}] != t.seq {
			a.log.Debug("dropping stale texture", zap.String("slot", slot.Name), zap.String("mesh", t.mesh.Name), zap.Uint64("seq", t.seq), zap.Error(err))
			continue
		}
		current = append(current, t.mesh)
	}
	if len(current) == 0 {
		tex.Dispose()
		return
	}

	if err != nil {
		if errors.Is(err, texture.ErrInvalidInput) && a.onError != nil {
			a.onError(slot.Name, err)
			return
		}
		a.log.Warn("texture not applied", zap.String("slot", slot.Name), zap.Stringer("source", src), zap.Error(err))
		return
	}

	for _, mesh := range current {
		mesh.SetMaterial(texturedMaterial(mesh.Material, tex, slot))
	}
	a.notify(slot.Name, src, current)
}

func (a *Applier) notify(slot string, src *texture.Source, meshes []*scene.Node) {
	if a.onApplied != nil && len(meshes) > 0 {
		a.onApplied(slot, src, meshes)
	}
}

func texturedMaterial(current *scene.Material, tex *texture.Texture, slot Slot) *scene.Material {
	var mat *scene.Material
	if current != nil {
		mat = current.Clone()
	} else {
		mat = scene.NewMaterial("")
	}
	// Role recolors must not tint branded artwork
	mat.Name = ""
	mat.SetMap(tex)
	brightness := slot.Brightness
	if brightness == 0 {
		brightness = 1
	}
	mat.Color = scene.White.Scale(brightness)
	if slot.NormalizePBR {
		mat.Roughness = PanelRoughness
		mat.Metalness = PanelMetalness
		mat.Side = scene.DoubleSide
		mat.Emissive = scene.Black
		mat.EmissiveIntensity = 0
		mat.SetEmissiveMap(nil)
		mat.EnvMapIntensity = 1
	}
	mat.MarkNeedsUpdate()
	return mat
}

// Reset restores a copy of each mesh's captured material and cancels any
// pending decode for slot. Meshes that were never captured are left alone.
func (a *Applier) Reset(meshes []*scene.Node, slot string) {
	if a.closed {
		return
	}
	var restored []*scene.Node
	for _, m := range meshes {
		a.seq[seqKey{m.ID, slot}]++
		orig := a.originals[m.ID]
		if orig == nil {
			a.log.Debug("no captured material", zap.String("mesh", m.Name))
			continue
		}
		m.SetMaterial(orig.Clone())
		restored = append(restored, m)
	}
	a.notify(slot, nil, restored)
}

// ApplyGlow makes materials glow in c: base and emissive color are both set
// to c at the given intensity.
func ApplyGlow(materials []*scene.Material, c scene.Color, intensity float32) {
	for _, m := range materials {
		m.Color = c
		m.Emissive = c
		m.EmissiveIntensity = intensity
		m.MarkNeedsUpdate()
	}
}

// ApplyLED lights the strip meshes under strips with their own base map, or
// turns the emissive channel off. Strips without a map stay dark.
func ApplyLED(strips []*scene.Node, on bool, intensity float32) {
	for _, strip := range strips {
		for _, mesh := range scene.Meshes(strip) {
			m := mesh.Material
			if m == nil {
				continue
			}
			if on && m.Map != nil {
				m.SetEmissiveMap(m.Map)
				m.Emissive = scene.White
				m.EmissiveIntensity = intensity
			} else {
				m.SetEmissiveMap(nil)
				m.Emissive = scene.Black
				m.EmissiveIntensity = 0
			}
			m.MarkNeedsUpdate()
		}
	}
}

// ApplyColor sets the base color of materials.
func ApplyColor(materials []*scene.Material, c scene.Color) {
	for _, m := range materials {
		m.Color = c
		m.MarkNeedsUpdate()
	}
}

// Close disposes the captured materials. Completions delivered afterwards
// are discarded.
func (a *Applier) Close() {
	if a.closed {
		return
	}
	a.closed = true
	for id, m := range a.originals {
		m.Dispose()
		delete(a.originals, id)
	}
}
