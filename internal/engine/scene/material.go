package scene

import (
	"github.com/jinzhu/copier"

	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
)

// Side selects which faces a material renders.
type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

// Material is a PBR surface description. Texture maps are shared by
// reference and reference counted; see texture.Texture.
type Material struct {
	Name              string
	Color             Color
	Emissive          Color
	EmissiveIntensity float32
	Roughness         float32
	Metalness         float32
	EnvMapIntensity   float32
	Side              Side
	Map               *texture.Texture
	EmissiveMap       *texture.Texture

	// Version increases on every change; renderers re-upload when it moves.
	Version uint64
}

// NewMaterial returns a material with standard PBR defaults.
func NewMaterial(name string) *Material {
	return &Material{
		Name:              name,
		Color:             White,
		EmissiveIntensity: 1,
		Roughness:         1,
		EnvMapIntensity:   1,
	}
}

// shareTextures keeps texture pointers shared during copier copies. Without
// it copier allocates a fresh Texture and copies the reference count along.
var shareTextures = copier.Option{
	Converters: []copier.TypeConverter{{
		SrcType: (*texture.Texture)(nil),
		DstType: (*texture.Texture)(nil),
		Fn:      func(src any) (any, error) { return src, nil },
	}},
}

// Clone copies every property. Maps are shared with the original and retained.
func (m *Material) Clone() *Material {
	c := &Material{}
	if err := copier.CopyWithOption(c, m, shareTextures); err != nil {
		// Same-type struct copy; only fails on nil input
		*c = *m
	}
	c.Map.Retain()
	c.EmissiveMap.Retain()
	return c
}

// SetMap replaces the base color map, releasing the previous one.
func (m *Material) SetMap(t *texture.Texture) {
	if m.Map == t {
		return
	}
	t.Retain()
	m.Map.Release()
	m.Map = t
	m.MarkNeedsUpdate()
}

// SetEmissiveMap replaces the emissive map, releasing the previous one.
func (m *Material) SetEmissiveMap(t *texture.Texture) {
	if m.EmissiveMap == t {
		return
	}
	t.Retain()
	m.EmissiveMap.Release()
	m.EmissiveMap = t
	m.MarkNeedsUpdate()
}

// MarkNeedsUpdate flags the material for re-upload on the next frame.
func (m *Material) MarkNeedsUpdate() {
	m.Version++
}

// Dispose releases both maps. The material must not be used afterwards.
func (m *Material) Dispose() {
	if m == nil {
		return
	}
	m.Map.Release()
	m.EmissiveMap.Release()
	m.Map = nil
	m.EmissiveMap = nil
}
