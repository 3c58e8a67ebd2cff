// Package profile describes model variants: which named parts a model has,
// how textures map onto them, and the tuning constants of each variant.
package profile

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/chewxy/math32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

//go:embed profiles/*.yaml
var builtin embed.FS

// ErrUnknownProfile is returned by Builtin for names with no embedded profile.
var ErrUnknownProfile = errors.New("unknown profile")

// Color channels addressed by SetColor and presets.
const (
	ChannelBody   = "body"
	ChannelHandle = "handle"
	ChannelGlow   = "glow"
)

// Profile is one model variant.
type Profile struct {
	Name          string            `yaml:"name"`
	Model         string            `yaml:"model"`
	Transform     RootTransform     `yaml:"transform"`
	PointLight    string            `yaml:"point_light"`
	Roles         Roles             `yaml:"roles"`
	Constants     Constants         `yaml:"constants"`
	Doors         []DoorSpec        `yaml:"doors"`
	DoorAxis      Axis              `yaml:"door_axis"`
	DoorAngleDeg  float32           `yaml:"door_angle_deg"`
	ShadowExclude []string          `yaml:"shadow_exclude"`
	Strips        Strips            `yaml:"strips"`
	Slots         map[string]Slot   `yaml:"slots"`
	Defaults      Preset            `yaml:"defaults"`
	Presets       map[string]Preset `yaml:"presets"`
}

// RootTransform places the model in the host scene.
type RootTransform struct {
	Position []float32 `yaml:"position"`
	Scale    float32   `yaml:"scale"`
}

// Vec returns the position, or the origin when unset.
func (r RootTransform) Vec() math.Vec3 {
	if len(r.Position) != 3 {
		return math.Vec3{}
	}
	return math.Vec3{X: r.Position[0], Y: r.Position[1], Z: r.Position[2]}
}

// Roles names the materials recolored by each channel.
type Roles struct {
	Body   string `yaml:"body"`   // exact, case-insensitive material name
	Handle string `yaml:"handle"` // exact, case-insensitive material name
	Glow   string `yaml:"glow"`   // substring of the material name
}

// Constants are tuning values that differ between model variants.
type Constants struct {
	LEDIntensity        float32 `yaml:"led_intensity"`
	PointLightIntensity float32 `yaml:"point_light_intensity"`
	GlowIntensity       float32 `yaml:"glow_intensity"`
	LogoPulseIntensity  float32 `yaml:"logo_pulse_intensity"`
	LogoPulsePeriod     float32 `yaml:"logo_pulse_period"` // seconds per half cycle
	DoorDuration        float32 `yaml:"door_duration"`     // seconds
	MaxAnisotropy       int     `yaml:"max_anisotropy"`
}

// DoorSpec lists the candidate node names of one door; the first that
// resolves is used.
type DoorSpec struct {
	Names []string `yaml:"names"`
}

// Strips describes the interior light strips Prefix1..PrefixN.
type Strips struct {
	Prefix string `yaml:"prefix"`
	Count  int    `yaml:"count"`
}

// Names returns the strip node names in order.
func (s Strips) Names() []string {
	out := make([]string, 0, s.Count)
	for i := 1; i <= s.Count; i++ {
		out = append(out, fmt.Sprintf("%s%d", s.Prefix, i))
	}
	return out
}

// Slot is a texture target.
type Slot struct {
	// Node is resolved by exact name unless Fold is set.
	Node string `yaml:"node"`
	Fold bool   `yaml:"fold"`
	// UseStrips targets every strip node instead of Node.
	UseStrips bool `yaml:"strips"`
	// Square rejects non-square images.
	Square bool `yaml:"square"`
	// Pulse animates the emissive intensity of the slot's mesh.
	Pulse        bool        `yaml:"pulse"`
	NormalizePBR bool        `yaml:"normalize_pbr"`
	Brightness   float32     `yaml:"brightness"`
	Texture      TextureSpec `yaml:"texture"`
}

// Constraint returns the shape check for uploads to this slot.
func (s Slot) Constraint() texture.Constraint {
	if s.Square {
		return texture.Square
	}
	return nil
}

// TextureSpec is the YAML form of texture.Params.
type TextureSpec struct {
	FlipY       bool      `yaml:"flip_y"`
	ColorSpace  string    `yaml:"color_space"` // linear | srgb
	Wrap        string    `yaml:"wrap"`        // repeat | clamp
	Offset      []float32 `yaml:"offset"`
	Center      []float32 `yaml:"center"`
	Repeat      []float32 `yaml:"repeat"`
	RotationDeg float32   `yaml:"rotation_deg"`
}

// Params converts the slot texture settings, capping anisotropy at maxAnisotropy.
func (t TextureSpec) Params(maxAnisotropy int) texture.Params {
	p := texture.DefaultParams()
	p.FlipY = t.FlipY
	if strings.EqualFold(t.ColorSpace, "srgb") {
		p.ColorSpace = texture.SRGB
	}
	if strings.EqualFold(t.Wrap, "repeat") {
		p.WrapS, p.WrapT = texture.Repeat, texture.Repeat
	}
	p.Offset = vec2(t.Offset, p.Offset)
	p.Center = vec2(t.Center, p.Center)
	p.Repeat = vec2(t.Repeat, p.Repeat)
	p.Rotation = t.RotationDeg * math32.Pi / 180
	if maxAnisotropy > 0 {
		p.Anisotropy = maxAnisotropy
	}
	return p
}

func vec2(v []float32, def math.Vec2) math.Vec2 {
	if len(v) != 2 {
		return def
	}
	return math.Vec2{X: v[0], Y: v[1]}
}

// Preset bundles texture URLs, colors and the LED state.
type Preset struct {
	Textures map[string]string `yaml:"textures"`
	Colors   map[string]string `yaml:"colors"`
	LED      *bool             `yaml:"led"`
}

// Parse decodes and validates a YAML profile.
func Parse(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a profile from a YAML file.
func Load(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", file, err)
	}
	return p, nil
}

// Builtin returns an embedded profile by name.
func Builtin(name string) (*Profile, error) {
	data, err := builtin.ReadFile(path.Join("profiles", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownProfile, name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data)
}

// BuiltinNames lists the embedded profiles.
func BuiltinNames() []string {
	entries, _ := builtin.ReadDir("profiles")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func (p *Profile) applyDefaults() {
	if p.Transform.Scale == 0 {
		p.Transform.Scale = 1
	}
	if p.DoorAxis == "" {
		p.DoorAxis = AxisX
	} else if a, err := ParseAxis(string(p.DoorAxis)); err == nil {
		p.DoorAxis = a
	}
	if p.DoorAngleDeg == 0 {
		p.DoorAngleDeg = 90
	}
	if p.Constants.DoorDuration == 0 {
		p.Constants.DoorDuration = 1
	}
	for name, s := range p.Slots {
		if s.Brightness == 0 {
			s.Brightness = 1
			p.Slots[name] = s
		}
	}
}

// Validate checks internal consistency.
func (p *Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if _, err := ParseAxis(string(p.DoorAxis)); err != nil {
		errs = append(errs, err)
	}
	for i, d := range p.Doors {
		if len(d.Names) == 0 {
			errs = append(errs, fmt.Errorf("door %d has no names", i))
		}
	}
	for name, s := range p.Slots {
		if s.Node == "" && !s.UseStrips {
			errs = append(errs, fmt.Errorf("slot %q has no node", name))
		}
		if s.UseStrips && p.Strips.Count == 0 {
			errs = append(errs, fmt.Errorf("slot %q targets strips but the profile has none", name))
		}
	}
	if err := p.validatePreset("defaults", p.Defaults); err != nil {
		errs = append(errs, err)
	}
	for name, pr := range p.Presets {
		if err := p.validatePreset("preset "+name, pr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Profile) validatePreset(label string, pr Preset) error {
	for slot := range pr.Textures {
		if _, ok := p.Slots[slot]; !ok {
			return fmt.Errorf("%s: unknown slot %q", label, slot)
		}
	}
	for ch := range pr.Colors {
		switch ch {
		case ChannelBody, ChannelHandle, ChannelGlow:
		default:
			return fmt.Errorf("%s: unknown color channel %q", label, ch)
		}
	}
	return nil
}

// SlotNames returns the slot names in sorted order.
func (p *Profile) SlotNames() []string {
	names := make([]string, 0, len(p.Slots))
	for n := range p.Slots {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PresetNames returns the preset names in sorted order.
func (p *Profile) PresetNames() []string {
	names := make([]string, 0, len(p.Presets))
	for n := range p.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
