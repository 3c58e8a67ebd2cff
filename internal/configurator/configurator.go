// Package configurator is the operation surface a host UI drives: texture
// slots, colors, LED, doors and placement of one product model instance.
//
// A Configurator does nothing until Attach receives a model graph. Every
// operation before that is a no-op. All methods must be called from one
// thread, the same one that calls Update.
package configurator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/cooler-configurator/internal/door"
	"github.com/Faultbox/cooler-configurator/internal/engine/lighting"
	"github.com/Faultbox/cooler-configurator/internal/engine/picking"
	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
	"github.com/Faultbox/cooler-configurator/internal/engine/tween"
	"github.com/Faultbox/cooler-configurator/internal/patch"
	"github.com/Faultbox/cooler-configurator/internal/profile"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

var (
	// ErrInvalidInput is returned for rejected user input such as a
	// non-square logo or an unparsable color.
	ErrInvalidInput = texture.ErrInvalidInput
	// ErrClosed is returned when attaching to a closed configurator.
	ErrClosed = texture.ErrClosed

	ErrUnknownSlot     = errors.New("unknown texture slot")
	ErrUnknownChannel  = errors.New("unknown color channel")
	ErrUnknownPreset   = errors.New("unknown preset")
	ErrAlreadyAttached = errors.New("model already attached")
)

// Options configures a Configurator. Every field is optional.
type Options struct {
	Logger *zap.Logger
	// Fetcher resolves texture URLs; defaults to texture.DefaultFetcher.
	Fetcher texture.Fetcher
	// Camera is used for door picking. It can also be set later.
	Camera door.Camera
	// OnAssetLoaded fires at the end of Attach, once mutations take effect.
	OnAssetLoaded func(*Configurator)
	// OnError receives input errors detected after decoding started.
	OnError func(slot string, err error)
	// MaxAnisotropy caps texture filtering; 0 uses the profile value.
	MaxAnisotropy int
}

// State is the user-facing configuration of one instance.
type State struct {
	LED      bool
	DoorAxis profile.Axis
	Colors   map[string]string // channel -> color as given
	Textures map[string]string // slot -> source
}

// Configurator owns one cloned model graph and everything derived from it.
type Configurator struct {
	profile *profile.Profile
	opts    Options
	log     *zap.Logger

	loader *texture.Loader
	anim   *tween.Animator
	patch  *patch.Applier
	doors  *door.Controller

	root   *scene.Node
	light  *lighting.PointLight
	slots  map[string][]*scene.Node
	strips []*scene.Node

	state  State
	closed bool
}

// New creates a configurator for models described by p.
func New(p *profile.Profile, opts Options) *Configurator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = &texture.DefaultFetcher{}
	}
	if opts.MaxAnisotropy == 0 {
		opts.MaxAnisotropy = p.Constants.MaxAnisotropy
	}

	c := &Configurator{
		profile: p,
		opts:    opts,
		log:     opts.Logger.Named("configurator").With(zap.String("profile", p.Name)),
		loader:  texture.NewLoader(opts.Fetcher, opts.Logger),
		anim:    tween.NewAnimator(),
		slots:   make(map[string][]*scene.Node),
		state: State{
			DoorAxis: p.DoorAxis,
			Colors:   make(map[string]string),
			Textures: make(map[string]string),
		},
	}
	c.patch = patch.New(c.loader, patch.Options{
		Logger:    opts.Logger,
		OnError:   c.reportError,
		OnApplied: c.textureApplied,
	})
	c.doors = door.New(opts.Camera, c.anim, door.Options{
		Logger:   opts.Logger,
		Axis:     p.DoorAxis.Vec(),
		Angle:    p.DoorAngleDeg * math32.Pi / 180,
		Duration: p.Constants.DoorDuration,
	})
	return c
}

// Attach clones graph for this instance and prepares it: embedded lights
// other than the profile's point light are removed, the root transform and
// shadow flags applied, original materials captured, and profile defaults
// applied. It returns the instance's root node for the host to render.
func (c *Configurator) Attach(graph *scene.Node) (*scene.Node, error) {
	switch {
	case c.closed:
		return nil, ErrClosed
	case c.root != nil:
		return nil, ErrAlreadyAttached
	case graph == nil:
		return nil, fmt.Errorf("%w: nil model graph", ErrInvalidInput)
	}

	p := c.profile
	root := graph.Clone()
	root.Transform.Position = p.Transform.Vec()
	root.Transform.Scale = math.Splat(p.Transform.Scale)

	if n := lighting.PruneExcept(root, p.PointLight); n > 0 {
		c.log.Debug("removed embedded lights", zap.Int("count", n))
	}
	c.applyShadows(root)
	c.patch.Capture(root)
	c.root = root

	c.resolve()
	c.checkRoles()
	c.startPulses()
	// Unknown slots and channels fail profile validation; what is left are
	// bad values, which applyPreset logs.
	c.applyPreset(p.Defaults)
	if p.Defaults.LED == nil {
		c.ToggleLED(false)
	}

	c.log.Info("model attached",
		zap.Int("meshes", len(scene.Meshes(root))),
		zap.Int("doors", len(c.doors.Doors())),
		zap.Int("strips", len(c.strips)))
	if c.opts.OnAssetLoaded != nil {
		c.opts.OnAssetLoaded(c)
	}
	return root, nil
}

func (c *Configurator) applyShadows(root *scene.Node) {
	for _, m := range scene.Meshes(root) {
		shadows := !slices.Contains(c.profile.ShadowExclude, m.Name)
		m.CastShadow = shadows
		m.ReceiveShadow = shadows
	}
}

func (c *Configurator) resolve() {
	p := c.profile
	for _, d := range p.Doors {
		node := scene.FindAny(c.root, d.Names...)
		if node == nil {
			c.log.Debug("door not in model", zap.Strings("names", d.Names))
			continue
		}
		c.doors.Add(node)
	}

	for _, name := range p.Strips.Names() {
		if node := scene.FindFold(c.root, name); node != nil {
			c.strips = append(c.strips, node)
		}
	}

	c.light = lighting.FindPointLight(c.root, p.PointLight)
	c.light.SetLED(false, p.Constants.PointLightIntensity)

	for name, slot := range p.Slots {
		var meshes []*scene.Node
		if slot.UseStrips {
			for _, s := range c.strips {
				meshes = append(meshes, scene.MeshesUnder(s)...)
			}
		} else if node := c.findSlotNode(slot); node != nil {
			meshes = scene.MeshesUnder(node)
		}
		if len(meshes) == 0 {
			c.log.Debug("slot not in model", zap.String("slot", name))
			continue
		}
		c.slots[name] = meshes
	}
	for _, m := range scene.Meshes(c.root) {
		c.log.Debug("mesh", zap.String("name", m.Name), zap.Bool("uv", m.HasUV))
	}
}

func (c *Configurator) findSlotNode(slot profile.Slot) *scene.Node {
	if slot.Fold {
		return scene.FindFold(c.root, slot.Node)
	}
	return scene.Find(c.root, slot.Node)
}

func (c *Configurator) checkRoles() {
	roles := c.profile.Roles
	for _, role := range []string{roles.Body, roles.Handle} {
		if role != "" && len(scene.MaterialsNamed(c.root, role)) == 0 {
			c.log.Warn("role material missing", zap.String("material", role))
		}
	}
}

// startPulses makes pulsing slots glow with their own artwork and animates
// the emissive intensity forever. The current material is looked up on every
// step so texture swaps keep pulsing with the new map.
func (c *Configurator) startPulses() {
	k := c.profile.Constants
	if k.LogoPulsePeriod <= 0 {
		return
	}
	for _, name := range c.profile.SlotNames() {
		if !c.profile.Slots[name].Pulse {
			continue
		}
		for _, mesh := range c.slots[name] {
			c.anim.Start("pulse:"+mesh.ID, &tween.Tween{
				Duration: k.LogoPulsePeriod,
				Ease:     tween.SineInOut,
				Repeat:   tween.Forever,
				Yoyo:     true,
				Apply: func(p float32) {
					if m := mesh.Material; m != nil {
						m.SetEmissiveMap(m.Map)
						m.Emissive = scene.White
						m.EmissiveIntensity = p * k.LogoPulseIntensity
						m.MarkNeedsUpdate()
					}
				},
			})
		}
	}
}

// Attached reports whether a model is attached and the instance is open.
func (c *Configurator) Attached() bool {
	return c.root != nil && !c.closed
}

// Root returns the instance's model root, or nil before Attach.
func (c *Configurator) Root() *scene.Node {
	return c.root
}

// Profile returns the model profile.
func (c *Configurator) Profile() *profile.Profile {
	return c.profile
}

// State returns a copy of the current configuration.
func (c *Configurator) State() State {
	s := c.state
	s.Colors = maps.Clone(c.state.Colors)
	s.Textures = maps.Clone(c.state.Textures)
	return s
}

// Doors returns the resolved doors in click-test order.
func (c *Configurator) Doors() []*door.Door {
	return c.doors.Doors()
}

// SetCamera sets the camera used to pick doors.
func (c *Configurator) SetCamera(cam door.Camera) {
	c.doors.SetCamera(cam)
}

// ApplyTexture shows src on every mesh of slot once decoded. A nil src
// restores the slot's original materials.
func (c *Configurator) ApplyTexture(slot string, src *texture.Source) error {
	if !c.Attached() {
		return nil
	}
	sp, ok := c.profile.Slots[slot]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	meshes := c.slots[slot]
	if len(meshes) == 0 {
		return nil
	}

	err := c.patch.ApplyTexture(meshes, patch.Slot{
		Name:         slot,
		Params:       sp.Texture.Params(c.opts.MaxAnisotropy),
		Brightness:   sp.Brightness,
		NormalizePBR: sp.NormalizePBR,
		Constraint:   sp.Constraint(),
	}, src)
	if err != nil {
		return fmt.Errorf("slot %s: %w", slot, err)
	}
	if src == nil {
		delete(c.state.Textures, slot)
	}
	return nil
}

// ApplyTextureURL is ApplyTexture for a URL; an empty url resets the slot.
func (c *Configurator) ApplyTextureURL(slot, url string) error {
	if url == "" {
		return c.ApplyTexture(slot, nil)
	}
	return c.ApplyTexture(slot, texture.FromURL(url))
}

// Reset restores the slot's original materials.
func (c *Configurator) Reset(slot string) error {
	return c.ApplyTexture(slot, nil)
}

// ResetAll resets every slot.
func (c *Configurator) ResetAll() {
	for _, slot := range c.profile.SlotNames() {
		_ = c.Reset(slot)
	}
}

// textureApplied records a slot's source once its texture is on screen, so
// rejected or failed decodes never show up in State.
func (c *Configurator) textureApplied(slot string, src *texture.Source, meshes []*scene.Node) {
	if src != nil {
		c.state.Textures[slot] = src.String()
	}
	if c.profile.Slots[slot].UseStrips {
		patch.ApplyLED(meshes, c.state.LED, c.profile.Constants.LEDIntensity)
	}
}

func (c *Configurator) reportError(slot string, err error) {
	c.log.Info("texture rejected", zap.String("slot", slot), zap.Error(err))
	if c.opts.OnError != nil {
		c.opts.OnError(slot, err)
	}
}

// SetColor recolors a channel: body, handle or glow. value is a hex color
// or a CSS color name.
func (c *Configurator) SetColor(channel, value string) error {
	if !c.Attached() {
		return nil
	}
	col, err := scene.ParseColor(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	roles := c.profile.Roles
	var mats []*scene.Material
	switch channel {
	case profile.ChannelBody:
		mats = scene.MaterialsNamed(c.root, roles.Body)
		patch.ApplyColor(mats, col)
	case profile.ChannelHandle:
		mats = scene.MaterialsNamed(c.root, roles.Handle)
		patch.ApplyColor(mats, col)
	case profile.ChannelGlow:
		mats = scene.MaterialsContaining(c.root, roles.Glow)
		patch.ApplyGlow(mats, col, c.profile.Constants.GlowIntensity)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	if len(mats) == 0 {
		c.log.Debug("no materials for channel", zap.String("channel", channel))
	}
	c.state.Colors[channel] = value
	return nil
}

// Color returns the parsed color of a channel and whether one was set.
func (c *Configurator) Color(channel string) (scene.Color, bool) {
	v, ok := c.state.Colors[channel]
	if !ok {
		return scene.Color{}, false
	}
	col, err := scene.ParseColor(v)
	return col, err == nil
}

// ToggleLED lights or darkens the interior strips and point light.
func (c *Configurator) ToggleLED(on bool) {
	if !c.Attached() {
		return
	}
	k := c.profile.Constants
	c.state.LED = on
	patch.ApplyLED(c.strips, on, k.LEDIntensity)
	c.light.SetLED(on, k.PointLightIntensity)
}

// SetDoorAxis selects the hinge axis (x, y or z) for later door toggles.
func (c *Configurator) SetDoorAxis(axis string) error {
	a, err := profile.ParseAxis(axis)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !c.Attached() {
		return nil
	}
	c.doors.SetAxis(a.Vec())
	c.state.DoorAxis = a
	return nil
}

// SetPosition moves the model root.
func (c *Configurator) SetPosition(v math.Vec3) {
	if !c.Attached() {
		return
	}
	c.root.Transform.Position = v
}

// SetScale scales the model root uniformly.
func (c *Configurator) SetScale(s float32) {
	if !c.Attached() {
		return
	}
	c.root.Transform.Scale = math.Splat(s)
}

// ApplyPreset applies a named bundle of textures, colors and LED state, in
// that order.
func (c *Configurator) ApplyPreset(name string) error {
	if !c.Attached() {
		return nil
	}
	pr, ok := c.profile.Presets[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	c.log.Info("applying preset", zap.String("preset", name))
	return c.applyPreset(pr)
}

func (c *Configurator) applyPreset(pr profile.Preset) error {
	var errs []error
	slots := make([]string, 0, len(pr.Textures))
	for slot := range pr.Textures {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	for _, slot := range slots {
		if err := c.ApplyTextureURL(slot, pr.Textures[slot]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ch := range []string{profile.ChannelBody, profile.ChannelHandle, profile.ChannelGlow} {
		if v, ok := pr.Colors[ch]; ok {
			if err := c.SetColor(ch, v); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if pr.LED != nil {
		c.ToggleLED(*pr.LED)
	}
	if err := errors.Join(errs...); err != nil {
		c.log.Warn("preset partially applied", zap.Error(err))
		return err
	}
	return nil
}

// HandleClick toggles the door under the client point, if any.
func (c *Configurator) HandleClick(clientX, clientY float32, rect picking.Rect) *door.Door {
	if !c.Attached() {
		return nil
	}
	return c.doors.HandleClick(clientX, clientY, rect)
}

// Update delivers finished texture decodes and advances animations by dt
// seconds. Call it once per frame.
func (c *Configurator) Update(dt float32) {
	if c.closed {
		return
	}
	c.loader.Drain()
	c.anim.Update(dt)
}

// Flush waits for every pending texture decode and applies the results.
func (c *Configurator) Flush(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	return c.loader.Flush(ctx)
}

// Close stops every animation, cancels pending decodes and disposes all
// materials and textures of the instance, captured originals included.
func (c *Configurator) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.anim.KillAll()
	c.loader.Close()
	c.patch.Close()
	c.root.Dispose()
	c.log.Debug("closed")
}
