// Package app runs the interactive configurator preview: it loads a product
// model, attaches a Configurator to it and drives it from SDL2 input.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/cooler-configurator/internal/assets"
	"github.com/Faultbox/cooler-configurator/internal/config"
	"github.com/Faultbox/cooler-configurator/internal/configurator"
	"github.com/Faultbox/cooler-configurator/internal/engine/camera"
	"github.com/Faultbox/cooler-configurator/internal/engine/input"
	"github.com/Faultbox/cooler-configurator/internal/engine/picking"
	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
	"github.com/Faultbox/cooler-configurator/internal/engine/window"
	"github.com/Faultbox/cooler-configurator/internal/profile"
)

// Movement beyond this many pixels turns a click into a camera drag.
const dragThreshold = 4

var background = scene.Color{R: 0.12, G: 0.12, B: 0.13}

// App is one running configurator preview.
type App struct {
	cfg *config.Config
	log *zap.Logger

	assets *assets.Manager
	conf   *configurator.Configurator
	camera *camera.OrbitCamera
	root   *scene.Node

	window *window.Window
	input  *input.Input
	watch  *textureWatcher

	width, height int
	presets       []string
	running       bool

	pressX, pressY int
	pressed        bool
	dragged        bool
}

// New loads the profile and model named by cfg and attaches a configurator.
// No window is opened until Run.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		log:    log.Named("app"),
		width:  cfg.Window.Width,
		height: cfg.Window.Height,
	}

	p, err := loadProfile(cfg.Model)
	if err != nil {
		return nil, err
	}
	a.presets = p.PresetNames()

	a.assets = assets.NewManager(log)
	for _, root := range cfg.Model.AssetRoots {
		if err := a.assets.AddRoot(root); err != nil {
			a.log.Warn("skipping asset root", zap.String("dir", root), zap.Error(err))
		}
	}

	modelPath := p.Model
	if cfg.Model.Path != "" {
		modelPath = cfg.Model.Path
	}
	graph, err := a.assets.Load(ctx, modelPath)
	if err != nil {
		a.assets.Close()
		return nil, fmt.Errorf("loading model %s: %w", modelPath, err)
	}

	a.camera = camera.NewOrbitCamera(a.width, a.height)
	a.conf = configurator.New(p, configurator.Options{
		Logger:        log,
		Fetcher:       &texture.DefaultFetcher{BaseDir: cfg.TextureBase()},
		Camera:        a.camera,
		MaxAnisotropy: cfg.Rendering.MaxAnisotropy,
		OnError: func(slot string, err error) {
			a.log.Warn("texture rejected", zap.String("slot", slot), zap.Error(err))
		},
		OnAssetLoaded: func(c *configurator.Configurator) {
			a.log.Info("model ready",
				zap.String("profile", c.Profile().Name),
				zap.Int("doors", len(c.Doors())),
			)
		},
	})
	a.root, err = a.conf.Attach(graph)
	if err != nil {
		a.conf.Close()
		a.assets.Close()
		return nil, fmt.Errorf("attaching model: %w", err)
	}

	if cfg.Model.WatchTextures {
		if a.watch, err = watchTextures(cfg.TextureBase(), a.log); err != nil {
			a.log.Warn("texture reload disabled", zap.String("dir", cfg.TextureBase()), zap.Error(err))
		}
	}
	return a, nil
}

func loadProfile(m config.ModelConfig) (*profile.Profile, error) {
	if m.ProfileFile != "" {
		return profile.Load(m.ProfileFile)
	}
	return profile.Builtin(m.Profile)
}

// Configurator exposes the attached configurator.
func (a *App) Configurator() *configurator.Configurator {
	return a.conf
}

// Run opens the window and loops until the window closes, Escape is pressed
// or ctx is done.
func (a *App) Run(ctx context.Context) error {
	var err error
	a.window, err = window.New(window.Config{
		Title:      a.cfg.Window.Title,
		Width:      a.cfg.Window.Width,
		Height:     a.cfg.Window.Height,
		Fullscreen: a.cfg.Window.Fullscreen,
	}, a.log)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	a.input = input.New()
	a.resize(a.window.GetSize())

	var frame time.Duration
	if a.cfg.Rendering.FPSLimit > 0 {
		frame = time.Second / time.Duration(a.cfg.Rendering.FPSLimit)
	}

	a.running = true
	last := time.Now()
	a.log.Info("starting preview loop", zap.Strings("presets", a.presets))

	for a.running {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		if a.input.Update() {
			a.running = false
		}
		for _, e := range a.input.Events() {
			a.handleEvent(e)
		}

		a.reloadTextures()
		a.conf.Update(dt)

		boxes := window.Layout(a.root, a.camera.ViewProjection(), a.width, a.height)
		if err := a.window.Draw(background, boxes); err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		if frame > 0 {
			if spent := time.Since(now); spent < frame {
				time.Sleep(frame - spent)
			}
		}
	}
	return nil
}

// reloadTextures reapplies every slot whose texture file changed on disk.
func (a *App) reloadTextures() int {
	if a.watch == nil {
		return 0
	}
	n := 0
	for _, path := range a.watch.pending() {
		for slot, src := range a.conf.State().Textures {
			if a.watch.resolve(src) != path {
				continue
			}
			a.log.Info("texture changed on disk", zap.String("slot", slot), zap.String("path", path))
			if err := a.conf.ApplyTextureURL(slot, src); err != nil {
				a.log.Warn("texture reload failed", zap.String("slot", slot), zap.Error(err))
				continue
			}
			n++
		}
	}
	return n
}

func (a *App) resize(w, h int) {
	a.width, a.height = w, h
	a.camera.Resize(w, h)
}

func (a *App) handleEvent(e input.Event) {
	switch e.Type {
	case input.EventQuit:
		a.running = false

	case input.EventWindowResize:
		a.resize(e.Width, e.Height)

	case input.EventKeyDown:
		a.handleKey(e.Key)

	case input.EventMouseDown:
		if e.Button == sdl.BUTTON_LEFT {
			a.pressed, a.dragged = true, false
			a.pressX, a.pressY = e.MouseX, e.MouseY
		}

	case input.EventMouseMove:
		if !e.Dragging || !a.pressed {
			return
		}
		if abs(e.MouseX-a.pressX) > dragThreshold || abs(e.MouseY-a.pressY) > dragThreshold {
			a.dragged = true
		}
		if a.dragged {
			a.camera.HandleDrag(float32(e.DeltaX), float32(e.DeltaY))
		}

	case input.EventMouseUp:
		if e.Button != sdl.BUTTON_LEFT || !a.pressed {
			return
		}
		a.pressed = false
		if a.dragged {
			return
		}
		rect := picking.Rect{Width: float32(a.width), Height: float32(a.height)}
		if d := a.conf.HandleClick(float32(e.MouseX), float32(e.MouseY), rect); d != nil {
			a.log.Debug("door toggled", zap.String("door", d.Node.Name), zap.Bool("open", d.IsOpen))
		}

	case input.EventMouseWheel:
		a.camera.HandleZoom(float32(e.DeltaY))
	}
}

func (a *App) handleKey(key sdl.Keycode) {
	switch key {
	case sdl.K_ESCAPE:
		a.running = false
	case sdl.K_l:
		a.conf.ToggleLED(!a.conf.State().LED)
	case sdl.K_x:
		_ = a.conf.SetDoorAxis("x")
	case sdl.K_y:
		_ = a.conf.SetDoorAxis("y")
	case sdl.K_z:
		_ = a.conf.SetDoorAxis("z")
	case sdl.K_r:
		a.conf.ResetAll()
	case sdl.K_1, sdl.K_2, sdl.K_3, sdl.K_4, sdl.K_5, sdl.K_6, sdl.K_7, sdl.K_8, sdl.K_9:
		i := int(key - sdl.K_1)
		if i >= len(a.presets) {
			return
		}
		if err := a.conf.ApplyPreset(a.presets[i]); err != nil {
			a.log.Warn("preset incomplete", zap.String("preset", a.presets[i]), zap.Error(err))
		}
	}
}

// Close releases the configurator, cached assets and the window.
func (a *App) Close() {
	a.log.Info("closing configurator")
	if a.watch != nil {
		a.watch.Close()
	}
	if a.conf != nil {
		a.conf.Close()
	}
	if a.assets != nil {
		a.assets.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
