// Package config handles configurator settings loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all application settings.
type Config struct {
	Window    WindowConfig    `yaml:"window" toml:"window"`
	Model     ModelConfig     `yaml:"model" toml:"model"`
	Rendering RenderingConfig `yaml:"rendering" toml:"rendering"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title" toml:"title"`
	Width      int    `yaml:"width" toml:"width"`
	Height     int    `yaml:"height" toml:"height"`
	Fullscreen bool   `yaml:"fullscreen" toml:"fullscreen"`
}

// ModelConfig selects the product model and where its files live.
type ModelConfig struct {
	Profile     string   `yaml:"profile" toml:"profile"`           // built-in profile name
	ProfileFile string   `yaml:"profile_file" toml:"profile_file"` // custom profile; wins over Profile
	Path        string   `yaml:"path" toml:"path"`                 // overrides the profile's model path
	AssetRoots  []string `yaml:"asset_roots" toml:"asset_roots"`   // searched last to first
	TextureDir  string   `yaml:"texture_dir" toml:"texture_dir"`   // base for texture paths; defaults to the last asset root

	// WatchTextures reapplies textures whose files change under TextureDir.
	WatchTextures bool `yaml:"watch_textures" toml:"watch_textures"`
}

// RenderingConfig holds texture and frame settings.
type RenderingConfig struct {
	MaxAnisotropy int `yaml:"max_anisotropy" toml:"max_anisotropy"`
	FPSLimit      int `yaml:"fps_limit" toml:"fps_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "Cooler Configurator",
			Width:      1280,
			Height:     720,
			Fullscreen: false,
		},
		Model: ModelConfig{
			Profile:       "visicooler",
			AssetRoots:    []string{"public"},
			WatchTextures: true,
		},
		Rendering: RenderingConfig{
			MaxAnisotropy: 16,
			FPSLimit:      60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings the application cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Model.Profile == "" && c.Model.ProfileFile == "" {
		errs = append(errs, errors.New("model.profile or model.profile_file is required"))
	}
	if c.Rendering.MaxAnisotropy < 1 {
		errs = append(errs, fmt.Errorf("rendering.max_anisotropy %d must be at least 1", c.Rendering.MaxAnisotropy))
	}
	if c.Rendering.FPSLimit < 0 {
		errs = append(errs, fmt.Errorf("rendering.fps_limit %d must not be negative", c.Rendering.FPSLimit))
	}
	return errors.Join(errs...)
}

// TextureBase returns the directory texture paths are resolved against.
func (c *Config) TextureBase() string {
	if c.Model.TextureDir != "" {
		return c.Model.TextureDir
	}
	if n := len(c.Model.AssetRoots); n > 0 {
		return c.Model.AssetRoots[n-1]
	}
	return "."
}
