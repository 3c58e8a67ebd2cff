package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if cfg.Model.Profile != "visicooler" {
		t.Errorf("expected profile visicooler, got %s", cfg.Model.Profile)
	}
	if !reflect.DeepEqual(cfg.Model.AssetRoots, []string{"public"}) {
		t.Errorf("expected asset roots [public], got %v", cfg.Model.AssetRoots)
	}
	if !cfg.Model.WatchTextures {
		t.Error("expected texture watching on by default")
	}
	if cfg.Rendering.MaxAnisotropy != 16 {
		t.Errorf("expected max anisotropy 16, got %d", cfg.Rendering.MaxAnisotropy)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fullscreen: true

model:
  profile: deepfreezer
  path: /models/DeepFreezerV2.glb
  asset_roots: [public, overrides]
  texture_dir: brand

rendering:
  max_anisotropy: 4
  fps_limit: 30

logging:
  level: "debug"
  log_file: "configurator.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Window.Title != "Cooler Configurator" {
		t.Errorf("expected default title to survive merge, got %q", cfg.Window.Title)
	}
	if cfg.Model.Profile != "deepfreezer" {
		t.Errorf("expected profile deepfreezer, got %s", cfg.Model.Profile)
	}
	if cfg.Model.Path != "/models/DeepFreezerV2.glb" {
		t.Errorf("unexpected model path %s", cfg.Model.Path)
	}
	if !reflect.DeepEqual(cfg.Model.AssetRoots, []string{"public", "overrides"}) {
		t.Errorf("unexpected asset roots %v", cfg.Model.AssetRoots)
	}
	if cfg.TextureBase() != "brand" {
		t.Errorf("expected texture base 'brand', got %s", cfg.TextureBase())
	}
	if cfg.Rendering.MaxAnisotropy != 4 || cfg.Rendering.FPSLimit != 30 {
		t.Errorf("unexpected rendering %+v", cfg.Rendering)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "configurator.log" {
		t.Errorf("expected log file 'configurator.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }, "window size"},
		{"no profile", func(c *Config) { c.Model.Profile = "" }, "model.profile"},
		{"profile file only", func(c *Config) { c.Model.Profile = ""; c.Model.ProfileFile = "my.yaml" }, ""},
		{"anisotropy", func(c *Config) { c.Rendering.MaxAnisotropy = 0 }, "max_anisotropy"},
		{"fps", func(c *Config) { c.Rendering.FPSLimit = -1 }, "fps_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTextureBase(t *testing.T) {
	cfg := Default()
	cfg.Model.AssetRoots = []string{"public", "overrides"}
	if got := cfg.TextureBase(); got != "overrides" {
		t.Errorf("expected last asset root, got %s", got)
	}
	cfg.Model.AssetRoots = nil
	if got := cfg.TextureBase(); got != "." {
		t.Errorf("expected '.', got %s", got)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "configurator.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find configurator.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "profile flag clears profile file",
			setup: func() { *flagProfile = "deepfreezer" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Model.Profile != "deepfreezer" || cfg.Model.ProfileFile != "" {
					t.Errorf("unexpected model config %+v", cfg.Model)
				}
			},
			teardown: func() { *flagProfile = "" },
		},
		{
			name:  "profile file and model",
			setup: func() { *flagProfileFile = "custom.yaml"; *flagModel = "/models/Custom.glb" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Model.ProfileFile != "custom.yaml" || cfg.Model.Path != "/models/Custom.glb" {
					t.Errorf("unexpected model config %+v", cfg.Model)
				}
			},
			teardown: func() { *flagProfileFile = ""; *flagModel = "" },
		},
		{
			name:  "assets flag",
			setup: func() { *flagAssets = " public , , brand" },
			verify: func(t *testing.T, cfg *Config) {
				if !reflect.DeepEqual(cfg.Model.AssetRoots, []string{"public", "brand"}) {
					t.Errorf("unexpected asset roots %v", cfg.Model.AssetRoots)
				}
			},
			teardown: func() { *flagAssets = "" },
		},
		{
			name:  "windowed flag",
			setup: func() { *flagWindowed = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() { *flagWindowed = false },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name:  "width and height flags",
			setup: func() { *flagWidth = 2560; *flagHeight = 1440 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Width != 2560 || cfg.Window.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() { *flagWidth = 0; *flagHeight = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width from flag, height from file.
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("rendering:\n  max_anisotropy: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Model.Profile = "deepfreezer"
	cfg.Window.Width = 1024
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("saved config differs after reload:\n%+v\n%+v", cfg, loaded)
	}
}

func TestLoadFromTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "configurator.toml")
	tomlContent := `
[window]
width = 1024
fullscreen = true

[model]
profile = "deepfreezer"
asset_roots = ["public", "brand"]

[logging]
level = "warn"
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Window.Width != 1024 || !cfg.Window.Fullscreen {
		t.Errorf("unexpected window %+v", cfg.Window)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected default height to survive merge, got %d", cfg.Window.Height)
	}
	if cfg.Model.Profile != "deepfreezer" {
		t.Errorf("expected profile deepfreezer, got %s", cfg.Model.Profile)
	}
	if !reflect.DeepEqual(cfg.Model.AssetRoots, []string{"public", "brand"}) {
		t.Errorf("unexpected asset roots %v", cfg.Model.AssetRoots)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn', got %s", cfg.Logging.Level)
	}
}

func TestSaveToTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Model.TextureDir = "brand"
	cfg.Rendering.FPSLimit = 30
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[rendering]") {
		t.Errorf("expected TOML table in output:\n%s", data)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("saved config differs after reload:\n%+v\n%+v", cfg, loaded)
	}
}
