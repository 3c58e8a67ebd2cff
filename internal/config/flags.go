package config

import (
	"flag"
	"strings"
)

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagProfile     = flag.String("profile", "", "Built-in model profile (visicooler, deepfreezer)")
	flagProfileFile = flag.String("profile-file", "", "Path to a custom model profile")
	flagModel       = flag.String("model", "", "Model file, overriding the profile's")
	flagAssets      = flag.String("assets", "", "Comma-separated asset root directories")
	flagWindowed    = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen  = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagProfile != "" {
		cfg.Model.Profile = *flagProfile
		cfg.Model.ProfileFile = ""
	}
	if *flagProfileFile != "" {
		cfg.Model.ProfileFile = *flagProfileFile
	}
	if *flagModel != "" {
		cfg.Model.Path = *flagModel
	}
	if *flagAssets != "" {
		var roots []string
		for _, r := range strings.Split(*flagAssets, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roots = append(roots, r)
			}
		}
		cfg.Model.AssetRoots = roots
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
