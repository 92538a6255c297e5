// Package config handles settings for the cloth tools: simulation timing,
// viewer window, logging and data locations.
package config

import (
	"github.com/Faultbox/midgard-cloth/pkg/physics"
)

// Config holds all tool settings.
type Config struct {
	Simulation physics.Settings `yaml:"simulation"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	Logging    LoggingConfig    `yaml:"logging"`
	Data       DataConfig       `yaml:"data"`
}

// DataConfig holds bundle and preset locations.
type DataConfig struct {
	BundleDir  string `yaml:"bundle_dir"`  // where clothbake writes .mcla files
	ParamsFile string `yaml:"params_file"` // cloth parameter preset, optional
}

// ViewerConfig holds window and camera settings for clothview.
type ViewerConfig struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	VSync          bool    `yaml:"vsync"`
	FPSLimit       int     `yaml:"fps_limit"`
	CameraDistance float32 `yaml:"camera_distance"`
	PointSize      float32 `yaml:"point_size"`
	ShowRoles      bool    `yaml:"show_roles"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simulation: physics.DefaultSettings(),
		Viewer: ViewerConfig{
			Width:          1280,
			Height:         720,
			VSync:          true,
			CameraDistance: 2.5,
			PointSize:      6,
			ShowRoles:      true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Data: DataConfig{
			BundleDir: "bundles",
		},
	}
}
