package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/physics"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Simulation.Frequency != physics.ReferenceFrequency {
		t.Errorf("expected frequency %d, got %d", physics.ReferenceFrequency, cfg.Simulation.Frequency)
	}
	if cfg.Simulation.MaxUpdatePerFrame != 3 {
		t.Errorf("expected max update per frame 3, got %d", cfg.Simulation.MaxUpdatePerFrame)
	}
	if cfg.Simulation.Deferred {
		t.Error("expected deferred to be false by default")
	}
	if cfg.Viewer.Width != 1280 || cfg.Viewer.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Data.BundleDir != "bundles" {
		t.Errorf("expected bundle dir 'bundles', got %s", cfg.Data.BundleDir)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cloth.yaml")
	yamlContent := `
simulation:
  frequency: 60
  workers: 4
  deferred: true

viewer:
  width: 1920
  vsync: false

logging:
  level: "debug"
  log_file: "cloth.log"

data:
  bundle_dir: "out"
  params_file: "skirt.yaml"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Simulation.Frequency != 60 {
		t.Errorf("expected frequency 60, got %d", cfg.Simulation.Frequency)
	}
	if cfg.Simulation.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Simulation.Workers)
	}
	if !cfg.Simulation.Deferred {
		t.Error("expected deferred to be true")
	}
	// keys absent from the file keep their defaults
	if cfg.Simulation.MaxUpdatePerFrame != 3 {
		t.Errorf("expected max update per frame 3, got %d", cfg.Simulation.MaxUpdatePerFrame)
	}
	if cfg.Viewer.Width != 1920 || cfg.Viewer.Height != 720 {
		t.Errorf("expected 1920x720, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
	}
	if cfg.Viewer.VSync {
		t.Error("expected vsync to be false")
	}
	if cfg.Logging.LogFile != "cloth.log" {
		t.Errorf("expected log file 'cloth.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Data.ParamsFile != "skirt.yaml" {
		t.Errorf("expected params file 'skirt.yaml', got %s", cfg.Data.ParamsFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	invalidYAML := `
simulation:
  frequency: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
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

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "simulation flags",
			args: []string{"-hz", "120", "-workers", "2", "-deferred"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Simulation.Frequency != 120 {
					t.Errorf("expected frequency 120, got %d", cfg.Simulation.Frequency)
				}
				if cfg.Simulation.Workers != 2 {
					t.Errorf("expected 2 workers, got %d", cfg.Simulation.Workers)
				}
				if !cfg.Simulation.Deferred {
					t.Error("expected deferred to be true")
				}
			},
		},
		{
			name: "window size",
			args: []string{"-width", "2560", "-height", "1440"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.Width != 2560 || cfg.Viewer.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
				}
			},
		},
		{
			name: "no flags",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Simulation.Frequency != physics.ReferenceFrequency {
					t.Errorf("expected default frequency, got %d", cfg.Simulation.Frequency)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			f := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}
			cfg := Default()
			f.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cloth.yaml")
	yamlContent := `
simulation:
  frequency: 60
  max_update_per_frame: 5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-hz", "120"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	// flag beats file
	if cfg.Simulation.Frequency != 120 {
		t.Errorf("expected frequency 120 from flag, got %d", cfg.Simulation.Frequency)
	}
	// file beats default
	if cfg.Simulation.MaxUpdatePerFrame != 5 {
		t.Errorf("expected max update 5 from file, got %d", cfg.Simulation.MaxUpdatePerFrame)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cloth.yaml")
	cfg := Default()
	cfg.Simulation.Frequency = 75
	cfg.Viewer.ShowRoles = false
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Simulation.Frequency != 75 {
		t.Errorf("expected frequency 75, got %d", loaded.Simulation.Frequency)
	}
	if loaded.Viewer.ShowRoles {
		t.Error("expected show_roles to be false")
	}
}

func TestLoadClothParams(t *testing.T) {
	dir := t.TempDir()

	p, err := LoadClothParams("")
	if err != nil {
		t.Fatalf("LoadClothParams(\"\") failed: %v", err)
	}
	if p.Gravity != physics.DefaultClothParams().Gravity {
		t.Errorf("expected default gravity, got %v", p.Gravity)
	}

	preset := filepath.Join(dir, "skirt.yaml")
	yamlContent := `
gravity: 5
distance:
  stiffness: {start: 0.9, end: 0.4}
spring:
  enabled: true
`
	if err := os.WriteFile(preset, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write preset: %v", err)
	}
	p, err = LoadClothParams(preset)
	if err != nil {
		t.Fatalf("LoadClothParams failed: %v", err)
	}
	if p.Gravity != 5 {
		t.Errorf("expected gravity 5, got %v", p.Gravity)
	}
	if p.Distance.Stiffness != math.LinearCurve(0.9, 0.4) {
		t.Errorf("expected stiffness curve 0.9->0.4, got %+v", p.Distance.Stiffness)
	}
	if p.Distance.Iterations != physics.DefaultClothParams().Distance.Iterations {
		t.Errorf("distance iterations lost their default: %d", p.Distance.Iterations)
	}
	if !p.Spring.Enabled {
		t.Error("expected spring enabled")
	}

	saved := filepath.Join(dir, "saved.yaml")
	if err := SaveClothParams(saved, p); err != nil {
		t.Fatalf("SaveClothParams failed: %v", err)
	}
	again, err := LoadClothParams(saved)
	if err != nil {
		t.Fatalf("reloading saved preset failed: %v", err)
	}
	if again != p {
		t.Errorf("saved preset differs:\n got %+v\nwant %+v", again, p)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("blend_weight: 3\n"), 0644); err != nil {
		t.Fatalf("failed to write preset: %v", err)
	}
	if _, err := LoadClothParams(bad); err == nil {
		t.Error("expected validation error for blend_weight 3")
	}
}
