package config

import "flag"

// Flags are the command-line overrides shared by the cloth tools. Zero
// values leave the loaded config untouched.
type Flags struct {
	Config    string
	Debug     bool
	LogFile   string
	Frequency int
	Workers   int
	Deferred  bool
	Params    string
	Width     int
	Height    int
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log", "", "Log file path")
	fs.IntVar(&f.Frequency, "hz", 0, "Simulation frequency")
	fs.IntVar(&f.Workers, "workers", 0, "Worker goroutines (0 = GOMAXPROCS)")
	fs.BoolVar(&f.Deferred, "deferred", false, "Run the solver one frame behind on a background goroutine")
	fs.StringVar(&f.Params, "params", "", "Cloth parameter preset (YAML)")
	fs.IntVar(&f.Width, "width", 0, "Window width")
	fs.IntVar(&f.Height, "height", 0, "Window height")
	return f
}

// apply writes flag overrides into cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Frequency > 0 {
		cfg.Simulation.Frequency = f.Frequency
	}
	if f.Workers > 0 {
		cfg.Simulation.Workers = f.Workers
	}
	if f.Deferred {
		cfg.Simulation.Deferred = true
	}
	if f.Params != "" {
		cfg.Data.ParamsFile = f.Params
	}
	if f.Width > 0 {
		cfg.Viewer.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Viewer.Height = f.Height
	}
}
