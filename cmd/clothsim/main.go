// clothsim runs baked cloth bundles headlessly and reports solver stats.
package main

import (
	"bufio"
	"flag"
	"fmt"
	gomath "math"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-cloth/internal/config"
	"github.com/Faultbox/midgard-cloth/internal/logger"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/physics"
)

var (
	flagFrames  = flag.Int("frames", 600, "Frames to simulate")
	flagFPS     = flag.Int("fps", 60, "Frame rate driving Tick")
	flagGrid    = flag.String("grid", "", "Simulate a generated sheet, e.g. 16x24, instead of bundle files")
	flagSwing   = flag.Float64("swing", 0.3, "Amplitude in meters of the sideways team motion")
	flagOut     = flag.String("out", "", "Write the final pose of every team to this file")
	flagQuiet   = flag.Bool("q", false, "Hide the progress bar")
	flagCompact = flag.Bool("churn", false, "Remove and re-add the first team halfway through, then compact")
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, logFileConfig(cfg), true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, flag.Args()); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

func logFileConfig(cfg *config.Config) logger.FileConfig {
	if cfg.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	fc := logger.DefaultFileConfig(cfg.Logging.LogFile)
	fc.MaxSizeMB = cfg.Logging.MaxSizeMB
	fc.MaxBackups = cfg.Logging.MaxBackups
	return fc
}

func loadBundles(paths []string) ([]*asset.Bundle, error) {
	if *flagGrid != "" {
		var cols, rows int
		if _, err := fmt.Sscanf(*flagGrid, "%dx%d", &cols, &rows); err != nil {
			return nil, fmt.Errorf("parsing -grid %q: %w", *flagGrid, err)
		}
		b, err := asset.GridSource(cols, rows, 0.1).Bake()
		if err != nil {
			return nil, err
		}
		return []*asset.Bundle{b}, nil
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no bundles given; pass .mcla files or -grid CxR")
	}
	var bundles []*asset.Bundle
	for _, p := range paths {
		b, err := asset.ReadFile(p)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func run(cfg *config.Config, paths []string) error {
	bundles, err := loadBundles(paths)
	if err != nil {
		return err
	}
	params, err := config.LoadClothParams(cfg.Data.ParamsFile)
	if err != nil {
		return err
	}

	sim := physics.NewSimulation(cfg.Simulation, physics.WithLogger(logger.Named("physics")))
	defer sim.Close()

	teams := make([]physics.TeamID, len(bundles))
	for i, b := range bundles {
		id, err := sim.AddTeam(b, params, physics.TeamOptions{
			Position: math.Vec3{X: float32(i) * 2},
		})
		if err != nil {
			return err
		}
		teams[i] = id
	}
	logger.Info("simulation ready",
		zap.Int("teams", len(teams)),
		zap.Int("frequency", cfg.Simulation.Frequency),
		zap.Bool("deferred", cfg.Simulation.Deferred))

	var bar *progressbar.ProgressBar
	if !*flagQuiet {
		bar = progressbar.Default(int64(*flagFrames), "simulating")
		defer bar.Close()
	}

	dt := 1 / float32(*flagFPS)
	start := time.Now()
	steps := 0
	for frame := 0; frame < *flagFrames; frame++ {
		t := float64(frame) * float64(dt)
		sway := float32(*flagSwing * gomath.Sin(t*2*gomath.Pi*0.5))
		for i, id := range teams {
			pos := math.Vec3{X: float32(i)*2 + sway}
			if err := sim.SetTeamTransform(id, pos, math.QuatIdentity(), 1); err != nil {
				return err
			}
		}

		if *flagCompact && frame == *flagFrames/2 && len(teams) > 0 {
			if err := churn(sim, teams, bundles[0], params); err != nil {
				return err
			}
		}

		sim.Tick(dt)
		steps += sim.Stats().Steps
		if bar != nil {
			bar.Add(1)
		}
	}
	sim.Wait()

	elapsed := time.Since(start)
	st := sim.Stats()
	logger.Info("simulation finished",
		zap.Int("frames", *flagFrames),
		zap.Int("steps", steps),
		zap.Int("particles", st.Particles),
		zap.Float32("fragmentation", st.Fragmentation),
		zap.Duration("took", elapsed),
		zap.Duration("per_frame", elapsed/time.Duration(max(*flagFrames, 1))))

	if *flagOut != "" {
		return writePoses(*flagOut, sim, teams)
	}
	return nil
}

// churn replaces the first team to exercise removal and compaction.
func churn(sim *physics.Simulation, teams []physics.TeamID, b *asset.Bundle, p physics.ClothParams) error {
	if err := sim.RemoveTeam(teams[0]); err != nil {
		return err
	}
	sim.Compact()
	id, err := sim.AddTeam(b, p, physics.TeamOptions{})
	if err != nil {
		return err
	}
	teams[0] = id
	logger.Debug("team replaced", zap.Float32("fragmentation", sim.Fragmentation()))
	return nil
}

func writePoses(path string, sim *physics.Simulation, teams []physics.TeamID) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range teams {
		t, _ := sim.Team(id)
		out := make([]physics.Transform, t.Particles.Count)
		if err := sim.WriteTransforms(id, out, false); err != nil {
			return err
		}
		fmt.Fprintf(w, "team %s %d\n", t.Name, len(out))
		for i, tr := range out {
			fmt.Fprintf(w, "%d %.5f %.5f %.5f\n", i, tr.Pos.X, tr.Pos.Y, tr.Pos.Z)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	logger.Info("poses written", zap.String("path", path))
	return nil
}
