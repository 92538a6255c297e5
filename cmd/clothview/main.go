// clothview opens a window and simulates cloth bundles interactively.
package main

import (
	"flag"
	"fmt"
	gomath "math"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-cloth/internal/config"
	"github.com/Faultbox/midgard-cloth/internal/logger"
	"github.com/Faultbox/midgard-cloth/internal/viewer"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/physics"
)

var (
	flagGrid   = flag.String("grid", "", "View a generated sheet, e.g. 16x24, instead of bundle files")
	flagSwing  = flag.Float64("swing", 0.3, "Amplitude in meters of the sideways team motion")
	flagPeriod = flag.Float64("period", 2, "Seconds per swing")
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: clothview [options] [bundle.mcla...]\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, flag.Args()); err != nil {
		logger.Error("viewer failed", zap.Error(err))
		os.Exit(1)
	}
}

func loadBundles(paths []string) ([]*asset.Bundle, error) {
	if *flagGrid != "" || len(paths) == 0 {
		size := *flagGrid
		if size == "" {
			size = "12x16"
		}
		var cols, rows int
		if _, err := fmt.Sscanf(size, "%dx%d", &cols, &rows); err != nil {
			return nil, fmt.Errorf("parsing -grid %q: %w", size, err)
		}
		b, err := asset.GridSource(cols, rows, 0.1).Bake()
		if err != nil {
			return nil, err
		}
		return []*asset.Bundle{b}, nil
	}
	bundles := make([]*asset.Bundle, 0, len(paths))
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

	v, err := viewer.New(cfg.Viewer, sim)
	if err != nil {
		return err
	}
	defer v.Close()

	origins := make([]math.Vec3, len(bundles))
	teams := make([]physics.TeamID, len(bundles))
	for i, b := range bundles {
		origins[i] = math.Vec3{X: float32(i) * 2}
		id, err := sim.AddTeam(b, params, physics.TeamOptions{Position: origins[i]})
		if err != nil {
			return err
		}
		teams[i] = id
		v.AddTeam(id, b)
		logger.Info("team loaded",
			zap.String("name", b.Name),
			zap.Int("vertices", b.VertexCount()),
			zap.Int("movable", b.MoveCount()))
	}

	swing := float32(*flagSwing)
	omega := 2 * gomath.Pi / gomath.Max(*flagPeriod, 0.01)
	return v.Run(func(t, dt float32) error {
		sway := swing * float32(gomath.Sin(float64(t)*omega))
		for i, id := range teams {
			pos := origins[i].Add(math.Vec3{X: sway})
			if err := sim.SetTeamTransform(id, pos, math.QuatIdentity(), 1); err != nil {
				return err
			}
		}
		return nil
	})
}
