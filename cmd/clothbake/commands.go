package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-cloth/internal/logger"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
)

const bundleExt = ".mcla"

// buildOverrides are flags that switch constraint groups on top of what
// the source file asks for.
type buildOverrides struct {
	bend        *bool
	near        *bool
	noBend      *bool
	penetration *string
}

func registerBuildFlags(fs *flag.FlagSet) *buildOverrides {
	return &buildOverrides{
		bend:        fs.Bool("bend", false, "Enable bend distance links"),
		near:        fs.Bool("near", false, "Enable near distance links"),
		noBend:      fs.Bool("no-triangle-bend", false, "Disable triangle bend records"),
		penetration: fs.String("penetration", "", "Penetration mode: none, surface, collider"),
	}
}

func (o *buildOverrides) apply(p *constraint.BuildParams) error {
	if *o.bend {
		p.Bend.Enabled = true
	}
	if *o.near {
		p.Near.Enabled = true
	}
	if *o.noBend {
		p.TriangleBend = false
	}
	if *o.penetration != "" {
		if err := p.Penetration.Mode.UnmarshalText([]byte(*o.penetration)); err != nil {
			return err
		}
	}
	return nil
}

func bundlePath(src, dir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + bundleExt
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, base)
}

func bakeFile(src, out string, o *buildOverrides) (*asset.Bundle, error) {
	s, err := asset.LoadSource(src)
	if err != nil {
		return nil, err
	}
	if err := o.apply(&s.Build); err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	b, err := s.Bake()
	if err != nil {
		return nil, err
	}
	if err := asset.WriteFile(out, b); err != nil {
		return nil, err
	}
	return b, nil
}

func cmdBake(args []string) error {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	out := fs.String("o", "", "Output bundle path (default: next to the source)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	o := registerBuildFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: clothbake bake <source.yaml> [-o out.mcla]")
	}
	initLogger(*debug)
	defer logger.Sync()

	src := fs.Arg(0)
	dst := *out
	if dst == "" {
		dst = bundlePath(src, "")
	}
	start := time.Now()
	b, err := bakeFile(src, dst, o)
	if err != nil {
		return err
	}
	logger.Info("bundle written",
		zap.String("path", dst),
		zap.Int("vertices", b.VertexCount()),
		zap.Int("move", b.MoveCount()),
		zap.Uint64("hash", b.Hash),
		zap.Duration("took", time.Since(start)))
	return nil
}

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	out := fs.String("o", "", "Output directory (default: next to each source)")
	jobs := fs.Int("j", 0, "Parallel bakes (0 = one per CPU)")
	quiet := fs.Bool("q", false, "Hide the progress bar")
	o := registerBuildFlags(fs)
	fs.Parse(args)

	sources := fs.Args()
	if len(sources) == 0 {
		return errors.New("usage: clothbake batch [-o dir] [-j N] <source.yaml>...")
	}
	initLogger(false)
	defer logger.Sync()

	if *out != "" {
		if err := os.MkdirAll(*out, 0755); err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.Default(int64(len(sources)), "baking")
		defer bar.Close()
	}

	var g errgroup.Group
	if *jobs > 0 {
		g.SetLimit(*jobs)
	}
	var failed atomic.Int32
	for _, src := range sources {
		src := src
		g.Go(func() error {
			_, err := bakeFile(src, bundlePath(src, *out), o)
			if bar != nil {
				bar.Add(1)
			}
			if err != nil {
				failed.Add(1)
				logger.Error("bake failed", zap.String("source", src), zap.Error(err))
			}
			return err
		})
	}
	err := g.Wait()
	logger.Info("batch finished",
		zap.Int("sources", len(sources)),
		zap.Int32("failed", failed.Load()))
	return err
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: clothbake info <bundle.mcla>")
	}
	b, err := asset.ReadFile(args[0])
	if err != nil {
		return err
	}

	d := b.Constraints
	fmt.Printf("Bundle:    %s\n", b.Name)
	fmt.Printf("Hash:      %016x\n", b.Hash)
	fmt.Printf("Vertices:  %d used of %d (%d move)\n", b.VertexCount(), b.SourceVertexCount, b.MoveCount())
	fmt.Printf("Max level: %d\n", b.MaxLevel)
	fmt.Printf("Lines:     %d\n", len(b.Lines))
	fmt.Printf("Triangles: %d\n", len(b.Triangles))
	fmt.Println()
	fmt.Println("Constraints:")
	if d.Distance != nil {
		var kinds [3]int
		for _, r := range d.Distance.Records {
			if int(r.Kind) < len(kinds) {
				kinds[r.Kind]++
			}
		}
		fmt.Printf("  %-15s %d (structural %d, near %d, bend %d)\n", "distance",
			len(d.Distance.Records), kinds[0], kinds[1], kinds[2])
	}
	if d.ClampDistance != nil {
		n := 0
		for _, r := range d.ClampDistance {
			if r.Root >= 0 {
				n++
			}
		}
		fmt.Printf("  %-15s %d\n", "clamp distance", n)
	}
	if d.Rotation != nil {
		fmt.Printf("  %-15s %d lines\n", "rotation", len(d.Rotation.Lines))
	}
	if d.TriangleBend != nil {
		fmt.Printf("  %-15s %d\n", "triangle bend", len(d.TriangleBend.Records))
	}
	if d.Penetration != nil {
		fmt.Printf("  %-15s %d (%s)\n", "penetration", len(d.Penetration.Records), d.Penetration.Mode)
	}
	return nil
}

func cmdDump(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: clothbake dump <bundle.mcla|source.yaml>")
	}
	path := args[0]

	var b *asset.Bundle
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var s *asset.Source
		if s, err = asset.LoadSource(path); err == nil {
			b, err = s.Bake()
		}
	default:
		b, err = asset.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return asset.Dump(os.Stdout, b)
}

func cmdGrid(args []string) error {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	cols := fs.Int("cols", 8, "Columns")
	rows := fs.Int("rows", 8, "Rows (the top row is fixed)")
	spacing := fs.Float64("spacing", 0.1, "Vertex spacing in meters")
	out := fs.String("o", "", "Output source path (default: grid_<cols>x<rows>.yaml)")
	fs.Parse(args)

	if *cols < 1 || *rows < 2 {
		return fmt.Errorf("grid needs at least 1 column and 2 rows, got %dx%d", *cols, *rows)
	}
	s := asset.GridSource(*cols, *rows, float32(*spacing))
	path := *out
	if path == "" {
		path = s.Name + ".yaml"
	}
	if err := s.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d vertices)\n", path, *cols**rows)
	return nil
}

func initLogger(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}
