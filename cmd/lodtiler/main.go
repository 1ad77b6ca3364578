// lodtiler partitions a scene into octree tiles and writes simplified
// levels of detail for each tile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/lodtiler/internal/config"
	"github.com/Faultbox/lodtiler/internal/logger"
	"github.com/Faultbox/lodtiler/internal/metrics"
	"github.com/Faultbox/lodtiler/internal/tiler"
	"github.com/Faultbox/lodtiler/pkg/formats"
	"github.com/Faultbox/lodtiler/pkg/scene"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	err := run(os.Args[1], os.Args[2:])
	logger.Sync()
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	switch command {
	case "build":
		return cmdBuild(args)
	case "demo":
		return cmdDemo(args)
	case "info":
		return cmdInfo(args)
	case "inspect":
		return cmdInspect(args)
	case "config":
		return cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage() {
	fmt.Println(`lodtiler - octree tiling and mesh simplification

Usage:
  lodtiler <command> [options]

Commands:
  build [flags] <scene.lsc>    Tile a scene and write LOD buffers plus tileset.json
  demo [-cells N] <out.lsc>    Write a procedural demo scene
  info <scene.lsc>             Show scene statistics
  inspect <dir>                Summarize a written tileset
  config [path]                Write the default config file

Examples:
  lodtiler demo demo.lsc
  lodtiler build -o tiles -depth 3 -policy quadric demo.lsc
  lodtiler inspect tiles`)
}

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("%w: lodtiler build [flags] <scene.lsc>", errUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile, cfg.Logging.JSON); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	s, err := formats.ParseSceneFile(fs.Arg(0))
	if err != nil {
		return err
	}
	logger.Debug("scene loaded",
		zap.String("path", fs.Arg(0)),
		zap.Int("meshes", len(s.Meshes)),
		zap.Int("triangles", s.TriangleCount()),
	)

	tl, err := tiler.New(cfg)
	if err != nil {
		return err
	}
	ts, err := tl.Run(ctx, s)
	if err != nil {
		return err
	}
	if err := ts.Write(cfg.Pipeline.OutputDir); err != nil {
		return err
	}
	logger.Info("tileset written", zap.Stringer("job", ts.ID), zap.String("dir", cfg.Pipeline.OutputDir))
	for _, t := range ts.Failures {
		logger.Sugar.Warnf("tile %s kept unsimplified: %v", t.Coord, t.Err)
	}

	fmt.Printf("Tileset:    %s\n", ts.ID)
	fmt.Printf("Tiles:      %d (%d kept raw)\n", len(ts.Tiles), len(ts.Failures))
	for level := range cfg.LODs {
		fmt.Printf("LOD %d:      %d triangles\n", level, ts.Triangles(level))
	}
	fmt.Printf("Output:     %s\n", filepath.Join(cfg.Pipeline.OutputDir, tiler.ManifestName))
	return nil
}

func cmdDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	cells := fs.Int("cells", 64, "Marching cubes resolution along the longest axis")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("%w: lodtiler demo [-cells N] <out.lsc>", errUsage)
	}

	s, err := scene.Demo(*cells)
	if err != nil {
		return err
	}
	if err := formats.WriteScene(fs.Arg(0), s); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d meshes, %d triangles)\n", fs.Arg(0), len(s.Meshes), s.TriangleCount())
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: lodtiler info <scene.lsc>", errUsage)
	}

	s, err := formats.ParseSceneFile(args[0])
	if err != nil {
		return err
	}
	flat, err := scene.Flatten(s)
	if err != nil {
		return err
	}

	fmt.Printf("Meshes:     %d\n", len(s.Meshes))
	for i, m := range s.Meshes {
		fmt.Printf("  [%d] %-20s %8d vertices %8d triangles\n", i, m.Name, len(m.Positions), m.TriangleCount())
	}
	fmt.Printf("Roots:      %d\n", len(s.Roots))
	fmt.Printf("Instances:  %d\n", len(flat.Instances))
	fmt.Printf("Triangles:  %d usable (%d non-finite, %d degenerate skipped)\n",
		len(flat.Faces), flat.SkippedNonFinite, flat.SkippedDegenerate)
	if len(flat.Faces) > 0 {
		b := flat.Bounds()
		fmt.Printf("Bounds:     (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
			b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	}
	return nil
}

func cmdInspect(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: lodtiler inspect <dir>", errUsage)
	}

	m, err := tiler.ReadManifest(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Tileset:    %s\n", m.ID)
	fmt.Printf("Octree:     %d leaves, %d with content, depth %d\n",
		m.Octree.Leaves, m.Octree.NonEmptyLeafs, m.Octree.MaxDepth)

	tiles := append([]tiler.ManifestTile(nil), m.Tiles...)
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Coord < tiles[j].Coord })
	for _, t := range tiles {
		fmt.Printf("  %-14s %6d tris", t.Coord, t.InputTriangles)
		for _, l := range t.LODs {
			fmt.Printf("  lod%d=%d", l.Level, l.Triangles)
		}
		if t.Error != "" {
			fmt.Printf("  (%s)", t.Error)
		}
		fmt.Println()
	}
	return nil
}

func cmdConfig(args []string) error {
	cfg := config.Default()
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	}

	path, err := cfg.Save()
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
