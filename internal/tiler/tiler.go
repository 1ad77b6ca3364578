// Package tiler turns a scene into octree tiles with a chain of simplified
// levels of detail per tile.
package tiler

import (
	"context"
	"errors"
	"fmt"
	gomath "math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/lodtiler/internal/config"
	"github.com/Faultbox/lodtiler/internal/logger"
	"github.com/Faultbox/lodtiler/internal/metrics"
	"github.com/Faultbox/lodtiler/pkg/decimate"
	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
	"github.com/Faultbox/lodtiler/pkg/octree"
	"github.com/Faultbox/lodtiler/pkg/scene"
)

// ErrEmptyScene is returned when flattening leaves no usable triangle.
var ErrEmptyScene = errors.New("tiler: scene has no usable triangles")

// LOD is one simplified level of a tile.
type LOD struct {
	Level          int
	Triangles      int
	Vertices       int
	Collapses      int
	GeometricError float64
	State          decimate.State
	Buffers        *halfedge.Buffers
}

// Tile is one non-empty octree leaf.
type Tile struct {
	ID             uuid.UUID
	Coord          octree.Coordinate
	Box            math.AABB
	Neighbors      [6]bool // indexed by octree.NeighborLeft..NeighborBottom
	InputTriangles int
	Build          halfedge.BuildStats
	Rejections     decimate.Rejections
	LODs           []LOD
	Elapsed        time.Duration

	// Err is set when the surface could not be simplified. LODs then holds
	// only the raw level 0 buffers.
	Err error
}

// Tileset is the result of one Run.
type Tileset struct {
	ID                uuid.UUID
	Bounds            math.AABB
	Octree            octree.Stats
	Tiles             []*Tile
	Failures          []*Tile
	SkippedNonFinite  int
	SkippedDegenerate int
}

// Triangles returns the triangle count of every tile at level.
func (ts *Tileset) Triangles(level int) int {
	n := 0
	for _, t := range ts.Tiles {
		if level < len(t.LODs) {
			n += t.LODs[level].Triangles
		}
	}
	return n
}

// Tiler runs the pipeline for one configuration.
type Tiler struct {
	cfg *config.Config
	log *zap.Logger
}

// New validates cfg and returns a Tiler.
func New(cfg *config.Config) (*Tiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tiler{cfg: cfg, log: logger.Named("tiler")}, nil
}

// Run flattens s, partitions it and builds every tile. Cancelling ctx
// stops the run between tiles and discards all partial output.
func (t *Tiler) Run(ctx context.Context, s *scene.Scene) (*Tileset, error) {
	if t.cfg.Pipeline.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Pipeline.Timeout)
		defer cancel()
	}

	start := time.Now()
	flat, err := scene.Flatten(s)
	if err != nil {
		return nil, fmt.Errorf("flattening scene: %w", err)
	}
	if len(flat.Faces) == 0 {
		return nil, ErrEmptyScene
	}

	ts := &Tileset{
		ID:                uuid.New(),
		Bounds:            flat.Bounds(),
		SkippedNonFinite:  flat.SkippedNonFinite,
		SkippedDegenerate: flat.SkippedDegenerate,
	}

	rootBox := ts.Bounds
	if t.cfg.Octree.CubicRoot {
		rootBox = rootBox.Cube()
	}
	tree, err := octree.Build(rootBox, flat.Faces, t.cfg.OctreeOptions())
	if err != nil {
		return nil, fmt.Errorf("building octree: %w", err)
	}
	ts.Octree = tree.Stats()
	metrics.InstrumentOctree(ts.Octree.NonEmptyLeafs)

	t.log.Info("octree built",
		zap.Stringer("job", ts.ID),
		zap.Int("faces", len(flat.Faces)),
		zap.Int("tiles", ts.Octree.NonEmptyLeafs),
		zap.Uint32("depth", ts.Octree.MaxDepth),
		zap.Int("skipped_non_finite", flat.SkippedNonFinite),
		zap.Int("skipped_degenerate", flat.SkippedDegenerate),
	)

	cells := tree.ExtractCellsWithContent()
	ts.Tiles = make([]*Tile, len(cells))

	jobs := make(chan int, len(cells))
	for i := range cells {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < t.workers(len(cells)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				ts.Tiles[i] = t.buildTile(ts.ID, tree, cells[i])
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tiling cancelled: %w", err)
	}

	for _, tile := range ts.Tiles {
		if tile.Err != nil {
			ts.Failures = append(ts.Failures, tile)
		}
	}

	t.log.Info("tiling finished",
		zap.Stringer("job", ts.ID),
		zap.Int("tiles", len(ts.Tiles)),
		zap.Int("failures", len(ts.Failures)),
		zap.Int("lod0_triangles", ts.Triangles(0)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ts, nil
}

func (t *Tiler) workers(jobs int) int {
	n := t.cfg.Pipeline.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > jobs {
		n = jobs
	}
	return n
}

// buildTile simplifies one leaf. Failures are recorded on the tile.
func (t *Tiler) buildTile(job uuid.UUID, tree *octree.Tree, cell *octree.Cell) *Tile {
	start := time.Now()
	tile := &Tile{
		ID:             uuid.NewSHA1(job, []byte(cell.Coord.String())),
		Coord:          cell.Coord,
		Box:            cell.Box,
		Neighbors:      tree.HasNeighbor(cell, true),
		InputTriangles: len(cell.Faces()),
	}
	log := t.log.With(zap.Stringer("tile", cell.Coord))

	defer func() {
		tile.Elapsed = time.Since(start)
		metrics.InstrumentTile(tile.Err, start)
	}()

	src := scene.LeafSource(cell.Faces())
	mesh, stats, err := halfedge.Build(src)
	tile.Build = stats
	if err != nil {
		if errors.Is(err, halfedge.ErrNonManifold) {
			metrics.InstrumentNonManifold()
		}
		tile.Err = err
		t.keepRaw(tile, src)
		log.Warn("surface kept unsimplified", zap.Error(err))
		return tile
	}

	opts := t.cfg.DecimateOptions()
	eng, err := decimate.New(mesh, opts)
	if err != nil {
		tile.Err = err
		t.keepRaw(tile, src)
		return tile
	}

	base := mesh.ActiveFaceCount()
	maxCost := 0.0
	for level, lod := range t.cfg.LODs {
		target := decimate.Target{
			Triangles: max(1, int(gomath.Ceil(lod.Ratio*float64(base)))),
			MaxError:  lod.MaxError,
		}
		res, err := eng.Run(target)
		tile.Rejections.Add(res.Rejections)
		if err != nil {
			tile.Err = err
			t.keepRaw(tile, src)
			log.Error("decimation failed", zap.Int("lod", level), zap.Error(err))
			return tile
		}
		maxCost = gomath.Max(maxCost, res.MaxCost)
		metrics.InstrumentLOD(fmt.Sprint(level), opts.Policy, res)

		geometric := lod.GeometricError
		if geometric == 0 {
			geometric = maxCost
		}
		buf := eng.Compact()
		tile.LODs = append(tile.LODs, LOD{
			Level:          level,
			Triangles:      buf.TriangleCount(),
			Vertices:       buf.VertexCount(),
			Collapses:      res.Collapses,
			GeometricError: geometric,
			State:          res.State,
			Buffers:        buf,
		})
	}

	log.Debug("tile built",
		zap.Int("input_triangles", tile.InputTriangles),
		zap.Int("lods", len(tile.LODs)),
		zap.Int("final_triangles", tile.LODs[len(tile.LODs)-1].Triangles),
		zap.Int("rejections", tile.Rejections.Total()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return tile
}

// keepRaw replaces the tile's levels with the unsimplified leaf geometry.
func (t *Tiler) keepRaw(tile *Tile, src halfedge.Source) {
	buf := src.Buffers()
	tile.LODs = []LOD{{
		Level:     0,
		Triangles: buf.TriangleCount(),
		Vertices:  buf.VertexCount(),
		State:     decimate.StateExhausted,
		Buffers:   buf,
	}}
}
