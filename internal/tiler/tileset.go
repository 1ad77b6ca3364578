package tiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"

	"github.com/Faultbox/lodtiler/pkg/decimate"
	"github.com/Faultbox/lodtiler/pkg/formats"
	"github.com/Faultbox/lodtiler/pkg/math"
	"github.com/Faultbox/lodtiler/pkg/octree"
)

// ManifestName is the file Write puts next to the mesh buffers.
const ManifestName = "tileset.json"

// Manifest is the JSON description of a written tileset.
type Manifest struct {
	ID                string         `json:"id"`
	Bounds            Box            `json:"bounds"`
	Octree            octree.Stats   `json:"octree"`
	SkippedNonFinite  int            `json:"skipped_non_finite"`
	SkippedDegenerate int            `json:"skipped_degenerate"`
	Tiles             []ManifestTile `json:"tiles"`
}

// Box is an axis-aligned box as two corners.
type Box struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// ManifestTile describes one tile.
type ManifestTile struct {
	ID             string          `json:"id"`
	Coord          string          `json:"coord"`
	Bounds         Box             `json:"bounds"`
	Neighbors      map[string]bool `json:"neighbors"`
	InputTriangles int             `json:"input_triangles"`
	LockedVertices int             `json:"locked_vertices,omitempty"`
	Rejections     map[string]int  `json:"rejections,omitempty"`
	Error          string          `json:"error,omitempty"`
	LODs           []ManifestLOD   `json:"lods"`
}

// ManifestLOD describes one level file.
type ManifestLOD struct {
	Level          int     `json:"level"`
	File           string  `json:"file"`
	Triangles      int     `json:"triangles"`
	Vertices       int     `json:"vertices"`
	GeometricError float64 `json:"geometric_error"`
	State          string  `json:"state"`
}

var neighborNames = [6]string{"left", "right", "front", "rear", "top", "bottom"}

func boxOf(b math.AABB) Box {
	return Box{
		Min: [3]float64{b.Min.X, b.Min.Y, b.Min.Z},
		Max: [3]float64{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// lodFile names the buffer file of one tile level.
func lodFile(c octree.Coordinate, level int) string {
	return fmt.Sprintf("%d_%d_%d_%d_lod%d.lmb", c.Depth, c.X, c.Y, c.Z, level)
}

// Manifest builds the JSON description of ts.
func (ts *Tileset) Manifest() *Manifest {
	m := &Manifest{
		ID:                ts.ID.String(),
		Bounds:            boxOf(ts.Bounds),
		Octree:            ts.Octree,
		SkippedNonFinite:  ts.SkippedNonFinite,
		SkippedDegenerate: ts.SkippedDegenerate,
		Tiles:             make([]ManifestTile, 0, len(ts.Tiles)),
	}
	for _, t := range ts.Tiles {
		mt := ManifestTile{
			ID:             t.ID.String(),
			Coord:          t.Coord.String(),
			Bounds:         boxOf(t.Box),
			Neighbors:      make(map[string]bool, 6),
			InputTriangles: t.InputTriangles,
		}
		for i, name := range neighborNames {
			mt.Neighbors[name] = t.Neighbors[i]
		}
		if t.Err != nil {
			mt.Error = t.Err.Error()
		}
		mt.LockedVertices = t.Build.NonManifoldVertices
		for i, n := range t.Rejections {
			if n > 0 {
				if mt.Rejections == nil {
					mt.Rejections = make(map[string]int)
				}
				mt.Rejections[decimate.Rejection(i).String()] = n
			}
		}
		for _, l := range t.LODs {
			mt.LODs = append(mt.LODs, ManifestLOD{
				Level:          l.Level,
				File:           lodFile(t.Coord, l.Level),
				Triangles:      l.Triangles,
				Vertices:       l.Vertices,
				GeometricError: l.GeometricError,
				State:          l.State.String(),
			})
		}
		m.Tiles = append(m.Tiles, mt)
	}
	return m
}

// Write stores the manifest and one LMB file per tile level in dir.
func (ts *Tileset) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, t := range ts.Tiles {
		for _, l := range t.LODs {
			path := filepath.Join(dir, lodFile(t.Coord, l.Level))
			if err := formats.WriteBuffers(path, l.Buffers); err != nil {
				return fmt.Errorf("tile %s lod %d: %w", t.Coord, l.Level, err)
			}
		}
	}

	data, err := json.MarshalIndent(ts.Manifest(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), data, 0644)
}

// ReadManifest loads the manifest written by Write.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return m, nil
}
