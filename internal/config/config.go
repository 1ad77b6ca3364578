// Package config handles tiler configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/lodtiler/pkg/decimate"
	"github.com/Faultbox/lodtiler/pkg/octree"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all tiler settings.
type Config struct {
	Octree     OctreeConfig     `yaml:"octree"`
	Decimation DecimationConfig `yaml:"decimation"`
	LODs       []LODConfig      `yaml:"lods"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// OctreeConfig holds spatial subdivision settings.
type OctreeConfig struct {
	MaxDepth         uint32  `yaml:"max_depth"`
	MinCellSize      float64 `yaml:"min_cell_size"`
	Distribution     string  `yaml:"distribution"` // centroid or bbox
	UniqueFirstMatch bool    `yaml:"unique_first_match"`
	CubicRoot        bool    `yaml:"cubic_root"` // grow the scene box to a cube
}

// DecimationConfig holds edge collapse settings.
type DecimationConfig struct {
	Policy             string  `yaml:"policy"`    // shortest_edge or quadric
	Placement          string  `yaml:"placement"` // keep_start, midpoint or optimal
	MaxNormalDeviation float64 `yaml:"max_normal_deviation_deg"`
	MinFaceArea        float64 `yaml:"min_face_area"`
	PreserveBoundary   bool    `yaml:"preserve_boundary"`
	Verify             bool    `yaml:"verify"`
}

// LODConfig describes one level of detail. Ratio is the fraction of the
// leaf's original triangle count to keep.
type LODConfig struct {
	Ratio          float64 `yaml:"ratio"`
	MaxError       float64 `yaml:"max_error"`
	GeometricError float64 `yaml:"geometric_error"` // written to the manifest; 0 uses the largest collapse cost
}

// PipelineConfig holds tiling job settings.
type PipelineConfig struct {
	Workers   int           `yaml:"workers"` // 0 uses one per CPU
	OutputDir string        `yaml:"output_dir"`
	Timeout   time.Duration `yaml:"timeout"` // 0 means no limit
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"` // log_file gets one JSON object per line
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Octree: OctreeConfig{
			MaxDepth:     5,
			MinCellSize:  0,
			Distribution: "centroid",
			CubicRoot:    true,
		},
		Decimation: DecimationConfig{
			Policy:             string(decimate.PolicyShortestEdge),
			Placement:          string(decimate.PlaceMidpoint),
			MaxNormalDeviation: 60,
			PreserveBoundary:   true,
		},
		LODs: []LODConfig{
			{Ratio: 1},
			{Ratio: 0.5},
			{Ratio: 0.25},
		},
		Pipeline: PipelineConfig{
			Workers:   0,
			OutputDir: "tiles",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if _, err := octree.ParseDistribution(c.Octree.Distribution); err != nil {
		return fmt.Errorf("%w: octree: %w", ErrInvalid, err)
	}
	if c.Octree.MinCellSize < 0 {
		return fmt.Errorf("%w: octree.min_cell_size %v is negative", ErrInvalid, c.Octree.MinCellSize)
	}
	if _, err := decimate.ParsePolicy(c.Decimation.Policy); err != nil {
		return fmt.Errorf("%w: decimation: %w", ErrInvalid, err)
	}
	if _, err := decimate.ParsePlacement(c.Decimation.Placement); err != nil {
		return fmt.Errorf("%w: decimation: %w", ErrInvalid, err)
	}
	if d := c.Decimation.MaxNormalDeviation; d <= 0 || d > 180 {
		return fmt.Errorf("%w: decimation.max_normal_deviation_deg %v outside (0, 180]", ErrInvalid, d)
	}
	if c.Decimation.MinFaceArea < 0 {
		return fmt.Errorf("%w: decimation.min_face_area %v is negative", ErrInvalid, c.Decimation.MinFaceArea)
	}
	if len(c.LODs) == 0 {
		return fmt.Errorf("%w: at least one lod is required", ErrInvalid)
	}
	prev := 1.0
	for i, l := range c.LODs {
		if l.Ratio <= 0 || l.Ratio > prev {
			return fmt.Errorf("%w: lods[%d].ratio %v must be in (0, %v]", ErrInvalid, i, l.Ratio, prev)
		}
		if l.MaxError < 0 || l.GeometricError < 0 {
			return fmt.Errorf("%w: lods[%d] errors must not be negative", ErrInvalid, i)
		}
		prev = l.Ratio
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: pipeline.workers %d is negative", ErrInvalid, c.Pipeline.Workers)
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("%w: pipeline.timeout %v is negative", ErrInvalid, c.Pipeline.Timeout)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging: %w", ErrInvalid, err)
	}
	return nil
}

// OctreeOptions converts the octree section. Call Validate first.
func (c *Config) OctreeOptions() octree.Options {
	dist, _ := octree.ParseDistribution(c.Octree.Distribution)
	return octree.Options{
		MaxDepth:         c.Octree.MaxDepth,
		MinCellSize:      c.Octree.MinCellSize,
		Distribution:     dist,
		UniqueFirstMatch: c.Octree.UniqueFirstMatch,
	}
}

// DecimateOptions converts the decimation section. Call Validate first.
func (c *Config) DecimateOptions() decimate.Options {
	policy, _ := decimate.ParsePolicy(c.Decimation.Policy)
	placement, _ := decimate.ParsePlacement(c.Decimation.Placement)
	return decimate.Options{
		Policy:             policy,
		Placement:          placement,
		MaxNormalDeviation: c.Decimation.MaxNormalDeviation,
		MinFaceArea:        c.Decimation.MinFaceArea,
		PreserveBoundary:   c.Decimation.PreserveBoundary,
		Verify:             c.Decimation.Verify,
	}
}
