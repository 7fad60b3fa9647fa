// Package config loads pipeline configuration from defaults, an optional
// YAML file, and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/eandualem/go-twi"
	"github.com/eandualem/go-twi/lidar"
)

// Config holds the recognized pipeline options.
type Config struct {
	// CellSize is the grid resolution in point coordinate units.
	CellSize float64 `koanf:"cell_size"`

	// Aggregator reduces multiple points per cell: mean, min, max, or nearest.
	Aggregator string `koanf:"aggregator"`

	// Epsilon floors the slope ratio in the wetness formula.
	Epsilon float64 `koanf:"epsilon"`

	// SamplingMode samples wetness back to points: nearest or bilinear.
	SamplingMode string `koanf:"sampling_mode"`

	// NeighborPriority orders the eight compass directions (E, SE, S, SW, W,
	// NW, N, NE) for flow-routing tie breaks. Empty keeps the default,
	// clockwise from due east.
	NeighborPriority []string `koanf:"neighbor_priority"`

	// Classifications keeps only LAS points with these classification values.
	// Empty keeps everything.
	Classifications []int `koanf:"classifications"`

	// BaseURL overrides the USGS 3DEP bucket URL.
	BaseURL string `koanf:"base_url"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		CellSize:     1,
		Aggregator:   string(twi.AggregatorMean),
		Epsilon:      twi.DefaultEpsilon,
		SamplingMode: string(twi.SamplingNearest),
		BaseURL:      lidar.DefaultBaseURL,
		LogLevel:     "info",
	}
}

// PipelineOptions converts c into options for the twi pipeline.
func (c *Config) PipelineOptions() ([]twi.PipelineOption, error) {
	options := []twi.PipelineOption{
		twi.WithCellSize(c.CellSize),
		twi.WithAggregator(twi.Aggregator(c.Aggregator)),
		twi.WithEpsilon(c.Epsilon),
		twi.WithSamplingMode(twi.SamplingMode(c.SamplingMode)),
	}
	if len(c.NeighborPriority) > 0 {
		priority, err := parseNeighborPriority(c.NeighborPriority)
		if err != nil {
			return nil, err
		}
		options = append(options, twi.WithNeighborPriority(priority))
	}
	return options, nil
}

var directionsByName = map[string]twi.Direction{
	"E":  twi.DirE,
	"SE": twi.DirSE,
	"S":  twi.DirS,
	"SW": twi.DirSW,
	"W":  twi.DirW,
	"NW": twi.DirNW,
	"N":  twi.DirN,
	"NE": twi.DirNE,
}

func parseNeighborPriority(names []string) (twi.NeighborPriority, error) {
	var priority twi.NeighborPriority
	if len(names) != len(priority) {
		return priority, fmt.Errorf("neighbor priority needs %d directions, got %d", len(priority), len(names))
	}
	for i, name := range names {
		direction, ok := directionsByName[strings.ToUpper(name)]
		if !ok {
			return priority, fmt.Errorf("unknown direction %q", name)
		}
		priority[i] = direction
	}
	return priority, nil
}

// ReadOptions converts c into options for LAS reading.
func (c *Config) ReadOptions() []lidar.ReadOption {
	var options []lidar.ReadOption
	if len(c.Classifications) > 0 {
		classifications := make([]uint8, len(c.Classifications))
		for i, classification := range c.Classifications {
			classifications[i] = uint8(classification)
		}
		options = append(options, lidar.WithClassifications(classifications...))
	}
	return options
}
