// Package twi computes the Topographic Wetness Index over regular elevation
// grids built from irregular LIDAR-derived point sets.
//
// The pipeline is strictly linear: points are rasterized onto a grid, D8
// slope and flow accumulation are derived from the grid, the wetness index
// is computed per cell, and the original points are annotated by sampling
// the wetness grid at their locations.
package twi

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCellSize is returned when the configured cell size is not
	// strictly positive.
	ErrInvalidCellSize = errors.New("invalid cell size")

	// ErrInsufficientData is returned when fewer than three points are
	// supplied, too few to build a meaningful elevation surface.
	ErrInsufficientData = errors.New("insufficient data")
)

// A Point is a single elevation measurement.
type Point struct {
	X float64
	Y float64
	Z float64
}

// An AnnotatedPoint is a Point with its sampled wetness index. Wetness is
// NaN when the point falls on a no data cell.
type AnnotatedPoint struct {
	Point
	Wetness float64
}

// A SamplingMode selects how the wetness grid is sampled back to points.
type SamplingMode string

const (
	SamplingNearest  SamplingMode = "nearest"
	SamplingBilinear SamplingMode = "bilinear"
)

// DefaultEpsilon is the default floor applied to the slope ratio before
// dividing, keeping near-flat cells finite.
const DefaultEpsilon = 1e-6

// A Pipeline holds the configuration for a wetness computation.
type Pipeline struct {
	cellSize     float64
	aggregator   Aggregator
	epsilon      float64
	priority     NeighborPriority
	samplingMode SamplingMode
}

// A PipelineOption sets an option on a Pipeline.
type PipelineOption func(*Pipeline)

// NewPipeline returns a new Pipeline with the given options.
func NewPipeline(options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cellSize:     1,
		aggregator:   AggregatorMean,
		epsilon:      DefaultEpsilon,
		priority:     DefaultNeighborPriority,
		samplingMode: SamplingNearest,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func WithCellSize(cellSize float64) PipelineOption {
	return func(p *Pipeline) {
		p.cellSize = cellSize
	}
}

func WithAggregator(aggregator Aggregator) PipelineOption {
	return func(p *Pipeline) {
		p.aggregator = aggregator
	}
}

func WithEpsilon(epsilon float64) PipelineOption {
	return func(p *Pipeline) {
		p.epsilon = epsilon
	}
}

func WithNeighborPriority(priority NeighborPriority) PipelineOption {
	return func(p *Pipeline) {
		p.priority = priority
	}
}

func WithSamplingMode(samplingMode SamplingMode) PipelineOption {
	return func(p *Pipeline) {
		p.samplingMode = samplingMode
	}
}

// A Result holds every grid derived by the pipeline together with the
// annotated input points.
type Result struct {
	Elevation *Grid
	Slope     *SlopeGrid
	Flow      *FlowGrid
	Wetness   *Grid
	Points    []AnnotatedPoint
	Summary   Summary
}

// A Summary reports aggregate statistics over a Result. Wetness statistics
// cover valid wetness cells only; no data cells are excluded.
type Summary struct {
	ValidCells    int
	NoDataCells   int
	Pits          int
	MinWetness    float64
	MaxWetness    float64
	MeanWetness   float64
	SampledPoints int
	NoDataPoints  int
}

// Compute runs the full pipeline over points with the given options.
func Compute(points []Point, options ...PipelineOption) (*Result, error) {
	return NewPipeline(options...).Compute(points)
}

// Compute rasterizes points onto an elevation grid and derives slope, flow
// accumulation, and wetness grids from it. The input points are returned
// annotated with their sampled wetness values.
func (p *Pipeline) Compute(points []Point) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrInsufficientData, len(points))
	}
	grid, err := NewGrid(points, p.cellSize, p.aggregator)
	if err != nil {
		return nil, err
	}
	result, err := p.ComputeGrid(grid)
	if err != nil {
		return nil, err
	}
	result.Points = Annotate(points, grid, result.Wetness, p.samplingMode)
	for _, point := range result.Points {
		if math.IsNaN(point.Wetness) {
			result.Summary.NoDataPoints++
		} else {
			result.Summary.SampledPoints++
		}
	}
	return result, nil
}

// ComputeGrid derives slope, flow accumulation, and wetness grids from an
// existing elevation grid, for callers that already hold a DEM.
func (p *Pipeline) ComputeGrid(grid *Grid) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	slope := Slope(grid)
	flow := FlowAccumulation(grid, p.priority)
	wetness := Wetness(flow, slope, p.epsilon)
	return &Result{
		Elevation: grid,
		Slope:     slope,
		Flow:      flow,
		Wetness:   wetness,
		Summary:   summarize(wetness, flow),
	}, nil
}

func (p *Pipeline) validate() error {
	if p.cellSize <= 0 || math.IsNaN(p.cellSize) {
		return fmt.Errorf("%w: %v", ErrInvalidCellSize, p.cellSize)
	}
	if err := p.aggregator.validate(); err != nil {
		return err
	}
	if err := p.priority.validate(); err != nil {
		return err
	}
	switch p.samplingMode {
	case SamplingNearest, SamplingBilinear:
	default:
		return fmt.Errorf("unknown sampling mode %q", p.samplingMode)
	}
	if p.epsilon <= 0 || math.IsNaN(p.epsilon) {
		return fmt.Errorf("invalid epsilon %v", p.epsilon)
	}
	return nil
}

func summarize(wetness *Grid, flow *FlowGrid) Summary {
	summary := Summary{
		Pits:       flow.Pits(),
		MinWetness: math.NaN(),
		MaxWetness: math.NaN(),
	}
	var sum float64
	for _, value := range wetness.values {
		if math.IsNaN(value) {
			summary.NoDataCells++
			continue
		}
		if summary.ValidCells == 0 {
			summary.MinWetness = value
			summary.MaxWetness = value
		} else {
			summary.MinWetness = math.Min(summary.MinWetness, value)
			summary.MaxWetness = math.Max(summary.MaxWetness, value)
		}
		summary.ValidCells++
		sum += value
	}
	if summary.ValidCells > 0 {
		summary.MeanWetness = sum / float64(summary.ValidCells)
	} else {
		summary.MeanWetness = math.NaN()
	}
	return summary
}
