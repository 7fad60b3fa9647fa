package twi_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/eandualem/go-twi"
)

func TestWetness(t *testing.T) {
	g := gridFromValues(t, [][]float64{
		{3, 2, 1},
	})
	slope := twi.Slope(g)
	flow := twi.FlowAccumulation(g, twi.DefaultNeighborPriority)
	wetness := twi.Wetness(flow, slope, twi.DefaultEpsilon)

	assert.Equal(t, math.Log(1), wetness.Value(0, 0))
	assert.Equal(t, math.Log(2), wetness.Value(0, 1))
	// The pit is flat, so its slope is floored at epsilon.
	assert.Equal(t, math.Log(3/twi.DefaultEpsilon), wetness.Value(0, 2))
}

func TestWetness_EpsilonFloor(t *testing.T) {
	g := gridFromValues(t, [][]float64{
		{3, 2, 1},
	})
	slope := twi.Slope(g)
	flow := twi.FlowAccumulation(g, twi.DefaultNeighborPriority)
	wetness := twi.Wetness(flow, slope, 0.5)
	assert.Equal(t, math.Log(3/0.5), wetness.Value(0, 2))
}

func TestWetness_ShapePreserved(t *testing.T) {
	g := gridFromValues(t, [][]float64{
		{5, 4, math.NaN(), 2},
		{6, 5, 4, 3},
		{7, 6, 5, 4},
	})
	slope := twi.Slope(g)
	flow := twi.FlowAccumulation(g, twi.DefaultNeighborPriority)
	wetness := twi.Wetness(flow, slope, twi.DefaultEpsilon)
	assert.Equal(t, g.Rows(), wetness.Rows())
	assert.Equal(t, g.Cols(), wetness.Cols())
	assert.True(t, wetness.IsNoData(0, 2))
}

func TestCompute(t *testing.T) {
	points := []twi.Point{
		{X: 0.5, Y: 0.5, Z: 3},
		{X: 1.5, Y: 0.5, Z: 2},
		{X: 2.5, Y: 0.5, Z: 1},
		{X: 0, Y: 0, Z: 3},
		{X: 3, Y: 1, Z: 1},
	}
	result, err := twi.Compute(points)
	assert.NoError(t, err)
	assert.Equal(t, result.Elevation.Rows(), result.Wetness.Rows())
	assert.Equal(t, result.Elevation.Cols(), result.Wetness.Cols())
	assert.Equal(t, len(points), len(result.Points))
	assert.Equal(t, len(points), result.Summary.SampledPoints)
	assert.Equal(t, 0, result.Summary.NoDataPoints)
	assert.Equal(t, 3, result.Summary.ValidCells)
	assert.Equal(t, 1, result.Summary.Pits)
	assert.Equal(t, math.Log(1), result.Summary.MinWetness)
	assert.Equal(t, math.Log(3/twi.DefaultEpsilon), result.Summary.MaxWetness)
}

func TestCompute_Errors(t *testing.T) {
	points := []twi.Point{
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 0, Z: 2},
		{X: 0, Y: 1, Z: 3},
	}
	_, err := twi.Compute(points, twi.WithCellSize(-1))
	assert.IsError(t, err, twi.ErrInvalidCellSize)

	_, err = twi.Compute(points[:2])
	assert.IsError(t, err, twi.ErrInsufficientData)

	_, err = twi.Compute(points, twi.WithSamplingMode(twi.SamplingMode("cubic")))
	assert.Error(t, err)

	_, err = twi.Compute(points, twi.WithEpsilon(0))
	assert.Error(t, err)

	_, err = twi.Compute(points, twi.WithNeighborPriority(twi.NeighborPriority{}))
	assert.Error(t, err)

	_, err = twi.Compute(points, twi.WithAggregator(twi.Aggregator("median")))
	assert.Error(t, err)
}

func TestCompute_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	points := make([]twi.Point, 400)
	for i := range points {
		points[i] = twi.Point{
			X: 15 * r.Float64(),
			Y: 15 * r.Float64(),
			Z: 50 * r.Float64(),
		}
	}

	first, err := twi.Compute(points, twi.WithCellSize(1))
	assert.NoError(t, err)
	second, err := twi.Compute(points, twi.WithCellSize(1))
	assert.NoError(t, err)

	assert.Equal(t, gridValues(first.Wetness), gridValues(second.Wetness))
	assert.Equal(t, gridValues(first.Flow.Grid), gridValues(second.Flow.Grid))
	assert.Equal(t, first.Points, second.Points)
	assert.Equal(t, first.Summary, second.Summary)
}

func gridValues(g *twi.Grid) []float64 {
	values := make([]float64, 0, g.Rows()*g.Cols())
	for row := range g.Rows() {
		for col := range g.Cols() {
			values = append(values, g.Value(row, col))
		}
	}
	return values
}
