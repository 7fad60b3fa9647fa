package twi

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var noDataSamples = promauto.NewCounter(prometheus.CounterOpts{
	Name: "twi_no_data_samples_total",
	Help: "The total number of points annotated with a no data wetness value",
})

// Sample returns the value of the cell enclosing (x, y), or NaN when (x, y)
// is outside the grid.
func (g *Grid) Sample(x, y float64) float64 {
	row, col, ok := g.CellAt(x, y)
	if !ok {
		return math.NaN()
	}
	return g.values[g.index(row, col)]
}

// SampleBilinear returns the value at (x, y) interpolated between the four
// surrounding cell centers. Corner indexes are clamped at the grid boundary.
// Any no data corner makes the result NaN.
func (g *Grid) SampleBilinear(x, y float64) float64 {
	if _, _, ok := g.CellAt(x, y); !ok {
		return math.NaN()
	}
	u := (x-g.originX)/g.cellSize - 0.5
	v := (y-g.originY)/g.cellSize - 0.5
	col0 := int(math.Floor(u))
	row0 := int(math.Floor(v))
	dx := u - float64(col0)
	dy := v - float64(row0)

	col0, col1 := clamp(col0, 0, g.cols-1), clamp(col0+1, 0, g.cols-1)
	row0, row1 := clamp(row0, 0, g.rows-1), clamp(row0+1, 0, g.rows-1)

	return 0 +
		g.values[g.index(row0, col0)]*(1-dx)*(1-dy) +
		g.values[g.index(row0, col1)]*dx*(1-dy) +
		g.values[g.index(row1, col0)]*(1-dx)*dy +
		g.values[g.index(row1, col1)]*dx*dy
}

// Annotate samples wetness at each point's location. Points whose enclosing
// cell is no data in either the elevation or the wetness grid get a NaN
// wetness value rather than being dropped.
func Annotate(points []Point, elevation, wetness *Grid, mode SamplingMode) []AnnotatedPoint {
	annotated := make([]AnnotatedPoint, len(points))
	for i, point := range points {
		annotated[i].Point = point
		value := math.NaN()
		if row, col, ok := elevation.CellAt(point.X, point.Y); ok && !elevation.IsNoData(row, col) {
			switch mode {
			case SamplingBilinear:
				value = wetness.SampleBilinear(point.X, point.Y)
			default:
				value = wetness.Sample(point.X, point.Y)
			}
		}
		if math.IsNaN(value) {
			noDataSamples.Inc()
		}
		annotated[i].Wetness = value
	}
	return annotated
}

func clamp(i, lo, hi int) int {
	return min(max(i, lo), hi)
}
