package twi

import (
	"fmt"
	"math"
)

// An Aggregator reduces multiple points falling in one cell to a single
// elevation value.
type Aggregator string

const (
	AggregatorMean    Aggregator = "mean"
	AggregatorMin     Aggregator = "min"
	AggregatorMax     Aggregator = "max"
	AggregatorNearest Aggregator = "nearest"
)

func (a Aggregator) validate() error {
	switch a {
	case AggregatorMean, AggregatorMin, AggregatorMax, AggregatorNearest:
		return nil
	default:
		return fmt.Errorf("unknown aggregator %q", a)
	}
}

// A Grid is a regular raster of float64 values with an affine transform
// mapping (row, col) to (x, y). Row 0 is the southern edge. Missing values
// are represented by NaNs.
type Grid struct {
	rows     int
	cols     int
	cellSize float64
	originX  float64
	originY  float64
	srid     int
	values   []float64
}

func newGrid(rows, cols int, cellSize, originX, originY float64) *Grid {
	values := make([]float64, rows*cols)
	for i := range values {
		values[i] = math.NaN()
	}
	return &Grid{
		rows:     rows,
		cols:     cols,
		cellSize: cellSize,
		originX:  originX,
		originY:  originY,
		values:   values,
	}
}

// NewGrid rasterizes points onto a grid covering their bounding box, padded
// to whole cell multiples. Cells containing multiple points are reduced by
// aggregator; cells containing none are no data.
func NewGrid(points []Point, cellSize float64, aggregator Aggregator) (*Grid, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCellSize, cellSize)
	}
	if err := aggregator.validate(); err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrInsufficientData, len(points))
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, point := range points[1:] {
		minX = math.Min(minX, point.X)
		maxX = math.Max(maxX, point.X)
		minY = math.Min(minY, point.Y)
		maxY = math.Max(maxY, point.Y)
	}
	cols := max(int(math.Ceil((maxX-minX)/cellSize)), 1)
	rows := max(int(math.Ceil((maxY-minY)/cellSize)), 1)

	g := newGrid(rows, cols, cellSize, minX, minY)
	g.aggregate(points, aggregator)
	return g, nil
}

func (g *Grid) aggregate(points []Point, aggregator Aggregator) {
	switch aggregator {
	case AggregatorMean:
		counts := make([]int, len(g.values))
		sums := make([]float64, len(g.values))
		for _, point := range points {
			row, col, ok := g.CellAt(point.X, point.Y)
			if !ok {
				continue
			}
			i := g.index(row, col)
			sums[i] += point.Z
			counts[i]++
		}
		for i, count := range counts {
			if count > 0 {
				g.values[i] = sums[i] / float64(count)
			}
		}
	case AggregatorMin:
		for _, point := range points {
			row, col, ok := g.CellAt(point.X, point.Y)
			if !ok {
				continue
			}
			i := g.index(row, col)
			if math.IsNaN(g.values[i]) || point.Z < g.values[i] {
				g.values[i] = point.Z
			}
		}
	case AggregatorMax:
		for _, point := range points {
			row, col, ok := g.CellAt(point.X, point.Y)
			if !ok {
				continue
			}
			i := g.index(row, col)
			if math.IsNaN(g.values[i]) || point.Z > g.values[i] {
				g.values[i] = point.Z
			}
		}
	case AggregatorNearest:
		best := make([]float64, len(g.values))
		for i := range best {
			best[i] = math.Inf(1)
		}
		for _, point := range points {
			row, col, ok := g.CellAt(point.X, point.Y)
			if !ok {
				continue
			}
			i := g.index(row, col)
			centerX, centerY := g.CellCenter(row, col)
			dx, dy := point.X-centerX, point.Y-centerY
			if d := dx*dx + dy*dy; d < best[i] {
				best[i] = d
				g.values[i] = point.Z
			}
		}
	}
}

// like returns a new all-no-data grid sharing g's shape and transform.
func (g *Grid) like() *Grid {
	clone := newGrid(g.rows, g.cols, g.cellSize, g.originX, g.originY)
	clone.srid = g.srid
	return clone
}

// Rows returns the number of rows in g.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns in g.
func (g *Grid) Cols() int { return g.cols }

// CellSize returns g's cell size.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Origin returns the (x, y) coordinate of g's south-west corner.
func (g *Grid) Origin() (float64, float64) { return g.originX, g.originY }

// SRID returns g's SRID, or zero when unknown.
func (g *Grid) SRID() int { return g.srid }

// Value returns the value at (row, col). Missing values are NaN.
func (g *Grid) Value(row, col int) float64 {
	return g.values[g.index(row, col)]
}

// IsNoData reports whether the cell at (row, col) has no value.
func (g *Grid) IsNoData(row, col int) bool {
	return math.IsNaN(g.values[g.index(row, col)])
}

// CellAt returns the cell enclosing (x, y). Coordinates on the eastern or
// northern boundary fall into the last cell.
func (g *Grid) CellAt(x, y float64) (int, int, bool) {
	col := int(math.Floor((x - g.originX) / g.cellSize))
	row := int(math.Floor((y - g.originY) / g.cellSize))
	if col == g.cols && x == g.originX+float64(g.cols)*g.cellSize {
		col--
	}
	if row == g.rows && y == g.originY+float64(g.rows)*g.cellSize {
		row--
	}
	if col < 0 || g.cols <= col || row < 0 || g.rows <= row {
		return 0, 0, false
	}
	return row, col, true
}

// CellCenter returns the (x, y) coordinate of the center of (row, col).
func (g *Grid) CellCenter(row, col int) (float64, float64) {
	x := g.originX + (float64(col)+0.5)*g.cellSize
	y := g.originY + (float64(row)+0.5)*g.cellSize
	return x, y
}

func (g *Grid) index(row, col int) int {
	return row*g.cols + col
}
