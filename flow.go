package twi

import (
	"fmt"
	"math"
	"sort"
)

// A Direction identifies one of a cell's eight neighbors.
type Direction int

const (
	DirE Direction = iota
	DirSE
	DirS
	DirSW
	DirW
	DirNW
	DirN
	DirNE
)

// dirOffsets maps a Direction to its (row, col) offset. Row indexes increase
// northwards.
var dirOffsets = [8]struct{ dr, dc int }{
	{0, 1},   // E
	{-1, 1},  // SE
	{-1, 0},  // S
	{-1, -1}, // SW
	{0, -1},  // W
	{1, -1},  // NW
	{1, 0},   // N
	{1, 1},   // NE
}

// A NeighborPriority fixes the order in which neighbors are considered when
// routing flow, breaking steepest-descent ties deterministically.
type NeighborPriority [8]Direction

// DefaultNeighborPriority considers neighbors clockwise starting from due
// east.
var DefaultNeighborPriority = NeighborPriority{DirE, DirSE, DirS, DirSW, DirW, DirNW, DirN, DirNE}

func (p NeighborPriority) validate() error {
	var seen [8]bool
	for _, dir := range p {
		if dir < 0 || 8 <= dir || seen[dir] {
			return fmt.Errorf("invalid neighbor priority %v", p)
		}
		seen[dir] = true
	}
	return nil
}

// A SlopeGrid holds D8 slope ratios (rise over run) aligned with the
// elevation grid it was derived from.
type SlopeGrid struct {
	*Grid
	edge []bool
}

// Edge reports whether the cell at (row, col) had no valid neighbors, in
// which case its slope is zero by policy.
func (s *SlopeGrid) Edge(row, col int) bool {
	return s.edge[s.index(row, col)]
}

// Slope computes the D8 slope of every valid cell in g: the maximum
// elevation drop to any valid 8-neighbor divided by the horizontal distance
// to that neighbor. Cells with no drop have slope zero. No data cells stay
// no data.
func Slope(g *Grid) *SlopeGrid {
	s := &SlopeGrid{
		Grid: g.like(),
		edge: make([]bool, len(g.values)),
	}
	diagonal := g.cellSize * math.Sqrt2
	for row := range g.rows {
		for col := range g.cols {
			i := g.index(row, col)
			z := g.values[i]
			if math.IsNaN(z) {
				continue
			}
			slope := math.NaN()
			for _, offset := range dirOffsets {
				nr, nc := row+offset.dr, col+offset.dc
				if nr < 0 || g.rows <= nr || nc < 0 || g.cols <= nc {
					continue
				}
				nz := g.values[g.index(nr, nc)]
				if math.IsNaN(nz) {
					continue
				}
				distance := g.cellSize
				if offset.dr != 0 && offset.dc != 0 {
					distance = diagonal
				}
				if drop := (z - nz) / distance; math.IsNaN(slope) || drop > slope {
					slope = drop
				}
			}
			if math.IsNaN(slope) {
				s.edge[i] = true
				slope = 0
			}
			s.values[i] = math.Max(slope, 0)
		}
	}
	return s
}

// A FlowGrid holds D8 flow accumulation values aligned with the elevation
// grid it was derived from.
type FlowGrid struct {
	*Grid
	dirs []int8
	pits int
}

// Direction returns the flow direction of the cell at (row, col). It returns
// false for pits and no data cells.
func (f *FlowGrid) Direction(row, col int) (Direction, bool) {
	dir := f.dirs[f.index(row, col)]
	if dir < 0 {
		return 0, false
	}
	return Direction(dir), true
}

// Pits returns the number of valid cells with no downslope neighbor.
func (f *FlowGrid) Pits() int {
	return f.pits
}

// FlowAccumulation routes each valid cell of g to its steepest strictly
// descending neighbor and accumulates contributing cell counts: every cell
// counts itself once plus every upslope cell draining into it. Cells are
// swept from highest to lowest elevation, ties broken by cell index, so the
// result is deterministic. Pits keep what has drained into them.
func FlowAccumulation(g *Grid, priority NeighborPriority) *FlowGrid {
	f := &FlowGrid{
		Grid: g.like(),
		dirs: make([]int8, len(g.values)),
	}
	diagonal := g.cellSize * math.Sqrt2

	order := make([]int, 0, len(g.values))
	for row := range g.rows {
		for col := range g.cols {
			i := g.index(row, col)
			z := g.values[i]
			f.dirs[i] = -1
			if math.IsNaN(z) {
				continue
			}
			order = append(order, i)
			f.values[i] = 1

			bestDrop := 0.0
			for _, dir := range priority {
				offset := dirOffsets[dir]
				nr, nc := row+offset.dr, col+offset.dc
				if nr < 0 || g.rows <= nr || nc < 0 || g.cols <= nc {
					continue
				}
				nz := g.values[g.index(nr, nc)]
				if math.IsNaN(nz) {
					continue
				}
				distance := g.cellSize
				if offset.dr != 0 && offset.dc != 0 {
					distance = diagonal
				}
				if drop := (z - nz) / distance; drop > bestDrop {
					bestDrop = drop
					f.dirs[i] = int8(dir)
				}
			}
			if f.dirs[i] < 0 {
				f.pits++
			}
		}
	}

	sort.Slice(order, func(a, b int) bool {
		za, zb := g.values[order[a]], g.values[order[b]]
		if za != zb {
			return za > zb
		}
		return order[a] < order[b]
	})

	for _, i := range order {
		dir := f.dirs[i]
		if dir < 0 {
			continue
		}
		offset := dirOffsets[dir]
		j := i + offset.dr*g.cols + offset.dc
		f.values[j] += f.values[i]
	}

	return f
}
