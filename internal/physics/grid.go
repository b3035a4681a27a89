package physics

import "math"

// SpatialGrid is a uniform bucket grid over a bounded board. Items are
// inserted by position and index; QueryRadius visits every item whose
// bucket intersects the query circle, so callers still apply an exact
// range check.
type SpatialGrid struct {
	cellSize    float64
	invCellSize float64 // 1 / cellSize (precomputed to avoid division)
	cols        int
	rows        int
	cells       [][]int
}

// NewSpatialGrid creates a grid covering width x height with square
// buckets of cellSize.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       make([][]int, cols*rows),
	}
}

// Clear removes all items without releasing bucket memory.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an item (identified by index) at the given position.
func (g *SpatialGrid) Insert(x, y float64, index int) {
	col, row := g.posToCell(x, y)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], index)
}

// QueryRadius calls fn for each item in buckets overlapping the circle of
// radius r around (x, y). Buckets are visited row by row; within a bucket
// items come in insertion order. Returning true from fn stops iteration.
func (g *SpatialGrid) QueryRadius(x, y, r float64, fn func(index int) bool) {
	minCol, minRow := g.posToCell(x-r, y-r)
	maxCol, maxRow := g.posToCell(x+r, y+r)
	for row := minRow; row <= maxRow; row++ {
		offset := row * g.cols
		for col := minCol; col <= maxCol; col++ {
			for _, item := range g.cells[offset+col] {
				if fn(item) {
					return
				}
			}
		}
	}
}

// posToCell converts a position to bucket coordinates, clamped to the grid.
func (g *SpatialGrid) posToCell(x, y float64) (col, row int) {
	col = int(math.Floor(x * g.invCellSize))
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}

	row = int(math.Floor(y * g.invCellSize))
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}

	return col, row
}
