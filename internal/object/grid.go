// Package object defines the game entities (towers, enemies, waves) and the
// fixed board they live on.
package object

import (
	"fmt"

	"github.com/tomz197/ciphertower/internal/loop/config"
)

// Cell is a grid coordinate. Valid cells have 0 <= X, Y < config.GridSize.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Code packs the cell into the single number used by path descriptors.
func (c Cell) Code() int {
	return c.X*100 + c.Y
}

// InBounds reports whether c lies on the board.
func (c Cell) InBounds() bool {
	return c.X >= 0 && c.X < config.GridSize && c.Y >= 0 && c.Y < config.GridSize
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// route is the single, continuous path enemies follow from the west edge to
// the east edge.
var route = []Cell{
	{0, 4}, {1, 4}, {2, 4}, {3, 4}, {4, 4},
	{4, 5}, {4, 6}, {5, 6}, {6, 6}, {7, 6},
	{7, 5}, {7, 4}, {8, 4}, {9, 4},
}

// routeSet indexes route for O(1) membership checks.
var routeSet = func() map[Cell]struct{} {
	m := make(map[Cell]struct{}, len(route))
	for _, c := range route {
		m[c] = struct{}{}
	}
	return m
}()

// Route returns a copy of the enemy path.
func Route() []Cell {
	out := make([]Cell, len(route))
	copy(out, route)
	return out
}

// RouteLen returns the number of cells on the path.
func RouteLen() int {
	return len(route)
}

// RouteCell returns the path cell at index i, clamped to the path.
func RouteCell(i int) Cell {
	if i < 0 {
		i = 0
	}
	if i >= len(route) {
		i = len(route) - 1
	}
	return route[i]
}

// OnRoute reports whether c is part of the enemy path.
func OnRoute(c Cell) bool {
	_, ok := routeSet[c]
	return ok
}

// RouteCodes returns the path as packed cell codes.
func RouteCodes() []int {
	codes := make([]int, len(route))
	for i, c := range route {
		codes[i] = c.Code()
	}
	return codes
}
