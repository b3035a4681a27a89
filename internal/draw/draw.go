// Package draw renders game state as plain text for line terminals.
package draw

import (
	"fmt"
	"io"
	"strings"

	"github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/object"
)

// Shade characters from lightest to darkest.
var Shades = []rune{' ', '░', '▒', '▓', '█'}

// ShadeLevel returns a shade character for a value between 0.0 (empty) and 1.0 (solid).
func ShadeLevel(intensity float64) rune {
	if intensity <= 0 {
		return Shades[0]
	}
	if intensity >= 1 {
		return Shades[len(Shades)-1]
	}
	idx := int(intensity * float64(len(Shades)-1))
	return Shades[idx]
}

// HealthBar renders health/max as width shade cells.
func HealthBar(health, max float64, width int) string {
	if max <= 0 || width <= 0 {
		return ""
	}
	var b strings.Builder
	frac := health / max
	for i := 0; i < width; i++ {
		// Portion of this cell that is still filled
		b.WriteRune(ShadeLevel(frac*float64(width) - float64(i)))
	}
	return b.String()
}

// Board symbols.
const (
	CellEmpty = '.'
	CellPath  = '#'
)

// TowerSymbol returns the board letter of a tower kind.
func TowerSymbol(k object.TowerKind) rune {
	switch k {
	case object.TowerSniper:
		return 'S'
	case object.TowerAoe:
		return 'A'
	case object.TowerSlow:
		return 'L'
	default:
		return 'B'
	}
}

// EnemySymbol returns the board letter of an enemy kind.
func EnemySymbol(k object.EnemyKind) rune {
	switch k {
	case object.EnemyFast:
		return 'f'
	case object.EnemyTank:
		return 't'
	default:
		return 'n'
	}
}

// BoardView is what Board draws.
type BoardView struct {
	Towers  []object.Tower
	Enemies []*object.Enemy
}

// Board draws the grid with column and row numbers. Enemies are drawn over
// towers and the route; a cell holding several enemies shows their count.
func Board(w io.Writer, v BoardView) error {
	const n = config.GridSize
	var grid [n][n]rune
	for y := range grid {
		for x := range grid[y] {
			grid[y][x] = CellEmpty
		}
	}
	for _, c := range object.Route() {
		grid[c.Y][c.X] = CellPath
	}
	for _, t := range v.Towers {
		if t.Cell.InBounds() {
			grid[t.Cell.Y][t.Cell.X] = TowerSymbol(t.Kind)
		}
	}

	counts := make(map[object.Cell]int)
	for _, e := range v.Enemies {
		if !e.Cell.InBounds() {
			continue
		}
		counts[e.Cell]++
		if c := counts[e.Cell]; c == 1 {
			grid[e.Cell.Y][e.Cell.X] = EnemySymbol(e.Kind)
		} else if c <= 9 {
			grid[e.Cell.Y][e.Cell.X] = rune('0' + c)
		} else {
			grid[e.Cell.Y][e.Cell.X] = '+'
		}
	}

	var b strings.Builder
	b.WriteString("   ")
	for x := 0; x < n; x++ {
		fmt.Fprintf(&b, " %d", x)
	}
	b.WriteByte('\n')
	for y := 0; y < n; y++ {
		fmt.Fprintf(&b, "%2d ", y)
		for x := 0; x < n; x++ {
			b.WriteByte(' ')
			b.WriteRune(grid[y][x])
		}
		b.WriteByte('\n')
	}
	b.WriteString("   B basic  S sniper  A aoe  L slow | n normal  f fast  t tank  # path\n")
	_, err := io.WriteString(w, b.String())
	return err
}
