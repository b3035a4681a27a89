package server

import (
	"github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/object"
	"github.com/tomz197/ciphertower/internal/physics"
)

// combatBucket is the spatial grid bucket size in board cells.
const combatBucket = 2

// combat resolves tower fire for one tick. Every tower fires once before
// enemies move: aoe towers hit everything in range, the others hit the
// enemy furthest along the route. Slow towers also reduce the target's
// speed the first time they hit it.
type combat struct {
	grid    *physics.SpatialGrid
	inRange []int // Reused between towers to avoid per-tick allocation
}

func newCombat() *combat {
	return &combat{
		grid: physics.NewSpatialGrid(config.GridSize, config.GridSize, combatBucket),
	}
}

// resolve applies one round of fire and returns the surviving enemies
// (compacted in place) and how many were destroyed.
func (c *combat) resolve(towers []object.Tower, enemies []*object.Enemy) ([]*object.Enemy, int) {
	if len(towers) == 0 || len(enemies) == 0 {
		return enemies, 0
	}

	c.grid.Clear()
	for i, e := range enemies {
		c.grid.Insert(float64(e.Cell.X), float64(e.Cell.Y), i)
	}

	for _, t := range towers {
		tx, ty := float64(t.Cell.X), float64(t.Cell.Y)
		c.inRange = c.inRange[:0]
		c.grid.QueryRadius(tx, ty, t.Range, func(i int) bool {
			e := enemies[i]
			if e.Alive() && physics.PointInCircle(float64(e.Cell.X), float64(e.Cell.Y), tx, ty, t.Range) {
				c.inRange = append(c.inRange, i)
			}
			return false
		})
		if len(c.inRange) == 0 {
			continue
		}

		if t.Kind == object.TowerAoe {
			for _, i := range c.inRange {
				enemies[i].Health -= t.Damage
			}
			continue
		}

		target := enemies[c.inRange[0]]
		for _, i := range c.inRange[1:] {
			if leads(enemies[i], target) {
				target = enemies[i]
			}
		}
		target.Health -= t.Damage
		if t.Kind == object.TowerSlow {
			slow(target)
		}
	}

	survivors := enemies[:0]
	killed := 0
	for _, e := range enemies {
		if e.Alive() {
			survivors = append(survivors, e)
		} else {
			killed++
		}
	}
	// Drop references held past the new length
	for i := len(survivors); i < len(enemies); i++ {
		enemies[i] = nil
	}
	return survivors, killed
}

// leads reports whether a is further along the route than b, breaking
// ties by lower ID.
func leads(a, b *object.Enemy) bool {
	if a.Progress != b.Progress {
		return a.Progress > b.Progress
	}
	return a.ID < b.ID
}

func slow(e *object.Enemy) {
	if e.Slowed {
		return
	}
	e.Slowed = true
	e.Speed *= config.SlowFactor
	if floor := e.Kind.Speed() * config.MinSpeedRate; e.Speed < floor {
		e.Speed = floor
	}
}
