package object

import (
	"fmt"
	"strings"
)

// TowerKind identifies a tower variant.
type TowerKind string

const (
	TowerBasic  TowerKind = "basic"
	TowerSniper TowerKind = "sniper"
	TowerAoe    TowerKind = "aoe"
	TowerSlow   TowerKind = "slow"
)

// TowerStats are the level-1 values of a tower variant.
type TowerStats struct {
	Damage float64
	Range  float64
	Cost   float64
}

// towerStats holds base stats per variant.
var towerStats = map[TowerKind]TowerStats{
	TowerBasic:  {Damage: 5, Range: 2, Cost: 30},
	TowerSniper: {Damage: 15, Range: 4, Cost: 60},
	TowerAoe:    {Damage: 8, Range: 3, Cost: 50},
	TowerSlow:   {Damage: 3, Range: 2, Cost: 40},
}

// TowerKinds lists the variants in menu order.
var TowerKinds = []TowerKind{TowerBasic, TowerSniper, TowerAoe, TowerSlow}

// BaseStats returns the level-1 stats for kind.
func BaseStats(kind TowerKind) (TowerStats, bool) {
	s, ok := towerStats[kind]
	return s, ok
}

// ParseTowerKind converts user input to a TowerKind.
func ParseTowerKind(s string) (TowerKind, error) {
	k := TowerKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := towerStats[k]; !ok {
		return "", fmt.Errorf("unknown tower type %q", s)
	}
	return k, nil
}

// Tower is a placed tower.
type Tower struct {
	ID     int       `json:"id"`
	Cell   Cell      `json:"cell"`
	Kind   TowerKind `json:"kind"`
	Level  int       `json:"level"`
	Damage float64   `json:"damage"`
	Range  float64   `json:"range"`
	Cost   float64   `json:"cost"`
}

// NewTower creates a level-1 tower of kind at cell.
func NewTower(id int, cell Cell, kind TowerKind) Tower {
	s := towerStats[kind]
	return Tower{
		ID:     id,
		Cell:   cell,
		Kind:   kind,
		Level:  1,
		Damage: s.Damage,
		Range:  s.Range,
		Cost:   s.Cost,
	}
}
