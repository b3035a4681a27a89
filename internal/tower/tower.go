// Package tower manages placement, upgrade and sale of towers.
package tower

import (
	"errors"
	"fmt"
	"math"

	"github.com/tomz197/ciphertower/internal/economy"
	"github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/object"
)

var (
	// ErrInvalidPlacement is returned when a tower cannot be built on a cell.
	ErrInvalidPlacement = errors.New("invalid placement")
	// ErrNotFound is returned for an unknown tower ID.
	ErrNotFound = errors.New("tower not found")
)

// Manager owns the ordered tower collection and charges the economy for
// every change. It is not safe for concurrent use.
type Manager struct {
	eco    *economy.Economy
	towers []object.Tower
	nextID int
}

// NewManager creates an empty manager debiting and crediting eco.
func NewManager(eco *economy.Economy) *Manager {
	return &Manager{eco: eco, nextID: 1}
}

// Reset removes every tower and restarts IDs.
func (m *Manager) Reset() {
	m.towers = nil
	m.nextID = 1
}

// Place builds a level-1 tower of kind at cell.
func (m *Manager) Place(cell object.Cell, kind object.TowerKind) (object.Tower, error) {
	stats, ok := object.BaseStats(kind)
	switch {
	case !ok:
		return object.Tower{}, fmt.Errorf("%w: unknown tower type %q", ErrInvalidPlacement, kind)
	case !cell.InBounds():
		return object.Tower{}, fmt.Errorf("%w: %v is off the board", ErrInvalidPlacement, cell)
	case object.OnRoute(cell):
		return object.Tower{}, fmt.Errorf("%w: %v is on the enemy path", ErrInvalidPlacement, cell)
	}
	if _, occupied := m.At(cell); occupied {
		return object.Tower{}, fmt.Errorf("%w: %v is occupied", ErrInvalidPlacement, cell)
	}
	if err := m.eco.Debit(stats.Cost); err != nil {
		return object.Tower{}, fmt.Errorf("%w: %w", ErrInvalidPlacement, err)
	}

	t := object.NewTower(m.nextID, cell, kind)
	m.nextID++
	m.towers = append(m.towers, t)
	return t, nil
}

// UpgradePrice returns the gold needed to upgrade t.
func UpgradePrice(t object.Tower) float64 {
	return t.Cost * config.UpgradeCostRate
}

// SellRefund returns the gold refunded for selling t.
func SellRefund(t object.Tower) float64 {
	return math.Floor(t.Cost * config.SellRefundRate)
}

// Upgrade raises the tower's level, paying UpgradePrice.
func (m *Manager) Upgrade(id int) (object.Tower, error) {
	i := m.index(id)
	if i < 0 {
		return object.Tower{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	t := m.towers[i]
	price := UpgradePrice(t)
	if err := m.eco.Debit(price); err != nil {
		return object.Tower{}, fmt.Errorf("upgrade tower %d: %w", id, err)
	}

	t.Level++
	t.Damage += config.UpgradeDamage
	t.Range += config.UpgradeRange
	t.Cost = price
	m.towers[i] = t
	return t, nil
}

// Sell removes the tower and returns the refund credited.
func (m *Manager) Sell(id int) (float64, error) {
	i := m.index(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	refund := SellRefund(m.towers[i])
	m.towers = append(m.towers[:i], m.towers[i+1:]...)
	m.eco.Credit(refund)
	return refund, nil
}

// Get returns the tower with id.
func (m *Manager) Get(id int) (object.Tower, bool) {
	if i := m.index(id); i >= 0 {
		return m.towers[i], true
	}
	return object.Tower{}, false
}

// At returns the tower occupying cell.
func (m *Manager) At(cell object.Cell) (object.Tower, bool) {
	for _, t := range m.towers {
		if t.Cell == cell {
			return t, true
		}
	}
	return object.Tower{}, false
}

// List returns a copy of the towers in placement order.
func (m *Manager) List() []object.Tower {
	out := make([]object.Tower, len(m.towers))
	copy(out, m.towers)
	return out
}

func (m *Manager) index(id int) int {
	for i, t := range m.towers {
		if t.ID == id {
			return i
		}
	}
	return -1
}
