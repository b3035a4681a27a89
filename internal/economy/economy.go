// Package economy tracks the player's gold and lives.
package economy

import (
	"errors"
	"fmt"
)

// ErrInsufficientFunds is returned when a debit exceeds the gold on hand.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Economy holds gold and lives. It is not safe for concurrent use; the
// engine serializes access.
//
// Gold never goes negative because every debit is guarded. Lives are not
// floored and may drop below zero when several enemies leak at once.
type Economy struct {
	gold  float64
	lives int
}

// New creates an economy with the given starting values.
func New(gold float64, lives int) *Economy {
	return &Economy{gold: gold, lives: lives}
}

// Gold returns the gold on hand.
func (e *Economy) Gold() float64 { return e.gold }

// Lives returns the remaining lives.
func (e *Economy) Lives() int { return e.lives }

// CanAfford reports whether amount can be debited.
func (e *Economy) CanAfford(amount float64) bool {
	return e.gold >= amount
}

// Debit removes amount from gold.
func (e *Economy) Debit(amount float64) error {
	if !e.CanAfford(amount) {
		return fmt.Errorf("%w: need %g, have %g", ErrInsufficientFunds, amount, e.gold)
	}
	e.gold -= amount
	return nil
}

// Credit adds amount to gold.
func (e *Economy) Credit(amount float64) {
	e.gold += amount
}

// PenalizeLife removes n lives.
func (e *Economy) PenalizeLife(n int) {
	e.lives -= n
}

// Reset restores starting values.
func (e *Economy) Reset(gold float64, lives int) {
	e.gold = gold
	e.lives = lives
}
