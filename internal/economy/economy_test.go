package economy

import (
	"errors"
	"testing"
)

func TestDebit(t *testing.T) {
	e := New(100, 10)
	if err := e.Debit(30); err != nil {
		t.Fatalf("Debit(30): %v", err)
	}
	if e.Gold() != 70 {
		t.Errorf("gold = %v, want 70", e.Gold())
	}
	if err := e.Debit(70.5); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Debit(70.5) err = %v", err)
	}
	if e.Gold() != 70 {
		t.Errorf("failed debit changed gold to %v", e.Gold())
	}
	if err := e.Debit(70); err != nil || e.Gold() != 0 {
		t.Errorf("exact debit: gold %v, err %v", e.Gold(), err)
	}
}

func TestCreditAndReset(t *testing.T) {
	e := New(0, 1)
	e.Credit(50)
	e.Credit(0.5)
	if e.Gold() != 50.5 {
		t.Errorf("gold = %v", e.Gold())
	}
	e.Reset(100, 10)
	if e.Gold() != 100 || e.Lives() != 10 {
		t.Errorf("reset gave %v gold, %d lives", e.Gold(), e.Lives())
	}
}

func TestLivesAreNotFloored(t *testing.T) {
	e := New(0, 2)
	e.PenalizeLife(1)
	e.PenalizeLife(3)
	if e.Lives() != -2 {
		t.Errorf("lives = %d, want -2", e.Lives())
	}
}

func TestGoldNeverNegative(t *testing.T) {
	e := New(10, 1)
	for _, amt := range []float64{3, 4, 5, 2, 1, 0.5, 100} {
		_ = e.Debit(amt)
		if e.Gold() < 0 {
			t.Fatalf("gold went negative: %v", e.Gold())
		}
	}
}
