package tower

import (
	"errors"
	"math"
	"testing"

	"github.com/tomz197/ciphertower/internal/economy"
	"github.com/tomz197/ciphertower/internal/object"
)

func newManager(gold float64) (*Manager, *economy.Economy) {
	eco := economy.New(gold, 10)
	return NewManager(eco), eco
}

func TestPlaceOnRouteAlwaysFails(t *testing.T) {
	for _, gold := range []float64{0, 100, 1e9} {
		m, eco := newManager(gold)
		for _, c := range object.Route() {
			for _, k := range object.TowerKinds {
				if _, err := m.Place(c, k); !errors.Is(err, ErrInvalidPlacement) {
					t.Fatalf("Place(%v, %s) with %v gold: err = %v", c, k, gold, err)
				}
			}
		}
		if eco.Gold() != gold || len(m.List()) != 0 {
			t.Errorf("failed placements changed state: gold %v towers %d", eco.Gold(), len(m.List()))
		}
	}
}

func TestPlaceGuards(t *testing.T) {
	m, eco := newManager(100)
	if _, err := m.Place(object.Cell{X: 2, Y: 2}, object.TowerBasic); err != nil {
		t.Fatalf("first placement: %v", err)
	}
	cases := []struct {
		name string
		cell object.Cell
		kind object.TowerKind
		also error
	}{
		{"occupied", object.Cell{X: 2, Y: 2}, object.TowerBasic, nil},
		{"off board", object.Cell{X: 10, Y: 0}, object.TowerBasic, nil},
		{"negative", object.Cell{X: -1, Y: 3}, object.TowerBasic, nil},
		{"unknown kind", object.Cell{X: 0, Y: 0}, "laser", nil},
		{"too expensive", object.Cell{X: 0, Y: 0}, object.TowerSniper, economy.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Place(tc.cell, tc.kind)
			if !errors.Is(err, ErrInvalidPlacement) {
				t.Fatalf("err = %v, want ErrInvalidPlacement", err)
			}
			if tc.also != nil && !errors.Is(err, tc.also) {
				t.Errorf("err = %v, want it to also match %v", err, tc.also)
			}
		})
	}
	if eco.Gold() != 70 || len(m.List()) != 1 {
		t.Errorf("state after rejected placements: gold %v towers %d", eco.Gold(), len(m.List()))
	}
}

func TestPlaceAndUpgradeScenario(t *testing.T) {
	m, eco := newManager(100)
	tw, err := m.Place(object.Cell{X: 1, Y: 1}, object.TowerBasic)
	if err != nil {
		t.Fatal(err)
	}
	if eco.Gold() != 70 || tw.Level != 1 || tw.Damage != 5 || tw.Range != 2 || tw.Cost != 30 {
		t.Fatalf("after place: gold %v tower %+v", eco.Gold(), tw)
	}

	up, err := m.Upgrade(tw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if eco.Gold() != 25 || up.Level != 2 || up.Damage != 10 || up.Range != 2.5 || up.Cost != 45 {
		t.Fatalf("after upgrade: gold %v tower %+v", eco.Gold(), up)
	}

	// Next upgrade needs 67.5 with 25 on hand.
	if _, err := m.Upgrade(tw.ID); !errors.Is(err, economy.ErrInsufficientFunds) {
		t.Fatalf("unaffordable upgrade err = %v", err)
	}
	if got, _ := m.Get(tw.ID); got != up || eco.Gold() != 25 {
		t.Errorf("failed upgrade mutated state: %+v gold %v", got, eco.Gold())
	}
}

func TestUpgradeGuardIsExact(t *testing.T) {
	for _, gold := range []float64{89, 89.5, 90, 150} {
		m, eco := newManager(gold + 60)
		tw, err := m.Place(object.Cell{X: 0, Y: 0}, object.TowerSniper)
		if err != nil {
			t.Fatal(err)
		}
		price := UpgradePrice(tw)
		_, err = m.Upgrade(tw.ID)
		if gold < price {
			if err == nil {
				t.Errorf("upgrade succeeded with %v < %v", gold, price)
			}
			continue
		}
		if err != nil {
			t.Fatalf("upgrade with %v: %v", gold, err)
		}
		if eco.Gold() != gold-price {
			t.Errorf("gold after upgrade = %v, want %v", eco.Gold(), gold-price)
		}
	}
}

func TestCostCompounds(t *testing.T) {
	m, _ := newManager(1e6)
	tw, _ := m.Place(object.Cell{X: 0, Y: 0}, object.TowerBasic)
	for i := 0; i < 3; i++ {
		tw, _ = m.Upgrade(tw.ID)
	}
	if tw.Cost != 30*1.5*1.5*1.5 || tw.Level != 4 {
		t.Errorf("tower after 3 upgrades: %+v", tw)
	}
}

func TestSell(t *testing.T) {
	m, eco := newManager(1000)
	a, _ := m.Place(object.Cell{X: 0, Y: 0}, object.TowerBasic)
	b, _ := m.Place(object.Cell{X: 1, Y: 0}, object.TowerAoe)
	a, _ = m.Upgrade(a.ID) // cost 45

	before := eco.Gold()
	refund, err := m.Sell(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if refund != math.Floor(45*0.7) || eco.Gold() != before+refund {
		t.Errorf("refund %v, gold %v -> %v", refund, before, eco.Gold())
	}
	if _, ok := m.Get(a.ID); ok {
		t.Error("sold tower still present")
	}
	if _, ok := m.Get(b.ID); !ok || len(m.List()) != 1 {
		t.Error("wrong tower removed")
	}
	if _, err := m.Sell(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second sale err = %v", err)
	}
}

func TestIDsStayUniqueAfterSale(t *testing.T) {
	m, _ := newManager(1000)
	a, _ := m.Place(object.Cell{X: 0, Y: 0}, object.TowerBasic)
	b, _ := m.Place(object.Cell{X: 1, Y: 0}, object.TowerBasic)
	if _, err := m.Sell(a.ID); err != nil {
		t.Fatal(err)
	}
	c, _ := m.Place(object.Cell{X: 2, Y: 0}, object.TowerBasic)
	if c.ID == b.ID || c.ID <= b.ID {
		t.Errorf("new tower id %d not greater than %d", c.ID, b.ID)
	}
}

func TestUpgradeUnknown(t *testing.T) {
	m, _ := newManager(100)
	if _, err := m.Upgrade(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
