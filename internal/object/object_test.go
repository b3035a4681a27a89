package object

import (
	"math"
	"testing"

	"github.com/tomz197/ciphertower/internal/cipher"
)

// seqRand returns values from a fixed cycle.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) Intn(n int) int {
	v := r.vals[r.i%len(r.vals)] % n
	r.i++
	return v
}

func TestRouteIsContinuous(t *testing.T) {
	r := Route()
	if r[0].X != 0 || r[len(r)-1].X != 9 {
		t.Fatalf("route must run edge to edge, got %v..%v", r[0], r[len(r)-1])
	}
	for i := 1; i < len(r); i++ {
		dx := math.Abs(float64(r[i].X - r[i-1].X))
		dy := math.Abs(float64(r[i].Y - r[i-1].Y))
		if dx+dy != 1 {
			t.Errorf("cells %v and %v are not adjacent", r[i-1], r[i])
		}
		if !r[i].InBounds() {
			t.Errorf("cell %v is off the board", r[i])
		}
	}
}

func TestGenerate(t *testing.T) {
	g := NewWaveGenerator(cipher.Tagged{}, NewPRNG(7))
	waves := g.Generate(5)
	if len(waves) != 5 {
		t.Fatalf("got %d waves", len(waves))
	}
	for i, w := range waves {
		if w.Number != i+1 {
			t.Errorf("wave %d numbered %d", i, w.Number)
		}
		if w.Status != WavePending || w.IsActive() || len(w.Enemies) != 0 {
			t.Errorf("wave %d not pending and empty: %+v", w.Number, w)
		}
		if w.Hint != hints[i] {
			t.Errorf("wave %d hint %q", w.Number, w.Hint)
		}
		path, err := cipher.Tagged{}.Decode(w.EncodedPath)
		if err != nil || path != 4 {
			t.Errorf("wave %d path descriptor decodes to %v, %v; want 4", w.Number, path, err)
		}
		comp, err := cipher.Tagged{}.Decode(w.EncodedComposition)
		if _, ok := EnemyKindFromCode(int(comp)); err != nil || !ok {
			t.Errorf("wave %d composition descriptor decodes to %v, %v", w.Number, comp, err)
		}
	}
}

func TestEnemyCounts(t *testing.T) {
	want := []int{5, 7, 9, 11, 13}
	for i, n := range want {
		if got := EnemyCount(i); got != n {
			t.Errorf("EnemyCount(%d) = %d, want %d", i, got, n)
		}
	}
}

func TestHintCycles(t *testing.T) {
	if Hint(5) != Hint(0) || Hint(7) != Hint(2) {
		t.Error("hints do not cycle")
	}
}

func TestSpawn(t *testing.T) {
	g := NewWaveGenerator(cipher.Tagged{}, &seqRand{vals: []int{0, 1, 2}})
	enemies := g.Spawn(2)
	if len(enemies) != 7 {
		t.Fatalf("wave 2 spawned %d enemies", len(enemies))
	}
	wantKinds := []EnemyKind{EnemyNormal, EnemyFast, EnemyTank}
	for i, e := range enemies {
		if e.ID != i {
			t.Errorf("enemy %d has id %d", i, e.ID)
		}
		if e.Kind != wantKinds[i%3] {
			t.Errorf("enemy %d kind %v", i, e.Kind)
		}
		if e.Health != e.MaxHealth || e.Progress != 0 || e.Cell != RouteCell(0) {
			t.Errorf("enemy %d not at start: %+v", i, e)
		}
		code, err := cipher.Tagged{}.Decode(e.Encoded)
		if err != nil || int(code) != e.Kind.Code() {
			t.Errorf("enemy %d encoded kind %v, %v", i, code, err)
		}
	}
}

func TestEnemyAdvance(t *testing.T) {
	e := NewEnemy(0, EnemyTank, "")
	if e.Advance() {
		t.Fatal("tank exited after one step")
	}
	if e.Progress != 0.5 || e.Cell != RouteCell(0) {
		t.Errorf("after one step: progress %v cell %v", e.Progress, e.Cell)
	}
	e.Advance()
	if e.Cell != RouteCell(1) {
		t.Errorf("after two steps: cell %v", e.Cell)
	}

	f := NewEnemy(1, EnemyFast, "")
	steps := 0
	for !f.Advance() {
		steps++
	}
	if steps != 6 {
		t.Errorf("fast enemy stayed %d ticks, want 6", steps)
	}
}

func TestParseTowerKind(t *testing.T) {
	k, err := ParseTowerKind(" Sniper ")
	if err != nil || k != TowerSniper {
		t.Errorf("ParseTowerKind = %v, %v", k, err)
	}
	if _, err := ParseTowerKind("laser"); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestWaveCloneIsDeep(t *testing.T) {
	w := &Wave{Enemies: []*Enemy{NewEnemy(0, EnemyNormal, "")}}
	c := w.Clone()
	c.Enemies[0].Health = 1
	if w.Enemies[0].Health == 1 {
		t.Error("clone shares enemies with the original")
	}
}
