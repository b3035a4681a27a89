package object

import "math"

// EnemyKind identifies an enemy variant.
type EnemyKind int

const (
	EnemyNormal EnemyKind = iota + 1
	EnemyFast
	EnemyTank
)

// EnemyKinds lists every variant; composition draws uniformly from it.
var EnemyKinds = []EnemyKind{EnemyNormal, EnemyFast, EnemyTank}

func (k EnemyKind) String() string {
	switch k {
	case EnemyNormal:
		return "normal"
	case EnemyFast:
		return "fast"
	case EnemyTank:
		return "tank"
	default:
		return "unknown"
	}
}

// Code is the numeric form of the kind carried in composition descriptors.
func (k EnemyKind) Code() int {
	return int(k)
}

// Health returns the starting health of the kind.
func (k EnemyKind) Health() float64 {
	switch k {
	case EnemyTank:
		return 100
	case EnemyFast:
		return 30
	default:
		return 50
	}
}

// Speed returns the path cells advanced per tick.
func (k EnemyKind) Speed() float64 {
	switch k {
	case EnemyFast:
		return 2
	case EnemyTank:
		return 0.5
	default:
		return 1
	}
}

// EnemyKindFromCode is the inverse of Code.
func EnemyKindFromCode(code int) (EnemyKind, bool) {
	k := EnemyKind(code)
	return k, k >= EnemyNormal && k <= EnemyTank
}

// Enemy is a live enemy within an active wave.
type Enemy struct {
	ID        int       `json:"id"`
	Progress  float64   `json:"progress"` // Path index, fractional
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"max_health"`
	Speed     float64   `json:"speed"`
	Cell      Cell      `json:"cell"`
	Kind      EnemyKind `json:"kind"`
	Encoded   string    `json:"encoded"`
	Slowed    bool      `json:"slowed,omitempty"`
}

// NewEnemy creates an enemy of kind at the start of the route.
func NewEnemy(id int, kind EnemyKind, encoded string) *Enemy {
	return &Enemy{
		ID:        id,
		Health:    kind.Health(),
		MaxHealth: kind.Health(),
		Speed:     kind.Speed(),
		Cell:      RouteCell(0),
		Kind:      kind,
		Encoded:   encoded,
	}
}

// Advance moves the enemy by its speed. It returns true when the enemy has
// walked off the end of the route; otherwise Cell is updated from the
// floored progress.
func (e *Enemy) Advance() (exited bool) {
	e.Progress += e.Speed
	if e.Progress >= float64(RouteLen()) {
		return true
	}
	e.Cell = RouteCell(int(math.Floor(e.Progress)))
	return false
}

// Alive reports whether the enemy still has health.
func (e *Enemy) Alive() bool {
	return e.Health > 0
}
