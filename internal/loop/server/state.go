package server

import (
	"github.com/tomz197/ciphertower/internal/object"
)

// Phase is the game-level state.
type Phase int

const (
	PhaseLoading    Phase = iota // Authorization context not built yet
	PhaseTutorial                // Tutorial overlay shown over the start screen
	PhaseNotStarted              // Start screen
	PhasePlaying                 // Game running
	PhaseOver                    // Game finished, see Outcome
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseTutorial:
		return "tutorial"
	case PhaseNotStarted:
		return "not started"
	case PhasePlaying:
		return "playing"
	case PhaseOver:
		return "over"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name for spectator JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Outcome is the verdict of a finished game.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "victory"
	case OutcomeDefeat:
		return "defeat"
	default:
		return "none"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Intel is what a player has decrypted about a wave. Nil slices mean the
// descriptor has not been (successfully) decrypted.
type Intel struct {
	Wave        int                `json:"wave"`
	Path        []object.Cell      `json:"path,omitempty"`
	Composition []object.EnemyKind `json:"composition,omitempty"`
	Decrypting  bool               `json:"decrypting"`
	Err         string             `json:"error,omitempty"`
}

func (in Intel) clone() Intel {
	c := in
	if in.Path != nil {
		c.Path = append([]object.Cell(nil), in.Path...)
	}
	if in.Composition != nil {
		c.Composition = append([]object.EnemyKind(nil), in.Composition...)
	}
	return c
}

// Snapshot is an immutable view of the game for presentation layers.
// A new Snapshot is published after every mutation; never modify one.
type Snapshot struct {
	Phase       Phase          `json:"phase"`
	Outcome     Outcome        `json:"outcome"`
	Gold        float64        `json:"gold"`
	Lives       int            `json:"lives"`
	CurrentWave int            `json:"current_wave"` // 0 before the first wave starts
	Towers      []object.Tower `json:"towers"`
	Waves       []object.Wave  `json:"waves"`
	Intel       map[int]Intel  `json:"intel"`
	Selected    int            `json:"selected"` // Wave whose intel is being shown, 0 for none
	Connected   bool           `json:"connected"`
	Ticks       uint64         `json:"ticks"`
}

// Wave returns the wave numbered n.
func (s *Snapshot) Wave(n int) (object.Wave, bool) {
	if n < 1 || n > len(s.Waves) {
		return object.Wave{}, false
	}
	return s.Waves[n-1], true
}

// ActiveWave returns the wave currently in progress.
func (s *Snapshot) ActiveWave() (object.Wave, bool) {
	for _, w := range s.Waves {
		if w.IsActive() {
			return w, true
		}
	}
	return object.Wave{}, false
}

// CompletedWaves counts waves that have been cleared.
func (s *Snapshot) CompletedWaves() int {
	n := 0
	for _, w := range s.Waves {
		if w.Status == object.WaveCompleted {
			n++
		}
	}
	return n
}

// TowerAt returns the tower on cell.
func (s *Snapshot) TowerAt(c object.Cell) (object.Tower, bool) {
	for _, t := range s.Towers {
		if t.Cell == c {
			return t, true
		}
	}
	return object.Tower{}, false
}
