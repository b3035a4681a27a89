package object

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the randomness the wave generator draws from.
type Rand interface {
	Intn(n int) int
}

// PRNG wraps math/rand so a whole game can run from one seed.
// It is safe for concurrent use.
type PRNG struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPRNG creates a generator with the given seed.
// A zero seed uses the current time.
func NewPRNG(seed int64) *PRNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &PRNG{rng: rand.New(rand.NewSource(seed))}
}

// Intn returns a random integer in [0, n).
func (p *PRNG) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}
