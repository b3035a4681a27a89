package object

import (
	"github.com/tomz197/ciphertower/internal/cipher"
	"github.com/tomz197/ciphertower/internal/loop/config"
)

// hints are the flavor texts shown before a wave is decrypted.
var hints = []string{
	"Enemies approaching from the west",
	"Multiple paths detected",
	"Heavy units spotted",
	"Fast movers incoming",
	"Mixed composition expected",
}

// WaveGenerator produces wave rosters and their encoded descriptors.
type WaveGenerator struct {
	scheme cipher.Scheme
	rng    Rand
}

// NewWaveGenerator creates a generator encoding with scheme and sampling
// from rng.
func NewWaveGenerator(scheme cipher.Scheme, rng Rand) *WaveGenerator {
	if scheme == nil {
		scheme = cipher.Tagged{}
	}
	if rng == nil {
		rng = NewPRNG(0)
	}
	return &WaveGenerator{scheme: scheme, rng: rng}
}

// EnemyCount returns the size of the wave with 0-based index i.
func EnemyCount(i int) int {
	return config.WaveBaseCount + i*config.WaveCountStep
}

// Hint returns the flavor text for the wave with 0-based index i.
func Hint(i int) string {
	return hints[i%len(hints)]
}

// Generate returns n pending waves numbered 1..n.
//
// The encoded descriptors carry a single representative value: the path
// descriptor holds the first route cell's code and the composition
// descriptor holds the first sampled enemy's kind code.
func (g *WaveGenerator) Generate(n int) []*Wave {
	waves := make([]*Wave, 0, n)
	pathCodes := RouteCodes()
	for i := 0; i < n; i++ {
		composition := g.SampleComposition(EnemyCount(i))
		waves = append(waves, &Wave{
			Number:             i + 1,
			Enemies:            []*Enemy{},
			EncodedPath:        g.scheme.Encode(float64(pathCodes[0])),
			EncodedComposition: g.scheme.Encode(float64(composition[0].Code())),
			Hint:               Hint(i),
			Status:             WavePending,
		})
	}
	return waves
}

// SampleComposition draws count enemy kinds independently and uniformly.
func (g *WaveGenerator) SampleComposition(count int) []EnemyKind {
	kinds := make([]EnemyKind, count)
	for i := range kinds {
		kinds[i] = EnemyKinds[g.rng.Intn(len(EnemyKinds))]
	}
	return kinds
}

// Spawn builds a fresh roster for the wave numbered waveNumber. The
// composition is resampled rather than read back from the wave's encoded
// descriptor.
func (g *WaveGenerator) Spawn(waveNumber int) []*Enemy {
	kinds := g.SampleComposition(EnemyCount(waveNumber - 1))
	enemies := make([]*Enemy, len(kinds))
	for i, k := range kinds {
		enemies[i] = NewEnemy(i, k, g.scheme.Encode(float64(k.Code())))
	}
	return enemies
}
