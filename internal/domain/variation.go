package domain

import (
	"math/rand/v2"
	"sync"
)

// VariationSource supplies the bounded multiplicative factor applied to each
// forecast day. The client-side jitter in earlier dashboards is redesigned
// into this explicit, seedable interface: alert reproducibility depends on
// the engine being runnable with variation disabled or a fixed seed.
type VariationSource interface {
	Factor() float64
}

// NoVariation disables forecast variation entirely. Two forecasts over
// identical inputs are bit-identical.
type NoVariation struct{}

func (NoVariation) Factor() float64 { return 1.0 }

// UniformVariation draws factors uniformly from [Min, Max) using a seeded
// PCG generator. The same seed replays the same factor sequence. Safe for
// concurrent use; the lock serializes draws so replay order stays stable
// only in single-goroutine runs.
type UniformVariation struct {
	mu       sync.Mutex
	rng      *rand.Rand
	min, max float64
}

// Default variation bounds: ±10% around the seasonal-adjusted baseline.
const (
	DefaultVariationMin = 0.9
	DefaultVariationMax = 1.1
)

// NewUniformVariation creates a seeded uniform variation source. Swapped
// min/max are reordered; equal bounds degenerate to a constant factor.
func NewUniformVariation(seed uint64, min, max float64) *UniformVariation {
	if min > max {
		min, max = max, min
	}
	return &UniformVariation{
		rng: rand.New(rand.NewPCG(seed, seed)),
		min: min,
		max: max,
	}
}

func (u *UniformVariation) Factor() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.min + u.rng.Float64()*(u.max-u.min)
}
