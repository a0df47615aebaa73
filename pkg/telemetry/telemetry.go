// Package telemetry supplies the operating variation that forecasts and the
// simulated telemetry tick draw from. Production code uses a seeded random
// provider; tests inject Static or Sequence for deterministic results.
package telemetry

import (
	"math/rand"
	"sync"
)

// Source yields operating variation samples
type Source interface {
	// Variation returns a sample in [-1, 1]
	Variation() float64
}

// Random draws uniform variation from a seeded generator
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a random source with the given seed
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Variation returns a uniform sample in [-1, 1]
func (r *Random) Variation() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()*2 - 1
}

// Static always returns the same value
type Static struct {
	Value float64
}

// Variation returns the fixed value clamped to [-1, 1]
func (s Static) Variation() float64 {
	return clamp(s.Value)
}

// Sequence replays a fixed list of samples, cycling when exhausted
type Sequence struct {
	mu      sync.Mutex
	samples []float64
	next    int
}

// NewSequence creates a cycling sample source
func NewSequence(samples ...float64) *Sequence {
	return &Sequence{samples: samples}
}

// Variation returns the next sample
func (s *Sequence) Variation() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return 0
	}
	v := s.samples[s.next%len(s.samples)]
	s.next++
	return clamp(v)
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
