// Package random provides the goroutine-safe random source used for market
// moves, magic research and minigames.
package random

import (
	mathrand "math/rand"
	"sync"
	"time"
)

// Rand is the subset of *rand.Rand the game code draws from.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Source is a mutex-guarded math/rand generator.
type Source struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

// New creates a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{rand: mathrand.New(mathrand.NewSource(seed))}
}

// NewTimeSeeded creates a Source seeded from the clock.
func NewTimeSeeded() *Source {
	return New(time.Now().UnixNano())
}

// Intn returns a uniform int in [0, n).
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

// Float64 returns a uniform float in [0, 1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

// Between returns a uniform int in [lo, hi].
func Between(r Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}
