// Package generator provides the random draws behind sampling, shuffling and placement.
package generator

import (
	"math/rand"
	"sync"
	"time"
)

// Generator wraps a random source shared by the sampling and placement code.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Intn returns a uniform int in [0, n).
func (g *Generator) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(n)
}

// IntRange returns a uniform int in [lo, hi], both inclusive.
func (g *Generator) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.rnd.Intn(hi-lo+1)
}

// SampleIndices returns k distinct indices drawn uniformly from [0, n).
// It returns nil when k is out of range.
func (g *Generator) SampleIndices(n, k int) []int {
	if k < 0 || k > n {
		return nil
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// Partial Fisher-Yates: the first k slots end up holding the sample.
	for i := 0; i < k; i++ {
		j := i + g.rnd.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Shuffle randomizes the order of n elements through swap.
func (g *Generator) Shuffle(n int, swap func(i, j int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rnd.Shuffle(n, swap)
}
