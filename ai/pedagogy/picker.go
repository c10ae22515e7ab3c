package pedagogy

import (
	"math/rand/v2"
	"sync"
)

// Picker chooses an index in [0, n) when a phrase table offers several
// equivalent options. Implementations must be safe for concurrent use.
type Picker interface {
	Pick(n int) int
}

// RoundRobinPicker cycles through indices.
type RoundRobinPicker struct {
	mu   sync.Mutex
	next int
}

func (p *RoundRobinPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.next % n
	p.next++
	return i
}

// FixedPicker always picks the same index, wrapped into range.
type FixedPicker int

func (p FixedPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(p) % n
	if i < 0 {
		i += n
	}
	return i
}

// RandomPicker picks uniformly from a seeded source.
type RandomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPicker returns a picker whose sequence is fixed by seed.
func NewRandomPicker(seed uint64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}
