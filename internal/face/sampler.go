package face

import (
	"math/rand"
	"sort"
	"time"
)

// Sampler is the seedable random source behind every behavior timer. One
// instance per engine; seeding it makes blink/look/expression timing
// reproducible.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler seeded with the given value.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// NewTimeSampler returns a sampler seeded from the wall clock.
func NewTimeSampler() *Sampler {
	return NewSampler(time.Now().UnixNano())
}

// Between returns a duration uniform in [min, max]. A degenerate range
// collapses to min.
func (s *Sampler) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}

// Range returns a float uniform in [lo, hi).
func (s *Sampler) Range(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Chance returns true with probability p.
func (s *Sampler) Chance(p float64) bool {
	return s.rng.Float64() < p
}

// PickExpression draws a weighted random canonical expression, never
// returning exclude. Iteration order is fixed by sorting so a given seed
// always produces the same draw sequence.
func (s *Sampler) PickExpression(weights map[Expression]int, exclude Expression) Expression {
	names := make([]Expression, 0, len(weights))
	total := 0
	for e, w := range weights {
		if e == exclude || w <= 0 {
			continue
		}
		names = append(names, e)
		total += w
	}
	if len(names) == 0 {
		return ExpressionNormal
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	n := s.rng.Intn(total)
	for _, e := range names {
		n -= weights[e]
		if n < 0 {
			return e
		}
	}
	return names[len(names)-1]
}
