// ABOUTME: Injectable level selection for new skip-list records
// ABOUTME: Geometric distribution via repeated coin flips, grounded on the teacher's callback DI style

package skiplist

import "math/rand/v2"

// RandSource is the default LevelSource: a fair-coin geometric climb seeded
// for reproducibility when a seed is supplied.
type RandSource struct {
	rng *rand.Rand
}

// NewRand returns a LevelSource seeded deterministically from seed.
func NewRand(seed uint64) *RandSource {
	return &RandSource{rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

// PickLevel climbs from level 0, flipping a fair coin at each step and
// stopping on the first tail (or at MaxLevel), giving P(level >= l) = 2^-l.
func (s *RandSource) PickLevel() int {
	level := 0
	for level < MaxLevel && s.rng.Uint64()&1 == 1 {
		level++
	}
	return level
}

// FixedLevelSource replays a programmed sequence of levels, cycling once
// exhausted. Used by tests that need a specific page shape.
type FixedLevelSource struct {
	levels []int
	i      int
}

// NewFixedLevelSource returns a LevelSource that yields levels in order,
// repeating the sequence once it runs out. An empty sequence always yields 0.
func NewFixedLevelSource(levels ...int) *FixedLevelSource {
	return &FixedLevelSource{levels: levels}
}

func (s *FixedLevelSource) PickLevel() int {
	if len(s.levels) == 0 {
		return 0
	}
	l := s.levels[s.i%len(s.levels)]
	s.i++
	return l
}
