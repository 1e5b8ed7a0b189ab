package rangelock

import (
	"math/rand"
	"sync"
)

// heightSampler draws a level h in [0, maxLevel-1], geometric with p = 1/2:
// P(h >= l) = 2^-l. Unlike the teacher's single mutex-guarded *rand.Rand
// (skiptrie.go's randomHeight), each goroutine gets its own *rand.Rand out of
// a sync.Pool, avoiding the contention spec.md §4.6 calls out explicitly
// ("Per-thread PRNG state... avoids contention on the height sampler") —
// every TryLock call samples a height, so this is on the structure's hot
// path.
type heightSampler struct {
	maxLevel int
	pool     sync.Pool
}

func newHeightSampler(maxLevel int) *heightSampler {
	hs := &heightSampler{maxLevel: maxLevel}
	hs.pool.New = func() any {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return hs
}

func (hs *heightSampler) sample() int {
	rng := hs.pool.Get().(*rand.Rand)
	defer hs.pool.Put(rng)

	level := 0
	for level < hs.maxLevel-1 && rng.Float64() < 0.5 {
		level++
	}
	return level
}
