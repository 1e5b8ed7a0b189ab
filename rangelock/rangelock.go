// Package rangelock implements a concurrent range lock: a data structure
// that serializes exclusive access to half-open intervals [start, end)
// drawn from a totally ordered key space (any cmp.Ordered type), letting non-overlapping
// ranges proceed in parallel without a global critical section.
package rangelock

import (
	"cmp"
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"
)

// ErrInvalidHeight is returned by NewOptimisticRangeLock and
// NewLockFreeRangeLock when maxLevel < 1.
var ErrInvalidHeight = errors.New("rangelock: height must be >= 1")

// Locker is the capability every range lock variant implements. See
// SPEC_FULL.md §4.2 for why two variants (OptimisticRangeLock and
// LockFreeRangeLock) share this interface instead of one being built on the
// other through runtime polymorphism.
type Locker[K cmp.Ordered] interface {
	TryLock(a, b K) bool
	ReleaseLock(a, b K) bool
	SearchLock(a, b K) bool
	Size() int
}

// OptimisticRangeLock is the per-node-mutex, optimistically validated skip
// list variant described in spec.md §4.3-4.6. It is the primary, fully
// tested variant; LockFreeRangeLock implements the same Locker contract
// using Harris-style marked-pointer deletion instead (spec.md §4.2).
type OptimisticRangeLock[K cmp.Ordered] struct {
	head, tail *node[K]
	maxLevel   int
	count      atomic.Int64
	heights    *heightSampler
	log        *slog.Logger
}

// NewOptimisticRangeLock creates an empty range lock over keys in
// [minK, maxK], with minK and maxK used as the sentinels' empty intervals
// [minK, minK) and [maxK, maxK). A range may start at minK and may end at
// maxK; its start must be below maxK. maxLevel is the skip list height H
// (spec.md §6); it must be >= 1.
func NewOptimisticRangeLock[K cmp.Ordered](minK, maxK K, maxLevel int) (*OptimisticRangeLock[K], error) {
	if maxLevel < 1 {
		return nil, ErrInvalidHeight
	}

	head := newNode(minK, minK, maxLevel-1)
	tail := newNode(maxK, maxK, maxLevel-1)
	for level := 0; level < maxLevel; level++ {
		head.setNext(level, tail)
	}
	head.fullyLinked.Store(true)
	tail.fullyLinked.Store(true)

	return &OptimisticRangeLock[K]{
		head:     head,
		tail:     tail,
		maxLevel: maxLevel,
		heights:  newHeightSampler(maxLevel),
		log:      slog.Default().With("component", "rangelock"),
	}, nil
}

// Size returns the number of currently reserved, non-sentinel ranges.
func (rl *OptimisticRangeLock[K]) Size() int {
	return int(rl.count.Load())
}

// TryLock acquires [a, b) iff no live node overlaps it. See spec.md §4.3.
func (rl *OptimisticRangeLock[K]) TryLock(a, b K) bool {
	if cmp.Compare(a, b) >= 0 {
		return false
	}

	topLevel := rl.heights.sample()
	preds := make([]*node[K], rl.maxLevel)
	succs := make([]*node[K], rl.maxLevel)

	for {
		levelFound := findInsert(rl.head, a, b, preds, succs)
		if levelFound >= 0 {
			witness := succs[levelFound]
			if !witness.marked.Load() {
				for !witness.fullyLinked.Load() {
					runtime.Gosched()
				}
				rl.log.Debug("try_lock overlap", "start", a, "end", b)
				return false
			}
			// witness is mid-removal; the overlap will disappear.
			runtime.Gosched()
			continue
		}

		locked, highestLocked := lockDistinct(preds, topLevel)
		valid := true
		for level := 0; valid && level <= highestLocked; level++ {
			pred := preds[level]
			succ := succs[level]
			valid = !pred.marked.Load() && !succ.marked.Load() && pred.getNext(level) == succ
		}

		if !valid {
			unlockAll(locked)
			continue
		}

		n := newNode(a, b, topLevel)
		for level := 0; level <= topLevel; level++ {
			n.setNext(level, succs[level])
		}
		for level := 0; level <= topLevel; level++ {
			preds[level].setNext(level, n)
		}
		n.fullyLinked.Store(true)

		unlockAll(locked)
		rl.count.Add(1)
		rl.log.Debug("try_lock acquired", "start", a, "end", b, "top_level", topLevel)
		return true
	}
}

// ReleaseLock releases the node whose interval is exactly [a, b). See
// spec.md §4.4.
func (rl *OptimisticRangeLock[K]) ReleaseLock(a, b K) bool {
	var victim *node[K]
	isMarked := false
	topLevel := -1

	preds := make([]*node[K], rl.maxLevel)
	succs := make([]*node[K], rl.maxLevel)

	for {
		levelFound := findExact(rl.head, a, b, preds, succs)

		if !isMarked {
			if levelFound == -1 || succs[levelFound].topLevel != levelFound || succs[levelFound].marked.Load() {
				return false
			}

			victim = succs[levelFound]
			topLevel = victim.topLevel
			victim.lock()
			if victim.marked.Load() {
				victim.unlock()
				return false
			}
			victim.marked.Store(true)
			isMarked = true
		}

		locked, highestLocked := lockDistinct(preds, topLevel)
		valid := true
		for level := 0; valid && level <= highestLocked; level++ {
			pred := preds[level]
			valid = !pred.marked.Load() && pred.getNext(level) == victim
		}

		if !valid {
			unlockAll(locked)
			continue
		}

		for level := topLevel; level >= 0; level-- {
			preds[level].setNext(level, victim.getNext(level))
		}

		unlockAll(locked)
		victim.unlock()

		rl.count.Add(-1)
		rl.log.Debug("release_lock", "start", a, "end", b)
		return true
	}
}

// SearchLock reports whether a live, fully linked node with interval exactly
// [a, b) exists at some instant during the call. It acquires no locks and
// has no side effects. See spec.md §4.5.
func (rl *OptimisticRangeLock[K]) SearchLock(a, b K) bool {
	preds := make([]*node[K], rl.maxLevel)
	succs := make([]*node[K], rl.maxLevel)

	levelFound := findExact(rl.head, a, b, preds, succs)
	return levelFound >= 0 && succs[levelFound].fullyLinked.Load() && !succs[levelFound].marked.Load()
}

// lockDistinct locks preds[0..topLevel] bottom-up, skipping duplicates (a
// single node can be the predecessor at multiple levels — spec.md §4.3c/
// §4.4d). Predecessor position is non-increasing in list order as level
// increases (fewer nodes survive at higher levels), so duplicates are always
// adjacent and a single "last locked" check suffices, the same pattern as
// other_examples/06aca12c_RexLe192010-OwlDB__skiplist/skiplist.go's `used`
// tracking and other_examples/792520e3_azr-lockfree__skiplist-list.go's
// prevPred check.
func lockDistinct[K cmp.Ordered](preds []*node[K], topLevel int) (locked []*node[K], highestLocked int) {
	highestLocked = -1
	var prev *node[K]
	for level := 0; level <= topLevel; level++ {
		pred := preds[level]
		if pred != prev {
			pred.lock()
			locked = append(locked, pred)
			prev = pred
		}
		highestLocked = level
	}
	return locked, highestLocked
}

func unlockAll[K cmp.Ordered](locked []*node[K]) {
	for _, n := range locked {
		n.unlock()
	}
}
