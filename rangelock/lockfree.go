package rangelock

import (
	"cmp"
	"sync/atomic"
)

// lfNode is the lock-free variant's node: no mutex, a single marked flag
// read directly by concurrent traversals instead of a tagged pointer. Go has
// no safe way to steal a bit from a pointer the way the C++ original
// (original_source/src/v2/range_lock.hpp, via AtomicMarkableReference-style
// packed ref+flag) or other_examples/792520e3_azr-lockfree__skiplist-list.go
// (via unsafe.Pointer tricks) do, so marking lives in a sibling atomic.Bool —
// the same substitution gaarutyunov-skiptrie-go/skiptrie/skiptrie.go makes.
type lfNode[K cmp.Ordered] struct {
	start, end K
	topLevel   int
	next       []atomic.Pointer[lfNode[K]]
	marked     atomic.Bool
}

func newLFNode[K cmp.Ordered](start, end K, topLevel int) *lfNode[K] {
	return &lfNode[K]{
		start:    start,
		end:      end,
		topLevel: topLevel,
		next:     make([]atomic.Pointer[lfNode[K]], topLevel+1),
	}
}

func (n *lfNode[K]) getNext(level int) *lfNode[K] { return n.next[level].Load() }

// LockFreeRangeLock is the Harris-style marked-pointer alternative described
// in spec.md §4.2: release marks a node, and any traversal that subsequently
// walks past it snips it out opportunistically. It implements the same
// Locker contract as OptimisticRangeLock but never blocks on a mutex.
type LockFreeRangeLock[K cmp.Ordered] struct {
	head, tail *lfNode[K]
	maxLevel   int
	count      atomic.Int64
	heights    *heightSampler
}

// NewLockFreeRangeLock creates an empty lock-free range lock over keys in
// [minK, maxK]. See NewOptimisticRangeLock for the sentinel/height contract.
func NewLockFreeRangeLock[K cmp.Ordered](minK, maxK K, maxLevel int) (*LockFreeRangeLock[K], error) {
	if maxLevel < 1 {
		return nil, ErrInvalidHeight
	}

	head := newLFNode(minK, minK, maxLevel-1)
	tail := newLFNode(maxK, maxK, maxLevel-1)
	for level := 0; level < maxLevel; level++ {
		head.next[level].Store(tail)
	}

	return &LockFreeRangeLock[K]{
		head:     head,
		tail:     tail,
		maxLevel: maxLevel,
		heights:  newHeightSampler(maxLevel),
	}, nil
}

// Size returns the number of currently reserved, non-sentinel ranges.
func (rl *LockFreeRangeLock[K]) Size() int {
	return int(rl.count.Load())
}

// search descends top-down, opportunistically snipping marked nodes it
// passes through, and returns the final bottom-level successor (preds/succs
// are populated at every level along the way). Grounded on
// original_source/src/v2/range_lock.hpp's find/findExact, which share this
// exact descent and differ only in how the caller interprets the result.
func (rl *LockFreeRangeLock[K]) search(a, b K, preds, succs []*lfNode[K]) *lfNode[K] {
	pred := rl.head
	var curr *lfNode[K]

	for level := rl.maxLevel - 1; level >= 0; level-- {
		curr = pred.getNext(level)
		for {
			if curr.marked.Load() {
				next := curr.getNext(level)
				if pred.next[level].CompareAndSwap(curr, next) {
					curr = next
				} else {
					curr = pred.getNext(level)
				}
				continue
			}
			if cmp.Compare(a, curr.end) < 0 {
				break
			}
			pred = curr
			curr = pred.getNext(level)
		}
		preds[level] = pred
		succs[level] = curr
	}

	return curr
}

// TryLock acquires [a, b) iff no live node overlaps it.
func (rl *LockFreeRangeLock[K]) TryLock(a, b K) bool {
	if cmp.Compare(a, b) >= 0 {
		return false
	}

	topLevel := rl.heights.sample()
	preds := make([]*lfNode[K], rl.maxLevel)
	succs := make([]*lfNode[K], rl.maxLevel)

	for {
		curr := rl.search(a, b, preds, succs)
		if cmp.Compare(b, curr.start) > 0 {
			return false
		}

		n := newLFNode(a, b, topLevel)
		for level := 0; level <= topLevel; level++ {
			n.next[level].Store(succs[level])
		}

		if !preds[0].next[0].CompareAndSwap(succs[0], n) {
			continue
		}

		for level := 1; level <= topLevel; level++ {
			for !preds[level].next[level].CompareAndSwap(succs[level], n) {
				rl.search(a, b, preds, succs)
			}
		}

		rl.count.Add(1)
		return true
	}
}

// ReleaseLock releases the node whose interval is exactly [a, b).
func (rl *LockFreeRangeLock[K]) ReleaseLock(a, b K) bool {
	preds := make([]*lfNode[K], rl.maxLevel)
	succs := make([]*lfNode[K], rl.maxLevel)

	victim := rl.search(a, b, preds, succs)
	if cmp.Compare(victim.start, a) != 0 || cmp.Compare(victim.end, b) != 0 {
		return false
	}
	if !victim.marked.CompareAndSwap(false, true) {
		return false
	}

	// Physically unlink top-down. If a predecessor's pointer has already
	// moved past victim, some other traversal's search() already snipped
	// it at that level — nothing left to do there.
	for level := victim.topLevel; level >= 0; level-- {
		for {
			pred := preds[level]
			if pred.getNext(level) != victim {
				break
			}
			if pred.next[level].CompareAndSwap(victim, victim.getNext(level)) {
				break
			}
		}
	}

	rl.count.Add(-1)
	return true
}

// SearchLock reports whether a live, unmarked node with interval exactly
// [a, b) exists at some instant during the call.
func (rl *LockFreeRangeLock[K]) SearchLock(a, b K) bool {
	preds := make([]*lfNode[K], rl.maxLevel)
	succs := make([]*lfNode[K], rl.maxLevel)

	curr := rl.search(a, b, preds, succs)
	return cmp.Compare(curr.start, a) == 0 && cmp.Compare(curr.end, b) == 0 && !curr.marked.Load()
}
