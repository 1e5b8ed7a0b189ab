package rangelock

import (
	"cmp"
	"sync"
	"sync/atomic"
)

// node represents one reserved interval [start, end) in the skip list, plus
// the two sentinels (head: [minK, minK), tail: [maxK, maxK)).
//
// next holds one forward pointer per occupied level (len(next) == topLevel+1).
// fullyLinked and marked are the two flags from spec.md §4.7's state table;
// mutex serializes transitions of next[*], fullyLinked and marked for this
// node specifically (never across nodes — cross-node ordering is enforced by
// the caller locking predecessors bottom-up).
type node[K cmp.Ordered] struct {
	start, end K
	topLevel   int

	next []atomic.Pointer[node[K]]

	mu          sync.Mutex
	fullyLinked atomic.Bool
	marked      atomic.Bool
}

func newNode[K cmp.Ordered](start, end K, topLevel int) *node[K] {
	return &node[K]{
		start:    start,
		end:      end,
		topLevel: topLevel,
		next:     make([]atomic.Pointer[node[K]], topLevel+1),
	}
}

func (n *node[K]) lock()   { n.mu.Lock() }
func (n *node[K]) unlock() { n.mu.Unlock() }

func (n *node[K]) getNext(level int) *node[K] {
	return n.next[level].Load()
}

func (n *node[K]) setNext(level int, succ *node[K]) {
	n.next[level].Store(succ)
}
