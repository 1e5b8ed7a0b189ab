package rangelock

import "cmp"

// findInsert locates the neighborhood [a, b) would be inserted into and
// reports any overlap. It populates preds/succs at every level from top to
// bottom without taking any locks, and returns the highest level at which
// an overlapping node was observed, or -1 if none was.
//
// Grounded on original_source/src/v0/range_lock.hpp's findInsert, pinned to
// the spec's half-open [s, e) semantics: advance while a >= curr.end, and
// flag overlap when b > curr.start (equivalently succ.start < b).
func findInsert[K cmp.Ordered](head *node[K], a, b K, preds, succs []*node[K]) int {
	levelFound := -1
	pred := head

	for level := len(preds) - 1; level >= 0; level-- {
		curr := pred.getNext(level)

		for cmp.Compare(a, curr.end) >= 0 {
			pred = curr
			curr = pred.getNext(level)
		}

		if levelFound == -1 && cmp.Compare(curr.start, b) < 0 {
			levelFound = level
		}

		preds[level] = pred
		succs[level] = curr
	}

	return levelFound
}

// findExact locates the node whose interval equals [a, b) exactly, using the
// same top-down, lock-free descent as findInsert. Grounded on
// original_source/src/v0/range_lock.hpp's findExact.
func findExact[K cmp.Ordered](head *node[K], a, b K, preds, succs []*node[K]) int {
	levelFound := -1
	pred := head

	for level := len(preds) - 1; level >= 0; level-- {
		curr := pred.getNext(level)

		for cmp.Compare(a, curr.end) >= 0 {
			pred = curr
			curr = pred.getNext(level)
		}

		if levelFound == -1 && cmp.Compare(curr.start, a) == 0 && cmp.Compare(curr.end, b) == 0 {
			levelFound = level
		}

		preds[level] = pred
		succs[level] = curr
	}

	return levelFound
}
