package rangelock

import (
	"cmp"
	"fmt"
	"io"
)

// Display writes a level-by-level dump of the live (non-sentinel) nodes to
// w, for debugging only — see spec.md §4.7/§2 component E. Grounded on
// original_source/src/v0/range_lock.hpp's displayList: one output line per
// level, top level first, one entry per node, "---------" where a node
// doesn't reach that level. Only OptimisticRangeLock has this method.
func (rl *OptimisticRangeLock[K]) Display(w io.Writer) {
	displayChain(w, rl.head, rl.maxLevel, int(rl.count.Load()))
}

func displayChain[K cmp.Ordered](w io.Writer, head *node[K], maxLevel, count int) {
	fmt.Fprintln(w, "Concurrent Range Lock")

	if count == 0 {
		fmt.Fprintln(w, "List is empty")
		return
	}

	rows := make([][]string, count)
	current := head.getNext(0)
	for i := 0; i < count && current != nil; i++ {
		row := make([]string, maxLevel)
		for level := 0; level < maxLevel; level++ {
			if level <= current.topLevel {
				row[level] = fmt.Sprintf("[%v,%v)", current.start, current.end)
			} else {
				row[level] = "---------"
			}
		}
		rows[i] = row
		current = current.getNext(0)
	}

	for level := maxLevel - 1; level >= 0; level-- {
		fmt.Fprintf(w, "Level %d: head", level)
		for _, row := range rows {
			if row[level] == "---------" {
				fmt.Fprint(w, "---------")
			} else {
				fmt.Fprint(w, "->"+row[level])
			}
		}
		fmt.Fprintln(w, "---> tail")
	}
}
