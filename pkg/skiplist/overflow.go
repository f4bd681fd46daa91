// ABOUTME: Thin bridge from the tree engine to pkg/overflow's chained value storage
// ABOUTME: Kept separate so skiplist never needs overflow's types beyond these calls

package skiplist

import "github.com/nainya/slkv/pkg/overflow"

func overflowRead(ps PageSource, first uint64, n int) []byte {
	return overflow.Read(ps, first, n)
}

func overflowPut(ps PageSource, value []byte) uint64 {
	return overflow.Put(ps, value)
}

func overflowFree(ps PageSource, rc RefCounter, first uint64) {
	overflow.Free(ps, rc, first)
}

func overflowFork(ps PageSource, rc RefCounter, first uint64) {
	overflow.Fork(ps, rc, first)
}

func overflowWalk(ps PageSource, first uint64, fn func(uint64)) {
	overflow.Walk(ps, first, fn)
}
