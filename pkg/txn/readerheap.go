// ABOUTME: Min-heap of active reader snapshot versions
// ABOUTME: Grounded on sharvitKashikar-FiloDB's filodb_transactions.go ReaderList/KVReader pattern

package txn

import "container/heap"

// readerHeap tracks the version each currently open ReadTxn began at, so a
// committing writer can tell which freed pages no reader could still
// reach. A version appears once per open reader; the same version may
// repeat if several readers began between the same two commits.
type readerHeap []uint64

func (h readerHeap) Len() int            { return len(h) }
func (h readerHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h readerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *readerHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *readerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// registry wraps readerHeap with the operations the Manager actually needs.
type registry struct {
	h readerHeap
}

func (r *registry) add(version uint64) {
	heap.Push(&r.h, version)
}

// remove deletes one occurrence of version (a reader ending). Readers end
// in arbitrary order, so this is a linear scan rather than a heap pop;
// reader counts are expected to be small relative to tree size.
func (r *registry) remove(version uint64) {
	for i, v := range r.h {
		if v == version {
			heap.Remove(&r.h, i)
			return
		}
	}
}

// oldest returns the smallest active reader version, and false if no
// reader is currently open (meaning every pending-free page is safe).
func (r *registry) oldest() (uint64, bool) {
	if len(r.h) == 0 {
		return 0, false
	}
	return r.h[0], true
}
