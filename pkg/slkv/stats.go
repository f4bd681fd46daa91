// ABOUTME: Reachable-page accounting, used to verify spec.md section 8's "Refcount accounting" property
// ABOUTME: Direct API over skiplist.Tree.WalkPages, rather than only a Prometheus gauge

package slkv

import "github.com/nainya/slkv/pkg/skiplist"

// ReachablePages returns every distinct page offset reachable from root by
// walking its tree pages and overflow chains. Summing the per-root sizes
// of every live root's set (with shared pages counted once per root they
// are reachable from) is the quantity spec.md section 8 requires to equal
// Σ(rc): a page's refcount in pkg/refcount counts exactly how many
// distinct roots can currently reach it.
func ReachablePages(ps skiplist.PageSource, root uint64) map[uint64]struct{} {
	seen := map[uint64]struct{}{}
	if root == 0 {
		return seen
	}
	t := skiplist.New(ps, skiplist.NoRefCounter{}, nil, root)
	t.WalkPages(func(off uint64) { seen[off] = struct{}{} })
	return seen
}

// ReachablePages reports the distinct tree and overflow pages reachable
// from this read snapshot's main-tree root.
func (t *Txn) ReachablePages() map[uint64]struct{} {
	return ReachablePages(t.rt, t.rt.MainRoot())
}

// ReachablePages reports the distinct tree and overflow pages reachable
// from this write transaction's current working main-tree root.
func (m *MutTxn) ReachablePages() map[uint64]struct{} {
	return ReachablePages(m.w, m.tree.Root)
}

// ReachableFrom reports the distinct tree and overflow pages reachable
// from an arbitrary root offset within this write transaction — used to
// inspect a forked root that is not (yet) the transaction's main root.
func (m *MutTxn) ReachableFrom(root uint64) map[uint64]struct{} {
	return ReachablePages(m.w, root)
}
