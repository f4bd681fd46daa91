// ABOUTME: In-order traversal and range iteration, spec.md section 4.6
// ABOUTME: Walk recurses the tree directly; Iterator snapshots order once for Seek/Next

package skiplist

import "bytes"

// Walk visits every key in ascending order, calling fn(key, value) for
// each. Traversal stops early if fn returns false. This is also the hook
// an external structure-dumping tool can use to render the tree without
// this package exposing its page layout.
func (t *Tree) Walk(fn func(key, value []byte) bool) {
	if t.Root == 0 {
		return
	}
	t.walk(t.Root, fn)
}

func (t *Tree) walk(off uint64, fn func(key, value []byte) bool) bool {
	p := t.loadPage(off)
	if left := p.LeftChild(); left != 0 {
		if !t.walk(left, fn) {
			return false
		}
	}
	cur := nextAt(p, FirstHead, 0)
	for cur != NIL {
		key := p.recKey(cur)
		value := t.valueOf(p, cur)
		if !fn(key, value) {
			return false
		}
		if right := p.recRightChild(cur); right != 0 {
			if !t.walk(right, fn) {
				return false
			}
		}
		cur = nextAt(p, cur, 0)
	}
	return true
}

// WalkPages calls fn with the offset of every page reachable from the
// tree's root — every internal and leaf tree page, plus every overflow
// chain's pages. A page shared by more than one path below the root (via
// a fork CoW boundary not yet crossed) is visited once per path, matching
// spec.md section 8's "Refcount accounting" property: summing visits
// across every live root's WalkPages should equal the sum of the
// refcount index's stored counts (treating an absent entry as 1).
func (t *Tree) WalkPages(fn func(offset uint64)) {
	if t.Root == 0 {
		return
	}
	t.walkPages(t.Root, fn)
}

func (t *Tree) walkPages(off uint64, fn func(offset uint64)) {
	fn(off)
	p := t.loadPage(off)
	if left := p.LeftChild(); left != 0 {
		t.walkPages(left, fn)
	}
	cur := nextAt(p, FirstHead, 0)
	for cur != NIL {
		if p.recIsOverflow(cur) {
			overflowWalk(t.ps, p.recOverflowFirstPage(cur), fn)
		}
		if right := p.recRightChild(cur); right != 0 {
			t.walkPages(right, fn)
		}
		cur = nextAt(p, cur, 0)
	}
}

// kv is one entry in a materialized iteration snapshot.
type kv struct {
	key   []byte
	value []byte
}

// Iterator is a snapshot of the tree's key order at the moment it was
// built, positioned by Seek. It does not observe later mutations to the
// same Tree value — callers needing a live view rebuild it after each
// write, which is consistent with every other read against this engine
// being snapshot-scoped to a transaction.
type Iterator struct {
	entries []kv
	pos     int
}

// NewIterator materializes the tree's full key order. Spec.md section 4.6
// allows this to read overflow chains lazily during comparisons; this
// engine instead walks the whole tree once up front, trading memory for a
// much simpler implementation than a live descent-stack cursor.
func (t *Tree) NewIterator() *Iterator {
	it := &Iterator{}
	t.Walk(func(key, value []byte) bool {
		it.entries = append(it.entries, kv{key: key, value: value})
		return true
	})
	return it
}

// Seek positions the iterator at the first key >= target.
func (it *Iterator) Seek(target []byte) {
	lo, hi := 0, len(it.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(it.entries[mid].key, target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.pos = lo
}

// Valid reports whether the iterator currently sits on an entry.
func (it *Iterator) Valid() bool { return it.pos >= 0 && it.pos < len(it.entries) }

// Key and Value return the current entry. Only valid when Valid() is true.
func (it *Iterator) Key() []byte   { return it.entries[it.pos].key }
func (it *Iterator) Value() []byte { return it.entries[it.pos].value }

// Next advances the iterator by one entry.
func (it *Iterator) Next() { it.pos++ }
