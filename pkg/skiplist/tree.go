// ABOUTME: The CoW skip-list B-tree: search, in-page skip-list walk, child descent
// ABOUTME: Implements spec.md section 4.5.1 (get) and the shared page-search primitive

package skiplist

import "bytes"

// Tree is a single versioned B-tree rooted at Root, operating over ps for
// page I/O, rc for shared-page accounting, and levels for new record
// shapes. A Tree value is cheap and transaction-scoped: callers reconstruct
// one around a PageSource each time they open a read or write transaction.
type Tree struct {
	ps     PageSource
	rc     RefCounter
	levels LevelSource
	Root   uint64 // 0 means empty tree
}

// New builds a Tree over an existing root (0 for an empty tree).
func New(ps PageSource, rc RefCounter, levels LevelSource, root uint64) *Tree {
	return &Tree{ps: ps, rc: rc, levels: levels, Root: root}
}

func (t *Tree) loadPage(off uint64) Page {
	return Page(t.ps.Load(off))
}

func nextAt(p Page, off uint16, level int) uint16 {
	if off == FirstHead {
		return p.headNext(level)
	}
	return p.recNext(off, level)
}

func setNextAt(p Page, off uint16, level int, v uint16) {
	if off == FirstHead {
		p.setHeadNext(level, v)
		return
	}
	p.setRecNext(off, level, v)
}

func setChildFor(p Page, pred0 uint16, child uint64) {
	if pred0 == FirstHead {
		p.SetLeftChild(child)
		return
	}
	p.setRecRightChild(pred0, child)
}

// recLess reports whether the record at off on p sorts strictly before
// (key, value) in (key, value) tuple order. When exact is false, value is
// ignored and any record sharing key compares as not-less: this is
// spec.md 4.5.4's "smallest entry matching key" search mode (command (b)),
// used by Get, Has, and del(key) with no value supplied.
func (t *Tree) recLess(p Page, off uint16, key, value []byte, exact bool) bool {
	if c := bytes.Compare(p.recKey(off), key); c != 0 {
		return c < 0
	}
	if !exact {
		return false
	}
	return bytes.Compare(t.valueOf(p, off), value) < 0
}

// pageSearch walks the in-page skip list for (key, value), returning the
// predecessor record offset at every level (FirstHead if none) and the
// offset of a match, or NIL if absent. With exact set, a match requires
// the stored value to equal value exactly (spec.md 4.5.2's duplicate
// check and the exact-binding delete command (a)); with exact clear, a
// match is the smallest record bound to key regardless of its value
// (command (b), and plain Get/Has lookups).
func (t *Tree) pageSearch(p Page, key, value []byte, exact bool) (pred [NumLevels]uint16, found uint16) {
	cur := FirstHead
	for level := MaxLevel; level >= 0; level-- {
		for {
			next := nextAt(p, cur, level)
			if next == NIL {
				break
			}
			if t.recLess(p, next, key, value, exact) {
				cur = next
				continue
			}
			break
		}
		pred[level] = cur
	}
	found = NIL
	next := nextAt(p, pred[0], 0)
	if next != NIL && bytes.Equal(p.recKey(next), key) {
		if !exact || bytes.Equal(t.valueOf(p, next), value) {
			found = next
		}
	}
	return
}

// childFor returns the child subtree offset to descend into for key, given
// the predecessor-at-level-0 found during pageSearch (0 if this page is a
// leaf — the caller should stop descending).
func childFor(p Page, pred0 uint16) uint64 {
	if pred0 == FirstHead {
		return p.LeftChild()
	}
	return p.recRightChild(pred0)
}

// valueOf materializes the value stored in record off on page p.
func (t *Tree) valueOf(p Page, off uint16) []byte {
	if p.recIsOverflow(off) {
		first := p.recOverflowFirstPage(off)
		n := int(p.recValueLen(off))
		return overflowRead(t.ps, first, n)
	}
	return append([]byte(nil), p.recInlineValue(off)...)
}

// Get returns the value stored for key, and whether it was present; for a
// key holding several values it returns the smallest. Spec.md section
// 4.5.1: descend by skip-list search at each page, following child
// pointers down to a leaf and keeping the deepest match seen, since a
// smaller binding for key can only lie in the subtree left of a match.
func (t *Tree) Get(key []byte) ([]byte, bool) {
	var value []byte
	ok := false
	off := t.Root
	for off != 0 {
		p := t.loadPage(off)
		pred, found := t.pageSearch(p, key, nil, false)
		if found != NIL {
			value, ok = t.valueOf(p, found), true
		}
		if p.IsLeaf() {
			break
		}
		off = childFor(p, pred[0])
	}
	return value, ok
}

// Has reports whether key is present without materializing its value.
func (t *Tree) Has(key []byte) bool {
	_, ok := t.Get(key)
	return ok
}
