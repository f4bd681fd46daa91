// ABOUTME: Copy-on-write page cloning before any mutation, per spec.md section 4.5.7
// ABOUTME: A page touched by a write is always cloned first, whether or not it is shared

package skiplist

// cow ensures the page at off can be mutated without disturbing any other
// tree or reader snapshot that might reference it, and returns the offset
// of a page safe to write into directly.
//
// Every pre-existing page reached by a write is cloned unconditionally: a
// refcount of 1 only means the page is not explicitly forked, not that no
// concurrent reader snapshot still points at it. If the source was shared
// (refcount > 1), every child pointer and overflow value carried into the
// clone gains one more reference, since the clone is a new page pointing
// at them alongside the original. The source's own refcount is always
// decremented by one, since this path no longer needs it; if that drops
// it to (or leaves it at) zero, the page is freed.
func (t *Tree) cow(off uint64) uint64 {
	src := t.loadPage(off)
	shared := t.rc.RC(off) > 1

	clone := append(Page(nil), src...)
	newOff := t.ps.Alloc(clone)

	if shared {
		p := t.loadPage(newOff)
		if !p.IsLeaf() {
			t.rc.Incr(p.LeftChild())
		}
		walkLevel0(p, func(off16 uint16) {
			if rc := p.recRightChild(off16); rc != 0 {
				t.rc.Incr(rc)
			}
			if p.recIsOverflow(off16) {
				overflowFork(t.ps, t.rc, p.recOverflowFirstPage(off16))
			}
		})
	}

	if t.rc.Decr(off) {
		t.ps.Free(off)
	}
	return newOff
}

// walkLevel0 visits every record on p in key order via the level-0 chain.
func walkLevel0(p Page, fn func(off uint16)) {
	cur := nextAt(p, FirstHead, 0)
	for cur != NIL {
		fn(cur)
		cur = nextAt(p, cur, 0)
	}
}
