// ABOUTME: delete(): spec.md sections 4.5.4 and 4.5.5
// ABOUTME: An internal record is deleted by pulling up its subtree's smallest binding, then merge/rebalance repairs any underfull child

package skiplist

// delOutcome is what a recursive delete step reports to its caller: the
// offset its subtree now lives at, whether the requested binding was
// found, whether reinserting a promoted successor caused this page to
// split, and — mutually exclusive with split — whether this (non-root)
// page is now underfull and needs its parent to repair it.
type delOutcome struct {
	newOff    uint64
	found     bool
	split     *splitResult
	underfull bool
}

// unlinkRecordAtPred removes found from p's skip list given its
// predecessors at every level, freeing its overflow chain if any.
func (t *Tree) unlinkRecordAtPred(p Page, pred [NumLevels]uint16, found uint16) {
	for l := 0; l < NumLevels; l++ {
		if nextAt(p, pred[l], l) == found {
			setNextAt(p, pred[l], l, p.recNext(found, l))
		}
	}
	if p.recIsOverflow(found) {
		overflowFree(t.ps, t.rc, p.recOverflowFirstPage(found))
	}
	p.setOccupied(p.Occupied() - uint16(recordSize(int(p.recKeyLen(found)), int(p.recValueLen(found)))))
}

// smallestResult is what extractSmallest reports: the extracted binding,
// the (possibly CoW'd, possibly merged) subtree's new offset, and whether
// that subtree's top page is now underfull.
type smallestResult struct {
	key       []byte
	value     []byte
	newOff    uint64
	underfull bool
}

// extractSmallest removes and returns the smallest (key, value) binding in
// the subtree rooted at off — spec.md 4.5.4's delete command (c), used to
// find an internal record's successor. It follows the leftmost-child chain
// down to a leaf, removes that leaf's first record, and repairs any
// underfull page left behind on the way back up via merge/rebalance
// (spec.md 4.5.5) before reporting whether the subtree it returns is
// itself underfull.
func (t *Tree) extractSmallest(off uint64) smallestResult {
	newOff := t.cow(off)
	p := t.loadPage(newOff)

	left := p.LeftChild()
	if left == 0 {
		first := nextAt(p, FirstHead, 0)
		key := append([]byte(nil), p.recKey(first)...)
		value := t.valueOf(p, first)
		pred, _ := t.pageSearch(p, key, value, true)
		t.unlinkRecordAtPred(p, pred, first)
		return smallestResult{key: key, value: value, newOff: newOff, underfull: p.Occupied() < PageSize/2}
	}

	childRes := t.extractSmallest(left)
	p.SetLeftChild(childRes.newOff)
	if childRes.underfull {
		t.repairUnderfullChild(p, FirstHead, childRes.newOff)
	}
	return smallestResult{key: childRes.key, value: childRes.value, newOff: newOff, underfull: p.Occupied() < PageSize/2}
}

// recDelete descends from off removing the binding matching (key, value,
// exact) if present, CoW'ing every page it touches. Deletion command (a)
// "exact binding" is exact=true; command (b) "smallest matching key" is
// exact=false (pageSearch then ignores value); command (c) "smallest
// overall" is extractSmallest. A page that overflows while absorbing a promoted successor
// splits exactly like a put would; a page left underfull by a removal
// triggers merge/rebalance with a sibling before returning.
func (t *Tree) recDelete(off uint64, key, value []byte, exact bool) delOutcome {
	newOff := t.cow(off)
	p := t.loadPage(newOff)

	pred, found := t.pageSearch(p, key, value, exact)
	// Without a value, a smaller binding for key may sit in the subtree left
	// of found; if so, descend and remove that one instead.
	if found != NIL && !exact && !p.IsLeaf() && New(t.ps, t.rc, t.levels, childFor(p, pred[0])).Has(key) {
		found = NIL
	}

	if found != NIL {
		if p.IsLeaf() {
			t.unlinkRecordAtPred(p, pred, found)
			return delOutcome{newOff: newOff, found: true, underfull: p.Occupied() < PageSize/2}
		}

		rightChild := p.recRightChild(found)
		succ := t.extractSmallest(rightChild)
		t.unlinkRecordAtPred(p, pred, found)

		v := t.newValueSlot(succ.value)
		out := t.insertOrSplit(p, newOff, succ.key, v, succ.newOff)
		if out.split != nil {
			return delOutcome{newOff: out.newOff, found: true, split: out.split}
		}
		newOff = out.newOff
		p = t.loadPage(newOff)

		if succ.underfull {
			_, sepOff := t.pageSearch(p, succ.key, succ.value, true)
			t.repairUnderfullChild(p, sepOff, succ.newOff)
		}
		return delOutcome{newOff: newOff, found: true, underfull: p.Occupied() < PageSize/2}
	}

	if p.IsLeaf() {
		return delOutcome{newOff: newOff, found: false}
	}

	childOff := childFor(p, pred[0])
	childRes := t.recDelete(childOff, key, value, exact)
	setChildFor(p, pred[0], childRes.newOff)

	if childRes.split != nil {
		out := t.insertOrSplit(p, newOff, childRes.split.key, childRes.split.value, childRes.split.rightOff)
		return delOutcome{newOff: out.newOff, found: true, split: out.split}
	}
	if !childRes.found {
		return delOutcome{newOff: newOff, found: false}
	}
	if childRes.underfull {
		t.repairUnderfullChild(p, pred[0], childRes.newOff)
	}
	return delOutcome{newOff: newOff, found: true, underfull: p.Occupied() < PageSize/2}
}

// collapseRoot implements spec.md 4.5.5's root exemption and section 9's
// "a fresh one-entry root... collapsed if it holds zero records with a
// single child": a root merged down to zero separators is replaced by
// its sole remaining child, freeing the emptied root page.
func (t *Tree) collapseRoot(off uint64) uint64 {
	p := t.loadPage(off)
	if p.IsLeaf() || nextAt(p, FirstHead, 0) != NIL {
		return off
	}
	child := p.LeftChild()
	if t.rc.Decr(off) {
		t.ps.Free(off)
	}
	return child
}

// Del removes a binding for key, reporting whether one was found. With no
// value argument, the smallest value bound to key is removed (spec.md
// section 6: "if value is omitted, delete the smallest matching key").
// With a value argument, only that exact (key, value) binding is removed.
func (t *Tree) Del(key []byte, value ...[]byte) bool {
	if t.Root == 0 {
		return false
	}
	var v []byte
	exact := false
	if len(value) > 0 {
		v = value[0]
		exact = true
	}

	out := t.recDelete(t.Root, key, v, exact)
	if !out.found {
		t.Root = out.newOff
		return false
	}
	if out.split != nil {
		root := newPage(out.newOff)
		pred, _ := t.pageSearch(root, out.split.key, t.slotBytes(out.split.value), true)
		t.insertRecordAt(root, pred, out.split.key, out.split.value, out.split.rightOff)
		t.Root = t.ps.Alloc(root)
		return true
	}

	t.Root = t.collapseRoot(out.newOff)
	return true
}
