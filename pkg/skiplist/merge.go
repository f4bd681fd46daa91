// ABOUTME: merge and rebalance of underfull pages, spec.md section 4.5.5
// ABOUTME: Grounded on original_source/src/merge.rs and rebalance.rs, adapted to rebuild via entries rather than in-place byte surgery

package skiplist

// level0Pred returns the offset of the record immediately preceding
// target in p's level-0 chain (FirstHead if target is the first record).
func level0Pred(p Page, target uint16) uint16 {
	cur := FirstHead
	for {
		next := nextAt(p, cur, 0)
		if next == target || next == NIL {
			return cur
		}
		cur = next
	}
}

// repairUnderfullChild fixes an underfull child of p reached via the
// separator that owns its left pointer: childSep is FirstHead when
// childOff is p's own leftmost child, otherwise the record whose right
// child is childOff. It prefers merging/rebalancing with the right
// sibling, falling back to the left (spec.md 4.5.5). p is mutated in
// place to reflect the repair; it is the caller's job to re-check
// p.Occupied() afterward, since a merge may have removed one of p's own
// separators.
func (t *Tree) repairUnderfullChild(p Page, childSep uint16, childOff uint64) {
	if rightSep := nextAt(p, childSep, 0); rightSep != NIL {
		t.mergeOrRebalance(p, childSep, rightSep, childOff, p.recRightChild(rightSep))
		return
	}
	if childSep != FirstHead {
		leftSep := level0Pred(p, childSep)
		t.mergeOrRebalance(p, leftSep, childSep, childFor(p, leftSep), childOff)
	}
	// No sibling on either side: p has a single child and no separators.
	// This can only happen at the root, which is exempt from the
	// underfull check (spec.md 4.5.5) and collapsed by Del instead.
}

// mergeOrRebalance repairs the pair of sibling subtrees either side of
// the separator rightSep (whose key/value is the separator itself, and
// whose right child is rightOff; leftOff sits to its left, owned by
// leftSep — FirstHead meaning p's own leftmost child). Exactly one side
// was underfull. If the combined contents of both siblings plus the
// separator fit in one page, they are merged and rightSep is dropped
// from p (spec.md 4.5.5 "merge"); otherwise they are redistributed
// evenly across both sides, rightSep is dropped from p, and the middle
// entry of the combined list becomes the new separator ("rebalance"). p
// is mutated in place.
func (t *Tree) mergeOrRebalance(p Page, leftSep, rightSep uint16, leftOff, rightOff uint64) {
	leftNewOff := t.cow(leftOff)
	leftP := t.loadPage(leftNewOff)
	rightNewOff := t.cow(rightOff)
	rightP := t.loadPage(rightNewOff)

	sepKey := append([]byte(nil), p.recKey(rightSep)...)
	sepValue := t.valueOf(p, rightSep)

	combined := collectEntries(leftP)
	combined = append(combined, entry{key: sepKey, value: t.newValueSlot(sepValue), rightChild: rightP.LeftChild()})
	combined = append(combined, collectEntries(rightP)...)

	sepPred, _ := t.pageSearch(p, sepKey, sepValue, true)

	if entriesFootprint(combined) <= PageSize {
		merged := t.rebuildOnePage(combined, leftP.LeftChild())
		copy(leftP, merged)
		t.ps.Free(rightNewOff)
		t.unlinkRecordAtPred(p, sepPred, rightSep)
		setChildFor(p, leftSep, leftNewOff)
		return
	}

	newLeft, mid, newRight := t.rebuildTwoPages(combined, leftP.LeftChild())
	copy(leftP, newLeft)
	copy(rightP, newRight)
	t.unlinkRecordAtPred(p, sepPred, rightSep)
	midPred, _ := t.pageSearch(p, mid.key, t.slotBytes(mid.value), true)
	t.insertRecordAt(p, midPred, mid.key, mid.value, rightNewOff)
	setChildFor(p, leftSep, leftNewOff)
}
