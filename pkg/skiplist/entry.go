// ABOUTME: In-memory representation of one record, used when rebuilding pages on split
// ABOUTME: Decouples insert/split logic from whether a value is inline or an overflow chain

package skiplist

import "bytes"

// valueSlot is a record's value, already resolved to either inline bytes or
// an existing overflow chain — never both. Building one from raw put()
// input may allocate a fresh overflow chain; extracting one from an
// existing record never allocates.
type valueSlot struct {
	overflow      bool
	inline        []byte
	overflowFirst uint64
	length        int
}

func (t *Tree) newValueSlot(value []byte) valueSlot {
	if len(value) >= InlineValueThreshold {
		return valueSlot{overflow: true, overflowFirst: overflowPut(t.ps, value), length: len(value)}
	}
	return valueSlot{inline: value, length: len(value)}
}

func slotOf(p Page, off uint16) valueSlot {
	if p.recIsOverflow(off) {
		return valueSlot{overflow: true, overflowFirst: p.recOverflowFirstPage(off), length: int(p.recValueLen(off))}
	}
	return valueSlot{inline: append([]byte(nil), p.recInlineValue(off)...), length: int(p.recValueLen(off))}
}

func (s valueSlot) isOverflow() bool { return s.overflow }

// slotBytes materializes a valueSlot's content without needing it to be
// written onto a page first, reading an overflow chain lazily if needed.
// Used wherever a (key, value) tuple comparison is required before the
// value has (or no longer has) a page-resident record to read from.
func (t *Tree) slotBytes(v valueSlot) []byte {
	if v.isOverflow() {
		return overflowRead(t.ps, v.overflowFirst, v.length)
	}
	return v.inline
}

// entry is a fully materialized record, used only transiently while
// rebuilding a page during a split or a merge/rebalance.
type entry struct {
	key        []byte
	value      valueSlot
	rightChild uint64
}

func recordSizeForSlot(keyLen int, v valueSlot) int {
	return recordSize(keyLen, v.length)
}

// collectEntries materializes every record on p, in (key, value) order, by
// walking its level-0 chain. Used only when rebuilding a page across a
// split or a merge/rebalance.
func collectEntries(p Page) []entry {
	var out []entry
	walkLevel0(p, func(off uint16) {
		out = append(out, entry{
			key:        append([]byte(nil), p.recKey(off)...),
			value:      slotOf(p, off),
			rightChild: p.recRightChild(off),
		})
	})
	return out
}

// insertSorted inserts e into entries, which must already be sorted by
// (key, value), preserving order. Splits are rare enough relative to page
// size that a linear scan is simpler than anything fancier.
func (t *Tree) insertSorted(entries []entry, e entry) []entry {
	ev := t.slotBytes(e.value)
	i := 0
	for i < len(entries) {
		c := bytes.Compare(entries[i].key, e.key)
		if c < 0 || (c == 0 && bytes.Compare(t.slotBytes(entries[i].value), ev) < 0) {
			i++
			continue
		}
		break
	}
	out := make([]entry, 0, len(entries)+1)
	out = append(out, entries[:i]...)
	out = append(out, e)
	out = append(out, entries[i:]...)
	return out
}

// entriesFootprint is the total page size a fresh page holding entries
// (and nothing else) would occupy, used to decide merge vs. rebalance
// (spec.md section 4.5.5).
func entriesFootprint(entries []entry) int {
	total := int(RecordAreaStart)
	for _, e := range entries {
		total += recordSizeForSlot(len(e.key), e.value)
	}
	return total
}

// rebuildOnePage writes entries (already sorted by (key, value)) into a
// single fresh page, used by a merge that fits within one page.
func (t *Tree) rebuildOnePage(entries []entry, leftmostChild uint64) Page {
	p := newPage(leftmostChild)
	for _, e := range entries {
		pred, _ := t.pageSearch(p, e.key, t.slotBytes(e.value), true)
		t.insertRecordAt(p, pred, e.key, e.value, e.rightChild)
	}
	return p
}

// rebuildTwoPages splits entries (already sorted by (key, value), including
// any newly inserted or reinserted record) across two fresh pages around a
// middle separator — spec.md 4.5.3's split algorithm, also reused for
// rebalance (4.5.5): the left page keeps leftmostChild as its own leftmost
// child, and the separator's right child becomes the right page.
func (t *Tree) rebuildTwoPages(entries []entry, leftmostChild uint64) (left Page, sep entry, right Page) {
	mid := len(entries) / 2
	sep = entries[mid]

	left = newPage(leftmostChild)
	for _, e := range entries[:mid] {
		pred, _ := t.pageSearch(left, e.key, t.slotBytes(e.value), true)
		t.insertRecordAt(left, pred, e.key, e.value, e.rightChild)
	}

	right = newPage(sep.rightChild)
	for _, e := range entries[mid+1:] {
		pred, _ := t.pageSearch(right, e.key, t.slotBytes(e.value), true)
		t.insertRecordAt(right, pred, e.key, e.value, e.rightChild)
	}
	return
}
