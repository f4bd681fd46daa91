// ABOUTME: Byte layout of a skip-list tree page and its records
// ABOUTME: Implements spec.md section 3 exactly: five-level skip list per page

package skiplist

import "encoding/binary"

// PageSize matches pagestore.PageSize; duplicated here (as the teacher
// duplicates BTREE_PAGE_SIZE between pkg/btree and pkg/storage) so this
// package never has to import pagestore.
const PageSize = 4096

// NIL marks the end of a skip-list chain at any level.
const NIL = uint16(0xFFFF)

// FirstHead is the virtual record offset representing a page's own head
// pointers — never a real record.
const FirstHead = uint16(0)

// RecordAreaStart is the first byte offset a real record may occupy.
const RecordAreaStart = uint16(24)

// RecordHeaderSize is the fixed portion of every record: five next
// pointers, key length, value length, right-child offset.
const RecordHeaderSize = 24

// InlineValueThreshold is the boundary past which a value is stored in an
// overflow chain instead of inline (spec.md section 3: PAGE_SIZE/8 - 16).
const InlineValueThreshold = PageSize/8 - 16

// Page is a single 4096-byte tree node, backed by a byte slice obtained
// from a PageSource.
type Page []byte

func (p Page) headNext(level int) uint16 {
	return binary.LittleEndian.Uint16(p[level*2 : level*2+2])
}

func (p Page) setHeadNext(level int, v uint16) {
	binary.LittleEndian.PutUint16(p[level*2:level*2+2], v)
}

// FirstFree is the bump-allocation offset for the page's next record.
func (p Page) FirstFree() uint16 {
	v := binary.LittleEndian.Uint16(p[10:12])
	if v == 0 {
		return RecordAreaStart
	}
	return v
}

func (p Page) setFirstFree(v uint16) { binary.LittleEndian.PutUint16(p[10:12], v) }

// Occupied is the number of live record bytes on the page (bump-allocated
// minus anything compacted away by a rewrite).
func (p Page) Occupied() uint16 { return binary.LittleEndian.Uint16(p[12:14]) }

func (p Page) setOccupied(v uint16) { binary.LittleEndian.PutUint16(p[12:14], v) }

// LeftChild is the offset of the subtree holding keys less than every key
// on this page; 0 marks a leaf.
func (p Page) LeftChild() uint64 { return binary.LittleEndian.Uint64(p[16:24]) }

func (p Page) SetLeftChild(v uint64) { binary.LittleEndian.PutUint64(p[16:24], v) }

// IsLeaf reports whether the page has no left child (and therefore no
// right-child pointers on any of its records either).
func (p Page) IsLeaf() bool { return p.LeftChild() == 0 }

func (p Page) recNext(off uint16, level int) uint16 {
	base := int(off) + level*2
	return binary.LittleEndian.Uint16(p[base : base+2])
}

func (p Page) setRecNext(off uint16, level int, v uint16) {
	base := int(off) + level*2
	binary.LittleEndian.PutUint16(p[base:base+2], v)
}

func (p Page) recKeyLen(off uint16) uint16 {
	return binary.LittleEndian.Uint16(p[off+10 : off+12])
}

func (p Page) recValueLen(off uint16) uint32 {
	return binary.LittleEndian.Uint32(p[off+12 : off+16])
}

func (p Page) recRightChild(off uint16) uint64 {
	return binary.LittleEndian.Uint64(p[off+16 : off+24])
}

func (p Page) setRecRightChild(off uint16, v uint64) {
	binary.LittleEndian.PutUint64(p[off+16:off+24], v)
}

func (p Page) recIsOverflow(off uint16) bool {
	return p.recValueLen(off) >= InlineValueThreshold
}

func (p Page) recOverflowFirstPage(off uint16) uint64 {
	return binary.LittleEndian.Uint64(p[off+24 : off+32])
}

func (p Page) setRecOverflowFirstPage(off uint16, v uint64) {
	binary.LittleEndian.PutUint64(p[off+24:off+32], v)
}

// recValueStart is where a record's value (inline case) or key (overflow
// case) begins.
func (p Page) recValueStart(off uint16) uint16 {
	if p.recIsOverflow(off) {
		return off + 32
	}
	return off + RecordHeaderSize
}

func (p Page) recInlineValue(off uint16) []byte {
	start := p.recValueStart(off)
	n := p.recValueLen(off)
	return p[start : uint32(start)+n]
}

func (p Page) recKey(off uint16) []byte {
	klen := p.recKeyLen(off)
	if p.recIsOverflow(off) {
		start := off + 32
		return p[start : start+klen]
	}
	start := p.recValueStart(off) + uint16(p.recValueLen(off))
	return p[start : start+klen]
}

func align8(n int) int { return (n + 7) &^ 7 }

// recordSize is the total on-page footprint of a record with the given key
// and value lengths, 8-byte aligned.
func recordSize(keyLen, valueLen int) int {
	if valueLen < InlineValueThreshold {
		return align8(RecordHeaderSize + valueLen + keyLen)
	}
	return align8(RecordHeaderSize + 8 + keyLen)
}

// newPage returns a freshly zeroed page with an empty head (all levels NIL)
// and the given left child (0 for a leaf).
func newPage(leftChild uint64) Page {
	p := make(Page, PageSize)
	for l := 0; l < NumLevels; l++ {
		p.setHeadNext(l, NIL)
	}
	p.setFirstFree(RecordAreaStart)
	p.setOccupied(0)
	p.SetLeftChild(leftChild)
	return p
}

// writeRecord bump-allocates a new record at p.FirstFree(), fills its
// header and payload, links it at next[] for each level (0..level), and
// returns its offset. The caller is responsible for re-wiring any
// predecessor's next pointers to point here.
func (p Page) writeRecord(level int, next [NumLevels]uint16, keyLen int, key []byte, v valueSlot, rightChild uint64) uint16 {
	off := p.FirstFree()
	size := recordSize(keyLen, v.length)

	for l := 0; l < NumLevels; l++ {
		if l <= level {
			p.setRecNext(off, l, next[l])
		} else {
			p.setRecNext(off, l, NIL)
		}
	}
	binary.LittleEndian.PutUint16(p[off+10:off+12], uint16(keyLen))
	binary.LittleEndian.PutUint32(p[off+12:off+16], uint32(v.length))
	p.setRecRightChild(off, rightChild)

	if !v.isOverflow() {
		start := off + RecordHeaderSize
		copy(p[start:], v.inline)
		copy(p[int(start)+v.length:], key)
	} else {
		p.setRecOverflowFirstPage(off, v.overflowFirst)
		copy(p[off+32:], key)
	}

	p.setFirstFree(off + uint16(size))
	p.setOccupied(p.Occupied() + uint16(size))
	return off
}
