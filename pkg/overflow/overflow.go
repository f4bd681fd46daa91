// ABOUTME: Chained-page storage for values too large to inline in a B-tree record
// ABOUTME: Implements spec.md section 4.4 — put/get/free over a linked list of pages

package overflow

import (
	"encoding/binary"

	"github.com/nainya/slkv/pkg/pagestore"
)

// headerSize is the fixed prefix of every overflow page: the offset of the
// next page in the chain (0 for the last page) and the number of content
// bytes this page carries.
const headerSize = 16

// Capacity is how many content bytes a single overflow page holds.
const Capacity = pagestore.PageSize - headerSize

// PageSource is what overflow chains are built on top of. It mirrors
// skiplist.PageSource in shape but is declared independently so this
// package never has to import the tree engine.
type PageSource interface {
	Load(off uint64) []byte
	Alloc(content []byte) uint64
	Free(off uint64)
}

// RefCounter mirrors skiplist.RefCounter, declared independently for the
// same layering reason.
type RefCounter interface {
	RC(off uint64) uint64
	Incr(off uint64)
	Decr(off uint64) (shouldFree bool)
}

func encodePage(next uint64, content []byte) []byte {
	page := make([]byte, pagestore.PageSize)
	binary.LittleEndian.PutUint64(page[0:8], next)
	binary.LittleEndian.PutUint64(page[8:16], uint64(len(content)))
	copy(page[headerSize:], content)
	return page
}

func decodeHeader(page []byte) (next uint64, n uint64) {
	return binary.LittleEndian.Uint64(page[0:8]), binary.LittleEndian.Uint64(page[8:16])
}

// Put writes value as a chain of overflow pages and returns the offset of
// the first page, which becomes the record's overflow pointer. Refcounts
// are kept per page of the chain (see Fork and Free), not once for the
// whole chain under the first page's offset.
func Put(ps PageSource, value []byte) uint64 {
	if len(value) == 0 {
		return ps.Alloc(encodePage(0, nil))
	}

	// Build the chain tail-first so each page's next pointer is known at
	// allocation time.
	numChunks := (len(value) + Capacity - 1) / Capacity
	next := uint64(0)
	for i := numChunks - 1; i >= 0; i-- {
		start := i * Capacity
		end := start + Capacity
		if end > len(value) {
			end = len(value)
		}
		next = ps.Alloc(encodePage(next, value[start:end]))
	}
	return next
}

// Len returns the total logical length of the chain starting at first by
// walking it. Used sparingly — callers that already know the length (it is
// stored in the owning record) should prefer that.
func Len(ps PageSource, first uint64) int {
	total := 0
	off := first
	for off != 0 {
		page := ps.Load(off)
		next, n := decodeHeader(page)
		total += int(n)
		off = next
	}
	return total
}

// Read materializes the full value stored in the chain starting at first.
func Read(ps PageSource, first uint64, length int) []byte {
	out := make([]byte, 0, length)
	off := first
	for off != 0 && len(out) < length {
		page := ps.Load(off)
		next, n := decodeHeader(page)
		out = append(out, page[headerSize:headerSize+n]...)
		off = next
	}
	return out
}

// Free walks the chain starting at first, decrementing each page's
// refcount and physically freeing any page whose count reaches zero. Each
// page is decided on its own entry; the first page's entry does not decide
// for the rest of the chain.
func Free(ps PageSource, rc RefCounter, first uint64) {
	off := first
	for off != 0 {
		page := ps.Load(off)
		next, _ := decodeHeader(page)
		if rc.Decr(off) {
			ps.Free(off)
		}
		off = next
	}
}

// Fork increments the refcount of every page in the chain starting at
// first, so the new tree snapshot and the old one can share the value
// without copying it. Used by the CoW path (spec.md section 4.5.7) when a
// record's overflow value is carried over unchanged into a new page.
func Fork(ps PageSource, rc RefCounter, first uint64) {
	off := first
	for off != 0 {
		page := ps.Load(off)
		next, _ := decodeHeader(page)
		rc.Incr(off)
		off = next
	}
}

// Walk calls fn with the offset of every page in the chain starting at
// first, in chain order. Used by reachability accounting (spec.md section
// 8, "Refcount accounting") to count overflow pages alongside tree pages.
func Walk(ps PageSource, first uint64, fn func(offset uint64)) {
	off := first
	for off != 0 {
		fn(off)
		page := ps.Load(off)
		next, _ := decodeHeader(page)
		off = next
	}
}
