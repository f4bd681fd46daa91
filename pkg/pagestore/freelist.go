// ABOUTME: Read cursor over the persistent free-page list for transaction-time allocation
// ABOUTME: Walks predecessor pointers, one page at a time, per spec.md section 4.1

package pagestore

// FreeListCursor consumes entries from the persistent free list starting at
// some head, without mutating the store — a write transaction uses one to
// decide what Allocate() can reuse, then reports exhausted container pages
// back to its own free-page bookkeeping.
type FreeListCursor struct {
	store *Store
	page  uint64 // offset of the free-list page currently being drained, 0 if exhausted
	prev  uint64
	items []uint64
	idx   int
}

// NewFreeListCursor starts a cursor at head (typically the committed
// Header.FreeListHead at transaction start).
func (s *Store) NewFreeListCursor(head uint64) *FreeListCursor {
	c := &FreeListCursor{store: s, page: head}
	c.loadCurrent()
	return c
}

func (c *FreeListCursor) loadCurrent() {
	if c.page == 0 {
		c.items = nil
		c.idx = 0
		return
	}
	fl := DecodeFreeListPage(c.store.Load(c.page))
	c.prev = fl.Prev
	c.items = fl.Entries
	c.idx = 0
}

// Pop returns the next reusable page offset. exhausted lists any free-list
// container pages drained to emptiness along the way (normally at most one
// — the one ptr itself came from, if ptr was its last entry; possibly more
// if the chain holds empty containers). The caller must treat every offset
// in exhausted as freed-this-transaction: it can no longer be read as a
// free-list page once the head it belongs to has moved to its predecessor.
func (c *FreeListCursor) Pop() (ptr uint64, exhausted []uint64, ok bool) {
	for c.page != 0 {
		if c.idx < len(c.items) {
			ptr = c.items[c.idx]
			c.idx++
			if c.idx >= len(c.items) {
				exhausted = append(exhausted, c.page)
				c.page = c.prev
				c.loadCurrent()
			}
			return ptr, exhausted, true
		}
		// Container page holds zero entries (only possible for a
		// never-populated list page): skip to its predecessor.
		exhausted = append(exhausted, c.page)
		c.page = c.prev
		c.loadCurrent()
	}
	return 0, exhausted, false
}

// Remaining is the offset of the free-list page the cursor will resume
// draining from on the next Pop once its buffered items run out — callers
// persist this only indirectly, via the transaction's own FreeListHead
// bookkeeping; exposed for tests.
func (c *FreeListCursor) Remaining() uint64 { return c.page }
