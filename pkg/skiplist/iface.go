// ABOUTME: Interfaces the skip-list B-tree engine consumes from its collaborators
// ABOUTME: Mirrors the teacher's tree.SetCallbacks(get, new, del) dependency-injection style

package skiplist

// PageSource is how a Tree reads and mutates pages. A transaction (read or
// write) implements this; Load is all a read transaction needs, Alloc/Free
// are only ever called from a write transaction's mutating operations.
type PageSource interface {
	// Load returns the current content of the page at off. For a write
	// transaction this may be an in-memory dirty copy.
	Load(off uint64) []byte
	// Alloc writes content as a brand new page and returns its offset.
	Alloc(content []byte) uint64
	// Free releases the page at off: it may be reused by a later write
	// transaction once no reader can still reach it.
	Free(off uint64)
}

// RefCounter is what the CoW engine needs from the reference-count index
// (spec.md section 4.3) to implement page sharing between forked trees.
// A page absent from the index has refcount 1 by convention.
type RefCounter interface {
	// RC returns the current refcount of the page at off (1 if absent).
	RC(off uint64) uint64
	// Incr raises the refcount of off by one, inserting an entry if absent.
	Incr(off uint64)
	// Decr lowers the refcount of off by one. It reports whether the
	// caller should now physically free the page (refcount reached zero,
	// or was absent/1 and the entry was removed).
	Decr(off uint64) (shouldFree bool)
}

// NoRefCounter is a RefCounter that never shares pages: every page always
// has refcount 1. It is used for the reference-count tree's own pages,
// which are never forked or shared (spec.md section 4.3 — the RC tree
// tracks sharing for other trees, not for itself).
type NoRefCounter struct{}

func (NoRefCounter) RC(uint64) uint64 { return 1 }
func (NoRefCounter) Incr(uint64)      {}
func (NoRefCounter) Decr(uint64) bool { return true }

// MaxLevel is the highest skip-list level index (5 levels: 0..MaxLevel).
const MaxLevel = 4

// NumLevels is the number of skip-list levels per record.
const NumLevels = MaxLevel + 1

// LevelSource picks the level of a newly inserted record. Spec.md section
// 9 requires this be injectable so tests can force deterministic shapes.
type LevelSource interface {
	PickLevel() int
}
