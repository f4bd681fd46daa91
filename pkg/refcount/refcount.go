// ABOUTME: Reference-count index over page offsets, spec.md section 4.3
// ABOUTME: A dedicated small tree on the same skip-list engine; absent key means refcount 1

package refcount

import (
	"encoding/binary"

	"github.com/nainya/slkv/pkg/skiplist"
)

// Index tracks how many live pointers reference each page, for the pages
// that are actually shared (forked). A page with no entry has refcount 1
// by convention — the overwhelming common case, so the index stays small.
type Index struct {
	tree *skiplist.Tree
}

// New builds an Index over root (0 for an empty index). Its own pages are
// never shared between snapshots — it is rebuilt by each write transaction
// from the committed RCRoot and never forked — so it is built with
// skiplist.NoRefCounter rather than another Index.
func New(ps skiplist.PageSource, levels skiplist.LevelSource, root uint64) *Index {
	return &Index{tree: skiplist.New(ps, skiplist.NoRefCounter{}, levels, root)}
}

// Root is the index's current root offset, to be persisted as the
// transaction's RCRoot on commit.
func (i *Index) Root() uint64 { return i.tree.Root }

func encodeKey(off uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, off)
	return b
}

func encodeVal(n uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, n)
	return b
}

func decodeVal(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// RC returns the refcount of off (1 if it has no entry).
func (i *Index) RC(off uint64) uint64 {
	v, ok := i.tree.Get(encodeKey(off))
	if !ok {
		return 1
	}
	return decodeVal(v)
}

// Incr raises off's refcount by one. An absent entry means refcount 1, so
// the first increment inserts 2 (the smallest value this index ever
// stores — 1 is always represented by absence).
func (i *Index) Incr(off uint64) {
	v, ok := i.tree.Get(encodeKey(off))
	if !ok {
		i.tree.Put(encodeKey(off), encodeVal(2))
		return
	}
	i.tree.Del(encodeKey(off))
	i.tree.Put(encodeKey(off), encodeVal(decodeVal(v)+1))
}

// Decr lowers off's refcount by one, reporting whether it reached zero
// (the caller must now physically free the page). Dropping from 2 to 1
// removes the entry outright, returning to the absent-means-1 convention.
func (i *Index) Decr(off uint64) (shouldFree bool) {
	v, ok := i.tree.Get(encodeKey(off))
	if !ok {
		return true
	}
	cur := decodeVal(v)
	switch {
	case cur <= 1:
		i.tree.Del(encodeKey(off))
		return true
	case cur == 2:
		i.tree.Del(encodeKey(off))
		return false
	default:
		i.tree.Del(encodeKey(off))
		i.tree.Put(encodeKey(off), encodeVal(cur-1))
		return false
	}
}
