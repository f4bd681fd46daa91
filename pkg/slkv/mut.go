// ABOUTME: Write transaction wrapper: put/del/replace/get/iterate/fork plus nesting and commit
// ABOUTME: Wires one skiplist.Tree and one refcount.Index onto the same underlying txn.MutTxn

package slkv

import (
	"github.com/nainya/slkv/internal/logger"
	"github.com/nainya/slkv/internal/metrics"
	"github.com/nainya/slkv/pkg/refcount"
	"github.com/nainya/slkv/pkg/skiplist"
	"github.com/nainya/slkv/pkg/txn"
)

// MutTxn is the single write transaction (or one of its nested
// sub-transactions). It owns exactly one main tree and one refcount index,
// both rebuilt over the same underlying page allocator.
type MutTxn struct {
	env  *Env
	w    *txn.MutTxn
	rc   *refcount.Index
	tree *skiplist.Tree
	met  *metrics.Metrics
	log  *logger.Logger
	done bool

	parent *MutTxn // set only on a nested transaction
}

func newMutTxn(e *Env, w *txn.MutTxn) *MutTxn {
	rc := refcount.New(w, e.levels, w.RCRoot())
	tree := skiplist.New(w, rc, e.levels, w.MainRoot())
	return &MutTxn{env: e, w: w, rc: rc, tree: tree, met: e.met, log: e.log}
}

// Get looks up key against this transaction's working state, which may
// include its own uncommitted mutations.
func (m *MutTxn) Get(key []byte) ([]byte, bool) {
	validateKey(key)
	v, ok := m.tree.Get(key)
	if m.met != nil {
		if ok {
			m.met.GetsTotal.WithLabelValues("hit").Inc()
		} else {
			m.met.GetsTotal.WithLabelValues("miss").Inc()
		}
	}
	return v, ok
}

// Put inserts (key, value) as a new binding, reporting whether it was
// newly inserted (false iff this exact (key, value) pair was already
// present — spec.md section 6). A key may hold several distinct values
// at once: Put never overwrites an existing binding under a different
// value.
func (m *MutTxn) Put(key, value []byte) bool {
	validateKey(key)
	validateValue(value)
	inserted := m.tree.Put(key, value)
	if m.met != nil {
		m.met.PutsTotal.Inc()
	}
	return inserted
}

// Del removes a binding for key, reporting whether one was found. With no
// value given, the smallest value bound to key is removed; with one, only
// that exact (key, value) binding is removed (spec.md section 6: "if
// value is omitted, delete the smallest matching key").
func (m *MutTxn) Del(key []byte, value ...[]byte) bool {
	validateKey(key)
	ok := m.tree.Del(key, value...)
	if ok && m.met != nil {
		m.met.DelsTotal.Inc()
	}
	return ok
}

// Replace is del-then-put: it reports whether key previously had any
// binding. Spec.md section 6 defines replace as literally del + put, so
// for a multi-valued key this drops only the smallest existing binding
// before adding the new one.
func (m *MutTxn) Replace(key, value []byte) bool {
	validateKey(key)
	validateValue(value)
	existed := m.tree.Del(key)
	m.tree.Put(key, value)
	if m.met != nil {
		m.met.PutsTotal.Inc()
	}
	return existed
}

// Iterate returns a cursor over this transaction's working key order,
// positioned at the first key >= startingAt (or the first key if nil).
func (m *MutTxn) Iterate(startingAt []byte) *skiplist.Iterator {
	it := m.tree.NewIterator()
	if startingAt != nil {
		it.Seek(startingAt)
	}
	return it
}

// Fork increments the current root's refcount and returns it as a new
// logical tree root, sharing structure until the next write through
// either side forces a copy-on-write split.
func (m *MutTxn) Fork() uint64 {
	root := m.tree.Fork()
	if m.met != nil {
		m.met.ForksTotal.Inc()
	}
	if m.log != nil {
		m.log.LogFork(root)
	}
	return root
}

// AllocPage and FreePage expose the transaction's raw page allocator,
// mirroring spec.md section 6's internal-but-observable alloc_page/
// free_page operations.
func (m *MutTxn) AllocPage(content []byte) uint64 { return m.w.Alloc(content) }
func (m *MutTxn) FreePage(off uint64)             { m.w.Free(off) }

// BeginNested opens a sub-transaction whose changes merge into m on
// Commit, or are discarded entirely on Abort.
func (m *MutTxn) BeginNested() *MutTxn {
	m.w.SetMainRoot(m.tree.Root)
	m.w.SetRCRoot(m.rc.Root())
	n := newMutTxn(m.env, m.w.BeginNested())
	n.parent = m
	return n
}

// Commit finishes the transaction, writing back this transaction's final
// tree roots before delegating to the underlying page-store commit.
func (m *MutTxn) Commit() error {
	if m.done {
		return nil
	}
	m.done = true
	m.w.SetMainRoot(m.tree.Root)
	m.w.SetRCRoot(m.rc.Root())
	_, err := m.w.Commit()
	if err == nil && m.parent != nil {
		merged := newMutTxn(m.env, m.parent.w)
		m.parent.rc, m.parent.tree = merged.rc, merged.tree
	}
	return err
}

// Abort discards the transaction. Calling it after Commit is a no-op.
func (m *MutTxn) Abort() {
	if m.done {
		return
	}
	m.done = true
	m.w.Abort()
}
