// ABOUTME: Write transactions: at most one at a time, with mergeable nested sub-transactions
// ABOUTME: Implements spec.md section 4.2's write-transaction half over pagestore.Store

package txn

import (
	"time"

	"github.com/nainya/slkv/pkg/mmapfile"
	"github.com/nainya/slkv/pkg/pagestore"
	"github.com/nainya/slkv/pkg/slkverr"
)

// MutTxn is the single writer at any moment. A top-level MutTxn holds the
// process-wide write lock and the cross-process sidecar exclusive lock for
// its whole lifetime; a nested one (BeginNested) shares its root's
// allocator state but keeps its own dirty pages so it can be discarded
// independently on Abort.
type MutTxn struct {
	mgr    *Manager
	parent *MutTxn
	store  *pagestore.Store // set only on the root

	lastPage     uint64 // shared across nesting levels via root()
	freeListHead uint64 // shared across nesting levels via root()
	cursor       *pagestore.FreeListCursor

	mainRoot uint64
	rcRoot   uint64

	dirty         map[uint64][]byte
	occupiedClean map[uint64]bool
	freeCleanList []uint64
	freePages     []uint64

	lock *mmapfile.SidecarLock // set only on the root
	done bool
}

// BeginWrite opens the single write transaction. It blocks until no other
// write transaction (in this process or, via the sidecar lock, another
// one) is active.
func (m *Manager) BeginWrite() (*MutTxn, error) {
	m.writeMu.Lock()

	lock, err := mmapfile.OpenSidecarLock(m.mutPath)
	if err != nil {
		m.writeMu.Unlock()
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		lock.Close()
		m.writeMu.Unlock()
		return nil, err
	}

	h := m.store.Header()
	t := &MutTxn{
		mgr:           m,
		store:         m.store,
		lastPage:      h.LastPage,
		freeListHead:  h.FreeListHead,
		mainRoot:      h.MainRoot,
		rcRoot:        h.RCRoot,
		dirty:         make(map[uint64][]byte),
		occupiedClean: make(map[uint64]bool),
		lock:          lock,
	}
	t.cursor = m.store.NewFreeListCursor(h.FreeListHead)
	return t, nil
}

// BeginNested opens a sub-transaction sharing t's allocator progress.
// Committing it folds its changes into t; aborting it discards them,
// except for any pages it bump-allocated or popped from the free list,
// which are not returned (see DESIGN.md).
func (t *MutTxn) BeginNested() *MutTxn {
	return &MutTxn{
		mgr:           t.mgr,
		parent:        t,
		mainRoot:      t.mainRoot,
		rcRoot:        t.rcRoot,
		dirty:         make(map[uint64][]byte),
		occupiedClean: make(map[uint64]bool),
	}
}

func (t *MutTxn) root() *MutTxn {
	for t.parent != nil {
		t = t.parent
	}
	return t
}

// MainRoot and RCRoot are this transaction's current working tree roots.
func (t *MutTxn) MainRoot() uint64 { return t.mainRoot }
func (t *MutTxn) RCRoot() uint64   { return t.rcRoot }

// SetMainRoot and SetRCRoot update the working tree roots after a mutation.
func (t *MutTxn) SetMainRoot(off uint64) { t.mainRoot = off }
func (t *MutTxn) SetRCRoot(off uint64)   { t.rcRoot = off }

// Load satisfies skiplist.PageSource: it checks this transaction's own
// dirty pages, then its ancestors', before falling through to the store.
func (t *MutTxn) Load(off uint64) []byte {
	if p, ok := t.dirty[off]; ok {
		return p
	}
	if t.parent != nil {
		return t.parent.Load(off)
	}
	return t.store.Load(off)
}

// Alloc satisfies skiplist.PageSource: it prefers pages this transaction
// already owns and freed (free-clean), then the persistent free list, and
// only bump-allocates a fresh page as a last resort.
func (t *MutTxn) Alloc(content []byte) uint64 {
	if n := len(t.freeCleanList); n > 0 {
		off := t.freeCleanList[n-1]
		t.freeCleanList = t.freeCleanList[:n-1]
		t.occupiedClean[off] = true
		t.dirty[off] = content
		return off
	}

	root := t.root()
	if ptr, exhausted, ok := root.cursor.Pop(); ok {
		t.dirty[ptr] = content
		t.occupiedClean[ptr] = true
		t.freePages = append(t.freePages, exhausted...)
		root.freeListHead = root.cursor.Remaining()
		if t.mgr.met != nil {
			t.mgr.met.PagesReusedTotal.Inc()
		}
		return ptr
	}

	off := root.lastPage
	if off+pagestore.PageSize > t.mgr.store.Capacity() {
		panic(slkverr.New(slkverr.KindNoSpace, "txn.Alloc", nil))
	}
	root.lastPage = off + pagestore.PageSize
	t.dirty[off] = content
	t.occupiedClean[off] = true
	if t.mgr.met != nil {
		t.mgr.met.PagesAllocatedTotal.Inc()
	}
	return off
}

// Free satisfies skiplist.PageSource: a page this transaction itself
// allocated becomes immediately reusable (free-clean); an older one is
// staged as dirty-free, safe to reuse only once no reader could still see
// the commit that is about to supersede it.
func (t *MutTxn) Free(off uint64) {
	if t.occupiedClean[off] {
		delete(t.occupiedClean, off)
		t.freeCleanList = append(t.freeCleanList, off)
		return
	}
	t.freePages = append(t.freePages, off)
	delete(t.dirty, off)
}

func (t *MutTxn) filteredDirty() map[uint64][]byte {
	if len(t.freeCleanList) == 0 {
		return t.dirty
	}
	skip := make(map[uint64]bool, len(t.freeCleanList))
	for _, off := range t.freeCleanList {
		skip[off] = true
	}
	out := make(map[uint64][]byte, len(t.dirty))
	for off, p := range t.dirty {
		if !skip[off] {
			out[off] = p
		}
	}
	return out
}

// mergeIntoParent folds a nested transaction's changes into its parent,
// reclassifying any page the parent itself allocated (and this nested
// transaction later freed) back to free-clean rather than dirty-free.
func (t *MutTxn) mergeIntoParent() {
	p := t.parent
	for off, page := range t.dirty {
		p.dirty[off] = page
	}
	for off := range t.occupiedClean {
		p.occupiedClean[off] = true
	}
	p.freeCleanList = append(p.freeCleanList, t.freeCleanList...)
	for _, off := range t.freePages {
		if p.occupiedClean[off] {
			delete(p.occupiedClean, off)
			p.freeCleanList = append(p.freeCleanList, off)
		} else {
			p.freePages = append(p.freePages, off)
		}
	}
	p.mainRoot = t.mainRoot
	p.rcRoot = t.rcRoot
}

// Commit finishes the transaction. For a nested transaction this only
// merges into its parent; for the root it flushes to the page store,
// advances the environment's version, and releases both locks.
func (t *MutTxn) Commit() (pagestore.Header, error) {
	if t.done {
		return pagestore.Header{}, slkverr.New(slkverr.KindClosed, "txn.Commit", slkverr.ErrAlreadyCommitted)
	}
	t.done = true

	if t.parent != nil {
		t.mergeIntoParent()
		return pagestore.Header{}, nil
	}

	safe, kept := t.mgr.releasable()
	req := pagestore.CommitRequest{
		LastPage:       t.lastPage,
		MainRoot:       t.mainRoot,
		RCRoot:         t.rcRoot,
		FreeListHead:   t.freeListHead,
		DirtyPages:     t.filteredDirty(),
		CleanFreePages: t.freeCleanList,
		DirtyFreePages: safe,
	}

	start := time.Now()
	header, err := t.store.Commit(req)

	t.lock.Unlock()
	t.lock.Close()
	t.mgr.writeMu.Unlock()

	if err != nil {
		return pagestore.Header{}, err
	}

	t.mgr.readersMu.Lock()
	t.mgr.version++
	newVersion := t.mgr.version
	t.mgr.pending = kept
	if len(t.freePages) > 0 {
		t.mgr.pending = append(t.mgr.pending, pendingBatch{version: newVersion, offsets: t.freePages})
	}
	t.mgr.readersMu.Unlock()

	elapsed := time.Since(start)
	freed := len(safe) + len(t.freePages)
	if t.mgr.log != nil {
		t.mgr.log.LogCommit(elapsed, len(req.DirtyPages), freed)
	}
	if t.mgr.met != nil {
		t.mgr.met.RecordCommit(elapsed, len(req.DirtyPages), freed)
	}

	return header, nil
}

// Abort discards the transaction without touching the page store (for a
// root transaction) or its parent (for a nested one).
func (t *MutTxn) Abort() {
	if t.done {
		return
	}
	t.done = true

	if t.parent != nil {
		return
	}

	if t.mgr.met != nil {
		t.mgr.met.RecordAbort()
	}
	if t.mgr.log != nil {
		t.mgr.log.LogAbort(len(t.dirty))
	}

	t.lock.Unlock()
	t.lock.Close()
	t.mgr.writeMu.Unlock()
}
