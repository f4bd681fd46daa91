// ABOUTME: Read transactions: a stable snapshot of the header, many concurrent
// ABOUTME: Implements spec.md section 4.2's read-transaction half

package txn

import (
	"github.com/nainya/slkv/pkg/mmapfile"
	"github.com/nainya/slkv/pkg/pagestore"
)

// ReadTxn is a stable snapshot of the environment as of the moment it was
// opened: later commits never change what it observes. Many ReadTxns may
// be open at once, alongside at most one MutTxn.
type ReadTxn struct {
	mgr     *Manager
	version uint64
	header  pagestore.Header
	store   *pagestore.Store
	lock    *mmapfile.SidecarLock
	closed  bool
}

// BeginRead opens a read transaction against the environment's current
// durable header.
func (m *Manager) BeginRead() (*ReadTxn, error) {
	lock, err := mmapfile.OpenSidecarLock(m.lockPath)
	if err != nil {
		return nil, err
	}
	if err := lock.RLock(); err != nil {
		lock.Close()
		return nil, err
	}

	m.readersMu.Lock()
	version := m.version
	m.readers.add(version)
	m.readersMu.Unlock()
	if m.met != nil {
		m.met.ActiveReaders.Inc()
	}

	return &ReadTxn{mgr: m, version: version, header: m.store.Header(), store: m.store, lock: lock}, nil
}

// MainRoot is the offset of the main tree's root as of this snapshot.
func (r *ReadTxn) MainRoot() uint64 { return r.header.MainRoot }

// RCRoot is the offset of the reference-count index's root as of this
// snapshot.
func (r *ReadTxn) RCRoot() uint64 { return r.header.RCRoot }

// Load returns the content of the page at off, exactly as it was at this
// snapshot's header. Pages referenced by a still-open snapshot are never
// reused by a later writer (see Manager.releasable), so this is always
// safe to call for the lifetime of the ReadTxn.
func (r *ReadTxn) Load(off uint64) []byte { return r.store.Load(off) }

// Alloc and Free exist only so ReadTxn satisfies skiplist.PageSource for
// read-only Tree construction; a Tree built for Get/Walk never calls them.
func (r *ReadTxn) Alloc([]byte) uint64 { panic("txn: Alloc called on a read transaction") }
func (r *ReadTxn) Free(uint64)         { panic("txn: Free called on a read transaction") }

// Close ends the read transaction, allowing any pages it made safe to
// reuse to actually be reused by a future write transaction.
func (r *ReadTxn) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.mgr.readersMu.Lock()
	r.mgr.readers.remove(r.version)
	r.mgr.readersMu.Unlock()
	if r.mgr.met != nil {
		r.mgr.met.ActiveReaders.Dec()
	}

	err := r.lock.Unlock()
	if cerr := r.lock.Close(); err == nil {
		err = cerr
	}
	return err
}
