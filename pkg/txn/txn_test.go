// ABOUTME: Exercises Manager/ReadTxn/MutTxn against an in-memory fake region and real sidecar locks
// ABOUTME: Covers commit durability, read-snapshot stability, nesting, abort, and pending-free staging

package txn

import (
	"path/filepath"
	"testing"

	"github.com/nainya/slkv/pkg/pagestore"
)

type fakeRegion struct{ buf []byte }

func newFakeRegion(capacity uint64) *fakeRegion { return &fakeRegion{buf: make([]byte, capacity)} }
func (f *fakeRegion) Bytes() []byte             { return f.buf }
func (f *fakeRegion) Sync() error               { return nil }
func (f *fakeRegion) Close() error              { return nil }

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := pagestore.Open(newFakeRegion(64*pagestore.PageSize), 64*pagestore.PageSize)
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(store, filepath.Join(dir, "db..lock"), filepath.Join(dir, "db..mut"), nil, nil)
}

func page(fill byte) []byte {
	p := make([]byte, pagestore.PageSize)
	for i := range p {
		p[i] = fill
	}
	return p
}

func TestCommitPersistsHeader(t *testing.T) {
	m := newTestManager(t)

	w, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	off := w.Alloc(page('a'))
	w.SetMainRoot(off)

	if _, err := w.Commit(); err != nil {
		t.Fatal(err)
	}

	h := m.Store().Header()
	if h.MainRoot != off {
		t.Errorf("MainRoot = %d, want %d", h.MainRoot, off)
	}
}

func TestWriteLockReleasedAfterCommit(t *testing.T) {
	m := newTestManager(t)

	w1, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w1.Commit(); err != nil {
		t.Fatal(err)
	}

	w2, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	w2.Abort()
}

func TestReadSnapshotIsStableAcrossLaterCommits(t *testing.T) {
	m := newTestManager(t)

	w1, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	firstRoot := w1.Alloc(page('a'))
	w1.SetMainRoot(firstRoot)
	if _, err := w1.Commit(); err != nil {
		t.Fatal(err)
	}

	r, err := m.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	w2, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	secondRoot := w2.Alloc(page('b'))
	w2.SetMainRoot(secondRoot)
	w2.Free(firstRoot)
	if _, err := w2.Commit(); err != nil {
		t.Fatal(err)
	}

	if r.MainRoot() != firstRoot {
		t.Errorf("read snapshot MainRoot = %d, want stable %d", r.MainRoot(), firstRoot)
	}
	if m.Store().Header().MainRoot != secondRoot {
		t.Errorf("store MainRoot = %d, want %d", m.Store().Header().MainRoot, secondRoot)
	}
}

func TestFreedPageStaysPendingWhileReaderOpen(t *testing.T) {
	m := newTestManager(t)

	w1, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	root := w1.Alloc(page('a'))
	w1.SetMainRoot(root)
	if _, err := w1.Commit(); err != nil {
		t.Fatal(err)
	}

	r, err := m.BeginRead()
	if err != nil {
		t.Fatal(err)
	}

	w2, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	w2.Free(root)
	w2.SetMainRoot(w2.Alloc(page('b')))
	if _, err := w2.Commit(); err != nil {
		t.Fatal(err)
	}

	if len(m.pending) == 0 {
		t.Fatal("expected the freed page to be staged while a reader is open")
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	w3, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	safe, kept := m.releasable()
	if len(safe) == 0 {
		t.Error("expected the staged page to become releasable once its reader closed")
	}
	if len(kept) != 0 {
		t.Errorf("expected nothing left pending, got %d batches", len(kept))
	}
	w3.Abort()
}

func TestAbortLeavesHeaderUnchanged(t *testing.T) {
	m := newTestManager(t)
	before := m.Store().Header()

	w, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	w.Alloc(page('a'))
	w.SetMainRoot(12345)
	w.Abort()

	after := m.Store().Header()
	if after != before {
		t.Errorf("header changed after abort: %+v -> %+v", before, after)
	}
}

func TestNestedCommitMergesIntoParent(t *testing.T) {
	m := newTestManager(t)

	w, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}

	nested := w.BeginNested()
	off := nested.Alloc(page('n'))
	nested.SetMainRoot(off)
	if _, err := nested.Commit(); err != nil {
		t.Fatal(err)
	}

	if w.MainRoot() != off {
		t.Errorf("parent MainRoot after nested commit = %d, want %d", w.MainRoot(), off)
	}

	if _, err := w.Commit(); err != nil {
		t.Fatal(err)
	}
	if m.Store().Header().MainRoot != off {
		t.Errorf("store MainRoot = %d, want %d", m.Store().Header().MainRoot, off)
	}
}

func TestNestedAbortDoesNotAffectParent(t *testing.T) {
	m := newTestManager(t)

	w, err := m.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	w.SetMainRoot(w.Alloc(page('p')))
	parentRoot := w.MainRoot()

	nested := w.BeginNested()
	nested.SetMainRoot(nested.Alloc(page('n')))
	nested.Abort()

	if w.MainRoot() != parentRoot {
		t.Errorf("parent MainRoot changed by aborted nested txn: %d, want %d", w.MainRoot(), parentRoot)
	}
	w.Abort()
}
