// ABOUTME: Exercises Store against an in-memory fake mmapfile.Region
// ABOUTME: Covers fresh-open initialization, commit durability, and free-list reuse

package pagestore

import (
	"bytes"
	"testing"
)

type fakeRegion struct {
	buf    []byte
	synced int
}

func newFakeRegion(capacity uint64) *fakeRegion {
	return &fakeRegion{buf: make([]byte, capacity)}
}

func (f *fakeRegion) Bytes() []byte { return f.buf }
func (f *fakeRegion) Sync() error   { f.synced++; return nil }
func (f *fakeRegion) Close() error  { return nil }

func TestOpenFreshInitializesHeader(t *testing.T) {
	region := newFakeRegion(16 * PageSize)
	s, err := Open(region, 16*PageSize)
	if err != nil {
		t.Fatal(err)
	}
	h := s.Header()
	if h.LastPage != PageSize || h.FreeListHead != 0 || h.MainRoot != 0 || h.RCRoot != 0 {
		t.Errorf("unexpected fresh header: %+v", h)
	}
}

func TestOpenExistingReadsHeader(t *testing.T) {
	region := newFakeRegion(16 * PageSize)
	copy(region.buf[:PageSize], EncodeHeader(Header{LastPage: 3 * PageSize, MainRoot: PageSize}))

	s, err := Open(region, 16*PageSize)
	if err != nil {
		t.Fatal(err)
	}
	h := s.Header()
	if h.LastPage != 3*PageSize || h.MainRoot != PageSize {
		t.Errorf("did not read back existing header: %+v", h)
	}
}

func TestCommitFlushesAndUpdatesHeader(t *testing.T) {
	region := newFakeRegion(16 * PageSize)
	s, err := Open(region, 16*PageSize)
	if err != nil {
		t.Fatal(err)
	}

	page := make([]byte, PageSize)
	copy(page, []byte("hello"))

	h, err := s.Commit(CommitRequest{
		LastPage: PageSize * 2,
		MainRoot: PageSize,
		DirtyPages: map[uint64][]byte{
			PageSize: page,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if h.MainRoot != PageSize {
		t.Errorf("header.MainRoot = %d, want %d", h.MainRoot, PageSize)
	}

	got := s.Load(PageSize)
	if !bytes.Equal(got[:5], []byte("hello")) {
		t.Errorf("page content not flushed: %q", got[:5])
	}
	if region.synced < 2 {
		t.Errorf("expected at least two syncs (data then header), got %d", region.synced)
	}
}

func TestCommitDrainsFreedPagesIntoFreeList(t *testing.T) {
	region := newFakeRegion(16 * PageSize)
	s, err := Open(region, 16*PageSize)
	if err != nil {
		t.Fatal(err)
	}

	h, err := s.Commit(CommitRequest{
		LastPage:       PageSize * 2,
		FreeListHead:   0,
		CleanFreePages: []uint64{PageSize * 3, PageSize * 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	if h.FreeListHead == 0 {
		t.Fatal("expected a non-zero free-list head after draining pages")
	}

	fl := DecodeFreeListPage(s.Load(h.FreeListHead))
	if len(fl.Entries) != 2 {
		t.Fatalf("got %d free-list entries, want 2", len(fl.Entries))
	}
}

func TestCommitNoSpaceFails(t *testing.T) {
	region := newFakeRegion(2 * PageSize)
	s, err := Open(region, 2*PageSize)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Commit(CommitRequest{
		LastPage:       2 * PageSize,
		CleanFreePages: []uint64{PageSize}, // forces a free-list page alloc beyond capacity
	})
	if err == nil {
		t.Fatal("expected commit to fail when bumping past capacity")
	}
}

func TestFreeListCursorPopsAcrossPages(t *testing.T) {
	region := newFakeRegion(32 * PageSize)
	s, err := Open(region, 32*PageSize)
	if err != nil {
		t.Fatal(err)
	}

	all := make([]uint64, 0, FreeListCap+3)
	for i := 0; i < FreeListCap+3; i++ {
		all = append(all, uint64(i+100)*PageSize)
	}
	h, err := s.Commit(CommitRequest{
		LastPage:       2 * PageSize,
		CleanFreePages: all,
	})
	if err != nil {
		t.Fatal(err)
	}

	cursor := s.NewFreeListCursor(h.FreeListHead)
	seen := map[uint64]bool{}
	for {
		ptr, _, ok := cursor.Pop()
		if !ok {
			break
		}
		seen[ptr] = true
	}
	if len(seen) != len(all) {
		t.Fatalf("cursor yielded %d distinct offsets, want %d", len(seen), len(all))
	}
}
