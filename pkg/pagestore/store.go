// ABOUTME: Page store: load/commit over a fixed-size mapped region; page allocation and freeing live in pkg/txn
// ABOUTME: Implements spec.md section 4.1 — the bottom of the five-component stack

package pagestore

import (
	"fmt"

	"github.com/nainya/slkv/pkg/mmapfile"
	"github.com/nainya/slkv/pkg/slkverr"
)

// Store is the page manager over a fixed-size mmap.Region. It knows nothing
// about transactions, refcounts or tree shape — it only understands pages
// and the persistent free list.
type Store struct {
	region   mmapfile.Region
	capacity uint64 // region length in bytes, fixed at Open
	header   Header
}

// Open reads or initializes the header page (page 0) of region, whose
// length must already be capacity bytes (a multiple of PageSize).
func Open(region mmapfile.Region, capacity uint64) (*Store, error) {
	if capacity%PageSize != 0 {
		return nil, fmt.Errorf("pagestore: capacity %d is not a multiple of %d", capacity, PageSize)
	}
	if uint64(len(region.Bytes())) != capacity {
		return nil, fmt.Errorf("pagestore: region length %d does not match capacity %d", len(region.Bytes()), capacity)
	}

	s := &Store{region: region, capacity: capacity}

	fresh := isZero(region.Bytes()[:HeaderSize])
	if fresh {
		s.header = Header{LastPage: PageSize, FreeListHead: 0, MainRoot: 0, RCRoot: 0}
		copy(region.Bytes()[:PageSize], EncodeHeader(s.header))
		if err := region.Sync(); err != nil {
			return nil, err
		}
	} else {
		s.header = DecodeHeader(region.Bytes()[:HeaderSize])
	}

	return s, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// Header returns the last durably-committed header.
func (s *Store) Header() Header { return s.header }

// Capacity is the fixed region length in bytes.
func (s *Store) Capacity() uint64 { return s.capacity }

// Load returns a read-only view of the page at off. The slice aliases the
// mapped region directly; callers must copy before mutating unless they
// are certain they exclusively own the page (see CoW contract, spec 4.5.7).
func (s *Store) Load(off uint64) []byte {
	if off+PageSize > s.capacity {
		panic(fmt.Sprintf("pagestore: page offset %d out of range (capacity %d)", off, s.capacity))
	}
	return s.region.Bytes()[off : off+PageSize]
}

// CommitRequest carries everything a finishing write transaction needs
// flushed atomically.
type CommitRequest struct {
	// LastPage, MainRoot, RCRoot reflect the transaction's final state,
	// before accounting for the free-list pages this commit itself writes.
	LastPage uint64
	MainRoot uint64
	RCRoot   uint64
	// FreeListHead is the head of the free list as of transaction start;
	// Commit chains newly drained pages onto it.
	FreeListHead uint64

	// DirtyPages are offset -> full page content writes already performed
	// by the transaction (tree pages, overflow pages, in-place CoW
	// updates) that must be flushed before the header.
	DirtyPages map[uint64][]byte

	// CleanFreePages were allocated and freed within this same
	// transaction; DirtyFreePages existed before it. Spec 4.1 drains the
	// union of both into the persistent free list at commit.
	CleanFreePages []uint64
	DirtyFreePages []uint64
}

// Commit performs the two-phase flush described in spec.md section 4.1:
// phase 1 drains freed pages into freshly bump-allocated free-list pages
// chained onto FreeListHead; phase 2 writes page 0 last, after every other
// dirty page is durable, so a crash never makes a partially-written tree
// visible.
func (s *Store) Commit(req CommitRequest) (Header, error) {
	dirty := make(map[uint64][]byte, len(req.DirtyPages)+4)
	for off, page := range req.DirtyPages {
		dirty[off] = page
	}

	allFree := make([]uint64, 0, len(req.CleanFreePages)+len(req.DirtyFreePages))
	allFree = append(allFree, req.CleanFreePages...)
	allFree = append(allFree, req.DirtyFreePages...)

	lastPage := req.LastPage
	head := req.FreeListHead

	for i := 0; i < len(allFree); i += FreeListCap {
		end := i + FreeListCap
		if end > len(allFree) {
			end = len(allFree)
		}
		chunk := allFree[i:end]

		if lastPage+PageSize > s.capacity {
			return Header{}, slkverr.New(slkverr.KindNoSpace, "pagestore.Commit", nil)
		}
		off := lastPage
		lastPage += PageSize

		dirty[off] = EncodeFreeListPage(FreeListPage{Prev: head, Entries: chunk})
		head = off
	}

	newHeader := Header{
		LastPage:     lastPage,
		FreeListHead: head,
		MainRoot:     req.MainRoot,
		RCRoot:       req.RCRoot,
	}

	// Phase 1: flush every non-header page.
	for off, page := range dirty {
		if len(page) != PageSize {
			return Header{}, fmt.Errorf("pagestore: dirty page at %d has wrong size %d", off, len(page))
		}
		copy(s.region.Bytes()[off:off+PageSize], page)
	}
	if err := s.region.Sync(); err != nil {
		return Header{}, fmt.Errorf("pagestore: fsync before header write: %w", err)
	}

	// Phase 2: write and flush the header last.
	copy(s.region.Bytes()[:PageSize], EncodeHeader(newHeader))
	if err := s.region.Sync(); err != nil {
		return Header{}, fmt.Errorf("pagestore: fsync header: %w", err)
	}

	s.header = newHeader
	return newHeader, nil
}
