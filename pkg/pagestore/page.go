// ABOUTME: Header page and free-list page codecs for the fixed 4096-byte page layout
// ABOUTME: Raw byte layout per spec.md section 3 — no heap-allocated page structs

package pagestore

import "encoding/binary"

// PageSize is the fixed page size of the file. Section 6 requires a
// build-time check refusing platforms whose native page size differs.
const PageSize = 4096

func init() {
	checkNativePageSize()
}

// Header is the decoded contents of page 0.
type Header struct {
	// LastPage is the offset of the first byte after the last
	// ever-allocated page.
	LastPage uint64
	// FreeListHead is the offset of the head of the persistent free-page
	// list, or 0 if empty.
	FreeListHead uint64
	// MainRoot is the offset of the user's main tree root, or 0 if empty.
	MainRoot uint64
	// RCRoot is the offset of the root of the reference-count tree, or 0
	// if the RC tree has never been created.
	RCRoot uint64
}

// HeaderSize is how many bytes of page 0 the header actually occupies.
const HeaderSize = 32

// EncodeHeader writes h into a full PageSize buffer (only the first
// HeaderSize bytes are meaningful; the rest is zero).
func EncodeHeader(h Header) []byte {
	page := make([]byte, PageSize)
	binary.LittleEndian.PutUint64(page[0:8], h.LastPage)
	binary.LittleEndian.PutUint64(page[8:16], h.FreeListHead)
	binary.LittleEndian.PutUint64(page[16:24], h.MainRoot)
	binary.LittleEndian.PutUint64(page[24:32], h.RCRoot)
	return page
}

// DecodeHeader reads a Header out of a page-0-sized buffer.
func DecodeHeader(page []byte) Header {
	return Header{
		LastPage:     binary.LittleEndian.Uint64(page[0:8]),
		FreeListHead: binary.LittleEndian.Uint64(page[8:16]),
		MainRoot:     binary.LittleEndian.Uint64(page[16:24]),
		RCRoot:       binary.LittleEndian.Uint64(page[24:32]),
	}
}

// FreeListHeaderSize is the 16-byte (prev, count) header of a free-list page.
const FreeListHeaderSize = 16

// FreeListCap is the maximum number of page offsets one free-list page can hold.
const FreeListCap = (PageSize - FreeListHeaderSize) / 8

// FreeListPage is the decoded contents of one free-page-list page.
type FreeListPage struct {
	Prev    uint64 // previous free-list page, 0 if none
	Entries []uint64
}

// EncodeFreeListPage writes fl into a full PageSize buffer.
func EncodeFreeListPage(fl FreeListPage) []byte {
	if len(fl.Entries) > FreeListCap {
		panic("pagestore: too many free-list entries for one page")
	}
	page := make([]byte, PageSize)
	binary.LittleEndian.PutUint64(page[0:8], fl.Prev)
	binary.LittleEndian.PutUint64(page[8:16], uint64(len(fl.Entries)))
	pos := FreeListHeaderSize
	for _, e := range fl.Entries {
		binary.LittleEndian.PutUint64(page[pos:pos+8], e)
		pos += 8
	}
	return page
}

// DecodeFreeListPage reads a FreeListPage out of a page-sized buffer.
func DecodeFreeListPage(page []byte) FreeListPage {
	prev := binary.LittleEndian.Uint64(page[0:8])
	n := binary.LittleEndian.Uint64(page[8:16])
	entries := make([]uint64, n)
	pos := FreeListHeaderSize
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint64(page[pos : pos+8])
		pos += 8
	}
	return FreeListPage{Prev: prev, Entries: entries}
}
