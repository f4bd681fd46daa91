// ABOUTME: Memory-mapped fixed-length file, the byte region the page store reads and writes
// ABOUTME: Platform-specific mmap/munmap live in mmapfile_*.go behind build tags

package mmapfile

import (
	"fmt"
	"os"
)

// Region is the interface pkg/pagestore consumes: a fixed-size byte region
// it may read and write, plus durability. Spec section 1 calls this one of
// the two interfaces the core depends on; keeping it an interface (rather
// than a concrete *File) lets pagestore tests run against an in-memory fake.
type Region interface {
	// Bytes returns the full mapped region. Its length never changes after
	// Open: Env::open(path, length) fixes the file's size up front.
	Bytes() []byte
	// Sync flushes dirty pages to the backing file and waits for durability.
	Sync() error
	// Close unmaps and closes the backing file.
	Close() error
}

// File is a memory-mapped, fixed-length file on disk.
type File struct {
	f     *os.File
	chunk []byte
}

// Open creates or opens path, sizing it to length bytes, and maps the whole
// file PROT_READ|PROT_WRITE MAP_SHARED. length must be a multiple of the
// platform page size (4096) — the caller (pkg/pagestore) enforces this.
func Open(path string, length int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		if err := f.Truncate(length); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("mmapfile: truncate %s: %w", path, err)
		}
	} else if info.Size() != length {
		_ = f.Close()
		return nil, fmt.Errorf("mmapfile: %s has size %d, want %d", path, info.Size(), length)
	}

	chunk, err := mmapFile(f.Fd(), 0, int(length))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmapfile: mmap %s: %w", path, err)
	}

	return &File{f: f, chunk: chunk}, nil
}

func (mf *File) Bytes() []byte { return mf.chunk }

func (mf *File) Sync() error {
	if err := mf.f.Sync(); err != nil {
		return fmt.Errorf("mmapfile: fsync: %w", err)
	}
	return nil
}

func (mf *File) Close() error {
	if err := unmapFile(mf.chunk); err != nil {
		return fmt.Errorf("mmapfile: munmap: %w", err)
	}
	if err := mf.f.Close(); err != nil {
		return fmt.Errorf("mmapfile: close: %w", err)
	}
	return nil
}

// WriteAt writes directly to the file at offset, bypassing the mapping.
// pagestore's commit path does not use it: Commit writes the header page
// through the mapped region.
func (mf *File) WriteAt(data []byte, offset int64) error {
	if _, err := mf.f.WriteAt(data, offset); err != nil {
		return fmt.Errorf("mmapfile: pwrite at %d: %w", offset, err)
	}
	return nil
}
