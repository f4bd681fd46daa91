// ABOUTME: Advisory sidecar file locks (db..lock for readers, db..mut for the writer)
// ABOUTME: Platform-specific flock/LockFileEx calls live in lock_*.go

package mmapfile

import (
	"fmt"
	"os"
)

// SidecarLock wraps an OS advisory lock held on a dedicated file, per spec
// section 5 ("Locks", items 3 and 4) and section 6 ("Files"): a directory
// holds db, db..lock and db..mut alongside the data file.
type SidecarLock struct {
	f *os.File
}

// OpenSidecarLock opens (creating if absent) the lock file at path. It does
// not itself acquire a lock — call Lock/RLock/Unlock.
func OpenSidecarLock(path string) (*SidecarLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open sidecar %s: %w", path, err)
	}
	return &SidecarLock{f: f}, nil
}

// RLock acquires a shared advisory lock, blocking until available. Readers
// hold this for the lifetime of a read transaction.
func (s *SidecarLock) RLock() error {
	if err := flock(s.f, false); err != nil {
		return fmt.Errorf("mmapfile: shared lock %s: %w", s.f.Name(), err)
	}
	return nil
}

// Lock acquires an exclusive advisory lock, blocking until available. The
// writer holds this on db..mut for the transaction's lifetime, and
// committers briefly upgrade to it on db..lock to synchronize with readers.
func (s *SidecarLock) Lock() error {
	if err := flock(s.f, true); err != nil {
		return fmt.Errorf("mmapfile: exclusive lock %s: %w", s.f.Name(), err)
	}
	return nil
}

// Unlock releases whichever lock mode is currently held.
func (s *SidecarLock) Unlock() error {
	if err := funlock(s.f); err != nil {
		return fmt.Errorf("mmapfile: unlock %s: %w", s.f.Name(), err)
	}
	return nil
}

// Close releases any held lock and closes the sidecar file.
func (s *SidecarLock) Close() error {
	_ = funlock(s.f)
	return s.f.Close()
}
