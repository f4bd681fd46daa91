// ABOUTME: Exercises Open/Bytes/Sync/Close round trips and sidecar lock acquire/release
// ABOUTME: Runs against real files under t.TempDir, since mmap has no useful in-memory fake

package mmapfile

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestOpenCreatesAndSizesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	f, err := Open(path, 3*4096)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if len(f.Bytes()) != 3*4096 {
		t.Fatalf("Bytes() length = %d, want %d", len(f.Bytes()), 3*4096)
	}
}

func TestWritesPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	f, err := Open(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	copy(f.Bytes(), []byte("hello, page zero"))
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	f2, err := Open(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	defer f2.Close()

	if !bytes.Equal(f2.Bytes()[:16], []byte("hello, page zero")) {
		t.Errorf("content did not persist: %q", f2.Bytes()[:16])
	}
}

func TestOpenRejectsWrongExistingSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	f, err := Open(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Open(path, 2*4096); err == nil {
		t.Fatal("expected reopening an existing file at a different size to fail")
	}
}

func TestSidecarLockSharedAllowsMultipleReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db..lock")

	a, err := OpenSidecarLock(path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.RLock(); err != nil {
		t.Fatal(err)
	}

	b, err := OpenSidecarLock(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.RLock(); err != nil {
		t.Fatalf("second shared lock should not block: %v", err)
	}

	if err := a.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := b.Unlock(); err != nil {
		t.Fatal(err)
	}
}

func TestSidecarLockExclusiveThenUnlockAllowsNext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db..mut")

	a, err := OpenSidecarLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Lock(); err != nil {
		t.Fatal(err)
	}
	if err := a.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := OpenSidecarLock(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.Lock(); err != nil {
		t.Fatalf("exclusive lock should be free after the first holder released it: %v", err)
	}
	b.Unlock()
}
