//go:build windows

package mmapfile

import (
	"os"

	"golang.org/x/sys/windows"
)

const lockRangeBytes = 1 << 20

func flock(f *os.File, exclusive bool) error {
	var flags uint32
	if exclusive {
		flags = windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, lockRangeBytes, 0, ol)
}

func funlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockRangeBytes, 0, ol)
}
