//go:build linux || darwin || freebsd || openbsd || netbsd || solaris

package mmapfile

import "golang.org/x/sys/unix"

func mmapFile(fd uintptr, offset int64, length int) ([]byte, error) {
	return unix.Mmap(int(fd), offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}
