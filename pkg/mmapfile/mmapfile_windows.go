//go:build windows

package mmapfile

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func mmapFile(fd uintptr, offset int64, length int) ([]byte, error) {
	h, err := windows.CreateFileMapping(windows.Handle(fd), nil, windows.PAGE_READWRITE,
		uint32(offset>>32), uint32(offset&0xffffffff), nil)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE,
		uint32(offset>>32), uint32(offset&0xffffffff), uintptr(length))
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length), nil
}

func unmapFile(data []byte) error {
	return windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&data[0])))
}
