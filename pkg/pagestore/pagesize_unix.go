//go:build linux || darwin || freebsd || openbsd || netbsd || solaris

package pagestore

import "golang.org/x/sys/unix"

// checkNativePageSize refuses platforms whose native page size differs from
// the on-disk PageSize, per spec.md section 6.
func checkNativePageSize() {
	if native := unix.Getpagesize(); native != PageSize {
		panic("pagestore: native page size is not 4096, this platform is unsupported")
	}
}
