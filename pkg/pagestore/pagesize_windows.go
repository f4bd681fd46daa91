//go:build windows

package pagestore

// checkNativePageSize is a no-op on windows: the x86/x64 native page size is
// 4096 on every supported target, and windows.GetSystemInfo's allocation
// granularity (64KiB) is a separate concept from the page size this store
// assumes.
func checkNativePageSize() {}
