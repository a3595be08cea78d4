//go:build !linux

package cache

// totalMemory is not probed outside of linux, Go memory limit still applies.
func totalMemory() uint64 {
	return 0
}
