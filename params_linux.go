//go:build linux

package cache

import "golang.org/x/sys/unix"

func totalMemory() uint64 {
	info := unix.Sysinfo_t{}

	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}

	return uint64(info.Totalram) * uint64(info.Unit)
}
