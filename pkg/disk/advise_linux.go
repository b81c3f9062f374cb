//go:build linux
// +build linux

package disk

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential hints the kernel that f is read or written front to back.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

// adviseRandom hints the kernel that f is accessed at scattered offsets.
func adviseRandom(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
}
