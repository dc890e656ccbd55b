//go:build linux

package pthash

import "golang.org/x/sys/unix"

// adviseSequential tells the kernel the mapping will be read front to back,
// so readahead can stay aggressive while the artifact is deserialized.
// Best-effort: errors are ignored.
func adviseSequential(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
}
