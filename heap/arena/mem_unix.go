//go:build linux || darwin

package arena

import "golang.org/x/sys/unix"

// mapPage returns zeroed, anonymous, private memory of size bytes.
func mapPage(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapPage(b []byte) error {
	if b == nil {
		return nil
	}
	return unix.Munmap(b)
}
