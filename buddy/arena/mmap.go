//go:build !windows

package arena

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mmap is an Arena backed by a real anonymous page mapping, for use when
// the caller wants the buddy allocator to manage actual pages instead of
// Go-heap-backed memory — closer to the freestanding-kernel deployment
// the allocator is designed for.
type Mmap struct {
	buf []byte
}

// NewMmap reserves size bytes (rounded up to a whole number of pages by
// the kernel) via mmap(MAP_ANONYMOUS|MAP_PRIVATE).
func NewMmap(size int) (*Mmap, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "mmap arena")
	}
	return &Mmap{buf: buf}, nil
}

// Close unmaps the region. The Mmap must not be used afterward.
func (m *Mmap) Close() error {
	if err := unix.Munmap(m.buf); err != nil {
		return errors.Wrap(err, "munmap arena")
	}
	m.buf = nil
	return nil
}

// Base implements Arena.
func (m *Mmap) Base() uintptr {
	return uintptr(unsafe.Pointer(&m.buf[0]))
}

// End implements Arena.
func (m *Mmap) End() uintptr {
	return m.Base() + uintptr(len(m.buf))
}
