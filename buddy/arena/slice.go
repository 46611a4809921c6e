package arena

import "unsafe"

// Slice is an Arena backed by a plain Go byte slice. It is the arena used
// by unit tests and by the CLI's default (non-mmap) mode.
type Slice struct {
	buf []byte
}

// NewSlice reserves a zeroed byte slice of the given size and wraps it as
// an Arena. The slice is kept alive for the lifetime of the returned
// Slice so its address bounds stay valid.
func NewSlice(size int) *Slice {
	return &Slice{buf: make([]byte, size)}
}

// WrapSlice adapts an existing byte slice as an Arena without copying.
// The caller must keep buf alive for as long as the returned Slice (and
// any Heap built over it) is in use.
func WrapSlice(buf []byte) *Slice {
	return &Slice{buf: buf}
}

// Base implements Arena.
func (s *Slice) Base() uintptr {
	return uintptr(unsafe.Pointer(&s.buf[0]))
}

// End implements Arena.
func (s *Slice) End() uintptr {
	return s.Base() + uintptr(len(s.buf))
}

// Bytes exposes the backing slice, mainly for tests that want to inspect
// or hexdump raw allocator content.
func (s *Slice) Bytes() []byte { return s.buf }
