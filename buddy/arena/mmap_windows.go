//go:build windows

package arena

import "errors"

// Mmap is unavailable on windows; construct with NewSlice instead.
type Mmap struct{}

// NewMmap always fails on windows.
func NewMmap(size int) (*Mmap, error) {
	return nil, errors.New("buddy/arena: mmap-backed arena not supported on windows")
}

// Close is a no-op.
func (m *Mmap) Close() error { return nil }

// Base always returns 0.
func (m *Mmap) Base() uintptr { return 0 }

// End always returns 0.
func (m *Mmap) End() uintptr { return 0 }
