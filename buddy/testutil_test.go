package buddy

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/buddy/buddy/arena"
)

// alignedArena returns an Arena of exactly size bytes whose Base() is
// exactly leaf-aligned, so scenario tests can compare against the
// documented worked-example offsets (relative to Base()) without
// alignment slop.
func alignedArena(t *testing.T, size int, leaf uintptr) *arena.Slice {
	t.Helper()
	buf := make([]byte, size+int(leaf))
	addr := uintptr(unsafe.Pointer(&buf[0]))
	pad := (leaf - addr%leaf) % leaf
	return arena.WrapSlice(buf[pad : uintptr(pad)+uintptr(size)])
}

// newPristineHeap builds a Heap over an exactly power-of-two, leaf-
// aligned arena with no left/right reservation: the canonical pristine
// state the worked scenarios below start from.
func newPristineHeap(t *testing.T, size int) *Heap {
	t.Helper()
	a := alignedArena(t, size, DefaultLeafSize)
	h, err := New(a, DefaultLeafSize, 0)
	require.NoError(t, err)
	return h
}
