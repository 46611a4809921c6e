package buddy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/buddy/buddy/diag"
)

// assertFreePanicsWithIntegrityError calls h.Free(p) expecting it to
// panic with an error wrapping ErrIntegrity, the way a debug-build
// caller is expected to recover and report it.
func assertFreePanicsWithIntegrityError(t *testing.T, h *Heap, p uintptr) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Free did not panic")
			return
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("recovered value %v is not an error", r)
			return
		}
		assert.ErrorIs(t, err, ErrIntegrity)
	}()
	h.Free(p)
}

// TestFreeDebugChecksCatchBadAddresses exercises the three debug-gated
// assertions in Free: an out-of-range address, a misaligned address, and
// a double free of an address that already lies inside a free block.
// None of these checks run at diag.Level() 0, so each subtest raises the
// level first and restores it afterward.
func TestFreeDebugChecksCatchBadAddresses(t *testing.T) {
	t.Run("out of range", func(t *testing.T) {
		h := newPristineHeap(t, 1024)
		diag.SetLevel(1)
		defer diag.SetLevel(0)

		bad := h.Base() + h.HeapSize()
		assertFreePanicsWithIntegrityError(t, h, bad)
	})

	t.Run("misaligned", func(t *testing.T) {
		h := newPristineHeap(t, 1024)
		diag.SetLevel(1)
		defer diag.SetLevel(0)

		bad := h.Base() + 1
		assertFreePanicsWithIntegrityError(t, h, bad)
	})

	t.Run("double free", func(t *testing.T) {
		h := newPristineHeap(t, 1024)
		p, err := h.Allocate(16)
		require.NoError(t, err)
		h.Free(p)

		diag.SetLevel(1)
		defer diag.SetLevel(0)

		assertFreePanicsWithIntegrityError(t, h, p)
	})
}
