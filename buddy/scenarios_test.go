package buddy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeAddrs collects the addresses currently on level k's free list, in
// front-to-back order.
func freeAddrs(h *Heap, k int) []uintptr {
	var got []uintptr
	h.sizes[k].free.Each(func(addr uintptr) { got = append(got, addr) })
	return got
}

func assertFreeList(t *testing.T, h *Heap, k int, want ...uintptr) {
	t.Helper()
	assert.Equal(t, want, freeAddrs(h, k))
}

// TestScenario1 is the canonical worked example: a single allocate(16)
// on a pristine 1024-byte, LEAF_SIZE=16 heap (K=6).
func TestScenario1(t *testing.T) {
	require := require.New(t)
	h := newPristineHeap(t, 1024)
	base := h.Base()

	p, err := h.Allocate(16)
	require.NoError(err)
	require.Equal(base, p)

	assertFreeList(t, h, 0)
	assertFreeList(t, h, 1, base+16)
	assertFreeList(t, h, 2, base+32)
	assertFreeList(t, h, 3, base+64)
	assertFreeList(t, h, 4, base+128)
	assertFreeList(t, h, 5, base+512)
	assertFreeList(t, h, 6)
}

// TestScenario2 continues scenario 1 with a second allocate(16).
func TestScenario2(t *testing.T) {
	require := require.New(t)
	h := newPristineHeap(t, 1024)
	base := h.Base()

	_, err := h.Allocate(16)
	require.NoError(err)
	p2, err := h.Allocate(16)
	require.NoError(err)
	require.Equal(base+16, p2)

	assertFreeList(t, h, 0)
	assertFreeList(t, h, 1, base+32)
	assertFreeList(t, h, 2, base+64)
	assertFreeList(t, h, 3, base+128)
	assertFreeList(t, h, 4, base+256)
	assertFreeList(t, h, 5, base+512)
}

// TestScenario3 frees both leaves from scenarios 1-2 and expects a
// return to the pristine single-level-6-free-block state.
func TestScenario3(t *testing.T) {
	require := require.New(t)
	h := newPristineHeap(t, 1024)
	base := h.Base()

	p1, err := h.Allocate(16)
	require.NoError(err)
	p2, err := h.Allocate(16)
	require.NoError(err)

	h.Free(p1)
	h.Free(p2)

	for k := 0; k < h.maxLevel(); k++ {
		assertFreeList(t, h, k)
	}
	assertFreeList(t, h, 6, base)
}

// TestScenario4: an over-large request on a pristine heap fails without
// mutating state.
func TestScenario4(t *testing.T) {
	assert := assert.New(t)
	h := newPristineHeap(t, 1024)

	p, err := h.Allocate(1025)
	assert.ErrorIs(err, ErrOutOfMemory)
	assert.Equal(uintptr(0), p)
	assertFreeList(t, h, 6, h.Base())
}

// TestScenario5: allocate(48) rounds up to a 64-byte (level 2) block.
func TestScenario5(t *testing.T) {
	require := require.New(t)
	h := newPristineHeap(t, 1024)
	base := h.Base()

	p, err := h.Allocate(48)
	require.NoError(err)
	require.Equal(base, p)

	assertFreeList(t, h, 2, base+64)
	assertFreeList(t, h, 3, base+128)
	assertFreeList(t, h, 4, base+256)
	assertFreeList(t, h, 5, base+512)
}

// TestScenario6Stress allocates every leaf in a 1024-byte heap, then
// frees them back in three different orders, checking full coalescence
// each time.
func TestScenario6Stress(t *testing.T) {
	const size = 1024
	const leaves = size / DefaultLeafSize

	orderings := map[string]func([]uintptr){
		"reverse": func(p []uintptr) {
			for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
				p[i], p[j] = p[j], p[i]
			}
		},
		"insertion": func(p []uintptr) {},
		"adversarial": func(p []uintptr) {
			// deterministic pseudo-random shuffle (no math/rand seed
			// dependency across Go versions): a fixed permutation via a
			// small LCG.
			seed := uint32(12345)
			for i := len(p) - 1; i > 0; i-- {
				seed = seed*1664525 + 1013904223
				j := int(seed) % (i + 1)
				if j < 0 {
					j += i + 1
				}
				p[i], p[j] = p[j], p[i]
			}
		},
	}

	for name, shuffle := range orderings {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			h := newPristineHeap(t, size)
			base := h.Base()

			addrs := make([]uintptr, 0, leaves)
			for i := 0; i < leaves; i++ {
				p, err := h.Allocate(DefaultLeafSize)
				require.NoError(err)
				addrs = append(addrs, p)
			}

			shuffle(addrs)
			for _, p := range addrs {
				h.Free(p)
			}

			for k := 0; k < h.maxLevel(); k++ {
				assertFreeList(t, h, k)
			}
			assertFreeList(t, h, h.maxLevel(), base)
		})
	}
}
