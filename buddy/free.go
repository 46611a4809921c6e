package buddy

import "github.com/mit-pdos/buddy/buddy/diag"

// Free returns a block previously obtained from Allocate. p must be a
// still-live address returned by Allocate; freeing a wild pointer, a
// misaligned address, or a double-free is undefined. When diag.Level() >
// 0 those cases are instead caught and reported via fatalf, at the cost
// of the extra checks on every call.
func (h *Heap) Free(p uintptr) {
	if diag.Level() > 0 {
		if p < h.base || p >= h.base+h.heapSize {
			h.fatalf("free: address %#x outside heap [%#x, %#x)", p, h.base, h.base+h.heapSize)
		}
		if (p-h.base)%h.leafSize != 0 {
			h.fatalf("free: address %#x not leaf-aligned (leaf=%d)", p, h.leafSize)
		}
	}

	h.lock.Acquire()
	defer h.lock.Release()

	k := h.sizeOf(p)

	if diag.Level() > 0 {
		// A block freed earlier may since have coalesced into a larger
		// free block, so every level is searched for one containing p.
		alreadyFree := false
		for j := 0; j <= h.maxLevel(); j++ {
			h.sizes[j].free.Each(func(addr uintptr) {
				if addr <= p && p < addr+h.blkSize(j) {
					alreadyFree = true
				}
			})
		}
		if alreadyFree {
			h.fatalf("free: double free of address %#x, already inside a free block", p)
		}
	}

	for k < h.maxLevel() {
		bi := h.blkIndex(k, p)
		buddy := buddyOf(bi)
		h.sizes[k].alloc.Flip(bi / 2)
		if h.sizes[k].alloc.IsSet(bi / 2) {
			// The XOR bit is 1 again: the buddy is still allocated.
			// Nothing more to coalesce.
			break
		}
		q := h.addrOf(k, buddy)
		h.sizes[k].free.Remove(q)
		if buddy%2 == 0 {
			p = q
		}
		h.sizes[k+1].split.Clear(h.blkIndex(k+1, p))
		k++
	}
	h.sizes[k].free.PushFront(p)
	diag.DPrintf(2, "buddy: free(%#x) settled at level %d\n", p, k)
}

// sizeOf recovers the level of the block starting at p: the smallest k
// such that split[k+1][blk_index(k+1, p)] is set, or 0 if none is.
func (h *Heap) sizeOf(p uintptr) int {
	for k := 0; k < h.maxLevel(); k++ {
		if h.sizes[k+1].split.IsSet(h.blkIndex(k+1, p)) {
			return k
		}
	}
	return 0
}
