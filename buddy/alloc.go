package buddy

import "github.com/mit-pdos/buddy/buddy/diag"

// Allocate returns a leaf-aligned address of a block at least nbytes
// long, or ErrOutOfMemory if no level has room. A request for 0 bytes
// still receives a leaf-sized block (DESIGN.md Open Question 1).
func (h *Heap) Allocate(nbytes uintptr) (uintptr, error) {
	fk := h.firstK(nbytes)

	h.lock.Acquire()
	defer h.lock.Release()

	k := fk
	for k <= h.maxLevel() && h.sizes[k].free.Empty() {
		k++
	}
	if k > h.maxLevel() {
		diag.DPrintf(1, "buddy: allocate(%d): out of memory\n", nbytes)
		return 0, ErrOutOfMemory
	}

	p := h.sizes[k].free.PopFront()
	h.sizes[k].alloc.Flip(h.blkIndex(k, p) / 2)

	// Split cascade: keep the left half at each level down to fk, and
	// push the right-half buddy onto that level's free list.
	for k > fk {
		q := p + h.blkSize(k-1)
		h.sizes[k].split.Set(h.blkIndex(k, p))
		h.sizes[k-1].alloc.Flip(h.blkIndex(k-1, p) / 2)
		h.sizes[k-1].free.PushFront(q)
		k--
	}

	diag.DPrintf(2, "buddy: allocate(%d) -> %#x (level %d, %d bytes)\n", nbytes, p, fk, h.blkSize(fk))
	return p, nil
}
