package buddy

// mark marks [start, stop) reserved (never handed out) at every level,
// and returns the number of bytes shed onto free lists at the boundary.
// start and stop must be leaf-aligned addresses within the virtual heap.
func (h *Heap) mark(start, stop uintptr, isLeft bool) uintptr {
	if start%h.leafSize != 0 || stop%h.leafSize != 0 {
		h.fatalf("mark: start=%#x stop=%#x not leaf-aligned (leaf=%d)", start, stop, h.leafSize)
	}

	var freeRet uintptr
	K := h.maxLevel()
	for k := 0; k <= K; k++ {
		bi := h.blkIndex(k, start)
		bj := h.blkIndexNext(k, stop)

		// Shedding free buddies at the boundary is skipped for the top
		// two levels: level K has no buddy (a single block), and at
		// level K-1 the two halves together are the whole heap, so
		// shedding there would fabricate a free block that overlaps the
		// reservation itself.
		if k < K-1 {
			if isLeft && bj%2 == 1 {
				h.sizes[k].free.PushFront(h.addrOf(k, bj))
				freeRet += h.blkSize(k)
			}
			if !isLeft && bi%2 == 1 {
				h.sizes[k].free.PushFront(h.addrOf(k, bi-1))
				freeRet += h.blkSize(k)
			}
		}

		// One flip per reserved block: a pair with both buddies reserved
		// cancels to 0, and a boundary pair whose other buddy lies
		// outside [start, stop) ends at 1.
		for i := bi; i < bj; i++ {
			if k > 0 {
				h.sizes[k].split.Set(i)
			}
			h.sizes[k].alloc.Flip(i / 2)
		}
	}
	return freeRet
}
