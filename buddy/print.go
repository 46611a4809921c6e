package buddy

import (
	"fmt"
	"io"

	"github.com/mit-pdos/buddy/buddy/diag"
)

// PrintState renders every level's free-list size, alloc bit-vector, and
// split bit-vector to w, the Go rendering of buddy.c's bd_print.
func (h *Heap) PrintState(w io.Writer) {
	for k := 0; k <= h.maxLevel(); k++ {
		n := 0
		h.sizes[k].free.Each(func(uintptr) { n++ })
		fmt.Fprintf(w, "size %d (blksz %d nblk %d): %d free\n", k, h.blkSize(k), h.nblk(k), n)
		fmt.Fprint(w, "  alloc:")
		diag.PrintVector(w, h.sizes[k].alloc.Len(), h.sizes[k].alloc.IsSet)
		if k > 0 {
			fmt.Fprint(w, "  split:")
			diag.PrintVector(w, h.sizes[k].split.Len(), h.sizes[k].split.IsSet)
		}
	}
}
