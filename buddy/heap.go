package buddy

import (
	"math/bits"

	"github.com/mit-pdos/buddy/buddy/arena"
	"github.com/mit-pdos/buddy/buddy/bitvec"
	"github.com/mit-pdos/buddy/buddy/diag"
	"github.com/mit-pdos/buddy/buddy/freelist"
	"github.com/mit-pdos/buddy/internal/spinlock"
	"github.com/pkg/errors"
)

// DefaultLeafSize is the minimum allocation granularity and alignment
// used when a caller doesn't need a different one. It equals
// freelist.NodeSize on a 64-bit platform, the smallest size that can
// still hold a free-list node.
const DefaultLeafSize = 16

// sizeInfo holds the per-level bookkeeping for one size class: a free
// list, an alloc bit array (one bit per buddy pair, XOR-encoded), and a
// split bit array (absent — zero Vector — at level 0).
type sizeInfo struct {
	free  freelist.List
	alloc bitvec.Vector
	split bitvec.Vector
}

// Heap is a buddy allocator managing a single arena.Arena. The zero
// value is not usable; construct with New.
type Heap struct {
	lock spinlock.Spinlock

	// arena is retained purely to keep the backing store reachable for
	// the Heap's lifetime. Every address the allocator hands out is a
	// bare uintptr derived from arena's Base/End, and converting a
	// uintptr back into an unsafe.Pointer (as freelist.nodeAt does)
	// does not itself keep the pointee alive or track it
	// across a GC cycle — without this field, an arena.Slice's backing
	// []byte would become unreachable and collectible as soon as the
	// caller that built it returned, even while the Heap is still
	// handing out addresses into it.
	arena arena.Arena

	leafSize uintptr
	base     uintptr // bd_base: leaf-aligned start of the virtual heap
	heapSize uintptr // HEAP_SIZE = BLK_SIZE(K)
	reserved uintptr // bytes permanently unavailable: metadata prefix + unavailable suffix
	sizes    []sizeInfo
}

// New lays a buddy allocator out over a. leafSize must be a power of two
// at least freelist.NodeSize. reservedPrefix additional bytes at the
// start of the arena — rounded up to a leaf — are reserved before the
// heap becomes available; pass 0 if the caller has nothing to reserve
// there (this project keeps its own bookkeeping tables in ordinary Go
// memory rather than bump-allocating them from the arena — see
// DESIGN.md's Open Question 3 — so reservedPrefix is for the embedder's
// own use, e.g. boot code preceding the arena).
//
// New panics (via ErrIntegrity) if the free-byte reconciliation check
// after marking the reserved prefix and suffix fails; that can only
// happen from a bug in this package, not from caller input.
func New(a arena.Arena, leafSize uintptr, reservedPrefix uintptr) (*Heap, error) {
	if leafSize == 0 || leafSize&(leafSize-1) != 0 {
		return nil, errors.Errorf("buddy: leaf size %d must be a power of two", leafSize)
	}
	if leafSize < freelist.NodeSize {
		return nil, errors.Errorf("buddy: leaf size %d smaller than free-list node size %d", leafSize, freelist.NodeSize)
	}

	bdBase := roundUp(a.Base(), leafSize)
	end := a.End()
	if end < bdBase+leafSize {
		return nil, errors.New("buddy: arena smaller than one leaf after alignment")
	}

	n := uint64((end - bdBase) / leafSize)
	nsizes := log2Floor(n) + 1

	h := &Heap{arena: a, leafSize: leafSize, base: bdBase}
	h.heapSize = leafSize << uint(nsizes-1)
	if (end - bdBase) > h.heapSize {
		nsizes++
		h.heapSize = leafSize << uint(nsizes-1)
	}

	h.sizes = make([]sizeInfo, nsizes)
	for k := 0; k < nsizes; k++ {
		nb := h.nblk(k)
		allocBits := (nb + 1) / 2
		if allocBits < 1 {
			allocBits = 1
		}
		h.sizes[k].alloc = bitvec.New(allocBits)
		if k > 0 {
			h.sizes[k].split = bitvec.New(nb)
		}
		h.sizes[k].free.Init()
	}

	p := bdBase + roundUp(reservedPrefix, leafSize)
	leftFree := h.mark(bdBase, p, true)
	leftMeta := p - bdBase

	var rightMeta uintptr
	if h.heapSize > (end - bdBase) {
		rightMeta = roundUp(h.heapSize-(end-bdBase), leafSize)
	}
	bdEnd := bdBase + h.heapSize - rightMeta
	rightFree := h.mark(bdEnd, bdBase+h.heapSize, false)

	// mark never sheds at the top two levels, so whatever of them lies
	// outside both reservations is placed here: the whole heap when
	// nothing is reserved, otherwise a half the other side leaves free.
	K := nsizes - 1
	half := h.blkSize(K - 1)
	switch {
	case leftMeta == 0 && rightMeta == 0:
		h.sizes[K].free.PushFront(bdBase)
		leftFree += h.heapSize
	case K > 0 && leftMeta == 0:
		h.sizes[K-1].free.PushFront(bdBase)
		leftFree += half
	case K > 0 && rightMeta == 0 && leftMeta <= half:
		h.sizes[K-1].free.PushFront(bdBase + half)
		rightFree += half
	}

	got := leftFree + rightFree
	want := h.heapSize - leftMeta - rightMeta
	if got != want {
		h.fatalf("init: free byte reconciliation failed: got %d want %d (left meta %d right meta %d)",
			got, want, leftMeta, rightMeta)
	}
	h.reserved = leftMeta + rightMeta

	diag.DPrintf(1, "buddy: managing %d bytes in %d levels (heap %d bytes); %d meta-left %d unavailable-right\n",
		end-bdBase, nsizes, h.heapSize, leftMeta, rightMeta)
	return h, nil
}

// LeafSize returns the allocator's minimum block size and alignment.
func (h *Heap) LeafSize() uintptr { return h.leafSize }

// HeapSize returns the size of the power-of-two virtual heap, including
// any reserved prefix/suffix.
func (h *Heap) HeapSize() uintptr { return h.heapSize }

// Base returns the first address of the virtual heap.
func (h *Heap) Base() uintptr { return h.base }

// Capacity returns the number of bytes the heap can ever hand out:
// HeapSize minus the metadata prefix and unavailable suffix reserved at
// New time. A fully-coalesced heap's FreeBytes equals Capacity.
func (h *Heap) Capacity() uintptr { return h.heapSize - h.reserved }

// maxLevel is K = nsizes - 1, the top (largest) size class.
func (h *Heap) maxLevel() int { return len(h.sizes) - 1 }

func (h *Heap) blkSize(k int) uintptr { return h.leafSize << uint(k) }

func (h *Heap) nblk(k int) int { return int(h.heapSize / h.blkSize(k)) }

func (h *Heap) blkIndex(k int, p uintptr) int {
	return int((p - h.base) / h.blkSize(k))
}

// blkIndexNext is the smallest block index at level k whose base address
// is >= p — the "next" index used to define a half-open mark range.
func (h *Heap) blkIndexNext(k int, p uintptr) int {
	n := p - h.base
	bi := int(n / h.blkSize(k))
	if n%h.blkSize(k) != 0 {
		bi++
	}
	return bi
}

func (h *Heap) addrOf(k, i int) uintptr {
	return h.base + uintptr(i)*h.blkSize(k)
}

func buddyOf(i int) int { return i ^ 1 }

// firstK returns the smallest level k with BLK_SIZE(k) >= max(nbytes,
// leafSize). A zero-byte request resolves to level 0 (a single leaf) —
// see DESIGN.md's Open Question 1.
func (h *Heap) firstK(nbytes uintptr) int {
	need := nbytes
	if need < h.leafSize {
		need = h.leafSize
	}
	k := 0
	size := h.leafSize
	for size < need {
		k++
		size <<= 1
	}
	return k
}

func roundUp(n, sz uintptr) uintptr {
	if n == 0 {
		return 0
	}
	return ((n-1)/sz + 1) * sz
}

func log2Floor(n uint64) int {
	return bits.Len64(n) - 1
}
