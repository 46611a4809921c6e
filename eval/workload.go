package eval

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mit-pdos/buddy/buddy"
)

// FreeOrder controls the order in which a Workload gives back the
// blocks it allocated, mirroring the order flag on buddyctl's stress
// command: the three orders differ in when each block's buddy comes
// back relative to the block itself, so they drive the allocator's
// coalescing in different sequences.
type FreeOrder int

const (
	FreeReverse FreeOrder = iota
	FreeInsertion
	FreeRandom
)

func (o FreeOrder) String() string {
	switch o {
	case FreeReverse:
		return "reverse"
	case FreeInsertion:
		return "insertion"
	case FreeRandom:
		return "random"
	default:
		return "unknown"
	}
}

func (o FreeOrder) apply(addrs []uintptr) {
	switch o {
	case FreeReverse:
		for i, j := 0, len(addrs)-1; i < j; i, j = i+1, j-1 {
			addrs[i], addrs[j] = addrs[j], addrs[i]
		}
	case FreeInsertion:
		// already in allocation order
	case FreeRandom:
		rand.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })
	}
}

// AllocSize is one size class in a Workload's request mix, weighted by
// how often it should be requested relative to the other sizes.
type AllocSize struct {
	Bytes  uintptr
	Weight int
}

// bench is satisfied by anything a BenchmarkSuite can run against a
// freshly constructed heap. The methods are unexported so the only
// implementations are the ones in this package.
type bench interface {
	run(h *buddy.Heap, iter int) Observation
}

// Workload drives Ops single-threaded allocate calls against a heap,
// mixing sizes from Sizes, then frees what it got back in Order (every
// FreeStride-th block of that order).
// It reports allocate/free throughput and the resulting fragmentation.
type Workload struct {
	Name   string
	Sizes  []AllocSize
	Ops    int
	Order  FreeOrder
	// FreeStride controls how much of what was allocated gets freed
	// again: 1 (the default, via zero value) frees everything back in
	// Order; a stride of n frees only every nth address, leaving a
	// checkerboard of live blocks behind to force fragmentation.
	FreeStride int
	Config     KeyValue
}

func (w Workload) sizeMix() []uintptr {
	var mix []uintptr
	for _, s := range w.Sizes {
		for i := 0; i < s.Weight; i++ {
			mix = append(mix, s.Bytes)
		}
	}
	if len(mix) == 0 {
		mix = []uintptr{buddy.DefaultLeafSize}
	}
	return mix
}

func (w Workload) run(h *buddy.Heap, iter int) Observation {
	mix := w.sizeMix()
	addrs := make([]uintptr, 0, w.Ops)

	start := time.Now()
	for i := 0; i < w.Ops; i++ {
		p, err := h.Allocate(mix[i%len(mix)])
		if err != nil {
			break
		}
		addrs = append(addrs, p)
	}
	allocElapsed := time.Since(start)

	w.Order.apply(addrs)

	stride := w.FreeStride
	if stride < 1 {
		stride = 1
	}

	start = time.Now()
	freed := 0
	for i, p := range addrs {
		if i%stride != 0 {
			continue
		}
		h.Free(p)
		freed++
	}
	freeElapsed := time.Since(start)

	values := KeyValue{
		"alloc_ops_per_sec": opsPerSec(len(addrs), allocElapsed),
		"free_ops_per_sec":  opsPerSec(freed, freeElapsed),
		"satisfied":         float64(len(addrs)) / float64(w.Ops),
		"fragmentation":     fragmentation(h),
	}
	config := w.Config.Clone()
	config["name"] = w.Name
	config["ops"] = float64(w.Ops)
	config["order"] = w.Order.String()
	config["iter"] = float64(iter)

	return Observation{Values: values, Config: config}
}

// ConcurrentWorkload runs Ops allocate/free cycles on each of Threads
// goroutines against a single shared heap, measuring the throughput
// the allocator's spinlock sustains under contention.
type ConcurrentWorkload struct {
	Name    string
	Threads int
	Ops     int
	Size    uintptr
	Config  KeyValue
}

func (w ConcurrentWorkload) run(h *buddy.Heap, iter int) Observation {
	var wg sync.WaitGroup
	var failed int64
	var mu sync.Mutex

	start := time.Now()
	for t := 0; t < w.Threads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < w.Ops; i++ {
				p, err := h.Allocate(w.Size)
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				h.Free(p)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := w.Threads * w.Ops
	values := KeyValue{
		"ops_per_sec":   opsPerSec(total, elapsed),
		"failed":        float64(failed),
		"fragmentation": fragmentation(h),
	}
	config := w.Config.Clone()
	config["name"] = w.Name
	config["threads"] = float64(w.Threads)
	config["iter"] = float64(iter)

	return Observation{Values: values, Config: config}
}

func opsPerSec(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

// fragmentation estimates external fragmentation as the share of free
// bytes that are not part of the single largest free block: 0 means
// every free byte is reachable as one contiguous allocation, 1 means
// the free bytes are useless because nothing is free at the top level.
func fragmentation(h *buddy.Heap) float64 {
	free := h.FreeBytes()
	if free == 0 {
		return 0
	}
	var largest uintptr
	for _, s := range h.Stats() {
		if s.FreeCount > 0 && s.BlockSize > largest {
			largest = s.BlockSize
		}
	}
	return 1 - float64(largest)/float64(free)
}

func (w Workload) String() string {
	return fmt.Sprintf("%s(ops=%d,order=%s)", w.Name, w.Ops, w.Order)
}
