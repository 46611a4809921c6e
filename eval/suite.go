package eval

import (
	"math/rand"

	"github.com/mit-pdos/buddy/buddy"
	"github.com/mit-pdos/buddy/buddy/arena"
)

// BenchmarkSuite runs a set of benches, each against its own freshly
// constructed heap, Iters times, optionally in a randomized order so
// that benches don't all inherit the same warm-cache or GC-phase bias.
type BenchmarkSuite struct {
	Iters     int
	Randomize bool
	ArenaSize int
	LeafSize  uintptr
	Benches   []bench
}

// run pairs one bench instance with the arena parameters it needs to
// build a fresh heap; Runs expands a BenchmarkSuite into a flat,
// optionally-shuffled list of these.
type run struct {
	bench     bench
	iter      int
	arenaSize int
	leafSize  uintptr
}

func (r run) execute() Observation {
	a := arena.NewSlice(r.arenaSize)
	h, err := buddy.New(a, r.leafSize, 0)
	if err != nil {
		panic(err)
	}
	return r.bench.run(h, r.iter)
}

// Runs expands the suite into one run per (bench, iteration) pair.
func (bs *BenchmarkSuite) Runs() []run {
	var runs []run
	for i := 0; i < bs.Iters; i++ {
		for _, b := range bs.Benches {
			runs = append(runs, run{
				bench:     b,
				iter:      i,
				arenaSize: bs.ArenaSize,
				leafSize:  bs.LeafSize,
			})
		}
	}
	if bs.Randomize {
		rand.Shuffle(len(runs), func(i, j int) { runs[i], runs[j] = runs[j], runs[i] })
	}
	return runs
}

// Run executes every run in the suite and collects their observations.
func (bs *BenchmarkSuite) Run() []Observation {
	runs := bs.Runs()
	obs := make([]Observation, 0, len(runs))
	for _, r := range runs {
		obs = append(obs, r.execute())
	}
	return obs
}

// UniformBench allocates ops blocks of a single size and frees them
// back in order.
func UniformBench(size uintptr, ops int, order FreeOrder) Workload {
	return Workload{
		Name:  "uniform",
		Sizes: []AllocSize{{Bytes: size, Weight: 1}},
		Ops:   ops,
		Order: order,
	}
}

// MixedBench allocates a realistic mix of small, medium, and large
// blocks, weighted toward the small end the way allocator workloads
// typically are.
func MixedBench(ops int, order FreeOrder) Workload {
	return Workload{
		Name: "mixed",
		Sizes: []AllocSize{
			{Bytes: 16, Weight: 8},
			{Bytes: 64, Weight: 4},
			{Bytes: 256, Weight: 2},
			{Bytes: 4096, Weight: 1},
		},
		Ops:   ops,
		Order: order,
	}
}

// FragmentationBench allocates leaves to exhaustion and frees only
// every other one, leaving the heap in a checkerboard of live blocks
// that can never coalesce with their buddy.
func FragmentationBench(ops int) Workload {
	return Workload{
		Name:       "fragmentation",
		Sizes:      []AllocSize{{Bytes: buddy.DefaultLeafSize, Weight: 1}},
		Ops:        ops,
		Order:      FreeInsertion,
		FreeStride: 2,
	}
}

// BasicSuite is a small, fast set of benches covering the reverse and
// random free orders against a uniform and a mixed size class.
func BasicSuite(ops int) []bench {
	return []bench{
		UniformBench(64, ops, FreeReverse),
		UniformBench(64, ops, FreeRandom),
		MixedBench(ops, FreeReverse),
		MixedBench(ops, FreeRandom),
	}
}

// FragmentationSuite makes one bench per size in sizes; each fills a heap
// with blocks of that size, frees every other one, and reports the
// resulting checkerboard fragmentation.
func FragmentationSuite(ops int, sizes []uintptr) []bench {
	var bs []bench
	for _, sz := range sizes {
		bs = append(bs, Workload{
			Name:       "fragmentation",
			Sizes:      []AllocSize{{Bytes: sz, Weight: 1}},
			Ops:        ops,
			Order:      FreeInsertion,
			FreeStride: 2,
		})
	}
	return bs
}

// ScaleSuite varies the number of contending goroutines from 1 to
// threads, holding the per-goroutine op count fixed, to see how
// throughput responds to spinlock contention.
func ScaleSuite(opsPerThread int, threads int) []bench {
	var bs []bench
	for i := 1; i <= threads; i++ {
		bs = append(bs, ConcurrentWorkload{
			Name:    "scale",
			Threads: i,
			Ops:     opsPerThread,
			Size:    64,
		})
	}
	return bs
}
