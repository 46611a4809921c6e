package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/buddy/buddy"
	"github.com/mit-pdos/buddy/buddy/arena"
	"github.com/mit-pdos/buddy/buddy/diag"
)

func beforeApp(c *cli.Context) error {
	diag.SetLevel(c.Int("debug"))
	return nil
}

// buildHeap constructs the arena and Heap requested by the global flags.
// The returned cleanup func must be called (even on error paths that
// still hold a valid arena) to release an mmap-backed arena.
func buildHeap(c *cli.Context) (*buddy.Heap, func(), error) {
	size := int(c.Uint64("size"))
	leaf := uintptr(c.Uint64("leaf"))

	var a arena.Arena
	cleanup := func() {}

	if c.Bool("mmap") {
		m, err := arena.NewMmap(size)
		if err != nil {
			return nil, cleanup, errors.Wrap(err, "allocate mmap arena")
		}
		a = m
		cleanup = func() { _ = m.Close() }
	} else {
		a = arena.NewSlice(size)
	}

	h, err := buddy.New(a, leaf, 0)
	if err != nil {
		cleanup()
		return nil, func() {}, errors.Wrap(err, "initialize heap")
	}
	return h, cleanup, nil
}

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "initialize a heap and print its size-class layout",
	Action: func(c *cli.Context) error {
		h, cleanup, err := buildHeap(c)
		if err != nil {
			return err
		}
		defer cleanup()

		for _, s := range h.Stats() {
			fmt.Printf("level %d: block size %d, %d free\n", s.Level, s.BlockSize, s.FreeCount)
		}
		return nil
	},
}

var allocCommand = &cli.Command{
	Name:      "alloc",
	Usage:     "allocate a fixed list of sizes and print the addresses returned",
	ArgsUsage: "size [size...]",
	Action: func(c *cli.Context) error {
		h, cleanup, err := buildHeap(c)
		if err != nil {
			return err
		}
		defer cleanup()

		if c.NArg() == 0 {
			return errors.New("alloc requires at least one size argument")
		}
		for _, arg := range c.Args().Slice() {
			var n uint64
			if _, err := fmt.Sscanf(arg, "%d", &n); err != nil {
				return errors.Wrapf(err, "parse size %q", arg)
			}
			p, err := h.Allocate(uintptr(n))
			if err != nil {
				return errors.Wrapf(err, "allocate(%d)", n)
			}
			fmt.Printf("allocate(%d) -> %#x\n", n, p)
		}
		h.PrintState(os.Stdout)
		return nil
	},
}

var stressCommand = &cli.Command{
	Name:  "stress",
	Usage: "allocate leaves until the heap is full, then free them back in a chosen order",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "order",
			Value: "reverse",
			Usage: "free order: reverse, insertion, or random",
		},
	},
	Action: func(c *cli.Context) error {
		h, cleanup, err := buildHeap(c)
		if err != nil {
			return err
		}
		defer cleanup()

		var addrs []uintptr
		bar := progressbar.Default(-1, "allocating leaves")
		for {
			p, err := h.Allocate(h.LeafSize())
			if err != nil {
				break
			}
			addrs = append(addrs, p)
			_ = bar.Add(1)
		}
		_ = bar.Finish()

		switch c.String("order") {
		case "reverse":
			for i, j := 0, len(addrs)-1; i < j; i, j = i+1, j-1 {
				addrs[i], addrs[j] = addrs[j], addrs[i]
			}
		case "random":
			rand.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })
		case "insertion":
			// leave as allocated (FIFO) order
		default:
			return errors.Errorf("unknown order %q", c.String("order"))
		}

		bar = progressbar.Default(int64(len(addrs)), "freeing leaves")
		for _, p := range addrs {
			h.Free(p)
			_ = bar.Add(1)
		}
		_ = bar.Finish()

		if h.FreeBytes() != h.Capacity() {
			return errors.Errorf("stress: expected full coalescence, got %d/%d free bytes",
				h.FreeBytes(), h.Capacity())
		}
		fmt.Printf("stress: freed %d leaves, fully coalesced back to %d bytes free\n",
			len(addrs), h.FreeBytes())
		return nil
	},
}
