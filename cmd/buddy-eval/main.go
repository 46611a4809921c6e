// Command buddy-eval runs the allocator's benchmark suites and reports
// throughput and fragmentation observations, in the same spirit as
// buddyctl but driven by eval.BenchmarkSuite instead of one-off commands.
package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/buddy/buddy"
	"github.com/mit-pdos/buddy/eval"
)

func printObservations(w io.Writer, obs []eval.Observation) {
	for _, o := range obs {
		fmt.Fprintf(w, "%-12s ", o.Config["name"])
		for k, v := range o.Values {
			fmt.Fprintf(w, "%s=%v ", k, v)
		}
		for _, kv := range o.Config.Flatten().Pairs() {
			if kv.Key == "name" {
				continue
			}
			fmt.Fprintf(w, "%s=%v ", kv.Key, kv.Val)
		}
		fmt.Fprintln(w)
	}
}

func writeObservations(outFile string, obs []eval.Observation) error {
	out, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("could not create output file %s: %v", outFile, err)
	}
	var w io.Writer = out
	var gz *gzip.Writer
	if strings.HasSuffix(outFile, ".gz") {
		gz = gzip.NewWriter(out)
		w = gz
	}
	if err := eval.WriteObservations(w, obs); err != nil {
		return fmt.Errorf("could not write output: %v", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("could not write output: %v", err)
		}
	}
	return out.Close()
}

func outputObservations(c *cli.Context, obs []eval.Observation) error {
	outFile := c.String("out")
	if outFile == "" {
		printObservations(os.Stdout, obs)
		return nil
	}
	return writeObservations(outFile, obs)
}

var suiteFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "randomize",
		Value: true,
		Usage: "randomize order of running benches",
	},
	&cli.IntFlag{
		Name:  "iters",
		Value: 1,
		Usage: "number of iterations to run each bench",
	},
	&cli.Uint64Flag{
		Name:  "arena-size",
		Value: 1 << 20,
		Usage: "size in bytes of the arena each run allocates",
	},
	&cli.Uint64Flag{
		Name:  "leaf-size",
		Value: buddy.DefaultLeafSize,
		Usage: "minimum block size / alignment",
	},
	&cli.StringFlag{
		Name:  "out",
		Value: "",
		Usage: "file to write observations to (use .gz extension for compression)",
	},
}

func initSuite(c *cli.Context) *eval.BenchmarkSuite {
	return &eval.BenchmarkSuite{
		Iters:     c.Int("iters"),
		Randomize: c.Bool("randomize"),
		ArenaSize: int(c.Uint64("arena-size")),
		LeafSize:  uintptr(c.Uint64("leaf-size")),
	}
}

var basicCommand = &cli.Command{
	Name:  "basic",
	Usage: "run uniform and mixed-size allocate/free benches",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "ops", Value: 10000, Usage: "allocations per run"},
	},
	Action: func(c *cli.Context) error {
		suite := initSuite(c)
		suite.Benches = eval.BasicSuite(c.Int("ops"))
		return outputObservations(c, suite.Run())
	},
}

var scaleCommand = &cli.Command{
	Name:  "scale",
	Usage: "benchmark allocate/free throughput with varying goroutine counts",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "threads", Value: 8, Usage: "maximum number of goroutines to scale to"},
		&cli.IntFlag{Name: "ops", Value: 5000, Usage: "allocations per goroutine"},
	},
	Action: func(c *cli.Context) error {
		suite := initSuite(c)
		suite.Benches = eval.ScaleSuite(c.Int("ops"), c.Int("threads"))
		return outputObservations(c, suite.Run())
	},
}

var fragmentationCommand = &cli.Command{
	Name:  "fragmentation",
	Usage: "fill a heap with blocks of 1, 4 and 16 leaves (one bench each), free every other one, and report fragmentation",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "ops", Value: 100000, Usage: "blocks to attempt to allocate per bench"},
	},
	Action: func(c *cli.Context) error {
		suite := initSuite(c)
		leaf := uintptr(c.Uint64("leaf-size"))
		suite.Benches = eval.FragmentationSuite(c.Int("ops"), []uintptr{leaf, leaf * 4, leaf * 16})
		return outputObservations(c, suite.Run())
	},
}

func main() {
	app := &cli.App{
		Name:  "buddy-eval",
		Usage: "benchmark the buddy allocator",
		Flags: suiteFlags,
		Commands: []*cli.Command{
			basicCommand,
			scaleCommand,
			fragmentationCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
