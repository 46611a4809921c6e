// Command buddyctl drives a buddy.Heap from the command line: it is the
// project's demo and stress-testing harness, in the same spirit as
// cmd/buddy-eval drives the eval package's benchmark suites.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "buddyctl",
		Usage: "exercise a buddy memory allocator from the command line",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "debug",
				Value: 0,
				Usage: "diagnostic verbosity (0 silences all output)",
			},
			&cli.Uint64Flag{
				Name:  "size",
				Value: 1 << 20,
				Usage: "size in bytes of the arena to manage",
			},
			&cli.Uint64Flag{
				Name:  "leaf",
				Value: 16,
				Usage: "minimum block size / alignment",
			},
			&cli.BoolFlag{
				Name:  "mmap",
				Usage: "back the arena with a real anonymous mapping instead of Go heap memory",
			},
		},
		Before: beforeApp,
		Commands: []*cli.Command{
			initCommand,
			allocCommand,
			stressCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
