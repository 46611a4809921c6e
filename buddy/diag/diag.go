// Package diag is the buddy allocator's diagnostic print sink: a leveled
// debug logger plus a bit-vector range printer, modeled on nfsd's
// util.DPrintf convention and on buddy.c's bd_print_vector.
package diag

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// Level controls which DPrintf calls actually print: a call at level L
// prints only when the current Level is >= L. Level 0 (the default)
// silences all diagnostics, matching a production build.
var level int32

// SetLevel sets the debug threshold. Typically wired to a CLI flag, the
// way cmd/daisy-eval's -debug flag drove util.Debug in the upstream
// project this package's convention comes from.
func SetLevel(l int) {
	atomic.StoreInt32(&level, int32(l))
}

// Level returns the current debug threshold.
func Level() int {
	return int(atomic.LoadInt32(&level))
}

// DPrintf prints to stderr if the current level is at least l.
func DPrintf(l int, format string, args ...interface{}) {
	if atomic.LoadInt32(&level) < int32(l) {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// PrintVector renders isSet(0..n) as a sequence of half-open [lo, hi)
// ranges of set bits, one line, wrapped to the terminal width when w is a
// terminal. This is the Go rendering of buddy.c's bd_print_vector.
func PrintVector(w io.Writer, n int, isSet func(int) bool) {
	width := terminalWidth(w)
	line := ""
	flush := func(s string) {
		if width > 0 && len(line)+len(s) > width {
			fmt.Fprintln(w, line)
			line = ""
		}
		line += s
	}

	last := false
	lb := 0
	for b := 0; b < n; b++ {
		cur := isSet(b)
		if cur == last {
			continue
		}
		if last {
			flush(fmt.Sprintf(" [%d, %d)", lb, b))
		}
		lb = b
		last = cur
	}
	if last {
		flush(fmt.Sprintf(" [%d, %d)", lb, n))
	}
	fmt.Fprintln(w, line)
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return 0
	}
	if !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return cols
}
