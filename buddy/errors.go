package buddy

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/mit-pdos/buddy/buddy/diag"
)

// ErrOutOfMemory is returned by Allocate when no level has a free block
// large enough to satisfy the request. It is recoverable: no allocator
// state is mutated before it is returned.
var ErrOutOfMemory = errors.New("buddy: out of memory")

// ErrIntegrity is the class of error fatalf panics with. It marks a
// violated invariant that New or mark could detect: the reconciled
// free-byte count disagreeing with the arithmetic expectation, a
// misaligned mark boundary, or (in debug builds) a corrupt Free call.
// These are not recoverable; the process is expected to abort, exactly
// like the kernel abort this allocator is designed to run under.
var ErrIntegrity = errors.New("buddy: integrity check failed")

// fatalf logs then panics with an error wrapping ErrIntegrity, so a
// recovering caller (there should not be one, in production) can still
// tell the panic value apart with errors.Is.
func (h *Heap) fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	diag.DPrintf(0, "buddy: fatal: %s\n", msg)
	panic(pkgerrors.Wrap(ErrIntegrity, msg))
}
