// Package spinlock implements the single global lock the buddy allocator
// serializes all mutation through. Unlike sync.Mutex, a spinlock never
// parks the calling goroutine on the runtime's scheduler queue, which
// matters if Acquire/Release are ever called from a context that cannot
// block (an interrupt handler in a real kernel; here, AcquireIRQ
// additionally pins the calling goroutine to its OS thread, which does
// not stop the Go scheduler from preempting it).
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a test-and-test-and-set spinlock.
type Spinlock struct {
	held atomic.Bool
}

// Acquire spins until the lock is taken.
func (l *Spinlock) Acquire() {
	for {
		if !l.held.Load() && l.held.CompareAndSwap(false, true) {
			return
		}
		runtime.Gosched()
	}
}

// Release drops the lock. The caller must hold it.
func (l *Spinlock) Release() {
	l.held.Store(false)
}

// AcquireIRQ is Acquire's interrupt-safe variant: it additionally locks
// the calling goroutine to its OS thread for the duration of the critical
// section, so no other goroutine runs on that thread until ReleaseIRQ.
// The goroutine itself can still be preempted by the Go scheduler.
// ReleaseIRQ must be called exactly once to undo it.
func (l *Spinlock) AcquireIRQ() {
	runtime.LockOSThread()
	l.Acquire()
}

// ReleaseIRQ releases a lock taken with AcquireIRQ.
func (l *Spinlock) ReleaseIRQ() {
	l.Release()
	runtime.UnlockOSThread()
}
