package spinlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMutualExclusion(t *testing.T) {
	var l Spinlock
	var counter int
	var wg sync.WaitGroup

	const goroutines = 50
	const iters = 200
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				l.Acquire()
				counter++
				l.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*iters, counter)
}

func TestAcquireReleaseIRQ(t *testing.T) {
	var l Spinlock
	l.AcquireIRQ()
	l.ReleaseIRQ()
	// lock must be free again
	l.Acquire()
	l.Release()
}
