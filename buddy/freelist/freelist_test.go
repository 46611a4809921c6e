package freelist

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arenaAddrs carves n addresses, each NodeSize bytes apart, out of a real
// backing array so PushFront/Remove can write linkage into them exactly
// as the buddy allocator would.
func arenaAddrs(t *testing.T, n int) []uintptr {
	t.Helper()
	buf := make([]byte, int(NodeSize)*n)
	base := uintptr(unsafe.Pointer(&buf[0]))
	addrs := make([]uintptr, n)
	for i := range addrs {
		addrs[i] = base + uintptr(i)*NodeSize
	}
	// keep buf alive for the duration of the test by referencing it
	t.Cleanup(func() { _ = buf })
	return addrs
}

func TestEmptyList(t *testing.T) {
	assert := assert.New(t)
	var l List
	l.Init()
	assert.True(l.Empty())
	assert.Equal(uintptr(0), l.PopFront())
}

func TestPushPopLIFO(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	addrs := arenaAddrs(t, 3)

	var l List
	l.Init()
	l.PushFront(addrs[0])
	l.PushFront(addrs[1])
	l.PushFront(addrs[2])
	require.False(l.Empty())

	assert.Equal(addrs[2], l.PopFront())
	assert.Equal(addrs[1], l.PopFront())
	assert.Equal(addrs[0], l.PopFront())
	assert.True(l.Empty())
}

func TestRemoveFromMiddle(t *testing.T) {
	assert := assert.New(t)
	addrs := arenaAddrs(t, 3)

	var l List
	l.Init()
	l.PushFront(addrs[0])
	l.PushFront(addrs[1])
	l.PushFront(addrs[2])

	l.Remove(addrs[1])

	var seen []uintptr
	l.Each(func(addr uintptr) { seen = append(seen, addr) })
	assert.Equal([]uintptr{addrs[2], addrs[0]}, seen)
}

func TestNodeSizeIsTwoWords(t *testing.T) {
	assert.Equal(t, 2*unsafe.Sizeof(uintptr(0)), NodeSize)
}
