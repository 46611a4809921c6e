// Package freelist implements the intrusive doubly-linked free list the
// buddy allocator threads through free blocks.
//
// Nodes are not allocated separately: List.PushFront writes a two-word
// (prev, next) header directly into the first bytes of the free block at
// the given address, and List.Remove/PopFront read it back out. This is
// why LEAF_SIZE must be at least NodeSize bytes — a free block must have
// room for its own list linkage.
package freelist

import "unsafe"

// node is the linkage header overlaid on a free block's first bytes.
type node struct {
	prev uintptr
	next uintptr
}

// NodeSize is the number of bytes a free block must reserve for list
// linkage. On a 64-bit platform this is 16 bytes, which is also the
// spec's typical LEAF_SIZE.
const NodeSize = unsafe.Sizeof(node{})

// List is a circular intrusive doubly-linked list of block addresses.
// The zero value is not usable; call Init first. List itself acts as the
// sentinel node: an empty list has both prev and next pointing back at
// the List's own address.
type List struct {
	node
}

func nodeAt(addr uintptr) *node {
	return (*node)(unsafe.Pointer(addr)) //nolint:govet
}

func (l *List) self() uintptr {
	return uintptr(unsafe.Pointer(&l.node))
}

// Init resets the list to empty.
func (l *List) Init() {
	self := l.self()
	l.prev = self
	l.next = self
}

// Empty reports whether the list holds no addresses.
func (l *List) Empty() bool {
	return l.next == l.self()
}

// PushFront links addr in as the new first element.
func (l *List) PushFront(addr uintptr) {
	self := l.self()
	n := nodeAt(addr)
	n.next = l.next
	n.prev = self
	nodeAt(l.next).prev = addr
	l.next = addr
}

// PopFront unlinks and returns the first element, or 0 if the list is
// empty.
func (l *List) PopFront() uintptr {
	if l.Empty() {
		return 0
	}
	addr := l.next
	l.Remove(addr)
	return addr
}

// Remove unlinks addr from wherever it sits in the list. addr must
// currently be a member of l; the caller (package buddy) always knows
// this from the bit-vector state, so no membership check is performed.
func (l *List) Remove(addr uintptr) {
	n := nodeAt(addr)
	nodeAt(n.prev).next = n.next
	nodeAt(n.next).prev = n.prev
}

// Each calls fn for every address currently on the list, in order from
// front to back. Used by Free's debug check, the statistics helpers and
// PrintState in package buddy.
func (l *List) Each(fn func(addr uintptr)) {
	self := l.self()
	for cur := l.next; cur != self; cur = nodeAt(cur).next {
		fn(cur)
	}
}
