// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"sort"
	"unsafe"
)

// freeListLink is the intrusive singly-linked-list node a free cell aliases
// while it is free. Reads/writes of this type are only ever valid on cells
// known to be free, so the aliasing primitive stays confined to this file.
type freeListLink struct {
	next *freeListLink
}

// freeList is the equal-size, pointer-chained free list (component B): a
// head pointer into cells threaded through the free cells themselves, plus
// a cached count. It owns no storage of its own — cells belong to whatever
// blockList inserted them.
type freeList struct {
	nodeSize uintptr
	head     *freeListLink
	count    int
}

// newFreeList returns a freeList for cells of at least size bytes, ceiled
// up to fit a link and aligned to the link's alignment.
func newFreeList(size uintptr) *freeList {
	const linkAlign = unsafe.Alignof(freeListLink{})
	nodeSize := size
	if nodeSize < unsafe.Sizeof(freeListLink{}) {
		nodeSize = unsafe.Sizeof(freeListLink{})
	}
	nodeSize = AlignUp(nodeSize, linkAlign)
	return &freeList{nodeSize: nodeSize}
}

// NodeSize is the fixed cell size this free list was constructed for.
func (f *freeList) NodeSize() uintptr { return f.nodeSize }

// Insert carves buf into floor(size/nodeSize) cells and prepends them to
// the list. It never allocates.
func (f *freeList) Insert(buf unsafe.Pointer, size uintptr) {
	n := size / f.nodeSize
	for i := uintptr(0); i < n; i++ {
		cell := (*freeListLink)(unsafe.Add(buf, i*f.nodeSize))
		cell.next = f.head
		f.head = cell
	}
	f.count += int(n)
}

// Allocate pops the head cell, or returns nil if the list is empty.
func (f *freeList) Allocate() unsafe.Pointer {
	if f.head == nil {
		return nil
	}
	cell := f.head
	f.head = cell.next
	f.count--
	return unsafe.Pointer(cell)
}

// Deallocate pushes a cell back onto the head. No size check at this layer.
func (f *freeList) Deallocate(p unsafe.Pointer) {
	cell := (*freeListLink)(p)
	cell.next = f.head
	f.head = cell
	f.count++
}

// AllocateArray looks for count contiguous cells among the currently free
// ones and, if found, removes and returns them as one pointer. It may
// return nil even when count*nodeSize bytes are free in aggregate but not
// contiguous; callers needing a guarantee should grow a dedicated slab
// instead.
func (f *freeList) AllocateArray(count int) unsafe.Pointer {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return f.Allocate()
	}

	addrs := make([]uintptr, 0, f.count)
	for l := f.head; l != nil; l = l.next {
		addrs = append(addrs, uintptr(unsafe.Pointer(l)))
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	need := uintptr(count)
	for i := 0; i+count <= len(addrs); i++ {
		ok := true
		for k := uintptr(1); k < need; k++ {
			if addrs[i+int(k)] != addrs[i]+k*f.nodeSize {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		set := make(map[uintptr]struct{}, count)
		for k := 0; k < count; k++ {
			set[addrs[i+k]] = struct{}{}
		}
		f.removeMatching(set)
		return unsafe.Pointer(addrs[i])
	}
	return nil
}

// DeallocateArray returns count contiguous cells starting at p to the list.
func (f *freeList) DeallocateArray(p unsafe.Pointer, count int) {
	f.Insert(p, uintptr(count)*f.nodeSize)
}

// removeMatching splices every cell whose address is in set out of the
// list in one O(n) pass.
func (f *freeList) removeMatching(set map[uintptr]struct{}) {
	var head *freeListLink
	var count int
	for l := f.head; l != nil; {
		next := l.next
		if _, found := set[uintptr(unsafe.Pointer(l))]; !found {
			l.next = head
			head = l
			count++
		}
		l = next
	}
	f.head = head
	f.count = count
}

// Capacity is the number of cells currently reachable from head.
func (f *freeList) Capacity() int { return f.count }

// Empty reports whether the list has no free cells.
func (f *freeList) Empty() bool { return f.head == nil }
