// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"runtime"
	"unsafe"
)

// RawAllocator is the upstream collaborator every block list draws large
// slabs from. It is deliberately minimal and out of this package's scope
// to get right in general (NUMA policy, huge pages, ...) — implementations
// are external collaborators; HeapRawAllocator and OSRawAllocator are the
// two this package ships so the rest of the library is actually usable.
type RawAllocator interface {
	// AllocateNode returns size bytes aligned to alignment, or an error.
	AllocateNode(size, alignment uintptr) (unsafe.Pointer, error)
	// DeallocateNode releases memory previously returned by
	// AllocateNode with the same size and alignment. Never fails.
	DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr)
	// MaxNodeSize is an upper bound on requests; larger requests may
	// still fail.
	MaxNodeSize() uintptr
}

// HeapRawAllocator is a RawAllocator backed by Go's own garbage-collected
// heap. It is the default upstream collaborator: portable, requires no
// build tag, and sufficient for every testable property in this package
// since the GC never moves or frees memory referenced live.
//
// Because the returned unsafe.Pointer is not itself tracked as a Go
// reference once it is embedded only inside a *block header written as raw
// bytes, HeapRawAllocator keeps the backing slice reachable in its pinned
// map until DeallocateNode.
type HeapRawAllocator struct {
	pinned map[unsafe.Pointer][]byte
}

// NewHeapRawAllocator returns a ready-to-use HeapRawAllocator.
func NewHeapRawAllocator() *HeapRawAllocator {
	return &HeapRawAllocator{pinned: make(map[unsafe.Pointer][]byte)}
}

func (h *HeapRawAllocator) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, nil
	}
	// Over-allocate so an aligned pointer within the slice can always be
	// found, matching the contract that the returned pointer satisfies
	// alignment even though make([]byte, n) only guarantees word alignment.
	buf := make([]byte, size+alignment)
	base := unsafe.Pointer(&buf[0])
	aligned := alignUpPtr(base, alignment)
	h.pinned[aligned] = buf
	runtime.KeepAlive(buf)
	return aligned, nil
}

func (h *HeapRawAllocator) DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr) {
	if ptr == nil {
		return
	}
	delete(h.pinned, ptr)
}

func (h *HeapRawAllocator) MaxNodeSize() uintptr {
	return ^uintptr(0) / 2
}
