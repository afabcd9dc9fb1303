// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"runtime"
	"sync"
	"unsafe"
)

// newAllocatorPins keeps every live NewAllocator allocation reachable for
// the garbage collector. NewAllocator itself must stay zero-sized to be
// genuinely stateless, so the pin set cannot live on the value the way
// HeapRawAllocator's per-instance map does; it lives at package scope
// instead, shared by every NewAllocator value there ever is.
var newAllocatorPins sync.Map // map[unsafe.Pointer][]byte

// NewAllocator is the stateless allocator: a zero-sized type delegating
// every request straight to Go's garbage-collected heap, the same way
// HeapRawAllocator does, but carrying no per-instance state at all. Any
// NewAllocator value may deallocate memory an entirely different
// NewAllocator value allocated — there is nothing distinguishing one
// instance from another — and fresh instances are free to construct on
// demand anywhere. It satisfies both RawAllocator and
// VariableSizeAllocator.
type NewAllocator struct{}

// stateless marks NewAllocator for allocatorTraits' Capabilities.Stateful
// detection.
func (NewAllocator) stateless() {}

// AllocateNode returns size bytes aligned to alignment from the Go heap.
func (NewAllocator) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size+alignment)
	base := unsafe.Pointer(&buf[0])
	aligned := alignUpPtr(base, alignment)
	newAllocatorPins.Store(aligned, buf)
	runtime.KeepAlive(buf)
	return aligned, nil
}

// DeallocateNode releases memory previously returned by AllocateNode, from
// any NewAllocator value.
func (NewAllocator) DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr) {
	if ptr == nil {
		return
	}
	newAllocatorPins.Delete(ptr)
}

// MaxNodeSize is an upper bound on requests; larger requests may still
// fail once the Go heap itself refuses them.
func (NewAllocator) MaxNodeSize() uintptr { return ^uintptr(0) / 2 }

// MaxAlignment is the strictest alignment NewAllocator guarantees without
// being asked for a stronger one.
func (NewAllocator) MaxAlignment() uintptr { return MaxAlign }

var _ RawAllocator = NewAllocator{}
var _ VariableSizeAllocator = NewAllocator{}
