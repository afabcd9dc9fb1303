// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"testing"
	"unsafe"
)

func TestFreeListInsertAllocateRoundTrip(t *testing.T) {
	const nodeSize = 16
	buf := make([]byte, nodeSize*8)
	fl := newFreeList(nodeSize)
	fl.Insert(unsafe.Pointer(&buf[0]), uintptr(len(buf)))

	if got := fl.Capacity(); got != 8 {
		t.Fatalf("Capacity() = %d, want 8", got)
	}

	seen := make(map[unsafe.Pointer]bool)
	for i := 0; i < 8; i++ {
		p := fl.Allocate()
		if p == nil {
			t.Fatalf("Allocate() returned nil on iteration %d", i)
		}
		if seen[p] {
			t.Fatalf("Allocate() returned duplicate pointer %p", p)
		}
		seen[p] = true
	}
	if !fl.Empty() {
		t.Fatal("Empty() = false after draining every cell")
	}
	if p := fl.Allocate(); p != nil {
		t.Fatalf("Allocate() on empty list = %p, want nil", p)
	}
}

func TestFreeListDeallocateReusesCell(t *testing.T) {
	const nodeSize = 32
	buf := make([]byte, nodeSize*4)
	fl := newFreeList(nodeSize)
	fl.Insert(unsafe.Pointer(&buf[0]), uintptr(len(buf)))

	p1 := fl.Allocate()
	fl.Deallocate(p1)
	p2 := fl.Allocate()
	if p2 != p1 {
		t.Fatalf("Deallocate then Allocate returned %p, want reused %p", p2, p1)
	}
}

func TestFreeListAllocateArrayContiguous(t *testing.T) {
	const nodeSize = unsafe.Sizeof(freeListLink{})
	buf := make([]byte, nodeSize*16)
	fl := newFreeList(nodeSize)
	fl.Insert(unsafe.Pointer(&buf[0]), uintptr(len(buf)))

	arr := fl.AllocateArray(5)
	if arr == nil {
		t.Fatal("AllocateArray(5) = nil, want a contiguous run")
	}
	if got := fl.Capacity(); got != 11 {
		t.Fatalf("Capacity() after AllocateArray(5) = %d, want 11", got)
	}

	fl.DeallocateArray(arr, 5)
	if got := fl.Capacity(); got != 16 {
		t.Fatalf("Capacity() after DeallocateArray(5) = %d, want 16", got)
	}
}

func TestFreeListAllocateArrayOfOneEqualsAllocate(t *testing.T) {
	const nodeSize = unsafe.Sizeof(freeListLink{})
	buf := make([]byte, nodeSize*2)
	fl := newFreeList(nodeSize)
	fl.Insert(unsafe.Pointer(&buf[0]), uintptr(len(buf)))

	if got := fl.AllocateArray(1); got == nil {
		t.Fatal("AllocateArray(1) = nil")
	}
	if got := fl.Capacity(); got != 1 {
		t.Fatalf("Capacity() = %d, want 1", got)
	}
}

func TestFreeListNodeSizeAtLeastLinkSize(t *testing.T) {
	fl := newFreeList(1)
	if fl.NodeSize() < unsafe.Sizeof(freeListLink{}) {
		t.Fatalf("NodeSize() = %d, smaller than link size %d", fl.NodeSize(), unsafe.Sizeof(freeListLink{}))
	}
}
