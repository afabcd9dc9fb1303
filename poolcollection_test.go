// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "testing"

func TestPoolCollectionServesMultipleSizeClasses(t *testing.T) {
	raw := NewHeapRawAllocator()
	c := NewPoolCollection(raw, 4096, MaxAlign, 256, AllocatorInfo{Name: "test"})

	sizes := []uintptr{8, 24, 100, 4096}
	var cells []struct {
		ptr  uintptr
		size uintptr
	}
	for _, sz := range sizes {
		p, err := c.AllocateNode(sz)
		if err != nil {
			t.Fatalf("AllocateNode(%d): %v", sz, err)
		}
		cells = append(cells, struct {
			ptr  uintptr
			size uintptr
		}{uintptr(p), sz})
	}
	for _, cell := range cells {
		c.DeallocateNode(unsafeFromUintptr(cell.ptr), cell.size)
	}
}

func TestPoolCollectionRejectsOversizeRequest(t *testing.T) {
	raw := NewHeapRawAllocator()
	c := NewPoolCollection(raw, 64, MaxAlign, 128, AllocatorInfo{Name: "test"})
	if _, err := c.AllocateNode(65); err == nil {
		t.Fatal("AllocateNode(65) should fail when MaxSize() is 64")
	}
}

func TestPoolCollectionReserve(t *testing.T) {
	raw := NewHeapRawAllocator()
	c := NewPoolCollection(raw, 256, MaxAlign, 64, AllocatorInfo{Name: "test"})
	if err := c.Reserve(16, 50); err != nil {
		t.Fatal(err)
	}
	pool, _, ok := c.poolFor(16)
	if !ok {
		t.Fatal("poolFor(16) reported no bucket")
	}
	if pool.free.Capacity() < 50 {
		t.Fatalf("Capacity() after Reserve(16, 50) = %d, want >= 50", pool.free.Capacity())
	}
}

func TestPoolCollectionMaxSize(t *testing.T) {
	c := NewPoolCollection(NewHeapRawAllocator(), 100, MaxAlign, 64, AllocatorInfo{Name: "test"})
	if c.MaxSize() < 100 {
		t.Fatalf("MaxSize() = %d, want >= 100", c.MaxSize())
	}
}
