// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "testing"

func TestStackAllocatorUnwindReleasesMemory(t *testing.T) {
	raw := NewHeapRawAllocator()
	s := NewStackAllocator(raw, 128, MaxAlign, AllocatorInfo{Name: "test"})

	m := s.Mark()
	for i := 0; i < 10; i++ {
		if _, err := s.AllocateNode(16, MaxAlign); err != nil {
			t.Fatalf("AllocateNode() #%d: %v", i, err)
		}
	}
	s.UnwindTo(m)
	if s.stack.Size() != 0 {
		t.Fatalf("Size() after UnwindTo(initial marker) = %d, want 0", s.stack.Size())
	}

	// The stack must be reusable after a full unwind.
	if _, err := s.AllocateNode(16, MaxAlign); err != nil {
		t.Fatalf("AllocateNode() after UnwindTo(): %v", err)
	}
}

func TestStackAllocatorDeallocateNodeIsNoOp(t *testing.T) {
	raw := NewHeapRawAllocator()
	s := NewStackAllocator(raw, 128, MaxAlign, AllocatorInfo{Name: "test"})

	p, err := s.AllocateNode(16, MaxAlign)
	if err != nil {
		t.Fatal(err)
	}
	before := s.stack.Size()
	s.DeallocateNode(p, 16, MaxAlign)
	if s.stack.Size() != before {
		t.Fatalf("Size() changed after DeallocateNode(), which must be a no-op")
	}
}

func TestStackAllocatorNestedMarkers(t *testing.T) {
	raw := NewHeapRawAllocator()
	s := NewStackAllocator(raw, 64, MaxAlign, AllocatorInfo{Name: "test"})

	outer := s.Mark()
	if _, err := s.AllocateNode(8, MaxAlign); err != nil {
		t.Fatal(err)
	}
	inner := s.Mark()
	for i := 0; i < 5; i++ {
		if _, err := s.AllocateNode(8, MaxAlign); err != nil {
			t.Fatal(err)
		}
	}
	s.UnwindTo(inner)
	innerSize := s.stack.Size()
	s.UnwindTo(outer)
	if s.stack.Size() > innerSize {
		t.Fatalf("Size() after UnwindTo(outer) = %d, want <= %d", s.stack.Size(), innerSize)
	}
}
