// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "testing"

func TestDirectStorageOwnsValue(t *testing.T) {
	s := NewDirectStorage(42)
	p := s.Get()
	*p = 7
	if *s.Get() != 7 {
		t.Fatalf("Get() = %d, want 7", *s.Get())
	}
}

func TestRefStorageSharesUnderlying(t *testing.T) {
	v := 1
	s := NewRefStorage(&v)
	*s.Get() = 9
	if v != 9 {
		t.Fatalf("v = %d, want 9 after writing through RefStorage", v)
	}
}

func TestLockedDefaultsToNoopMutex(t *testing.T) {
	l := NewLocked[int](NewDirectStorage(0))
	if _, ok := l.mu.(noopMutex); !ok {
		t.Fatalf("default Locked mutex = %T, want noopMutex", l.mu)
	}
	p := l.Lock()
	*p = 5
	l.Unlock()
	if *l.storage.Get() != 5 {
		t.Fatal("write through Locked.Lock() did not persist")
	}
}

func TestLockedWithMutexUsesRealLock(t *testing.T) {
	l := NewLocked[int](NewDirectStorage(0), WithMutex())
	if _, ok := l.mu.(noopMutex); ok {
		t.Fatal("Locked with WithMutex() still uses noopMutex")
	}
	p := l.Lock()
	*p = 3
	l.Unlock()
	if *l.storage.Get() != 3 {
		t.Fatal("write through Locked.Lock() with a real mutex did not persist")
	}
}

func TestErasedStorageInlineForSmallValue(t *testing.T) {
	e := NewErasedStorage(int64(123))
	if !e.inline() {
		t.Fatal("ErasedStorage of an int64 should use the inline SBO buffer")
	}
	if got := *ErasedStorageGet[int64](e); got != 123 {
		t.Fatalf("ErasedStorageGet() = %d, want 123", got)
	}
}

func TestErasedStorageHeapForLargeValue(t *testing.T) {
	type big struct {
		a, b, c, d, e uint64
	}
	v := big{1, 2, 3, 4, 5}
	e := NewErasedStorage(v)
	if e.inline() {
		t.Fatal("ErasedStorage of an oversized value should fall back to the heap")
	}
	got := *ErasedStorageGet[big](e)
	if got != v {
		t.Fatalf("ErasedStorageGet() = %+v, want %+v", got, v)
	}
}

// TestErasedStorageWrapsPool exercises ErasedStorage as a genuine vtable
// dispatch object over a real allocator, not just a typed value box.
// Pool's mutable state (blockList, free list) lives behind pointers the
// struct copy carries along, so the erased copy and the original handle
// observe the same underlying pool.
func TestErasedStorageWrapsPool(t *testing.T) {
	raw := NewHeapRawAllocator()
	p := NewPool(raw, PoolKindArray, 32, MaxAlign, 128, AllocatorInfo{Name: "test"})
	e := NewErasedStorage(*p)

	if !e.Capabilities().ArrayAware {
		t.Fatal("Capabilities().ArrayAware = false, want true for an erased Pool")
	}
	if !e.Capabilities().Composable {
		t.Fatal("Capabilities().Composable = false, want true for an erased Pool")
	}

	node, err := e.AllocateNode(32, MaxAlign)
	if err != nil {
		t.Fatal(err)
	}
	if node == nil {
		t.Fatal("AllocateNode via ErasedStorage returned nil")
	}
	e.DeallocateNode(node, 32, MaxAlign)

	arr, err := e.AllocateArray(2, 32, MaxAlign)
	if err != nil {
		t.Fatal(err)
	}
	e.DeallocateArray(arr, 2, 32, MaxAlign)

	if got, want := e.MaxNodeSize(), uintptr(32); got != want {
		t.Fatalf("MaxNodeSize() = %d, want %d", got, want)
	}

	if ErasedStorageGet[Pool](e).blocks != p.blocks {
		t.Fatal("ErasedStorageGet returned a copy disconnected from the original pool")
	}

	e.Close()
}

// TestErasedStorageWrapsStackAllocator exercises ErasedStorage over a
// VariableSizeAllocator shape rather than Pool's fixed-size one.
func TestErasedStorageWrapsStackAllocator(t *testing.T) {
	raw := NewHeapRawAllocator()
	s := NewStackAllocator(raw, 128, MaxAlign, AllocatorInfo{Name: "test"})
	e := NewErasedStorage(*s)

	if !e.Capabilities().Markable {
		t.Fatal("Capabilities().Markable = false, want true for an erased StackAllocator")
	}
	if e.Capabilities().ArrayAware {
		t.Fatal("Capabilities().ArrayAware = true, want false for an erased StackAllocator")
	}

	node, err := e.AllocateNode(16, MaxAlign)
	if err != nil {
		t.Fatal(err)
	}
	if node == nil {
		t.Fatal("AllocateNode via ErasedStorage returned nil")
	}

	arr, err := e.AllocateArray(4, 16, MaxAlign)
	if err != nil {
		t.Fatal(err)
	}
	if arr == nil {
		t.Fatal("AllocateArray fallback via ErasedStorage returned nil")
	}

	e.Close()
}

// TestErasedStorageScenarioS6 wraps a stateful and a stateless allocator in
// an ErasedStorage and verifies: both round-trip allocate/deallocate; the
// stateless allocator is detected as such; and wrapping it stores no
// additional pointer beyond the inline buffer (it never falls back to the
// heap box).
func TestErasedStorageScenarioS6(t *testing.T) {
	raw := NewHeapRawAllocator()
	p := NewPool(raw, PoolKindArray, 16, MaxAlign, 64, AllocatorInfo{Name: "test"})
	stateful := NewErasedStorage(*p)
	if !stateful.Capabilities().Stateful {
		t.Fatal("Capabilities().Stateful = false, want true for an erased Pool")
	}
	node, err := stateful.AllocateNode(16, MaxAlign)
	if err != nil {
		t.Fatal(err)
	}
	stateful.DeallocateNode(node, 16, MaxAlign)
	stateful.Close()

	var na NewAllocator
	stateless := NewErasedStorage(na)
	if stateless.Capabilities().Stateful {
		t.Fatal("Capabilities().Stateful = true, want false for an erased NewAllocator")
	}
	if !stateless.inline() {
		t.Fatal("erased NewAllocator should use the inline buffer: it is zero-sized and carries no state to box on the heap")
	}

	node, err = stateless.AllocateNode(8, MaxAlign)
	if err != nil {
		t.Fatal(err)
	}
	if node == nil {
		t.Fatal("AllocateNode via erased NewAllocator returned nil")
	}
	stateless.DeallocateNode(node, 8, MaxAlign)
}
