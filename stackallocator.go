// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// StackAllocator is component I: a memStack exposed through the ordinary
// allocate/deallocate shape, where DeallocateNode is a deliberate no-op —
// individual frees are not supported, only bulk rewinds via UnwindTo.
type StackAllocator struct {
	stack *memStack
}

// NewStackAllocator returns a StackAllocator drawing slabs of at least
// initialBlockSize bytes from raw.
func NewStackAllocator(raw RawAllocator, initialBlockSize, alignment uintptr, info AllocatorInfo) *StackAllocator {
	return &StackAllocator{stack: newMemStack(raw, initialBlockSize, alignment, info)}
}

// AllocateNode bumps the stack cursor forward by size.
func (s *StackAllocator) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	return s.stack.Allocate(size, alignment)
}

// DeallocateNode is a no-op: StackAllocator only releases memory in bulk,
// through UnwindTo.
func (s *StackAllocator) DeallocateNode(unsafe.Pointer, uintptr, uintptr) {}

// Mark captures the current top of stack.
func (s *StackAllocator) Mark() Marker { return s.stack.Mark() }

// UnwindTo releases every allocation made since m was captured.
func (s *StackAllocator) UnwindTo(m Marker) { s.stack.Unwind(m) }

// Close returns every slab this allocator has acquired upstream.
func (s *StackAllocator) Close() { s.stack.Close() }

// MaxNodeSize is the largest single allocation the stack accepts: the
// usable size of the next fresh slab it would grow. Requests up to this
// size succeed regardless of how much of the current slab is used.
func (s *StackAllocator) MaxNodeSize() uintptr {
	next := s.stack.blocks.NextBlockSize()
	if next < BlockHeaderSize {
		return 0
	}
	return next - BlockHeaderSize
}

// MaxAlignment is the alignment of every slab this stack draws. Each
// allocation is aligned to the alignment passed with that request.
func (s *StackAllocator) MaxAlignment() uintptr { return s.stack.blocks.alignment }
