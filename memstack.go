// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// Marker captures a memStack's cursor position so Unwind can later pop
// every allocation made since. It is a value type safe to copy and store.
type Marker struct {
	blocksUsed int
	topOffset  uintptr
}

// memStack is the bump allocator (component E): a blockList supplying
// geometrically-growing slabs, and a bump cursor (top) walking forward
// through the current slab's usable region. Individual deallocation is
// not supported; only whole-stack rewinds via Marker/Unwind.
type memStack struct {
	blocks *blockList
	info   AllocatorInfo

	curBegin unsafe.Pointer
	curSize  uintptr
	top      unsafe.Pointer
}

// newMemStack constructs a memStack drawing slabs of at least
// initialBlockSize bytes from raw.
func newMemStack(raw RawAllocator, initialBlockSize, alignment uintptr, info AllocatorInfo) *memStack {
	return &memStack{
		blocks: newBlockList(raw, initialBlockSize, alignment, info),
		info:   info,
	}
}

// Allocate bumps top forward by size, rounded up to alignment, growing a
// fresh slab from the underlying blockList when the current one cannot
// satisfy the request. Apart from an upstream allocation failure, it fails
// only if a single request exceeds the size the blockList's next slab
// would hold.
func (s *memStack) Allocate(size, alignment uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, nil
	}

	if s.curBegin != nil {
		aligned := alignUpPtr(s.top, alignment)
		used := uintptr(aligned) - uintptr(s.curBegin)
		if used+size <= s.curSize {
			s.top = unsafe.Add(aligned, size)
			return aligned, nil
		}
	}

	next := s.blocks.NextBlockSize()
	var limit uintptr
	if next > BlockHeaderSize {
		limit = next - BlockHeaderSize
	}
	if size > limit {
		return nil, reportBadSize(s.info, size, limit)
	}

	// A block recycled from the free-cache may be smaller than the next
	// fresh slab; skip blocks until one fits. Fresh slabs keep doubling,
	// so this ends.
	for {
		blk, err := s.blocks.Allocate()
		if err != nil {
			return nil, err
		}
		s.curBegin, s.curSize, s.top = blk.begin, blk.size, blk.begin
		aligned := alignUpPtr(s.curBegin, alignment)
		if uintptr(aligned)-uintptr(s.curBegin)+size <= s.curSize {
			s.top = unsafe.Add(aligned, size)
			return aligned, nil
		}
	}
}

// Mark snapshots the current cursor position for a later Unwind.
func (s *memStack) Mark() Marker {
	if s.curBegin == nil {
		return Marker{blocksUsed: s.blocks.Size(), topOffset: 0}
	}
	return Marker{
		blocksUsed: s.blocks.Size(),
		topOffset:  uintptr(s.top) - uintptr(s.curBegin),
	}
}

// Unwind deallocates every slab acquired after m was taken and restores
// the cursor to the position m recorded.
func (s *memStack) Unwind(m Marker) {
	for s.blocks.Size() > m.blocksUsed {
		s.blocks.Deallocate()
	}

	blk := s.blocks.Top()
	s.curBegin = blk.begin
	s.curSize = blk.size
	if s.curBegin != nil {
		s.top = unsafe.Add(s.curBegin, m.topOffset)
	} else {
		s.top = nil
	}
}

// Size is the number of slabs currently held (used, not free-cached).
func (s *memStack) Size() int { return s.blocks.Size() }

// Close returns every slab, used and free-cached, upstream.
func (s *memStack) Close() {
	s.blocks.Close()
	s.curBegin, s.curSize, s.top = nil, 0, nil
}
