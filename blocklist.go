// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// growthFactor is the fixed geometric growth rate for fresh slabs:
// cur_block_size *= growth_factor after every upstream allocation.
const growthFactor = 2

// blockHeader is written at the fixed-offset prefix of every slab a
// blockList owns, threading the used/free-cache LIFO stacks through the
// slabs themselves rather than through a separate index structure.
type blockHeader struct {
	prev *blockHeader
	size uintptr // usable size, excluding this header
}

// BlockHeaderSize is the exact number of bytes blockList reserves at the
// front of every slab for bookkeeping. Upper layers subtract it from a
// slab's raw size to get the usable size.
var BlockHeaderSize = AlignUp(unsafe.Sizeof(blockHeader{}), MaxAlign)

// block is the usable region of a slab, once acquired from a blockList.
type block struct {
	begin unsafe.Pointer
	size  uintptr
}

func usableBegin(h *blockHeader) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), BlockHeaderSize)
}

// debugFillHook, when non-nil, is called whenever a block returns to the
// free-cache, so a caller can paint it with a "freed" pattern for
// use-after-free detection. Nil by default; this is a hook point only.
var debugFillHook func(begin unsafe.Pointer, size uintptr)

// blockList is a pair of LIFO stacks of slabs ("used" and "free-cache")
// drawn from a RawAllocator in geometrically-growing sizes, and recycled
// on the way back down. It exclusively owns every slab it has acquired.
type blockList struct {
	raw          RawAllocator
	info         AllocatorInfo
	alignment    uintptr
	curBlockSize uintptr

	used      *blockHeader
	usedCount int

	freeCache  *blockHeader
	freeCount  int
}

// newBlockList constructs a blockList that will request initialBlockSize
// bytes (including the header) on first growth, doubling thereafter.
func newBlockList(raw RawAllocator, initialBlockSize, alignment uintptr, info AllocatorInfo) *blockList {
	if alignment < MaxAlign {
		alignment = MaxAlign
	}
	return &blockList{
		raw:          raw,
		info:         info,
		alignment:    alignment,
		curBlockSize: initialBlockSize,
	}
}

// Allocate returns a new block: the top of the free-cache if non-empty,
// otherwise a freshly grown slab from the upstream RawAllocator.
func (b *blockList) Allocate() (block, error) {
	if b.freeCache != nil {
		h := b.freeCache
		b.freeCache = h.prev
		b.freeCount--
		h.prev = b.used
		b.used = h
		b.usedCount++
		return block{begin: usableBegin(h), size: h.size}, nil
	}

	total := b.curBlockSize
	raw, err := b.raw.AllocateNode(total, b.alignment)
	if err != nil || raw == nil {
		return block{}, reportOutOfMemory(b.info, total, b.alignment)
	}

	h := (*blockHeader)(raw)
	h.size = total - BlockHeaderSize
	h.prev = b.used
	b.used = h
	b.usedCount++
	b.curBlockSize *= growthFactor

	return block{begin: usableBegin(h), size: h.size}, nil
}

// Deallocate moves the top of the used stack back to the free-cache. It
// never calls upstream.
func (b *blockList) Deallocate() {
	if b.used == nil {
		return
	}
	h := b.used
	b.used = h.prev
	b.usedCount--

	if debugFillHook != nil {
		debugFillHook(usableBegin(h), h.size)
	}

	h.prev = b.freeCache
	b.freeCache = h
	b.freeCount++
}

// ShrinkToFit returns every free-cache block to the upstream allocator.
func (b *blockList) ShrinkToFit() {
	for b.freeCache != nil {
		h := b.freeCache
		b.freeCache = h.prev
		b.freeCount--
		b.raw.DeallocateNode(unsafe.Pointer(h), h.size+BlockHeaderSize, b.alignment)
	}
}

// Close shrinks the free-cache and returns every remaining used block
// upstream. After Close, the blockList is empty and may be reused.
func (b *blockList) Close() {
	b.ShrinkToFit()
	for b.used != nil {
		h := b.used
		b.used = h.prev
		b.raw.DeallocateNode(unsafe.Pointer(h), h.size+BlockHeaderSize, b.alignment)
	}
	b.usedCount = 0
}

// Top returns the current top-of-used block without popping it.
func (b *blockList) Top() block {
	if b.used == nil {
		return block{}
	}
	return block{begin: usableBegin(b.used), size: b.used.size}
}

// Size is the number of live (used) blocks.
func (b *blockList) Size() int { return b.usedCount }

// NextBlockSize previews the size the next upstream allocation will
// request, including the header.
func (b *blockList) NextBlockSize() uintptr { return b.curBlockSize }

// moveFrom transfers ownership of src's slabs to b and empties src, the
// Go stand-in for the original's destructive move constructor.
func (b *blockList) moveFrom(src *blockList) {
	*b = *src
	*src = blockList{raw: src.raw, info: src.info, alignment: src.alignment, curBlockSize: src.curBlockSize}
}
