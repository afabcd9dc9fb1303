// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// PoolKind selects which free-list variant backs a Pool's cells.
type PoolKind int

const (
	// PoolKindArray uses the pointer-chained free list (component B),
	// supporting AllocateArray/DeallocateArray alongside single-node
	// allocation.
	PoolKindArray PoolKind = iota
	// PoolKindCompact uses the byte-offset-chained small free list
	// (component C) for node sizes in [1, 255], trading array support
	// for a smaller per-cell overhead. On a PoolKindCompact pool
	// AllocateArray reports BadSizeError and DeallocateArray is a no-op.
	PoolKindCompact
)

// poolFreeList is the shape both freeList and smallFreeList satisfy, let
// Pool stay agnostic to which backs it.
type poolFreeList interface {
	NodeSize() uintptr
	Insert(unsafe.Pointer, uintptr)
	Allocate() unsafe.Pointer
	Deallocate(unsafe.Pointer)
	Capacity() int
	Empty() bool
}

// Pool is the single-size-class pool allocator (component G): a free list
// of fixed-size cells backed by a blockList that grows whole slabs and
// carves them into fresh cells on demand.
type Pool struct {
	kind      PoolKind
	nodeSize  uintptr
	alignment uintptr
	free      poolFreeList
	arrayFree *freeList // non-nil iff kind == PoolKindArray; same value as free
	blocks    *blockList
	info      AllocatorInfo
}

// NewPool returns a Pool of the given kind serving cells of exactly
// nodeSize bytes aligned to alignment, drawing slabs of at least
// initialBlockSize bytes from raw.
func NewPool(raw RawAllocator, kind PoolKind, nodeSize, alignment, initialBlockSize uintptr, info AllocatorInfo) *Pool {
	if alignment < MaxAlign {
		alignment = MaxAlign
	}
	p := &Pool{
		kind:      kind,
		nodeSize:  nodeSize,
		alignment: alignment,
		blocks:    newBlockList(raw, initialBlockSize, alignment, info),
		info:      info,
	}
	switch kind {
	case PoolKindCompact:
		p.free = newSmallFreeList(nodeSize)
	default:
		fl := newFreeList(nodeSize)
		p.free = fl
		p.arrayFree = fl
	}
	return p
}

// grow acquires one more slab and carves it into cells for the free list.
func (p *Pool) grow() error {
	blk, err := p.blocks.Allocate()
	if err != nil {
		return err
	}
	p.free.Insert(blk.begin, blk.size)
	return nil
}

// AllocateNode returns one free cell, growing the pool by one slab first
// if none is available.
func (p *Pool) AllocateNode() (unsafe.Pointer, error) {
	if cell := p.free.Allocate(); cell != nil {
		return cell, nil
	}
	if err := p.grow(); err != nil {
		return nil, err
	}
	cell := p.free.Allocate()
	if cell == nil {
		return nil, reportOutOfMemory(p.info, p.nodeSize, p.alignment)
	}
	return cell, nil
}

// DeallocateNode returns a cell previously handed out by AllocateNode.
func (p *Pool) DeallocateNode(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	p.free.Deallocate(ptr)
}

// AllocateArray attempts to satisfy count contiguous cells from the
// current free list, growing the pool at most once if the first attempt
// fails. Only supported on a PoolKindArray pool; a PoolKindCompact pool
// reports BadSizeError, exactly as the array-awareness split specifies.
func (p *Pool) AllocateArray(count int) (unsafe.Pointer, error) {
	if p.arrayFree == nil {
		return nil, reportBadSize(p.info, uintptr(count)*p.nodeSize, p.nodeSize)
	}
	if arr := p.arrayFree.AllocateArray(count); arr != nil {
		return arr, nil
	}
	if err := p.grow(); err != nil {
		return nil, err
	}
	return p.arrayFree.AllocateArray(count), nil
}

// DeallocateArray returns count contiguous cells starting at ptr. A no-op
// on a PoolKindCompact pool.
func (p *Pool) DeallocateArray(ptr unsafe.Pointer, count int) {
	if ptr == nil || p.arrayFree == nil {
		return
	}
	p.arrayFree.DeallocateArray(ptr, count)
}

// MaxNodeSize is the fixed cell size this pool was constructed for.
func (p *Pool) MaxNodeSize() uintptr { return p.nodeSize }

// MaxAlignment is the alignment every cell this pool hands out satisfies.
func (p *Pool) MaxAlignment() uintptr { return p.alignment }

// Kind reports which free-list variant backs this pool.
func (p *Pool) Kind() PoolKind { return p.kind }

// Empty reports whether the pool currently has no free cell on hand
// (it may still be able to grow).
func (p *Pool) Empty() bool { return p.free.Empty() }

// Close returns every slab this pool has acquired upstream.
func (p *Pool) Close() { p.blocks.Close() }
