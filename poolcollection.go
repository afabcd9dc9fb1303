// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// PoolCollection is the multi-size-class pool allocator (component H): one
// Pool per bucket of a log2Policy, created lazily on first use of that
// bucket so collections covering a wide size range stay cheap until
// exercised.
type PoolCollection struct {
	raw              RawAllocator
	policy           *log2Policy
	alignment        uintptr
	initialBlockSize uintptr
	info             AllocatorInfo
	pools            []*Pool
}

// NewPoolCollection returns a PoolCollection able to serve requests up to
// and including maxSize bytes, each bucket drawing slabs of at least
// initialBlockSize bytes from raw.
func NewPoolCollection(raw RawAllocator, maxSize, alignment, initialBlockSize uintptr, info AllocatorInfo) *PoolCollection {
	policy := newLog2Policy(maxSize)
	return &PoolCollection{
		raw:              raw,
		policy:           policy,
		alignment:        alignment,
		initialBlockSize: initialBlockSize,
		info:             info,
		pools:            make([]*Pool, policy.maxIndex()+1),
	}
}

// poolFor resolves (lazily creating) the Pool serving size's bucket.
func (c *PoolCollection) poolFor(size uintptr) (*Pool, int, bool) {
	idx := c.policy.indexFromSize(size)
	if idx > c.policy.maxIndex() {
		return nil, idx, false
	}
	if c.pools[idx] == nil {
		nodeSize := c.policy.sizeFromIndex(idx)
		blockSize := c.initialBlockSize
		if min := BlockHeaderSize + AlignUp(nodeSize, MaxAlign); blockSize < min {
			blockSize = min
		}
		c.pools[idx] = NewPool(c.raw, PoolKindArray, nodeSize, c.alignment, blockSize, c.info)
	}
	return c.pools[idx], idx, true
}

// AllocateNode serves size from the bucket it rounds up to.
func (c *PoolCollection) AllocateNode(size uintptr) (unsafe.Pointer, error) {
	pool, _, ok := c.poolFor(size)
	if !ok {
		return nil, reportBadSize(c.info, size, c.MaxSize())
	}
	return pool.AllocateNode()
}

// DeallocateNode returns ptr, previously allocated for size, to its bucket.
func (c *PoolCollection) DeallocateNode(ptr unsafe.Pointer, size uintptr) {
	if ptr == nil {
		return
	}
	idx := c.policy.indexFromSize(size)
	if idx > c.policy.maxIndex() || c.pools[idx] == nil {
		reportInvalidPointer(c.info, ptr)
		return
	}
	c.pools[idx].DeallocateNode(ptr)
}

// Reserve pre-grows the bucket serving size so that at least count future
// allocations of that size succeed without touching the upstream
// allocator again.
func (c *PoolCollection) Reserve(size uintptr, count int) error {
	pool, _, ok := c.poolFor(size)
	if !ok {
		return reportBadSize(c.info, size, c.MaxSize())
	}
	for pool.free.Capacity() < count {
		if err := pool.grow(); err != nil {
			return err
		}
	}
	return nil
}

// MaxSize is the largest request this collection's policy can serve.
func (c *PoolCollection) MaxSize() uintptr { return c.policy.sizeFromIndex(c.policy.maxIndex()) }

// Close returns every slab held by every created bucket upstream.
func (c *PoolCollection) Close() {
	for _, p := range c.pools {
		if p != nil {
			p.Close()
		}
	}
}
