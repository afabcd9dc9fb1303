// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "github.com/cznic/mathutil"

// ilog2 returns ceil(log2(n)) for n >= 1: a power of two n rounds to
// exactly log2(n), anything else rounds up.
func ilog2(n uintptr) uint {
	return uint(mathutil.BitLen(int(n - 1)))
}

// bucketPolicy maps a size request to a bucket index and back, per
// component F's size-class policy.
type bucketPolicy interface {
	indexFromSize(size uintptr) int
	sizeFromIndex(i int) uintptr
	maxIndex() int
}

// log2Policy buckets by power-of-two size class: index_from_size(size) =
// ceil(log2(size)), size_from_index(i) = 1<<i.
type log2Policy struct {
	maxIdx int
}

// newLog2Policy returns a policy whose largest bucket can serve exactly
// maxSize bytes.
func newLog2Policy(maxSize uintptr) *log2Policy {
	return &log2Policy{maxIdx: int(ilog2(maxSize))}
}

func (p *log2Policy) indexFromSize(size uintptr) int { return int(ilog2(size)) }
func (p *log2Policy) sizeFromIndex(i int) uintptr    { return uintptr(1) << uint(i) }
func (p *log2Policy) maxIndex() int                  { return p.maxIdx }

// bucketArray is the size-bucketed free-list array (component F): a fixed
// vector of free lists, one per size class defined by a bucketPolicy.
type bucketArray struct {
	policy  bucketPolicy
	buckets []*freeList
}

// newBucketArray builds every bucket eagerly; buckets start empty and are
// filled only by whoever calls Insert on them. No allocator in this
// package holds a bucketArray (PoolCollection keeps one Pool per bucket).
func newBucketArray(policy bucketPolicy) *bucketArray {
	n := policy.maxIndex() + 1
	b := &bucketArray{policy: policy, buckets: make([]*freeList, n)}
	for i := range b.buckets {
		b.buckets[i] = newFreeList(policy.sizeFromIndex(i))
	}
	return b
}

// indexFromSize resolves the bucket for a size request, or reports that
// size exceeds the largest bucket.
func (b *bucketArray) indexFromSize(size uintptr) (int, bool) {
	idx := b.policy.indexFromSize(size)
	if idx > b.policy.maxIndex() {
		return 0, false
	}
	return idx, true
}

// Bucket returns the free list serving bucket i.
func (b *bucketArray) Bucket(i int) *freeList { return b.buckets[i] }

// MaxIndex is the largest valid bucket index.
func (b *bucketArray) MaxIndex() int { return b.policy.maxIndex() }

// SizeFromIndex is the node size bucket i is configured for.
func (b *bucketArray) SizeFromIndex(i int) uintptr { return b.policy.sizeFromIndex(i) }

// MaxSize is the largest request this array's policy can serve.
func (b *bucketArray) MaxSize() uintptr { return b.policy.sizeFromIndex(b.policy.maxIndex()) }
