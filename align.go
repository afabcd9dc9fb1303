// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// MaxAlign is the strictest fundamental alignment this package guarantees
// for allocations that do not request a stronger one. Go has no
// alignof(max_align_t); unsafe.Alignof of a type containing the widest
// scalars this package cares about stands in for it.
const MaxAlign = unsafe.Alignof(struct {
	_ complex128
	_ uint64
	_ unsafe.Pointer
}{})

// IsPowerOfTwo reports whether n is a power of two. Zero is not a power of
// two.
func IsPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp returns the least y >= x with y mod align == 0. align must be a
// power of two.
func AlignUp(x, align uintptr) uintptr {
	return (x + align - 1) &^ (align - 1)
}

// IsAligned reports whether p is aligned to align, which must be a power of
// two.
func IsAligned(p unsafe.Pointer, align uintptr) bool {
	return uintptr(p)&(align-1) == 0
}

// alignUpPtr is AlignUp specialized to addresses, used by the memory stack
// when carving aligned regions out of a slab and by the heap-backed
// allocators when aligning an over-allocated buffer.
func alignUpPtr(p unsafe.Pointer, align uintptr) unsafe.Pointer {
	return unsafe.Pointer(AlignUp(uintptr(p), align))
}
