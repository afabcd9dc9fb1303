// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// Capabilities summarizes what an allocator's concrete type can do, the Go
// stand-in for the compile-time trait detection a C++ allocator_traits
// would perform via SFINAE. Go has no equivalent compile-time introspection
// over arbitrary method sets, so allocatorTraits computes this once, at
// construction, via interface type-assertions against the wrapped value.
type Capabilities struct {
	// Stateful is false only for allocators satisfying statelessAllocator
	// (NewAllocator is the only one this package ships): no
	// instance-specific state, so any instance may free any other
	// instance's allocation and fresh instances may be constructed on
	// demand. Every other allocator in this package reports true.
	Stateful bool
	// ArrayAware is true when the wrapped allocator exposes
	// AllocateArray/DeallocateArray alongside single-node allocation.
	ArrayAware bool
	// Composable is true when the wrapped allocator exposes Close,
	// meaning it owns upstream resources an enclosing allocator can hand
	// off to or reclaim from.
	Composable bool
	// Markable is true when the wrapped allocator supports Mark/UnwindTo,
	// i.e. bulk LIFO deallocation rather than per-node frees.
	Markable bool
}

// FixedSizeAllocator is the shape Pool exposes: every node has the same
// size and alignment, fixed at construction.
type FixedSizeAllocator interface {
	AllocateNode() (unsafe.Pointer, error)
	DeallocateNode(ptr unsafe.Pointer)
	MaxNodeSize() uintptr
	MaxAlignment() uintptr
}

// VariableSizeAllocator is the shape StackAllocator (and any RawAllocator)
// exposes: size and alignment are supplied per call.
type VariableSizeAllocator interface {
	AllocateNode(size, alignment uintptr) (unsafe.Pointer, error)
	DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr)
}

// arrayCapableFixed is satisfied by fixed-size allocators that can also
// serve contiguous arrays of nodes (Pool, PoolCollection through Pool).
type arrayCapableFixed interface {
	AllocateArray(count int) (unsafe.Pointer, error)
	DeallocateArray(ptr unsafe.Pointer, count int)
}

// composable is satisfied by anything owning upstream resources it can
// release in bulk.
type composable interface {
	Close()
}

// markable is satisfied by allocators supporting Mark/UnwindTo bulk
// deallocation (StackAllocator).
type markable interface {
	Mark() Marker
	UnwindTo(Marker)
}

// statelessAllocator marks allocators with no instance-specific state.
// NewAllocator is the only allocator in this package that implements it;
// allocatorTraits reports Capabilities.Stateful accordingly.
type statelessAllocator interface {
	stateless()
}

// nodeSizeBounded, arraySizeBounded and alignmentBounded are satisfied by
// any allocator shape (fixed or variable) that reports its own bounds
// directly, letting allocatorTraits forward max_node_size/max_array_size/
// max_alignment uniformly regardless of which of FixedSizeAllocator or
// VariableSizeAllocator the wrapped type otherwise matches.
type nodeSizeBounded interface {
	MaxNodeSize() uintptr
}

type arraySizeBounded interface {
	MaxArraySize() uintptr
}

type alignmentBounded interface {
	MaxAlignment() uintptr
}

// allocatorTraits wraps a concrete allocator type A and normalizes it to
// the uniform operation set (allocate_node, allocate_array,
// deallocate_node, deallocate_array, max_node_size, max_array_size,
// max_alignment, get_allocator) the original allocator_traits<Alloc>
// exposes regardless of whether A is a FixedSizeAllocator (fixed size and
// alignment, no per-call arguments) or a VariableSizeAllocator (size and
// alignment supplied per call). Callers that only know A implements one of
// those two shapes can still drive it uniformly, and probe for
// array-awareness, composability, or markability without a type switch at
// every call site.
type allocatorTraits[A any] struct {
	alloc *A
	caps  Capabilities

	fixed    FixedSizeAllocator
	variable VariableSizeAllocator
	array    arrayCapableFixed
	comp     composable
	mark     markable

	nodeSize  nodeSizeBounded
	arraySize arraySizeBounded
	alignment alignmentBounded
}

// NewAllocatorTraits probes alloc's capabilities once and returns a traits
// wrapper around it.
func NewAllocatorTraits[A any](alloc *A) *allocatorTraits[A] {
	t := &allocatorTraits[A]{alloc: alloc}

	var v any = alloc
	if f, ok := v.(FixedSizeAllocator); ok {
		t.fixed = f
	}
	if vs, ok := v.(VariableSizeAllocator); ok {
		t.variable = vs
	}
	if a, ok := v.(arrayCapableFixed); ok {
		t.array = a
		t.caps.ArrayAware = true
	}
	if c, ok := v.(composable); ok {
		t.comp = c
		t.caps.Composable = true
	}
	if m, ok := v.(markable); ok {
		t.mark = m
		t.caps.Markable = true
	}
	if n, ok := v.(nodeSizeBounded); ok {
		t.nodeSize = n
	}
	if a, ok := v.(arraySizeBounded); ok {
		t.arraySize = a
	}
	if al, ok := v.(alignmentBounded); ok {
		t.alignment = al
	}
	_, stateless := v.(statelessAllocator)
	t.caps.Stateful = !stateless

	return t
}

// Capabilities reports what the wrapped allocator supports.
func (t *allocatorTraits[A]) Capabilities() Capabilities { return t.caps }

// Unwrap returns the wrapped allocator itself for direct use.
func (t *allocatorTraits[A]) Unwrap() *A { return t.alloc }

// GetAllocator is the uniform operation set's get_allocator: an alias for
// Unwrap under the name the spec uses.
func (t *allocatorTraits[A]) GetAllocator() *A { return t.alloc }

// AllocateNode dispatches to whichever shape A satisfies: a
// FixedSizeAllocator ignores size/alignment (both are fixed at
// construction); a VariableSizeAllocator receives them directly.
func (t *allocatorTraits[A]) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	if t.fixed != nil {
		return t.fixed.AllocateNode()
	}
	if t.variable != nil {
		return t.variable.AllocateNode(size, alignment)
	}
	return nil, reportBadSize(AllocatorInfo{Name: "memkit.allocatorTraits"}, size, alignment)
}

// DeallocateNode dispatches symmetrically with AllocateNode.
func (t *allocatorTraits[A]) DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr) {
	if t.fixed != nil {
		t.fixed.DeallocateNode(ptr)
		return
	}
	if t.variable != nil {
		t.variable.DeallocateNode(ptr, size, alignment)
	}
}

// AllocateArray serves count contiguous nodes. When A implements
// arrayCapableFixed it delegates directly; otherwise it falls back to the
// original design's default composition, allocate_array(count, size,
// alignment) = allocate_node(count*size, alignment), which is exactly what
// component J exists to provide for allocators that only know how to
// allocate a single node.
func (t *allocatorTraits[A]) AllocateArray(count int, size, alignment uintptr) (unsafe.Pointer, error) {
	if t.array != nil {
		return t.array.AllocateArray(count)
	}
	return t.AllocateNode(uintptr(count)*size, alignment)
}

// DeallocateArray mirrors AllocateArray's dispatch.
func (t *allocatorTraits[A]) DeallocateArray(ptr unsafe.Pointer, count int, size, alignment uintptr) {
	if t.array != nil {
		t.array.DeallocateArray(ptr, count)
		return
	}
	t.DeallocateNode(ptr, uintptr(count)*size, alignment)
}

// MaxNodeSize reports the wrapped allocator's own bound when it exposes
// one, else a maximal fallback (every request is "in bounds" as far as
// traits can tell without trying it).
func (t *allocatorTraits[A]) MaxNodeSize() uintptr {
	if t.nodeSize != nil {
		return t.nodeSize.MaxNodeSize()
	}
	return ^uintptr(0) / 2
}

// MaxArraySize reports the wrapped allocator's own array bound when it
// exposes one, else falls back to MaxNodeSize — the default composition's
// array bound equals the node bound, matching the allocate_array fallback
// above.
func (t *allocatorTraits[A]) MaxArraySize() uintptr {
	if t.arraySize != nil {
		return t.arraySize.MaxArraySize()
	}
	return t.MaxNodeSize()
}

// MaxAlignment reports the wrapped allocator's own bound when it exposes
// one, else the platform's default maximum.
func (t *allocatorTraits[A]) MaxAlignment() uintptr {
	if t.alignment != nil {
		return t.alignment.MaxAlignment()
	}
	return MaxAlign
}

// Close delegates to the wrapped allocator's composable interface; a no-op
// if the allocator owns no releasable upstream resources.
func (t *allocatorTraits[A]) Close() {
	if t.comp == nil {
		return
	}
	t.comp.Close()
}

// Mark delegates to the wrapped allocator's markable interface, returning
// the zero Marker if it is not markable.
func (t *allocatorTraits[A]) Mark() Marker {
	if t.mark == nil {
		return Marker{}
	}
	return t.mark.Mark()
}

// UnwindTo delegates to the wrapped allocator's markable interface; a
// no-op if the allocator is not markable.
func (t *allocatorTraits[A]) UnwindTo(m Marker) {
	if t.mark == nil {
		return
	}
	t.mark.UnwindTo(m)
}
