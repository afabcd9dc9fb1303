// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"sync"
	"unsafe"
)

// Storage is component K's polymorphism point: something that owns, or
// refers to, a value of type A.
type Storage[A any] interface {
	Get() *A
}

// UniformAllocator is the operation set every Storage implementation (and
// ErasedStorage) exposes once constructed: allocate_node, allocate_array,
// deallocate_node, deallocate_array, max_node_size, max_array_size and
// max_alignment, normalized via allocatorTraits regardless of whether the
// wrapped type is fixed- or variable-sized.
type UniformAllocator interface {
	AllocateNode(size, alignment uintptr) (unsafe.Pointer, error)
	AllocateArray(count int, size, alignment uintptr) (unsafe.Pointer, error)
	DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr)
	DeallocateArray(ptr unsafe.Pointer, count int, size, alignment uintptr)
	MaxNodeSize() uintptr
	MaxArraySize() uintptr
	MaxAlignment() uintptr
}

// DirectStorage holds its value by value: the storage owns the allocator
// outright, the common case for a leaf allocator nobody else references.
type DirectStorage[A any] struct {
	value  A
	traits *allocatorTraits[A]
}

// NewDirectStorage wraps v for by-value ownership.
func NewDirectStorage[A any](v A) *DirectStorage[A] {
	s := &DirectStorage[A]{value: v}
	s.traits = NewAllocatorTraits(&s.value)
	return s
}

// Get returns a pointer to the owned value.
func (s *DirectStorage[A]) Get() *A { return &s.value }

// AllocateNode forwards to allocatorTraits' normalized allocate_node.
func (s *DirectStorage[A]) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	return s.traits.AllocateNode(size, alignment)
}

// AllocateArray forwards to allocatorTraits' normalized allocate_array.
func (s *DirectStorage[A]) AllocateArray(count int, size, alignment uintptr) (unsafe.Pointer, error) {
	return s.traits.AllocateArray(count, size, alignment)
}

// DeallocateNode forwards to allocatorTraits' normalized deallocate_node.
func (s *DirectStorage[A]) DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr) {
	s.traits.DeallocateNode(ptr, size, alignment)
}

// DeallocateArray forwards to allocatorTraits' normalized deallocate_array.
func (s *DirectStorage[A]) DeallocateArray(ptr unsafe.Pointer, count int, size, alignment uintptr) {
	s.traits.DeallocateArray(ptr, count, size, alignment)
}

// MaxNodeSize forwards to allocatorTraits' normalized max_node_size.
func (s *DirectStorage[A]) MaxNodeSize() uintptr { return s.traits.MaxNodeSize() }

// MaxArraySize forwards to allocatorTraits' normalized max_array_size.
func (s *DirectStorage[A]) MaxArraySize() uintptr { return s.traits.MaxArraySize() }

// MaxAlignment forwards to allocatorTraits' normalized max_alignment.
func (s *DirectStorage[A]) MaxAlignment() uintptr { return s.traits.MaxAlignment() }

// GetAllocator is the uniform operation set's get_allocator.
func (s *DirectStorage[A]) GetAllocator() *A { return s.traits.GetAllocator() }

// Capabilities reports what the wrapped allocator supports.
func (s *DirectStorage[A]) Capabilities() Capabilities { return s.traits.Capabilities() }

var _ UniformAllocator = (*DirectStorage[Pool])(nil)

// RefStorage holds a non-owning pointer to a value someone else owns,
// letting several composed allocators share one underlying instance (e.g.
// several pools sharing one RawAllocator) without copying it.
type RefStorage[A any] struct {
	ptr    *A
	traits *allocatorTraits[A]
}

// NewRefStorage wraps a non-owning reference to ptr.
func NewRefStorage[A any](ptr *A) *RefStorage[A] {
	return &RefStorage[A]{ptr: ptr, traits: NewAllocatorTraits(ptr)}
}

// Get returns the referenced pointer as-is.
func (s *RefStorage[A]) Get() *A { return s.ptr }

// AllocateNode forwards to allocatorTraits' normalized allocate_node.
func (s *RefStorage[A]) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	return s.traits.AllocateNode(size, alignment)
}

// AllocateArray forwards to allocatorTraits' normalized allocate_array.
func (s *RefStorage[A]) AllocateArray(count int, size, alignment uintptr) (unsafe.Pointer, error) {
	return s.traits.AllocateArray(count, size, alignment)
}

// DeallocateNode forwards to allocatorTraits' normalized deallocate_node.
func (s *RefStorage[A]) DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr) {
	s.traits.DeallocateNode(ptr, size, alignment)
}

// DeallocateArray forwards to allocatorTraits' normalized deallocate_array.
func (s *RefStorage[A]) DeallocateArray(ptr unsafe.Pointer, count int, size, alignment uintptr) {
	s.traits.DeallocateArray(ptr, count, size, alignment)
}

// MaxNodeSize forwards to allocatorTraits' normalized max_node_size.
func (s *RefStorage[A]) MaxNodeSize() uintptr { return s.traits.MaxNodeSize() }

// MaxArraySize forwards to allocatorTraits' normalized max_array_size.
func (s *RefStorage[A]) MaxArraySize() uintptr { return s.traits.MaxArraySize() }

// MaxAlignment forwards to allocatorTraits' normalized max_alignment.
func (s *RefStorage[A]) MaxAlignment() uintptr { return s.traits.MaxAlignment() }

// GetAllocator is the uniform operation set's get_allocator.
func (s *RefStorage[A]) GetAllocator() *A { return s.traits.GetAllocator() }

// Capabilities reports what the wrapped allocator supports.
func (s *RefStorage[A]) Capabilities() Capabilities { return s.traits.Capabilities() }

var _ UniformAllocator = (*RefStorage[Pool])(nil)

// mutex is the lock policy Locked parameterizes over.
type mutex interface {
	Lock()
	Unlock()
}

// noopMutex is the zero-sized do-nothing lock, used when a Locked wrapper
// is requested but the caller has no concurrent access to guard against.
// Its methods inline to nothing, the Go analogue of empty-base
// optimization over a stateless policy type.
type noopMutex struct{}

func (noopMutex) Lock()   {}
func (noopMutex) Unlock() {}

var _ mutex = noopMutex{}
var _ mutex = (*sync.Mutex)(nil)

// lockedConfig collects Locked's construction-time options.
type lockedConfig struct {
	mu mutex
}

// LockedOption configures a Locked wrapper at construction.
type LockedOption func(*lockedConfig)

// WithMutex switches a Locked wrapper from the default no-op lock to a
// real sync.Mutex, for storage shared across goroutines.
func WithMutex() LockedOption {
	return func(c *lockedConfig) { c.mu = &sync.Mutex{} }
}

// Locked pairs a Storage with a lock policy, yielding scoped access to the
// wrapped value via Lock/Unlock. With the default policy this costs
// nothing over using the Storage directly.
type Locked[A any] struct {
	storage Storage[A]
	mu      mutex
}

// NewLocked wraps storage with the no-op lock unless WithMutex is given.
func NewLocked[A any](storage Storage[A], opts ...LockedOption) *Locked[A] {
	cfg := lockedConfig{mu: noopMutex{}}
	for _, o := range opts {
		o(&cfg)
	}
	return &Locked[A]{storage: storage, mu: cfg.mu}
}

// Lock acquires the lock policy and returns the guarded value. Callers
// must pair every Lock with an Unlock.
func (l *Locked[A]) Lock() *A {
	l.mu.Lock()
	return l.storage.Get()
}

// Unlock releases the lock policy acquired by Lock.
func (l *Locked[A]) Unlock() { l.mu.Unlock() }

// erasedBufferSize is the inline capacity ErasedStorage holds values in
// before falling back to a heap box. Three pointer-words covers
// StackAllocator and every stateless allocator (e.g. NewAllocator, which
// is zero-sized); Pool and other multi-field allocator structs exceed it
// and use the heap box automatically.
const erasedBufferSize = 3 * unsafe.Sizeof(uintptr(0))

// erasedVTable is the non-generic dispatch table ErasedStorage captures at
// construction: one instantiation of allocatorTraits[A]'s uniform methods,
// closed over the concrete pointer into the erased value, per concrete
// type A it is ever asked to hold. This is what makes ErasedStorage a
// genuine vtable-style dispatch object rather than a typed value box —
// callers drive it without ever naming A again.
type erasedVTable struct {
	allocateNode    func(size, alignment uintptr) (unsafe.Pointer, error)
	allocateArray   func(count int, size, alignment uintptr) (unsafe.Pointer, error)
	deallocateNode  func(ptr unsafe.Pointer, size, alignment uintptr)
	deallocateArray func(ptr unsafe.Pointer, count int, size, alignment uintptr)
	maxNodeSize     func() uintptr
	maxArraySize    func() uintptr
	maxAlignment    func() uintptr
	capabilities    func() Capabilities
	close           func()
}

// newErasedVTable builds the dispatch table for a freshly erased *A.
func newErasedVTable[A any](p *A) *erasedVTable {
	t := NewAllocatorTraits(p)
	return &erasedVTable{
		allocateNode:    t.AllocateNode,
		allocateArray:   t.AllocateArray,
		deallocateNode:  t.DeallocateNode,
		deallocateArray: t.DeallocateArray,
		maxNodeSize:     t.MaxNodeSize,
		maxArraySize:    t.MaxArraySize,
		maxAlignment:    t.MaxAlignment,
		capabilities:    t.Capabilities,
		close:           t.Close,
	}
}

// ErasedStorage is component K's type-erasure variant: it holds a value of
// any type behind a single non-generic handle, using its inline buffer
// when the value fits (small-buffer optimization) and a heap box
// otherwise, plus a vtable dispatching the full uniform operation set
// against whatever concrete allocator it was constructed from. Unlike
// DirectStorage/RefStorage it cannot be used as a Storage[A] itself —
// callers recover the concrete type with ErasedStorageGet, or drive it
// generically through the forwarding methods below.
type ErasedStorage struct {
	buf  [erasedBufferSize]byte
	heap unsafe.Pointer
	ptr  unsafe.Pointer
	vt   *erasedVTable
}

// NewErasedStorage copies v into inline storage when it fits the SBO
// buffer, or onto the heap otherwise, and captures a dispatch table over
// the resulting pointer.
func NewErasedStorage[A any](v A) *ErasedStorage {
	e := &ErasedStorage{}
	if unsafe.Sizeof(v) <= erasedBufferSize && unsafe.Alignof(v) <= MaxAlign {
		p := (*A)(unsafe.Pointer(&e.buf[0]))
		*p = v
		e.ptr = unsafe.Pointer(p)
		e.vt = newErasedVTable(p)
		return e
	}
	p := new(A)
	*p = v
	e.heap = unsafe.Pointer(p)
	e.ptr = e.heap
	e.vt = newErasedVTable(p)
	return e
}

// ErasedStorageGet recovers a typed pointer into an ErasedStorage. Callers
// must request the same type A used to construct it; there is no runtime
// tag to check this against, matching the original's unchecked
// reinterpret-style access.
func ErasedStorageGet[A any](e *ErasedStorage) *A {
	return (*A)(e.ptr)
}

// GetAllocator returns the erased allocator as an untyped pointer; use
// ErasedStorageGet[A] when the concrete type is known.
func (e *ErasedStorage) GetAllocator() unsafe.Pointer { return e.ptr }

// AllocateNode dispatches through the captured vtable.
func (e *ErasedStorage) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	return e.vt.allocateNode(size, alignment)
}

// AllocateArray dispatches through the captured vtable.
func (e *ErasedStorage) AllocateArray(count int, size, alignment uintptr) (unsafe.Pointer, error) {
	return e.vt.allocateArray(count, size, alignment)
}

// DeallocateNode dispatches through the captured vtable.
func (e *ErasedStorage) DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr) {
	e.vt.deallocateNode(ptr, size, alignment)
}

// DeallocateArray dispatches through the captured vtable.
func (e *ErasedStorage) DeallocateArray(ptr unsafe.Pointer, count int, size, alignment uintptr) {
	e.vt.deallocateArray(ptr, count, size, alignment)
}

// MaxNodeSize dispatches through the captured vtable.
func (e *ErasedStorage) MaxNodeSize() uintptr { return e.vt.maxNodeSize() }

// MaxArraySize dispatches through the captured vtable.
func (e *ErasedStorage) MaxArraySize() uintptr { return e.vt.maxArraySize() }

// MaxAlignment dispatches through the captured vtable.
func (e *ErasedStorage) MaxAlignment() uintptr { return e.vt.maxAlignment() }

// Capabilities dispatches through the captured vtable.
func (e *ErasedStorage) Capabilities() Capabilities { return e.vt.capabilities() }

// Close dispatches through the captured vtable; a no-op if the erased
// allocator owns no releasable upstream resources.
func (e *ErasedStorage) Close() { e.vt.close() }

var _ UniformAllocator = (*ErasedStorage)(nil)

// inline reports whether this ErasedStorage is currently using its SBO
// buffer rather than a heap box.
func (e *ErasedStorage) inline() bool { return e.heap == nil }
