// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"
)

// OutOfMemoryFunc is invoked when an upstream allocation fails. If it
// returns, the call site returns an *OutOfMemoryError.
type OutOfMemoryFunc func(info AllocatorInfo, requested uintptr)

// BadSizeFunc is invoked when a request exceeds an allocator's maximum.
type BadSizeFunc func(info AllocatorInfo, passed, supported uintptr)

// LeakFunc is invoked when an allocator is torn down with live allocations.
type LeakFunc func(info AllocatorInfo, bytesLeaked uintptr)

// InvalidPointerFunc is invoked when a deallocation argument cannot be
// traced to its allocator. No code path in this package checks fence
// bytes, so it is never invoked for a buffer overflow.
type InvalidPointerFunc func(info AllocatorInfo, pointer uintptr)

var (
	outOfMemoryHandler    atomic.Pointer[OutOfMemoryFunc]
	badSizeHandler        atomic.Pointer[BadSizeFunc]
	leakHandler           atomic.Pointer[LeakFunc]
	invalidPointerHandler atomic.Pointer[InvalidPointerFunc]
)

func init() {
	var oom OutOfMemoryFunc = defaultOutOfMemoryHandler
	outOfMemoryHandler.Store(&oom)
	var bs BadSizeFunc = defaultBadSizeHandler
	badSizeHandler.Store(&bs)
	var lk LeakFunc = defaultLeakHandler
	leakHandler.Store(&lk)
	var ip InvalidPointerFunc = defaultInvalidPointerHandler
	invalidPointerHandler.Store(&ip)
}

func defaultOutOfMemoryHandler(info AllocatorInfo, requested uintptr) {
	fmt.Fprintf(os.Stderr, "memkit: %s: out of memory requesting %d bytes\n", info, requested)
}

func defaultBadSizeHandler(info AllocatorInfo, passed, supported uintptr) {
	fmt.Fprintf(os.Stderr, "memkit: %s: bad allocation size %d, supported upper bound %d\n", info, passed, supported)
}

func defaultLeakHandler(info AllocatorInfo, bytesLeaked uintptr) {
	fmt.Fprintf(os.Stderr, "memkit: %s: leaked %d bytes\n", info, bytesLeaked)
}

func defaultInvalidPointerHandler(info AllocatorInfo, pointer uintptr) {
	fmt.Fprintf(os.Stderr, "memkit: %s: invalid pointer 0x%x\n", info, pointer)
}

// SetOutOfMemoryHandler atomically replaces the process-wide out-of-memory
// handler. A nil handler restores the default. Safe to call concurrently
// with allocation on any allocator; the guarantee is that some handler (old
// or new) always runs, never none.
func SetOutOfMemoryHandler(h OutOfMemoryFunc) {
	if h == nil {
		h = defaultOutOfMemoryHandler
	}
	outOfMemoryHandler.Store(&h)
}

// OutOfMemoryHandler returns the currently installed out-of-memory handler.
func OutOfMemoryHandler() OutOfMemoryFunc {
	return *outOfMemoryHandler.Load()
}

// SetBadSizeHandler atomically replaces the process-wide bad-size handler.
// A nil handler restores the default.
func SetBadSizeHandler(h BadSizeFunc) {
	if h == nil {
		h = defaultBadSizeHandler
	}
	badSizeHandler.Store(&h)
}

// BadSizeHandler returns the currently installed bad-size handler.
func BadSizeHandler() BadSizeFunc {
	return *badSizeHandler.Load()
}

// SetLeakHandler atomically replaces the process-wide leak handler. A nil
// handler restores the default.
func SetLeakHandler(h LeakFunc) {
	if h == nil {
		h = defaultLeakHandler
	}
	leakHandler.Store(&h)
}

// LeakHandler returns the currently installed leak handler.
func LeakHandler() LeakFunc {
	return *leakHandler.Load()
}

// SetInvalidPointerHandler atomically replaces the process-wide
// invalid-pointer handler. A nil handler restores the default.
func SetInvalidPointerHandler(h InvalidPointerFunc) {
	if h == nil {
		h = defaultInvalidPointerHandler
	}
	invalidPointerHandler.Store(&h)
}

// InvalidPointerHandler returns the currently installed invalid-pointer
// handler.
func InvalidPointerHandler() InvalidPointerFunc {
	return *invalidPointerHandler.Load()
}

// reportOutOfMemory runs the installed handler and returns the error the
// caller should return if the handler returns normally.
func reportOutOfMemory(info AllocatorInfo, requested, alignment uintptr) error {
	OutOfMemoryHandler()(info, requested)
	return &OutOfMemoryError{Info: info, Size: requested, Alignment: alignment}
}

func reportBadSize(info AllocatorInfo, passed, supported uintptr) error {
	BadSizeHandler()(info, passed, supported)
	return &BadSizeError{Info: info, Passed: passed, Supported: supported}
}

func reportInvalidPointer(info AllocatorInfo, pointer unsafe.Pointer) error {
	InvalidPointerHandler()(info, uintptr(pointer))
	return &InvalidPointerError{Info: info, Pointer: pointer}
}

func reportLeak(info AllocatorInfo, bytesLeaked uintptr) {
	LeakHandler()(info, bytesLeaked)
}

// PlatformReclaimFunc cooperates with TryAllocate: it is given a chance to
// free up memory (e.g. drop caches) before the out-of-memory handler runs.
type PlatformReclaimFunc func() bool

// TryAllocate calls fn once; if it fails and reclaim is non-nil and reports
// progress, fn is retried exactly once before the out-of-memory handler
// runs. This is the sole automatic retry this library performs.
func TryAllocate(fn func() (unsafe.Pointer, error), reclaim PlatformReclaimFunc, info AllocatorInfo, size uintptr) (unsafe.Pointer, error) {
	p, err := fn()
	if err == nil {
		return p, nil
	}
	if reclaim != nil && reclaim() {
		if p, err2 := fn(); err2 == nil {
			return p, nil
		}
	}
	return nil, reportOutOfMemory(info, size, 0)
}
