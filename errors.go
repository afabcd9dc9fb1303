// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"fmt"
	"unsafe"
)

// AllocatorInfo identifies the allocator instance an error originated from,
// carried through every error path per the error taxonomy.
type AllocatorInfo struct {
	Name     string
	Identity unsafe.Pointer
}

func (i AllocatorInfo) String() string {
	return fmt.Sprintf("%s@%p", i.Name, i.Identity)
}

// OutOfMemoryError reports that the upstream allocator refused a request.
type OutOfMemoryError struct {
	Info     AllocatorInfo
	Size     uintptr
	Alignment uintptr
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("memkit: %s: out of memory requesting %d bytes (align %d)", e.Info, e.Size, e.Alignment)
}

// BadSizeError reports that a request exceeded the allocator's supported
// upper bound.
type BadSizeError struct {
	Info     AllocatorInfo
	Passed   uintptr
	Supported uintptr
}

func (e *BadSizeError) Error() string {
	return fmt.Sprintf("memkit: %s: size %d exceeds supported upper bound %d", e.Info, e.Passed, e.Supported)
}

// InvalidPointerError reports that a deallocation argument could not be
// traced back to the allocator it was presented to. Debug-only by contract.
type InvalidPointerError struct {
	Info    AllocatorInfo
	Pointer unsafe.Pointer
}

func (e *InvalidPointerError) Error() string {
	return fmt.Sprintf("memkit: %s: invalid pointer on deallocation: %p", e.Info, e.Pointer)
}

// DoubleFreeError reports that a cell was deallocated twice. Debug-only.
type DoubleFreeError struct {
	Info    AllocatorInfo
	Pointer unsafe.Pointer
}

func (e *DoubleFreeError) Error() string {
	return fmt.Sprintf("memkit: %s: double free detected: %p", e.Info, e.Pointer)
}

// OverflowError reports that fence bytes around a node were disturbed.
// No code path in this package places or checks fence bytes, so nothing
// here returns it.
type OverflowError struct {
	BlockBegin unsafe.Pointer
	NodeSize   uintptr
	Offending  unsafe.Pointer
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("memkit: buffer overflow: block %p node size %d offending pointer %p", e.BlockBegin, e.NodeSize, e.Offending)
}

// LeakError reports non-empty allocator state at shutdown. Debug-only.
type LeakError struct {
	Info         AllocatorInfo
	BytesLeaked uintptr
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("memkit: %s: leaked %d bytes", e.Info, e.BytesLeaked)
}
