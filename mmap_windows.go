// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.
//
// Modifications (c) 2017 The Memory Authors.
// Adapted into the RawAllocator contract, x/sys/windows replacing raw syscall.

//go:build windows

package memkit

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// OSRawAllocator is a RawAllocator backed by VirtualAlloc/VirtualFree,
// bypassing the Go heap entirely. See the unix build's doc comment for
// rationale.
type OSRawAllocator struct {
	mu   sync.Mutex
	regs map[unsafe.Pointer]uintptr
}

// NewOSRawAllocator returns a ready-to-use OS-backed RawAllocator.
func NewOSRawAllocator() *OSRawAllocator {
	return &OSRawAllocator{regs: make(map[unsafe.Pointer]uintptr)}
}

func (o *OSRawAllocator) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	info := AllocatorInfo{Name: "memkit.OSRawAllocator", Identity: unsafe.Pointer(o)}
	if alignment > osPageSize {
		return nil, reportBadSize(info, alignment, osPageSize)
	}
	if size == 0 {
		return nil, nil
	}
	n := AlignUp(size, osPageSize)
	addr, err := windows.VirtualAlloc(0, n, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, reportOutOfMemory(info, size, alignment)
	}
	p := unsafe.Pointer(addr)

	o.mu.Lock()
	o.regs[p] = n
	o.mu.Unlock()

	return p, nil
}

func (o *OSRawAllocator) DeallocateNode(ptr unsafe.Pointer, size, alignment uintptr) {
	if ptr == nil {
		return
	}

	o.mu.Lock()
	_, ok := o.regs[ptr]
	delete(o.regs, ptr)
	o.mu.Unlock()

	if !ok {
		return
	}

	_ = windows.VirtualFree(uintptr(ptr), 0, windows.MEM_RELEASE)
}

func (o *OSRawAllocator) MaxNodeSize() uintptr {
	return ^uintptr(0) / 2
}

var osPageSize = func() uintptr {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return uintptr(si.PageSize)
}()
