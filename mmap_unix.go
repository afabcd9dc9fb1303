// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.
//
// Modifications (c) 2017 The Memory Authors.
// Adapted into the RawAllocator contract, x/sys/unix replacing raw syscall.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

package memkit

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// OSRawAllocator is a RawAllocator backed directly by the operating
// system's mmap/munmap, bypassing the Go heap entirely. Use it when slabs
// should not be scanned or moved by the garbage collector, or when their
// lifetime should not be tied to Go's GC at all.
//
// OSRawAllocator only ever hands out whole-page-aligned regions; alignment
// requests coarser than the OS page size are rejected with a BadSizeError.
type OSRawAllocator struct {
	mu   sync.Mutex
	regs map[unsafe.Pointer]int
}

// NewOSRawAllocator returns a ready-to-use OS-backed RawAllocator.
func NewOSRawAllocator() *OSRawAllocator {
	return &OSRawAllocator{regs: make(map[unsafe.Pointer]int)}
}

func (o *OSRawAllocator) AllocateNode(size, alignment uintptr) (unsafe.Pointer, error) {
	info := AllocatorInfo{Name: "memkit.OSRawAllocator", Identity: unsafe.Pointer(o)}
	if alignment > uintptr(osPageSize) {
		return nil, reportBadSize(info, alignment, uintptr(osPageSize))
	}
	if size == 0 {
		return nil, nil
	}
	n := int(AlignUp(size, uintptr(osPageSize)))
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, reportOutOfMemory(info, size, alignment)
	}
	p := unsafe.Pointer(&b[0])

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
	n, ok := o.regs[ptr]
	delete(o.regs, ptr)
	o.mu.Unlock()

	if !ok {
		return
	}

	b := unsafe.Slice((*byte)(ptr), n)
	_ = unix.Munmap(b)
}

func (o *OSRawAllocator) MaxNodeSize() uintptr {
	return ^uintptr(0) / 2
}

var osPageSize = unix.Getpagesize()
