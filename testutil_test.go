// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import "unsafe"

// unsafeFromUintptr reverses the uintptr(ptr) conversion tests use to
// store addresses in plain slices/maps without keeping the original
// unsafe.Pointer alive (which would be unsound outside test code, but is
// fine here since the backing allocator keeps every region pinned for the
// test's duration).
func unsafeFromUintptr(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}
