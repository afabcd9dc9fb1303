// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memkit

import (
	"strings"
	"testing"
	"unsafe"
)

func TestErrorMessagesIncludeAllocatorInfo(t *testing.T) {
	info := AllocatorInfo{Name: "memkit.Pool"}
	errs := []error{
		&OutOfMemoryError{Info: info, Size: 8, Alignment: 8},
		&BadSizeError{Info: info, Passed: 8, Supported: 4},
		&InvalidPointerError{Info: info},
		&DoubleFreeError{Info: info},
		&LeakError{Info: info, BytesLeaked: 16},
	}
	for _, err := range errs {
		if !strings.Contains(err.Error(), "memkit.Pool") {
			t.Errorf("%T.Error() = %q, missing allocator name", err, err.Error())
		}
	}
}

func TestSetOutOfMemoryHandlerRoundTrip(t *testing.T) {
	orig := OutOfMemoryHandler()
	defer SetOutOfMemoryHandler(orig)

	var gotInfo AllocatorInfo
	var gotSize uintptr
	SetOutOfMemoryHandler(func(info AllocatorInfo, requested uintptr) {
		gotInfo, gotSize = info, requested
	})

	info := AllocatorInfo{Name: "memkit.test"}
	err := reportOutOfMemory(info, 64, 8)
	if err == nil {
		t.Fatal("reportOutOfMemory() returned nil error")
	}
	if gotInfo != info || gotSize != 64 {
		t.Fatalf("handler saw (%v, %d), want (%v, 64)", gotInfo, gotSize, info)
	}
}

func TestSetHandlerNilRestoresDefault(t *testing.T) {
	orig := BadSizeHandler()
	defer SetBadSizeHandler(orig)

	SetBadSizeHandler(nil)
	if BadSizeHandler() == nil {
		t.Fatal("BadSizeHandler() = nil after SetBadSizeHandler(nil)")
	}
}

func TestTryAllocateRetriesOnceAfterReclaim(t *testing.T) {
	var marker int
	want := unsafe.Pointer(&marker)

	attempts := 0
	fn := func() (unsafe.Pointer, error) {
		attempts++
		if attempts < 2 {
			return nil, &OutOfMemoryError{}
		}
		return want, nil
	}
	reclaimed := false
	reclaim := func() bool {
		reclaimed = true
		return true
	}

	got, err := TryAllocate(fn, reclaim, AllocatorInfo{Name: "test"}, 8)
	if err != nil {
		t.Fatalf("TryAllocate() error = %v, want nil after successful reclaim", err)
	}
	if got != want {
		t.Fatalf("TryAllocate() = %p, want %p", got, want)
	}
	if !reclaimed {
		t.Fatal("reclaim() was never called")
	}
	if attempts != 2 {
		t.Fatalf("fn was called %d times, want exactly 2", attempts)
	}
}

func TestTryAllocateReportsOutOfMemoryWhenReclaimFails(t *testing.T) {
	attempts := 0
	fn := func() (unsafe.Pointer, error) {
		attempts++
		return nil, &OutOfMemoryError{}
	}
	reclaim := func() bool { return false }

	_, err := TryAllocate(fn, reclaim, AllocatorInfo{Name: "test"}, 8)
	if err == nil {
		t.Fatal("TryAllocate() = nil error, want an out-of-memory error")
	}
	if attempts != 1 {
		t.Fatalf("fn was called %d times, want exactly 1 when reclaim reports no progress", attempts)
	}
}
