/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package region reserves contiguous, aligned byte ranges for
// exclusive use by an allocator. On bare metal the equivalent range
// comes from the platform memory map; in a hosted process this package
// carves it out of ordinary memory and pins it.
package region

import (
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// WordSize is the machine word size. Reserved bases are always at
// least word aligned.
const WordSize = unsafe.Sizeof(uintptr(0))

// Region is a contiguous byte range owned by whoever holds it. It
// pins the backing array, keeping the range valid for as long as the
// Region itself is reachable.
type Region struct {
	buf  []byte
	off  int
	size uintptr
}

// Reserve returns a word-aligned region of the given size.
func Reserve(size uintptr) (*Region, error) {
	return ReserveAligned(size, WordSize)
}

// ReserveAligned returns a region whose base address is a multiple of
// align. align must be a power of two; size must be non-zero.
func ReserveAligned(size, align uintptr) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("region: size must be non-zero")
	}
	if align == 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("region: align must be a power of two, got %d", align)
	}
	if align < WordSize {
		align = WordSize
	}
	// Over-allocate so an aligned base always fits. The range holds
	// allocator headers and payloads only, none of which need a
	// zeroed backing, so skip the clear.
	buf := dirtmake.Bytes(int(size+align), int(size+align))
	start := uintptr(unsafe.Pointer(&buf[0]))
	base := (start + align - 1) &^ (align - 1)
	return &Region{buf: buf, off: int(base - start), size: size}, nil
}

// Base returns the first address of the region.
func (r *Region) Base() uintptr {
	return uintptr(unsafe.Pointer(&r.buf[r.off]))
}

// Size returns the region's length in bytes.
func (r *Region) Size() uintptr {
	return r.size
}

// End returns the first address past the region.
func (r *Region) End() uintptr {
	return r.Base() + r.size
}

// Bytes returns the region as a byte slice. Writing through it while
// an allocator manages the region corrupts allocator state.
func (r *Region) Bytes() []byte {
	return r.buf[r.off : r.off+int(r.size)]
}
