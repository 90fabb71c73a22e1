package malloc

import (
	"errors"
	"unsafe"
)

// MinBlock is the size of a hole header and therefore both the
// smallest region the free list can track and the smallest serviceable
// allocation. Requests below it are rounded up.
const MinBlock = 2 * unsafe.Sizeof(uintptr(0))

// ErrOutOfMemory is returned when no hole can satisfy a request.
var ErrOutOfMemory = errors.New("malloc: out of memory")

// hole is the in-band header written at the start of every free
// region. Its two fields are exactly two machine words; the region it
// describes starts at the header's own address and spans size bytes.
type hole struct {
	size uintptr
	next *hole
}

func (h *hole) addr() uintptr {
	return uintptr(unsafe.Pointer(h))
}

func (h *hole) info() holeInfo {
	return holeInfo{addr: h.addr(), size: h.size}
}

// holeInfo is a by-value snapshot of a hole, used while the header
// itself is being overwritten or relocated.
type holeInfo struct {
	addr uintptr
	size uintptr
}

// holeAt reinterprets the memory at addr as a hole header.
func holeAt(addr uintptr) *hole {
	return (*hole)(unsafe.Pointer(addr))
}

// allocation is the result of splitting a hole: the allocated span
// plus the leftover front and back paddings, which go back into the
// free list as holes of their own.
type allocation struct {
	info         holeInfo
	frontPadding *holeInfo
	backPadding  *holeInfo
}

// holeList is a singly linked list of free regions sorted strictly by
// ascending address. first is a sentinel living outside the managed
// region; its size is always zero and only its next field matters.
// No two consecutive holes are also adjacent in memory: touching
// regions are merged on insertion.
type holeList struct {
	first hole
}

// emptyHoleList returns a list with no holes. Allocation always fails.
func emptyHoleList() holeList {
	return holeList{first: hole{size: 0, next: nil}}
}

// newHoleList writes a single hole covering [addr, addr+size) and
// returns a list containing it. The caller must own that byte range
// exclusively; addr must be word aligned and size at least MinBlock.
func newHoleList(addr, size uintptr) holeList {
	if size < MinBlock {
		panic("malloc: region smaller than a hole header")
	}
	if addr%unsafe.Alignof(uintptr(0)) != 0 {
		panic("malloc: region base not word aligned")
	}
	h := holeAt(addr)
	h.size = size
	h.next = nil
	return holeList{first: hole{size: 0, next: h}}
}

// allocateFirstFit walks the list in address order and carves the
// request out of the first hole it fits in. Paddings left over by the
// split are reinserted as fresh holes.
func (hl *holeList) allocateFirstFit(layout Layout) (uintptr, error) {
	if layout.Size < MinBlock {
		panic("malloc: layout below MinBlock reached the hole list")
	}
	prev := &hl.first
	for prev.next != nil {
		cur := prev.next
		alloc, ok := splitHole(cur.info(), layout)
		if !ok {
			prev = cur
			continue
		}
		// The winning hole leaves the list; its header is dead
		// memory from here on.
		prev.next = cur.next
		if alloc.frontPadding != nil {
			hl.deallocate(alloc.frontPadding.addr, alloc.frontPadding.size)
		}
		if alloc.backPadding != nil {
			hl.deallocate(alloc.backPadding.addr, alloc.backPadding.size)
		}
		return alloc.info.addr, nil
	}
	return 0, ErrOutOfMemory
}

// splitHole decides whether the hole can serve the layout and how it
// divides into front padding, allocation, and back padding. Paddings
// must themselves be valid holes, so a misaligned hole start pushes
// the allocation to alignUp(addr+MinBlock, align), never closer.
func splitHole(h holeInfo, layout Layout) (allocation, bool) {
	var a allocation

	alignedAddr := h.addr
	if alignedAddr%layout.Align != 0 {
		alignedAddr = alignUp(h.addr+MinBlock, layout.Align)
		a.frontPadding = &holeInfo{addr: h.addr, size: alignedAddr - h.addr}
	}

	holeEnd := h.addr + h.size
	if alignedAddr+layout.Size > holeEnd {
		// Hole too small.
		return allocation{}, false
	}

	tail := holeEnd - (alignedAddr + layout.Size)
	if tail > 0 && tail < MinBlock {
		// A sub-header tail could never be freed again.
		return allocation{}, false
	}
	if tail > 0 {
		a.backPadding = &holeInfo{addr: alignedAddr + layout.Size, size: tail}
	}

	a.info = holeInfo{addr: alignedAddr, size: layout.Size}
	return a, true
}

// deallocate returns [addr, addr+size) to the list, merging it with
// any hole it touches so no two neighboring free regions stay
// separate. Panics if the block overlaps an existing hole, which can
// only happen on double free or corruption.
func (hl *holeList) deallocate(addr, size uintptr) {
	if size < MinBlock {
		panic("malloc: size below MinBlock reached the hole list")
	}
	h := &hl.first
	for {
		// The sentinel lives outside the region; treat it as a
		// zero-length hole at address zero so it never touches
		// anything.
		var hEnd uintptr
		if h != &hl.first {
			hEnd = h.addr() + h.size
		}
		if hEnd > addr {
			panic("malloc: double free or overlapping free")
		}

		n := h.next
		switch {
		case n != nil && hEnd == addr && addr+size == n.addr():
			// The freed block exactly bridges h and its
			// successor; all three become one hole.
			h.size += size + n.size
			h.next = n.next
			return
		case hEnd == addr:
			h.size += size
			return
		case n != nil && addr+size == n.addr():
			// Swallow the successor and retry as a larger
			// block: it may now touch further neighbors.
			h.next = n.next
			size += n.size
		case n != nil && n.addr() <= addr:
			h = n
		default:
			fresh := holeAt(addr)
			fresh.size = size
			fresh.next = h.next
			h.next = fresh
			return
		}
	}
}

// firstHole reports the address and size of the lowest-addressed hole.
func (hl *holeList) firstHole() (addr, size uintptr, ok bool) {
	h := hl.first.next
	if h == nil {
		return 0, 0, false
	}
	return h.addr(), h.size, true
}

// available sums the sizes of all holes.
func (hl *holeList) available() uintptr {
	var total uintptr
	for h := hl.first.next; h != nil; h = h.next {
		total += h.size
	}
	return total
}
