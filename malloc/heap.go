// Package malloc implements a fixed-size first-fit heap allocator
// backed by an address-ordered linked list of free regions ("holes")
// kept inside the managed memory itself. It is meant as the dynamic
// memory backend of freestanding environments: hand it one contiguous
// region once and it serves aligned allocations out of it with no
// further calls to any underlying memory manager.
package malloc

// Heap owns one contiguous region and the hole list that partitions
// it. The zero value is an empty heap: every allocation fails until
// Init hands it a region. The heap never grows and never returns
// memory to a lower-level manager.
type Heap struct {
	bottom uintptr
	size   uintptr
	holes  holeList
}

// EmptyHeap returns a heap with no managed region.
func EmptyHeap() *Heap {
	return &Heap{holes: emptyHoleList()}
}

// Init hands the heap the region [base, base+size). The caller must
// own that range exclusively and must call Init exactly once; a second
// call panics. base must be word aligned and size at least MinBlock.
//
// The heap stores raw addresses only. When the region is carved out of
// garbage-collected memory the caller must keep the backing allocation
// alive for the heap's lifetime, e.g. by holding a region.Region.
func (h *Heap) Init(base, size uintptr) {
	if h.size != 0 || h.holes.first.next != nil {
		panic("malloc: heap already initialized")
	}
	h.holes = newHoleList(base, size)
	h.bottom = base
	h.size = size
}

// Allocate returns the address of a span satisfying layout, or
// ErrOutOfMemory. Sizes below MinBlock are served as MinBlock; the
// heap state is untouched on failure.
func (h *Heap) Allocate(layout Layout) (uintptr, error) {
	return h.holes.allocateFirstFit(layout.normalized())
}

// Deallocate returns the span at addr to the heap. addr and layout
// must match a prior Allocate. Freeing the same span twice panics;
// freeing an address the heap never returned corrupts it.
func (h *Heap) Deallocate(addr uintptr, layout Layout) {
	h.holes.deallocate(addr, layout.normalized().Size)
}

// Bottom returns the lowest address of the managed region.
func (h *Heap) Bottom() uintptr { return h.bottom }

// Size returns the length of the managed region in bytes.
func (h *Heap) Size() uintptr { return h.size }

// Top returns the first address past the managed region.
func (h *Heap) Top() uintptr { return h.bottom + h.size }

// FirstHole returns the address and size of the lowest free region,
// or ok=false when the heap is exhausted.
func (h *Heap) FirstHole() (addr, size uintptr, ok bool) {
	return h.holes.firstHole()
}

// Available returns the total number of free bytes. Fragmentation may
// keep a single allocation of this size from succeeding.
func (h *Heap) Available() uintptr {
	return h.holes.available()
}
