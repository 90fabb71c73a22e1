package malloc

import (
	"unsafe"

	"github.com/cloudwego/holeheap/internal/spinlock"
)

// LockedHeap wraps a Heap behind a spin lock and adapts it to a raw
// pointer surface: Alloc returns nil instead of an error when the heap
// is exhausted. Each operation holds the lock for the whole list walk,
// so operations are linearizable in lock acquisition order.
//
// The lock is not reentrant. Code that may preempt an allocator call
// (an interrupt handler, a signal-style callback) must either be kept
// from allocating or have such preemption masked around allocator
// calls; the wrapper itself takes no such measures.
type LockedHeap struct {
	mu   spinlock.Lock
	heap Heap
}

// NewLockedHeap returns a locked heap with no managed region.
func NewLockedHeap() *LockedHeap {
	return &LockedHeap{}
}

// Init hands the wrapped heap the region [base, base+size). Calling
// it twice panics; see (*Heap).Init.
func (l *LockedHeap) Init(base, size uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.heap.Init(base, size)
}

// Alloc allocates a span per layout, returning nil when the heap is
// exhausted or not yet initialized.
func (l *LockedHeap) Alloc(layout Layout) unsafe.Pointer {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr, err := l.heap.Allocate(layout)
	if err != nil {
		return nil
	}
	return unsafe.Pointer(addr)
}

// Dealloc frees a pointer previously returned by Alloc with a
// matching layout. Freeing nil is a no-op.
func (l *LockedHeap) Dealloc(ptr unsafe.Pointer, layout Layout) {
	if ptr == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.heap.Deallocate(uintptr(ptr), layout)
}

// Bottom returns the lowest address of the managed region.
func (l *LockedHeap) Bottom() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.Bottom()
}

// Size returns the length of the managed region in bytes.
func (l *LockedHeap) Size() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.Size()
}

// Top returns the first address past the managed region.
func (l *LockedHeap) Top() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.Top()
}

// FirstHole returns the address and size of the lowest free region.
func (l *LockedHeap) FirstHole() (addr, size uintptr, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.FirstHole()
}

// Available returns the total number of free bytes.
func (l *LockedHeap) Available() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.Available()
}

// defaultHeap backs the package-level helpers. It is process-wide
// state handed its region exactly once, typically during early boot.
var defaultHeap LockedHeap

// Init hands the process-wide heap its region. Calling it twice
// panics.
func Init(base, size uintptr) {
	defaultHeap.Init(base, size)
}

// Alloc allocates from the process-wide heap; nil when exhausted or
// uninitialized.
func Alloc(layout Layout) unsafe.Pointer {
	return defaultHeap.Alloc(layout)
}

// Dealloc frees a pointer previously returned by Alloc.
func Dealloc(ptr unsafe.Pointer, layout Layout) {
	defaultHeap.Dealloc(ptr, layout)
}
