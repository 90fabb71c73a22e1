package malloc

import (
	"math/rand"
	"sync"
	"testing"
	"unsafe"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/holeheap/region"
)

func TestLockedHeapAllocDealloc(t *testing.T) {
	r, err := region.Reserve(4096)
	require.NoError(t, err)
	defer keepRegion(r)

	lh := NewLockedHeap()
	lh.Init(r.Base(), r.Size())

	layout := Layout{Size: 64, Align: 8}
	p := lh.Alloc(layout)
	require.NotNil(t, p)
	assert.Equal(t, lh.Bottom(), uintptr(p))
	assert.Zero(t, uintptr(p)%layout.Align)

	lh.Dealloc(p, layout)
	addr, size, ok := lh.FirstHole()
	require.True(t, ok)
	assert.Equal(t, lh.Bottom(), addr)
	assert.Equal(t, lh.Size(), size)
	assert.Equal(t, lh.Size(), lh.Available())
	assert.Equal(t, lh.Bottom()+lh.Size(), lh.Top())
}

func TestLockedHeapNilOnExhaustion(t *testing.T) {
	// Uninitialized: every allocation fails as nil.
	lh := NewLockedHeap()
	assert.Nil(t, lh.Alloc(Layout{Size: 16, Align: 8}))

	r, err := region.Reserve(64)
	require.NoError(t, err)
	defer keepRegion(r)
	lh2 := NewLockedHeap()
	lh2.Init(r.Base(), r.Size())
	assert.Nil(t, lh2.Alloc(Layout{Size: 128, Align: 8}))

	p := lh2.Alloc(Layout{Size: 64, Align: 8})
	require.NotNil(t, p)
	assert.Nil(t, lh2.Alloc(Layout{Size: 16, Align: 8}))

	// Freeing nil is a no-op.
	lh2.Dealloc(nil, Layout{Size: 16, Align: 8})
}

func TestLockedHeapDoubleInitPanics(t *testing.T) {
	r, err := region.Reserve(4096)
	require.NoError(t, err)
	defer keepRegion(r)

	lh := NewLockedHeap()
	lh.Init(r.Base(), r.Size())
	assert.Panics(t, func() { lh.Init(r.Base(), r.Size()) })
}

// TestLockedHeapConcurrent storms one locked heap from many
// goroutines. Every worker frees everything it allocated, so the heap
// must collapse back to a single hole.
func TestLockedHeapConcurrent(t *testing.T) {
	const workers = 8
	const iters = 5000

	r, err := region.Reserve(1 << 20)
	require.NoError(t, err)
	defer keepRegion(r)
	lh := NewLockedHeap()
	lh.Init(r.Base(), r.Size())

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		seed := int64(w)
		gopool.Go(func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			type block struct {
				ptr    unsafe.Pointer
				layout Layout
			}
			var mine []block
			for i := 0; i < iters; i++ {
				if len(mine) < 16 && rng.Intn(2) == 0 {
					layout := Layout{
						Size:  uintptr(rng.Intn(1024) + 1),
						Align: uintptr(1) << uint(rng.Intn(7)),
					}
					if p := lh.Alloc(layout); p != nil {
						mine = append(mine, block{ptr: p, layout: layout})
					}
				} else if len(mine) > 0 {
					j := rng.Intn(len(mine))
					lh.Dealloc(mine[j].ptr, mine[j].layout)
					mine[j] = mine[len(mine)-1]
					mine = mine[:len(mine)-1]
				}
			}
			for _, blk := range mine {
				lh.Dealloc(blk.ptr, blk.layout)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, lh.Size(), lh.Available())
	addr, size, ok := lh.FirstHole()
	require.True(t, ok)
	assert.Equal(t, lh.Bottom(), addr)
	assert.Equal(t, lh.Size(), size)
}

// globalRegion outlives the test so the process-wide heap never
// points at collected memory.
var globalRegion *region.Region

func TestGlobalHeap(t *testing.T) {
	r, err := region.Reserve(4096)
	require.NoError(t, err)
	globalRegion = r

	Init(r.Base(), r.Size())
	layout := Layout{Size: 32, Align: 16}
	p := Alloc(layout)
	require.NotNil(t, p)
	assert.Zero(t, uintptr(p)%16)
	Dealloc(p, layout)

	assert.Panics(t, func() { Init(r.Base(), r.Size()) })
}
