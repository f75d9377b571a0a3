package heap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/internal/format"
)

func TestAllocate_HeaderMatchesRequest(t *testing.T) {
	h := newTestHeap(t, nil)
	m := h.NewMutator("main")

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"header only", 8, 8},
		{"rounded up", 13, 16},
		{"exact", 64, 64},
		{"odd", 1001, 1008},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := h.Allocate(m, tt.n)
			require.NoError(t, err)
			o, err := h.Object(ref)
			require.NoError(t, err)
			require.Equal(t, tt.want, boxed.ObjectSize(o))
			require.Equal(t, boxed.TagUninitialized, o.Tag())
			require.Zero(t, o.Bits())
		})
	}

	_, err := h.Allocate(m, 4)
	require.ErrorIs(t, err, ErrNeedSmall)

	s := h.Stats()
	require.EqualValues(t, 4, s.Allocations)
	require.EqualValues(t, 8+16+64+1008, s.BytesLive)
	require.EqualValues(t, s.BytesLive, s.BytesLivePeak)
	require.EqualValues(t, format.PageSize, s.BytesInHeap)
	require.Equal(t, 1, s.Pages)
	require.EqualValues(t, 3, s.AllocFastPath, "only the first allocation needs a page")
}

func TestAllocate_PayloadIsZeroed(t *testing.T) {
	h := newTestHeap(t, nil)
	ref := newSlots(t, h, nil, 4)
	for i := range 4 {
		setSlot(t, h, ref, i, 0xDEAD0000)
	}
	require.NoError(t, h.ForceCollect(nil, ReasonExplicit))

	// The dead record folded back into the bump region; its old contents
	// must not leak into the new object.
	again, err := h.Allocate(nil, format.SlotsSize(4))
	require.NoError(t, err)
	require.Equal(t, ref, again)
	o, err := h.Object(again)
	require.NoError(t, err)
	for _, b := range o.Bytes()[format.HeaderSize:] {
		require.Zero(t, b)
	}
}

func TestAllocate_LargeObjects(t *testing.T) {
	h := newTestHeap(t, nil)

	ref, err := h.Allocate(nil, 20000)
	require.NoError(t, err)
	o, err := h.Object(ref)
	require.NoError(t, err)
	require.True(t, o.IsOnLargePage())
	require.True(t, o.Page().Large())
	require.Equal(t, 20000, boxed.ObjectSize(o))
	require.Equal(t, format.AlignLargePage(20000), o.Page().Len())

	// Too large for the header size field: the page records the size.
	huge := (format.MaxSizeUnits + 10) * format.UnitSize
	ref, err = h.Allocate(nil, huge)
	require.NoError(t, err)
	o, err = h.Object(ref)
	require.NoError(t, err)
	require.Equal(t, format.SizeSentinel, o.Size())
	require.Equal(t, huge, boxed.ObjectSize(o))

	s := h.Stats()
	require.Equal(t, 2, s.LargePages)
	require.Zero(t, s.Pages)

	// Unreferenced large objects release their pages.
	require.NoError(t, h.ForceCollect(nil, ReasonExplicit))
	s = h.Stats()
	require.Zero(t, s.LargePages)
	require.Zero(t, s.BytesInHeap)
	require.EqualValues(t, 2, s.PagesReleased)
}

func TestAllocate_ReusesAndSplitsFreeRecords(t *testing.T) {
	h := newTestHeap(t, nil)
	root := &refRoot{}
	h.AddRoot(root)

	// Two full pages of 64-byte records: every other record of the first
	// page survives, the second page survives entirely.
	perPage := format.PageSize / 64
	var first arena.Ref
	for i := range 2 * perPage {
		ref, err := h.Allocate(nil, 64)
		require.NoError(t, err)
		if i == 0 {
			first = ref
		}
		if i >= perPage || i%2 == 0 {
			root.refs = append(root.refs, ref)
		}
	}
	require.EqualValues(t, 2, h.Stats().PagesAllocated)

	require.NoError(t, h.ForceCollect(nil, ReasonExplicit))
	require.Equal(t, perPage/2*64, int(h.Stats().BytesFree))

	ref, err := h.Allocate(nil, 40)
	require.NoError(t, err)
	require.Equal(t, first.Page(), ref.Page(), "served from a free record of the first page")
	require.EqualValues(t, 2, h.Stats().PagesAllocated, "no new page")

	fs := h.FreeListStats()
	require.Equal(t, 1, fs.Takes)
	require.EqualValues(t, perPage/2*64-64+24, h.Stats().BytesFree, "24-byte remainder relinked")

	// The remainder is a real record right behind the new object.
	o, err := h.Object(ref)
	require.NoError(t, err)
	rest, err := h.Object(ref.Add(40))
	require.NoError(t, err)
	require.Equal(t, 40, boxed.ObjectSize(o))
	require.Equal(t, 24, boxed.ObjectSize(rest))
	require.Equal(t, boxed.TagFree, rest.Tag())
}

func TestAllocate_OutOfMemoryAfterForcedCollection(t *testing.T) {
	rec := &Recorder{}
	h := newTestHeap(t, func(c *Config) {
		c.MaxHeapBytes = 2 * format.PageSize
		c.Observer = rec
	})
	root := &refRoot{}
	h.AddRoot(root)

	var err error
	for range 3 * format.PageSize / 64 {
		var ref arena.Ref
		ref, err = h.Allocate(nil, 64)
		if err != nil {
			break
		}
		root.refs = append(root.refs, ref)
	}
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.True(t, errors.Is(err, arena.ErrPageAlloc))
	require.Len(t, root.refs, 2*format.PageSize/64)
	require.NotEmpty(t, rec.Collections)
	require.Equal(t, ReasonOOM, rec.Collections[len(rec.Collections)-1].Reason)
	require.EqualValues(t, 1, h.Stats().AllocFailures)

	// Dropping the references makes room again.
	root.refs = nil
	_, err = h.Allocate(nil, 64)
	require.NoError(t, err)
}

func TestAllocate_PageAllocatorFailure(t *testing.T) {
	h := newTestHeap(t, nil)
	h.Space().SetAllocFailure(func(int) bool { return true })

	_, ok := h.AllocateSimple(nil, 64)
	require.False(t, ok)
	require.EqualValues(t, 1, h.Stats().SimpleFailures)
	require.Zero(t, h.Stats().Collections, "AllocateSimple never collects")

	_, err := h.Allocate(nil, 64)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.EqualValues(t, 1, h.Stats().Collections)

	h.Space().SetAllocFailure(nil)
	ref, ok := h.AllocateSimple(nil, 64)
	require.True(t, ok)
	require.True(t, h.Owns(ref))
}

func TestAllocate_LockedHeapCannotRecoverFromOOM(t *testing.T) {
	h := newTestHeap(t, nil)
	h.Lock()
	defer h.Unlock()
	h.Space().SetAllocFailure(func(int) bool { return true })

	_, err := h.Allocate(nil, 64)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Zero(t, h.Stats().Collections)
}

func TestAllocateSimple_DoesNotCollect(t *testing.T) {
	h := newTestHeap(t, func(c *Config) {
		c.InitialLimit = 64 << 10
		c.MinLimit = 64 << 10
	})
	for range 4 * format.PageSize / 256 {
		_, ok := h.AllocateSimple(nil, 256)
		require.True(t, ok)
	}
	require.Zero(t, h.Stats().Collections)
	require.Greater(t, h.BytesLive(), h.BytesOfflineLimit())
}

func TestAllocate_ObserverCountsTags(t *testing.T) {
	rec := &Recorder{}
	h := newTestHeap(t, func(c *Config) { c.Observer = rec })
	root := &refRoot{}
	h.AddRoot(root)

	kept := newSlots(t, h, nil, 2)
	root.refs = append(root.refs, kept)
	newSlots(t, h, nil, 2)
	_, err := h.Allocate(nil, 32)
	require.NoError(t, err)

	assert.EqualValues(t, 2, rec.Live(boxed.TagSlots))
	assert.EqualValues(t, 1, rec.Live(boxed.TagUninitialized))

	require.NoError(t, h.ForceCollect(nil, ReasonExplicit))
	assert.EqualValues(t, 1, rec.Live(boxed.TagSlots))
	assert.Zero(t, rec.Live(boxed.TagUninitialized))
	assert.EqualValues(t, 1, rec.Total())
	require.Len(t, rec.Collections, 1)
	assert.Equal(t, 2, rec.Collections[0].ObjectsFreed)
}

func TestHeap_Destroy(t *testing.T) {
	h := newTestHeap(t, nil)
	root := &refRoot{}
	h.AddRoot(root)
	m := h.NewMutator("main")
	ref := newSlots(t, h, m, 1)
	h.AddDynamicRoot(ref)

	require.ErrorIs(t, h.Destroy(), ErrHeapInUse)
	h.RemoveRoot(root)
	require.ErrorIs(t, h.Destroy(), ErrHeapInUse)
	h.RemoveDynamicRoot(ref)
	require.ErrorIs(t, h.Destroy(), ErrHeapInUse)
	m.Close()
	require.Nil(t, m.Heap())

	require.NoError(t, h.Destroy())
	require.True(t, h.Destroyed())
	require.Zero(t, h.Space().Len())
	require.Zero(t, h.BytesInHeap())
	require.ErrorIs(t, h.Destroy(), ErrHeapDestroyed)

	_, err := h.Allocate(nil, 16)
	require.ErrorIs(t, err, ErrHeapDestroyed)
	require.ErrorIs(t, h.ForceCollect(nil, ReasonExplicit), ErrHeapDestroyed)
}

func TestHeap_ObjectRejectsForeignRefs(t *testing.T) {
	a := newTestHeap(t, nil)
	b := newTestHeap(t, nil)
	ref := newSlots(t, a, nil, 1)

	_, err := b.Object(ref)
	require.ErrorIs(t, err, ErrNotOwned)
	require.False(t, b.Owns(ref))
	require.False(t, a.Owns(arena.Nil))
}

func TestMutator_Lifecycle(t *testing.T) {
	h := newTestHeap(t, nil)
	m := h.NewMutator("worker")
	require.Equal(t, 1, h.Mutators())
	require.False(t, m.Executing())

	m.Enter()
	m.Enter()
	m.Leave()
	require.True(t, m.Executing())
	m.Leave()
	require.False(t, m.Executing())
	require.Panics(t, m.Leave)

	var none *Mutator
	require.False(t, none.Executing())
	require.Equal(t, "<none>", none.String())

	m.Close()
	m.Close()
	require.Zero(t, h.Mutators())
}
