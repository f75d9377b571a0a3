package markstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxheap/heap/arena"
)

func refs(n int) []arena.Ref {
	out := make([]arena.Ref, n)
	for i := range out {
		out[i] = arena.MakeRef(1, uint32(8*(i+1)))
	}
	return out
}

func TestStack_LIFOAcrossSegments(t *testing.T) {
	s := New(Options{SegmentCapacity: 4})
	h, err := s.Acquire("heap")
	require.NoError(t, err)

	in := refs(11)
	for _, r := range in {
		h.Push(r)
	}
	require.Equal(t, 11, h.Len())
	require.Equal(t, 3, s.Stats().InUse)
	require.False(t, h.Exhausted())

	for i := len(in) - 1; i >= 0; i-- {
		r, ok := h.Pop()
		require.True(t, ok)
		require.Equal(t, in[i], r)
	}
	_, ok := h.Pop()
	require.False(t, ok)
	require.True(t, h.Empty())

	st := s.Stats()
	assert.Equal(t, 0, st.InUse)
	assert.Equal(t, 3, st.PeakInUse)
	assert.Equal(t, 3, st.Pooled, "emptied segments go to the pool")
	assert.Equal(t, 11, st.MaxDepth)
	h.Release()
}

func TestStack_SegmentsAreReused(t *testing.T) {
	s := New(Options{SegmentCapacity: 2})
	for range 3 {
		h, err := s.Acquire("heap")
		require.NoError(t, err)
		for _, r := range refs(6) {
			h.Push(r)
		}
		for !h.Empty() {
			h.Pop()
		}
		h.Release()
	}
	require.Equal(t, 3, s.Stats().Allocated, "later cycles reuse pooled segments")
}

func TestStack_ReleaseDiscardsPending(t *testing.T) {
	s := New(Options{SegmentCapacity: 2})
	h, err := s.Acquire("a")
	require.NoError(t, err)
	for _, r := range refs(5) {
		h.Push(r)
	}
	h.Release()
	require.Nil(t, s.Owner())
	require.Equal(t, 0, s.Stats().InUse)
	require.Equal(t, 3, s.Stats().Pooled)

	h2, err := s.Acquire("b")
	require.NoError(t, err)
	require.True(t, h2.Empty())
	h2.Release()
}

func TestStack_ExclusiveOwnership(t *testing.T) {
	s := New(Options{})
	s.Retain()
	require.Equal(t, 2, s.Refs())

	h, err := s.Acquire("heap A")
	require.NoError(t, err)
	require.Equal(t, "heap A", s.Owner())

	_, err = s.Acquire("heap B")
	require.ErrorIs(t, err, ErrBusy)

	h.Release()
	hb, err := s.Acquire("heap B")
	require.NoError(t, err)
	hb.Release()

	s.Drop()
	s.Drop()
	require.Zero(t, s.Refs())
	_, err = s.Acquire("heap A")
	require.ErrorIs(t, err, ErrDropped)
	s.Drop() // extra drops are ignored
}

func TestStack_ExhaustionWithSegmentLimit(t *testing.T) {
	s := New(Options{SegmentCapacity: 2, MaxSegments: 2})
	h, err := s.Acquire("heap")
	require.NoError(t, err)

	in := refs(6)
	for _, r := range in {
		h.Push(r)
	}
	require.True(t, h.Exhausted())
	require.Equal(t, 4, h.Len(), "pushes beyond the limit are dropped")
	require.Equal(t, 2, s.Stats().Exhaustions)

	// The kept entries are intact.
	for i := 3; i >= 0; i-- {
		r, ok := h.Pop()
		require.True(t, ok)
		require.Equal(t, in[i], r)
	}

	h.ClearExhausted()
	require.False(t, h.Exhausted())
	h.Release()
}

func TestStack_ExhaustionFromAllocHook(t *testing.T) {
	allowed := 1
	s := New(Options{
		SegmentCapacity: 3,
		AllocSegment: func() bool {
			if allowed == 0 {
				return false
			}
			allowed--
			return true
		},
	})
	h, err := s.Acquire("heap")
	require.NoError(t, err)
	for _, r := range refs(4) {
		h.Push(r)
	}
	require.True(t, h.Exhausted())
	require.Equal(t, 3, h.Len())

	_, err = s.Acquire("other")
	require.ErrorIs(t, err, ErrBusy)
	h.Release()

	h, err = s.Acquire("heap")
	require.NoError(t, err)
	require.False(t, h.Exhausted(), "a new acquisition starts clean")
	h.Release()
}
