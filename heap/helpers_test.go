package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/heap/roots"
	"github.com/joshuapare/boxheap/heap/value"
	"github.com/joshuapare/boxheap/internal/format"
)

// newTestHeap creates a heap in a private group. edit may adjust the
// default config first.
func newTestHeap(t *testing.T, edit func(*Config)) *Heap {
	t.Helper()
	cfg := DefaultConfig()
	if edit != nil {
		edit(&cfg)
	}
	h, err := New(cfg)
	require.NoError(t, err)
	return h
}

// newSlots allocates a slot object with n undefined slots.
func newSlots(t *testing.T, h *Heap, m *Mutator, n int) arena.Ref {
	t.Helper()
	ref, err := h.Allocate(m, format.SlotsSize(n))
	require.NoError(t, err)
	o, err := h.Object(ref)
	require.NoError(t, err)
	o.PutU32(format.SlotsCountOffset, uint32(n))
	require.NoError(t, h.ChangeTag(ref, boxed.TagSlots))
	return ref
}

func setSlot(t *testing.T, h *Heap, ref arena.Ref, i int, v value.Value) {
	t.Helper()
	o, err := h.Object(ref)
	require.NoError(t, err)
	require.Less(t, i, int(o.U32(format.SlotsCountOffset)))
	o.PutU64(format.SlotsDataOffset+i*format.ValueSize, uint64(v))
}

func link(t *testing.T, h *Heap, from arena.Ref, i int, to arena.Ref) {
	t.Helper()
	setSlot(t, h, from, i, value.Object(to))
}

func tagOf(t *testing.T, h *Heap, ref arena.Ref) boxed.Tag {
	t.Helper()
	o, err := h.Object(ref)
	require.NoError(t, err)
	return o.Tag()
}

// refRoot is a root holding a list of refs.
type refRoot struct {
	roots.Link
	refs []arena.Ref
}

func (r *refRoot) Trace(m boxed.Marker) {
	for _, ref := range r.refs {
		m.Mark(ref)
	}
}

// funcRoot runs an arbitrary callback while being traced.
type funcRoot struct {
	roots.Link
	fn func(m boxed.Marker)
}

func (r *funcRoot) Trace(m boxed.Marker) { r.fn(m) }

// reachable computes the objects reachable from h's roots without
// collecting.
func reachable(t *testing.T, h *Heap) map[arena.Ref]bool {
	t.Helper()
	seen := make(map[arena.Ref]bool)
	queue := h.RootRefs()
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref] || !h.Owns(ref) {
			continue
		}
		seen[ref] = true
		edges, err := h.Edges(ref)
		require.NoError(t, err)
		queue = append(queue, edges...)
	}
	return seen
}
