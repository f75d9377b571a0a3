package roots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
)

type recorder struct {
	marked []arena.Ref
}

func (r *recorder) Mark(ref arena.Ref) bool {
	r.marked = append(r.marked, ref)
	return true
}

var _ boxed.Marker = (*recorder)(nil)

type testRoot struct {
	Link
	refs []arena.Ref
}

func (tr *testRoot) Trace(m boxed.Marker) {
	for _, r := range tr.refs {
		m.Mark(r)
	}
}

func ref(i int) arena.Ref { return arena.MakeRef(1, uint32(8*i)) }

func TestSet_AddRemoveOrder(t *testing.T) {
	var s Set
	a := &testRoot{refs: []arena.Ref{ref(1)}}
	b := &testRoot{refs: []arena.Ref{ref(2), ref(3)}}
	c := &testRoot{refs: []arena.Ref{ref(4)}}

	s.Add(a)
	s.Add(b)
	s.Add(c)
	s.Add(b) // duplicate add is a no-op
	require.Equal(t, 3, s.Len())
	require.True(t, a.Registered())

	var rec recorder
	s.TraceAll(&rec)
	require.Equal(t, []arena.Ref{ref(1), ref(2), ref(3), ref(4)}, rec.marked)

	s.Remove(b)
	require.False(t, s.Contains(b))
	require.False(t, b.Registered())
	rec.marked = nil
	s.TraceAll(&rec)
	require.Equal(t, []arena.Ref{ref(1), ref(4)}, rec.marked)

	s.Remove(b) // not present
	s.Remove(a)
	s.Remove(c)
	require.Zero(t, s.Len())

	rec.marked = nil
	s.TraceAll(&rec)
	require.Empty(t, rec.marked)
}

func TestSet_MoveBetweenSets(t *testing.T) {
	var s1, s2 Set
	r := &testRoot{}
	s1.Add(r)
	s2.Add(r)
	require.Zero(t, s1.Len(), "a root belongs to one set at a time")
	require.Equal(t, 1, s2.Len())

	s1.Remove(r) // wrong set: ignored
	require.True(t, s2.Contains(r))
}

func TestSet_Absorb(t *testing.T) {
	var a, b Set
	r1 := &testRoot{refs: []arena.Ref{ref(1)}}
	r2 := &testRoot{refs: []arena.Ref{ref(2)}}
	r3 := &testRoot{refs: []arena.Ref{ref(3)}}
	a.Add(r1)
	b.Add(r2)
	b.Add(r3)

	a.Absorb(&b)
	require.Equal(t, 3, a.Len())
	require.Zero(t, b.Len())
	require.True(t, a.Contains(r2))
	require.True(t, a.Contains(r3))

	var seen []Root
	a.Each(func(r Root) { seen = append(seen, r) })
	require.Equal(t, []Root{r1, r2, r3}, seen)

	// Absorbed roots unlink cleanly from their new set.
	a.Remove(r3)
	a.Remove(r1)
	var rec recorder
	a.TraceAll(&rec)
	require.Equal(t, []arena.Ref{ref(2)}, rec.marked)

	var empty Set
	empty.Absorb(&a)
	require.Equal(t, 1, empty.Len())
}

func TestDynamic_PinCounts(t *testing.T) {
	d := NewDynamic()
	d.Add(ref(1))
	d.Add(ref(1))
	d.Add(ref(2))
	d.Add(arena.Nil)
	require.Equal(t, 2, d.Len())

	require.True(t, d.Remove(ref(1)))
	require.True(t, d.Pinned(ref(1)), "one pin left")
	require.True(t, d.Remove(ref(1)))
	require.False(t, d.Pinned(ref(1)))

	require.False(t, d.Remove(ref(1)), "double removal is tolerated")
	require.False(t, d.Remove(ref(9)), "unknown refs are tolerated")

	var rec recorder
	d.Trace(&rec)
	require.Equal(t, []arena.Ref{ref(2)}, rec.marked)
	require.Equal(t, []arena.Ref{ref(2)}, d.Refs())
}

func TestDynamic_Churn(t *testing.T) {
	d := NewDynamic()
	for i := range 10000 {
		d.Add(ref(i + 1))
		if i%3 == 0 {
			d.Remove(ref(i + 1))
		}
	}
	assert.Equal(t, 10000-3334, d.Len())
}

func TestDynamic_Absorb(t *testing.T) {
	a, b := NewDynamic(), NewDynamic()
	a.Add(ref(1))
	b.Add(ref(1))
	b.Add(ref(2))

	a.Absorb(b)
	require.Zero(t, b.Len())
	require.Equal(t, 2, a.Len())
	require.True(t, a.Remove(ref(1)))
	require.True(t, a.Pinned(ref(1)), "pin counts add up")
}
