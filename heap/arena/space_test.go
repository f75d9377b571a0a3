package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_Encoding(t *testing.T) {
	r := MakeRef(7, 0x40)
	assert.Equal(t, uint32(7), r.Page())
	assert.Equal(t, uint32(0x40), r.Offset())
	assert.Equal(t, MakeRef(7, 0x48), r.Add(8))
	assert.False(t, r.IsNil())
	assert.True(t, Nil.IsNil())
	assert.Equal(t, "nil", Nil.String())
	assert.Equal(t, "7:0x40", r.String())
}

func TestSpace_NewPageAndResolve(t *testing.T) {
	s := NewSpace()
	owner := &struct{}{}

	p, err := s.NewPage(64<<10, false, owner)
	require.NoError(t, err)
	require.Equal(t, 64<<10, p.Len())
	require.NotZero(t, p.ID(), "page IDs start at 1 so offset 0 is never nil")
	require.Same(t, owner, p.Owner)

	for _, b := range p.Bytes()[:128] {
		require.Zero(t, b, "fresh pages are zeroed")
	}

	got, off, ok := s.Resolve(p.Ref(0x80))
	require.True(t, ok)
	require.Same(t, p, got)
	require.Equal(t, 0x80, off)

	_, _, ok = s.Resolve(p.Ref(p.Len()))
	require.False(t, ok, "offset past the page end")
	_, _, ok = s.Resolve(Nil)
	require.False(t, ok)

	require.Equal(t, 1, s.Len())
	require.Equal(t, int64(64<<10), s.Bytes())
}

func TestSpace_UniqueIDs(t *testing.T) {
	s := NewSpace()
	seen := map[uint32]bool{}
	for range 8 {
		p, err := s.NewPage(4096, true, nil)
		require.NoError(t, err)
		require.False(t, seen[p.ID()])
		seen[p.ID()] = true
		require.NoError(t, s.Release(p))
	}
	require.Equal(t, 0, s.Len())
	require.Equal(t, int64(0), s.Bytes())
}

func TestSpace_Release(t *testing.T) {
	s := NewSpace()
	p, err := s.NewPage(4096, true, nil)
	require.NoError(t, err)
	p.SetObjectSize(4000)
	require.Equal(t, 4000, p.ObjectSize())
	require.True(t, p.Large())

	r := p.Ref(0)
	require.NoError(t, s.Release(p))
	_, _, ok := s.Resolve(r)
	require.False(t, ok, "refs into released pages no longer resolve")
	require.ErrorIs(t, s.Release(p), ErrUnknownPage)
}

func TestSpace_BadSizesAndFailureHook(t *testing.T) {
	s := NewSpace()
	_, err := s.NewPage(0, false, nil)
	require.ErrorIs(t, err, ErrBadPageSize)
	_, err = s.NewPage(13, false, nil)
	require.ErrorIs(t, err, ErrBadPageSize)

	s.SetAllocFailure(func(size int) bool { return size > 4096 })
	_, err = s.NewPage(8192, false, nil)
	require.ErrorIs(t, err, ErrPageAlloc)
	_, err = s.NewPage(4096, false, nil)
	require.NoError(t, err)

	s.SetAllocFailure(nil)
	_, err = s.NewPage(8192, false, nil)
	require.NoError(t, err)
}
