package arena

import (
	"fmt"
	"math"
	"sync"
)

// Space is the page registry of a group of cooperating heaps.
type Space struct {
	mu     sync.RWMutex
	pages  map[uint32]*Page
	nextID uint32
	bytes  int64

	// Test hook: when set and returning true, NewPage fails (nil in production).
	failAlloc func(size int) bool
}

// NewSpace creates an empty page registry.
func NewSpace() *Space {
	return &Space{
		pages:  make(map[uint32]*Page, 64),
		nextID: 1, // page 0 would make offset 0 of the first page a nil Ref
	}
}

// NewPage maps a new page of size bytes and registers it under a fresh ID.
// size must be a positive multiple of 8.
func (s *Space) NewPage(size int, large bool, owner any) (*Page, error) {
	if size <= 0 || size%8 != 0 || int64(size) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrBadPageSize, size)
	}
	s.mu.RLock()
	fail := s.failAlloc
	s.mu.RUnlock()
	if fail != nil && fail(size) {
		return nil, ErrPageAlloc
	}

	data, err := mapPage(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageAlloc, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextID == math.MaxUint32 {
		_ = unmapPage(data)
		return nil, ErrIDsExhausted
	}
	p := &Page{
		id:    s.nextID,
		data:  data,
		large: large,
		Owner: owner,
	}
	s.nextID++
	s.pages[p.id] = p
	s.bytes += int64(size)
	return p, nil
}

// Release unregisters p and returns its memory. Refs into p become invalid.
func (s *Space) Release(p *Page) error {
	s.mu.Lock()
	if s.pages[p.id] != p {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownPage, p.id)
	}
	delete(s.pages, p.id)
	s.bytes -= int64(len(p.data))
	s.mu.Unlock()

	data := p.data
	p.data = nil
	p.Owner = nil
	return unmapPage(data)
}

// Lookup returns the page registered under id, or nil.
func (s *Space) Lookup(id uint32) *Page {
	s.mu.RLock()
	p := s.pages[id]
	s.mu.RUnlock()
	return p
}

// Resolve returns the page r points into and the byte offset within it.
// ok is false for nil, unknown or out-of-range references.
func (s *Space) Resolve(r Ref) (*Page, int, bool) {
	if r == Nil {
		return nil, 0, false
	}
	p := s.Lookup(r.Page())
	if p == nil || int(r.Offset())+8 > len(p.data) {
		return nil, 0, false
	}
	return p, int(r.Offset()), true
}

// Len returns the number of registered pages.
func (s *Space) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Bytes returns the total size of all registered pages.
func (s *Space) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// SetAllocFailure installs a hook that makes NewPage fail whenever it
// returns true. Pass nil to restore normal behavior. Intended for tests that
// simulate an exhausted page allocator.
func (s *Space) SetAllocFailure(fn func(size int) bool) {
	s.mu.Lock()
	s.failAlloc = fn
	s.mu.Unlock()
}
