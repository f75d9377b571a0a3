// Package markstack implements the collector's segmented mark stack.
//
// The stack is a chain of fixed-capacity segments. Growth links a new
// segment in front of the current one; popping the last entry of a segment
// underflows to the older segment and returns the emptied one to a pool, so
// after a warm-up collection most cycles allocate no segments at all.
//
// When a new segment cannot be obtained the stack records exhaustion and
// drops the push. The collector recovers by rescanning the heap (see the
// heap package); the stack itself never fails a caller.
//
// One stack is shared by every heap of a group. Sharing is reference
// counted with Retain and Drop, and only the holder of the exclusive Handle
// returned by Acquire can push or pop.
package markstack

import (
	"errors"

	"github.com/joshuapare/boxheap/heap/arena"
)

// DefaultSegmentCapacity is the number of refs per segment.
const DefaultSegmentCapacity = 1024

var (
	// ErrBusy indicates the stack is held by another owner.
	ErrBusy = errors.New("markstack: held by another collector")

	// ErrDropped indicates the stack was used after its last reference was dropped.
	ErrDropped = errors.New("markstack: dropped")
)

// Options tunes a Stack.
type Options struct {
	// SegmentCapacity is the number of refs per segment (default 1024).
	SegmentCapacity int

	// MaxSegments bounds the number of segments in use at once. Zero means
	// unbounded.
	MaxSegments int

	// AllocSegment, when set, is consulted before a new segment is created;
	// returning false simulates allocation failure (for tests).
	AllocSegment func() bool
}

// Stats holds usage counters.
type Stats struct {
	InUse       int // Segments currently chained
	PeakInUse   int // High-water mark of InUse
	Pooled      int // Spare segments waiting for reuse
	Allocated   int // Segments ever created
	Exhaustions int // Pushes dropped for lack of a segment
	MaxDepth    int // Deepest stack observed, in entries
}

type segment struct {
	refs []arena.Ref
	top  int
	next *segment // older segment
}

// Stack is a segmented stack of heap refs awaiting tracing.
type Stack struct {
	opts Options

	current *segment
	pool    *segment
	depth   int

	exhausted bool

	refs  int
	owner any
	stats Stats
}

// New creates a stack with one reference held by the caller.
func New(opts Options) *Stack {
	if opts.SegmentCapacity <= 0 {
		opts.SegmentCapacity = DefaultSegmentCapacity
	}
	return &Stack{opts: opts, refs: 1}
}

// Retain adds a reference for another heap sharing the stack.
func (s *Stack) Retain() {
	s.refs++
}

// Drop releases a reference. The last Drop frees pooled segments.
func (s *Stack) Drop() {
	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 {
		s.current = nil
		s.pool = nil
		s.depth = 0
		s.stats.InUse = 0
		s.stats.Pooled = 0
	}
}

// Refs returns the number of live references.
func (s *Stack) Refs() int { return s.refs }

// Owner returns the current holder, or nil.
func (s *Stack) Owner() any { return s.owner }

// Acquire grants owner exclusive use of the stack. It fails with ErrBusy
// while another owner holds it and with ErrDropped after the last Drop.
func (s *Stack) Acquire(owner any) (*Handle, error) {
	if s.refs == 0 {
		return nil, ErrDropped
	}
	if s.owner != nil {
		return nil, ErrBusy
	}
	s.owner = owner
	s.exhausted = false
	return &Handle{s: s}, nil
}

// Stats returns a copy of the usage counters.
func (s *Stack) Stats() Stats { return s.stats }

// Handle is the exclusive access path to a Stack during one collection.
type Handle struct {
	s *Stack
}

// Push appends ref. When the current segment is full the stack grows; if
// that fails the push is dropped and the stack is marked exhausted.
func (h *Handle) Push(ref arena.Ref) {
	s := h.s
	if s.current == nil || s.current.top == len(s.current.refs) {
		if !s.grow() {
			s.exhausted = true
			s.stats.Exhaustions++
			return
		}
	}
	seg := s.current
	seg.refs[seg.top] = ref
	seg.top++
	s.depth++
	if s.depth > s.stats.MaxDepth {
		s.stats.MaxDepth = s.depth
	}
}

// Pop removes and returns the most recent ref. ok is false when the stack
// is empty.
func (h *Handle) Pop() (arena.Ref, bool) {
	s := h.s
	seg := s.current
	if seg == nil {
		return arena.Nil, false
	}
	seg.top--
	ref := seg.refs[seg.top]
	s.depth--
	if seg.top == 0 {
		s.underflow()
	}
	return ref, true
}

// Len returns the number of pending refs.
func (h *Handle) Len() int { return h.s.depth }

// Empty reports whether no refs are pending.
func (h *Handle) Empty() bool { return h.s.depth == 0 }

// Exhausted reports whether a push was dropped since the flag was cleared.
func (h *Handle) Exhausted() bool { return h.s.exhausted }

// ClearExhausted resets the exhaustion flag before a recovery rescan.
func (h *Handle) ClearExhausted() { h.s.exhausted = false }

// Release gives up ownership. Pending refs are discarded and their segments
// return to the pool. The handle must not be used afterwards.
func (h *Handle) Release() {
	s := h.s
	if s == nil {
		return
	}
	for s.current != nil {
		s.current.top = 0
		s.underflow()
	}
	s.depth = 0
	s.exhausted = false
	s.owner = nil
	h.s = nil
}

// grow chains a segment from the pool or a newly created one in front of
// the current segment.
func (s *Stack) grow() bool {
	seg := s.pool
	if seg != nil {
		s.pool = seg.next
		s.stats.Pooled--
	} else {
		if s.opts.MaxSegments > 0 && s.stats.InUse >= s.opts.MaxSegments {
			return false
		}
		if s.opts.AllocSegment != nil && !s.opts.AllocSegment() {
			return false
		}
		seg = &segment{refs: make([]arena.Ref, s.opts.SegmentCapacity)}
		s.stats.Allocated++
	}
	seg.top = 0
	seg.next = s.current
	s.current = seg
	s.stats.InUse++
	if s.stats.InUse > s.stats.PeakInUse {
		s.stats.PeakInUse = s.stats.InUse
	}
	return true
}

// underflow moves the (empty) current segment to the pool and makes the
// older segment current.
func (s *Stack) underflow() {
	seg := s.current
	s.current = seg.next
	seg.next = s.pool
	s.pool = seg
	s.stats.InUse--
	s.stats.Pooled++
}
