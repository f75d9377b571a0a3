// Package roots tracks the collector's roots: embedder objects that live
// outside the heap but hold references into it, and individually pinned
// heap objects (dynamic roots).
package roots

import "github.com/joshuapare/boxheap/heap/boxed"

// Root is anything outside the heap that holds heap references. Types
// become roots by embedding Link and implementing Trace:
//
//	type frame struct {
//	    roots.Link
//	    locals []value.Value
//	}
//
//	func (f *frame) Trace(m boxed.Marker) {
//	    for _, v := range f.locals {
//	        m.Mark(v.Ref())
//	    }
//	}
type Root interface {
	// Trace calls m.Mark for every heap reference the root holds.
	Trace(m boxed.Marker)

	rootLink() *Link
}

// Link is the intrusive list entry embedded in every Root.
type Link struct {
	prev, next Root
	set        *Set
}

func (l *Link) rootLink() *Link { return l }

// Registered reports whether the root is currently in a Set.
func (l *Link) Registered() bool { return l.set != nil }

// Set is an intrusive doubly linked list of roots.
//
// NOT thread-safe. A Set belongs to one heap.
type Set struct {
	head  Root
	tail  Root
	count int
}

// Add appends r. Adding a root that is already in this set is a no-op; a
// root can be in at most one set.
func (s *Set) Add(r Root) {
	l := r.rootLink()
	if l.set == s {
		return
	}
	if l.set != nil {
		l.set.Remove(r)
	}
	l.set = s
	l.prev = s.tail
	l.next = nil
	if s.tail != nil {
		s.tail.rootLink().next = r
	} else {
		s.head = r
	}
	s.tail = r
	s.count++
}

// Remove unlinks r. Removing a root that is not in this set is a no-op.
func (s *Set) Remove(r Root) {
	l := r.rootLink()
	if l.set != s {
		return
	}
	if l.prev != nil {
		l.prev.rootLink().next = l.next
	} else {
		s.head = l.next
	}
	if l.next != nil {
		l.next.rootLink().prev = l.prev
	} else {
		s.tail = l.prev
	}
	l.prev, l.next, l.set = nil, nil, nil
	s.count--
}

// Contains reports whether r is in this set.
func (s *Set) Contains(r Root) bool {
	return r.rootLink().set == s
}

// Len returns the number of roots.
func (s *Set) Len() int { return s.count }

// TraceAll invokes every root's Trace with m, in registration order.
// Roots must not be added or removed while tracing.
func (s *Set) TraceAll(m boxed.Marker) {
	for r := s.head; r != nil; r = r.rootLink().next {
		r.Trace(m)
	}
}

// Each calls fn for every root in registration order.
func (s *Set) Each(fn func(r Root)) {
	for r := s.head; r != nil; r = r.rootLink().next {
		fn(r)
	}
}

// Absorb moves every root of other to the end of s, leaving other empty.
func (s *Set) Absorb(other *Set) {
	if other == s || other.head == nil {
		return
	}
	for r := other.head; r != nil; r = r.rootLink().next {
		r.rootLink().set = s
	}
	if s.tail != nil {
		s.tail.rootLink().next = other.head
		other.head.rootLink().prev = s.tail
	} else {
		s.head = other.head
	}
	s.tail = other.tail
	s.count += other.count
	other.head, other.tail, other.count = nil, nil, 0
}
