package boxed

import "github.com/joshuapare/boxheap/heap/arena"

// Marker is the collector entry point handed to trace callbacks.
//
// Mark returns true when ref needs no further work from the caller: it is
// nil, not managed by the collecting heap, or already marked in this cycle.
// It returns false exactly once per object per cycle, after marking it and
// scheduling its children for tracing.
type Marker interface {
	Mark(ref arena.Ref) bool
}

// Kind describes how the collector treats records of one tag.
type Kind struct {
	// Name is used in diagnostics.
	Name string

	// Trace calls m.Mark for every heap reference held by o. Nil for kinds
	// that hold no references.
	Trace func(m Marker, o Object)

	// Finalize releases resources owned by o when sweep finds it dead. Nil
	// for kinds that need no destruction.
	Finalize func(o Object)
}

// NeedsDestroy reports whether sweep must call Finalize for dead records.
func (k *Kind) NeedsDestroy() bool {
	return k != nil && k.Finalize != nil
}
