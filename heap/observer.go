package heap

import (
	"time"

	"github.com/joshuapare/boxheap/heap/boxed"
)

// Reason says why a collection ran.
type Reason uint8

const (
	// ReasonExplicit is a collection requested by the embedder.
	ReasonExplicit Reason = iota
	// ReasonThreshold is a collection triggered by the live-bytes limit.
	ReasonThreshold
	// ReasonDeferred is a collection requested while the heap was locked
	// and run at the next safe point.
	ReasonDeferred
	// ReasonOOM is the collection run before the allocation retry when the
	// page allocator fails.
	ReasonOOM
)

func (r Reason) String() string {
	switch r {
	case ReasonExplicit:
		return "explicit"
	case ReasonThreshold:
		return "threshold"
	case ReasonDeferred:
		return "deferred"
	case ReasonOOM:
		return "oom"
	}
	return "unknown"
}

// CollectionStats describes one finished collection.
type CollectionStats struct {
	Reason         Reason
	Duration       time.Duration
	ObjectsMarked  int   // Objects marked live (each pushed exactly once)
	ObjectsFreed   int   // Dead records reclaimed
	Finalized      int   // Dead records whose kind ran a finalizer
	BytesLive      int64 // Live bytes after sweep
	BytesReclaimed int64 // Bytes of dead records
	PagesReleased  int   // Pages returned to the page allocator
	FallbackScans  int   // Exhaustion rescans of the heap
	MarkStackPeak  int   // Deepest mark stack during the cycle
}

// Observer receives heap instrumentation. It is attached through
// Config.Observer and shared by every heap of a group.
type Observer interface {
	boxed.TagObserver

	CollectionFinished(h *Heap, s CollectionStats)
}

// Recorder is an Observer that keeps per-tag live counts and the history
// of collections.
type Recorder struct {
	boxed.TagCounter

	Collections []CollectionStats
}

// CollectionFinished implements Observer.
func (r *Recorder) CollectionFinished(_ *Heap, s CollectionStats) {
	r.Collections = append(r.Collections, s)
}
