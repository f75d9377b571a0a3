package heap

import (
	"fmt"

	"github.com/joshuapare/boxheap/heap/boxed"
)

// MergeWith moves other's pages, free records, roots, dynamic roots,
// mutators and counters into h and destroys other. Every reference that
// was valid in other stays valid and is owned by h afterwards.
//
// Counters are summed. The collection thresholds are summed as well, so
// the merged heap keeps the combined budget of both until its next
// collection recomputes them from live bytes.
//
// Both heaps must belong to the same group and be quiescent: neither
// locked nor collecting.
func (h *Heap) MergeWith(other *Heap) error {
	switch {
	case other == h:
		return ErrSameHeap
	case h.destroyed || other.destroyed:
		return ErrHeapDestroyed
	case h.group != other.group:
		return ErrForeignGroup
	case h.collecting || other.collecting:
		return fmt.Errorf("%w: collection in progress", ErrHeapBusy)
	case h.lockCount > 0 || other.lockCount > 0:
		return fmt.Errorf("%w: locked", ErrHeapBusy)
	}

	other.retireBump()
	for id, p := range other.pages {
		p.Owner = h
		h.pages[id] = p
	}
	clear(other.pages)
	other.free.Drain(func(o boxed.Object) {
		h.free.Insert(o)
	})

	h.roots.Absorb(&other.roots)
	h.dynamic.Absorb(other.dynamic)
	h.mutators.absorb(&other.mutators, h)

	s, o := &h.stats, &other.stats
	s.BytesLive += o.BytesLive
	s.BytesLiveAtLastGC += o.BytesLiveAtLastGC
	s.BytesInHeap += o.BytesInHeap
	s.BytesLimit += o.BytesLimit
	s.BytesOfflineLimit += o.BytesOfflineLimit
	s.BytesLivePeak = max(s.BytesLivePeak, s.BytesLive)
	s.Allocations += o.Allocations
	s.AllocFastPath += o.AllocFastPath
	s.AllocSlowPath += o.AllocSlowPath
	s.AllocFailures += o.AllocFailures
	s.SimpleFailures += o.SimpleFailures
	s.PagesAllocated += o.PagesAllocated
	s.PagesReleased += o.PagesReleased
	s.Collections += o.Collections
	s.DeferredGCs += o.DeferredGCs
	s.FallbackScans += o.FallbackScans
	s.BytesReclaimed += o.BytesReclaimed
	s.TotalGCDuration += o.TotalGCDuration
	if s.Collections == o.Collections {
		s.LastGCDuration = o.LastGCDuration
	}
	h.needsGC = h.needsGC || other.needsGC

	log.Debugf("merged heap: now %d pages, %d live bytes, %d roots",
		len(h.pages), s.BytesLive, h.roots.Len())

	other.stats = Stats{}
	other.finish()
	return nil
}
