package heap

import (
	"fmt"
	"time"

	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/internal/buf"
	"github.com/joshuapare/boxheap/internal/format"
)

// CollectIfNeeded runs a collection when live bytes exceed the executing
// threshold (some attached mutator, or m, is executing) or the idle
// threshold (no mutator is running), or when a collection was postponed by
// Lock. While locked it only records
// that a collection is needed. It reports whether a collection ran.
func (h *Heap) CollectIfNeeded(m *Mutator) bool {
	if h.destroyed || h.collecting {
		return false
	}
	reason := ReasonDeferred
	if !h.needsGC {
		limit := h.stats.BytesOfflineLimit
		if m.Executing() || h.executing() {
			limit = h.stats.BytesLimit
		}
		if h.stats.BytesLive <= limit {
			return false
		}
		reason = ReasonThreshold
	}
	if h.lockCount > 0 {
		if !h.needsGC {
			h.needsGC = true
			h.stats.DeferredGCs++
			log.Debugf("collection deferred: heap locked (live %d bytes)", h.stats.BytesLive)
		}
		return false
	}
	return h.ForceCollect(m, reason) == nil
}

// ForceCollect runs a full collection now: mark from the roots and dynamic
// roots, drain the mark stack, rescan if the stack was exhausted, then
// sweep. It fails without collecting when the heap is locked, already
// collecting, destroyed, or when another heap of the group holds the mark
// stack.
func (h *Heap) ForceCollect(m *Mutator, reason Reason) error {
	switch {
	case h.destroyed:
		return ErrHeapDestroyed
	case h.collecting:
		return ErrCollecting
	case h.lockCount > 0:
		return ErrHeapLocked
	}
	handle, err := h.stack.Acquire(h)
	if err != nil {
		return fmt.Errorf("heap: acquire mark stack: %w", err)
	}

	start := time.Now()
	h.collecting = true
	h.handle = handle
	h.needsGC = false
	h.cycle = CollectionStats{Reason: reason}
	defer func() {
		h.handle = nil
		handle.Release()
		h.collecting = false
	}()

	h.mark()
	h.sweep()

	h.cycle.Duration = time.Since(start)
	h.cycle.BytesLive = h.stats.BytesLive
	h.finishCycle()

	log.Infof("collection #%d (%s, mutator %s): marked %d, freed %d (%d bytes), live %d bytes, released %d pages, %d rescans in %s",
		h.stats.Collections, reason, m, h.cycle.ObjectsMarked, h.cycle.ObjectsFreed,
		h.cycle.BytesReclaimed, h.stats.BytesLive, h.cycle.PagesReleased, h.cycle.FallbackScans, h.cycle.Duration)
	if h.cfg.Observer != nil {
		h.cfg.Observer.CollectionFinished(h, h.cycle)
	}
	return nil
}

func (h *Heap) finishCycle() {
	live := h.stats.BytesLive
	h.stats.BytesLiveAtLastGC = live
	h.stats.BytesLimit = max(h.cfg.MinLimit, int64(float64(live)*h.cfg.LoadFactor))
	h.stats.BytesOfflineLimit = max(h.cfg.MinLimit/2, int64(float64(live)*h.cfg.OfflineLoadFactor))
	h.stats.Collections++
	h.stats.FallbackScans += int64(h.cycle.FallbackScans)
	h.stats.BytesReclaimed += h.cycle.BytesReclaimed
	h.stats.PagesReleased += int64(h.cycle.PagesReleased)
	h.stats.LastGCDuration = h.cycle.Duration
	h.stats.TotalGCDuration += h.cycle.Duration
}

// Mark is the marking entry point handed to trace callbacks. It returns
// true when ref needs no work from the caller: nil, not owned by this
// heap, already marked, or no collection is running. Otherwise it sets
// the mark bit, schedules the object for tracing and returns false; this
// happens at most once per object per collection.
func (h *Heap) Mark(ref arena.Ref) bool {
	if !h.collecting || ref == arena.Nil || !format.IsUnitAligned(int(ref.Offset())) {
		return true
	}
	p, off, ok := h.space.Resolve(ref)
	if !ok || p.Owner != h {
		return true
	}
	o := boxed.At(p, off)
	if o.IsMarked() || o.Tag() == boxed.TagFree {
		return true
	}
	o.SetMarked(true)
	h.cycle.ObjectsMarked++
	h.handle.Push(ref)
	if d := h.handle.Len(); d > h.cycle.MarkStackPeak {
		h.cycle.MarkStackPeak = d
	}
	return false
}

func (h *Heap) mark() {
	h.roots.TraceAll(h)
	h.dynamic.Trace(h)
	h.drain()

	// A dropped push leaves a marked object whose children were never
	// traced. Every round that drops a push also marked a new object, so
	// the loop ends.
	for h.handle.Exhausted() {
		h.cycle.FallbackScans++
		log.Warningf("mark stack exhausted, rescanning heap (round %d, %d marked)",
			h.cycle.FallbackScans, h.cycle.ObjectsMarked)
		h.handle.ClearExhausted()
		h.rescan()
	}
}

func (h *Heap) drain() {
	for {
		ref, ok := h.handle.Pop()
		if !ok {
			return
		}
		p, off, ok := h.space.Resolve(ref)
		if !ok {
			continue
		}
		h.trace(boxed.At(p, off))
	}
}

// rescan re-traces every marked object, draining after each.
func (h *Heap) rescan() {
	for _, p := range h.sortedPages() {
		h.eachRecord(p, func(o boxed.Object) {
			if o.IsMarked() && o.Tag() != boxed.TagFree {
				h.trace(o)
				h.drain()
			}
		})
	}
}

func (h *Heap) trace(o boxed.Object) {
	if k := h.kinds[o.Tag()]; k != nil && k.Trace != nil {
		k.Trace(h, o)
	}
}

// pageEnd returns the end of the formatted records of p.
func (h *Heap) pageEnd(p *arena.Page) int {
	if p == h.bumpPage {
		return h.bumpTop
	}
	return p.Len()
}

// eachRecord calls fn for every record of p, free records included.
func (h *Heap) eachRecord(p *arena.Page, fn func(o boxed.Object)) {
	if p.Large() {
		fn(boxed.At(p, 0))
		return
	}
	end := h.pageEnd(p)
	for off := 0; off < end; {
		o := boxed.At(p, off)
		size := boxed.ObjectSize(o)
		if size < format.UnitSize || !buf.Has(p.Bytes()[:end], off, size) {
			panic(fmt.Errorf("%w: record %s has size %d", format.ErrInvariant, o.Ref(), size))
		}
		fn(o)
		off += size
	}
}
