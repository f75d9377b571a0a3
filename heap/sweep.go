package heap

import (
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
)

// freeRun is a maximal sequence of free records [start, end) on a page.
type freeRun struct {
	start, end int
}

// sweep reclaims every unmarked record, clears the mark bits of the
// survivors and rebuilds the free lists.
func (h *Heap) sweep() {
	h.free.Reset()
	obs := h.observer()

	var live int64
	for _, p := range h.sortedPages() {
		if p.Large() {
			live += h.sweepLarge(p, obs)
		} else {
			live += h.sweepPage(p, obs)
		}
	}
	h.stats.BytesLive = live
}

func (h *Heap) sweepLarge(p *arena.Page, obs boxed.TagObserver) int64 {
	o := boxed.At(p, 0)
	size := boxed.ObjectSize(o)
	if o.IsMarked() {
		o.SetMarked(false)
		return int64(size)
	}
	h.reclaim(o, size, obs)
	h.releasePage(p)
	h.cycle.PagesReleased++
	return 0
}

func (h *Heap) sweepPage(p *arena.Page, obs boxed.TagObserver) int64 {
	var (
		live     int64
		runs     []freeRun
		runStart = -1
	)
	end := h.pageEnd(p)
	h.eachRecord(p, func(o boxed.Object) {
		size := boxed.ObjectSize(o)
		switch {
		case o.Tag() == boxed.TagFree:
		case o.IsMarked():
			o.SetMarked(false)
			live += int64(size)
			if runStart >= 0 {
				runs = append(runs, freeRun{runStart, o.Offset()})
				runStart = -1
			}
			return
		default:
			h.reclaim(o, size, obs)
		}
		if runStart < 0 {
			runStart = o.Offset()
		}
	})

	if runStart >= 0 {
		if p == h.bumpPage {
			// A run touching the bump cursor goes back to the bump region.
			h.bumpTop = runStart
		} else {
			runs = append(runs, freeRun{runStart, end})
		}
	}

	if live == 0 && p != h.bumpPage {
		h.releasePage(p)
		h.cycle.PagesReleased++
		return 0
	}
	for _, r := range runs {
		o := boxed.Initialize(p, r.start, r.end-r.start)
		boxed.MakeFree(o)
		h.free.Insert(o)
	}
	return live
}

// reclaim runs the finalizer of a dead record and retags it free.
func (h *Heap) reclaim(o boxed.Object, size int, obs boxed.TagObserver) {
	if k := h.kinds[o.Tag()]; k.NeedsDestroy() {
		k.Finalize(o)
		h.cycle.Finalized++
	}
	o.ChangeTag(boxed.TagFree, obs)
	boxed.MakeFree(o)
	h.cycle.ObjectsFreed++
	h.cycle.BytesReclaimed += int64(size)
}
