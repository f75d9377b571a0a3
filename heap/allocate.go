package heap

import (
	"errors"
	"fmt"

	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/internal/format"
)

// Allocate returns a record of n bytes, header included, rounded up to the
// 8-byte allocation unit. The record is zeroed except for its header, which
// carries the rounded size and TagUninitialized; the caller must set the
// real tag (ChangeTag) before the object becomes reachable, and should
// hold Lock across compound allocations whose parts are not yet rooted.
//
// Allocate may run a collection. If the page allocator fails, Allocate
// forces one collection and retries once; a second failure returns
// ErrOutOfMemory.
func (h *Heap) Allocate(m *Mutator, n int) (arena.Ref, error) {
	if err := h.usable(); err != nil {
		return arena.Nil, err
	}
	need, err := allocSize(n)
	if err != nil {
		return arena.Nil, err
	}

	if need >= h.cfg.LargeObjectThreshold {
		h.CollectIfNeeded(m)
		o, err := h.allocateLarge(need)
		if err != nil {
			o, err = h.retryAfterCollect(m, need, err, h.allocateLarge)
		}
		if err != nil {
			return arena.Nil, err
		}
		return h.finishAlloc(o, false), nil
	}

	if o, ok := h.bumpAllocate(need); ok {
		h.stats.AllocFastPath++
		return h.finishAlloc(o, true), nil
	}

	h.CollectIfNeeded(m)
	o, err := h.allocateSmall(need)
	if err != nil {
		o, err = h.retryAfterCollect(m, need, err, h.allocateSmall)
	}
	if err != nil {
		return arena.Nil, err
	}
	h.stats.AllocSlowPath++
	return h.finishAlloc(o, true), nil
}

// AllocateSimple is Allocate without collection, for code that must not
// trigger one. It reports false when the request cannot be served without
// collecting, so the caller can fall back to Allocate.
func (h *Heap) AllocateSimple(m *Mutator, n int) (arena.Ref, bool) {
	if h.usable() != nil {
		return arena.Nil, false
	}
	need, err := allocSize(n)
	if err != nil {
		return arena.Nil, false
	}

	var o boxed.Object
	if need >= h.cfg.LargeObjectThreshold {
		o, err = h.allocateLarge(need)
	} else if bo, ok := h.bumpAllocate(need); ok {
		h.stats.AllocFastPath++
		return h.finishAlloc(bo, true), true
	} else {
		o, err = h.allocateSmall(need)
		if err == nil {
			h.stats.AllocSlowPath++
		}
	}
	if err != nil {
		h.stats.SimpleFailures++
		if logAlloc {
			log.Debugf("AllocateSimple(%d) for %s failed: %s", n, m, err)
		}
		return arena.Nil, false
	}
	return h.finishAlloc(o, need < h.cfg.LargeObjectThreshold), true
}

func allocSize(n int) (int, error) {
	if n < format.HeaderSize {
		return 0, fmt.Errorf("%w: %d", ErrNeedSmall, n)
	}
	if n > maxAllocation {
		return 0, fmt.Errorf("%w: %d bytes exceeds the largest object", ErrOutOfMemory, n)
	}
	return format.Align8(n), nil
}

// maxAllocation keeps large pages addressable by a 32-bit offset.
const maxAllocation = 1<<31 - format.LargePageAlignment

func (h *Heap) usable() error {
	switch {
	case h.destroyed:
		return ErrHeapDestroyed
	case h.collecting:
		return ErrCollecting
	}
	return nil
}

// retryAfterCollect runs the forced collection and single retry that
// follow a page allocator failure.
func (h *Heap) retryAfterCollect(m *Mutator, need int, cause error,
	fn func(int) (boxed.Object, error)) (boxed.Object, error) {
	if cerr := h.ForceCollect(m, ReasonOOM); cerr != nil {
		h.stats.AllocFailures++
		log.Warningf("allocation of %d bytes failed and collection is not possible: %s", need, cerr)
		return boxed.Object{}, fmt.Errorf("%w: %d bytes: %w", ErrOutOfMemory, need, cause)
	}
	o, err := fn(need)
	if err != nil {
		h.stats.AllocFailures++
		log.Warningf("allocation of %d bytes failed after collection: %s", need, err)
		return boxed.Object{}, fmt.Errorf("%w: %d bytes: %w", ErrOutOfMemory, need, err)
	}
	return o, nil
}

func (h *Heap) bumpAllocate(need int) (boxed.Object, bool) {
	if h.bumpPage == nil || h.bumpTop+need > h.bumpEnd {
		return boxed.Object{}, false
	}
	off := h.bumpTop
	h.bumpTop += need
	return boxed.Initialize(h.bumpPage, off, need), true
}

// allocateSmall serves need from the bump region, then the free lists, then
// a fresh bump page.
func (h *Heap) allocateSmall(need int) (boxed.Object, error) {
	if o, ok := h.bumpAllocate(need); ok {
		return o, nil
	}
	if o, ok := h.free.Take(need); ok {
		size := boxed.ObjectSize(o)
		if size > need {
			rest := boxed.SplitAllocation(o, o.Ref().Add(need))
			boxed.MakeFree(rest)
			// An 8-byte remainder cannot be linked and waits for sweep to
			// coalesce it with a neighbour.
			h.free.Insert(rest)
		}
		if logAlloc {
			log.Debugf("alloc %d bytes from free list (record %d bytes)", need, size)
		}
		return boxed.Initialize(o.Page(), o.Offset(), need), nil
	}

	p, err := h.newPage(format.PageSize, false)
	if err != nil {
		return boxed.Object{}, err
	}
	h.retireBump()
	h.bumpPage = p
	h.bumpTop = 0
	h.bumpEnd = p.Len()
	o, _ := h.bumpAllocate(need)
	return o, nil
}

func (h *Heap) allocateLarge(need int) (boxed.Object, error) {
	p, err := h.newPage(format.AlignLargePage(need), true)
	if err != nil {
		return boxed.Object{}, err
	}
	return boxed.Initialize(p, 0, need), nil
}

// retireBump formats the unused tail of the bump page as a free record so
// the page is fully tiled, and leaves the heap without a bump region.
func (h *Heap) retireBump() {
	if h.bumpPage == nil {
		return
	}
	if h.bumpTop < h.bumpEnd {
		o := boxed.Initialize(h.bumpPage, h.bumpTop, h.bumpEnd-h.bumpTop)
		boxed.MakeFree(o)
		h.free.Insert(o)
	}
	h.bumpPage = nil
	h.bumpTop, h.bumpEnd = 0, 0
}

func (h *Heap) newPage(size int, large bool) (*arena.Page, error) {
	if h.cfg.MaxHeapBytes > 0 && h.stats.BytesInHeap+int64(size) > h.cfg.MaxHeapBytes {
		return nil, fmt.Errorf("%w: heap cap %d reached", arena.ErrPageAlloc, h.cfg.MaxHeapBytes)
	}
	p, err := h.space.NewPage(size, large, h)
	if err != nil {
		return nil, err
	}
	h.pages[p.ID()] = p
	h.stats.BytesInHeap += int64(size)
	h.stats.PagesAllocated++
	log.Debugf("new %s page %d (%d bytes), heap now %d bytes", pageKind(large), p.ID(), size, h.stats.BytesInHeap)
	return p, nil
}

func (h *Heap) releasePage(p *arena.Page) {
	delete(h.pages, p.ID())
	if p == h.bumpPage {
		h.bumpPage = nil
		h.bumpTop, h.bumpEnd = 0, 0
	}
	size := p.Len()
	h.stats.BytesInHeap -= int64(size)
	log.Debugf("release %s page %d (%d bytes)", pageKind(p.Large()), p.ID(), size)
	if err := h.space.Release(p); err != nil && !errors.Is(err, arena.ErrUnknownPage) {
		log.Errorf("release page: %s", err)
	}
}

func pageKind(large bool) string {
	if large {
		return "large"
	}
	return "normal"
}

// finishAlloc zeroes the payload of o and accounts for it. Fresh large
// pages are already zero.
func (h *Heap) finishAlloc(o boxed.Object, clearPayload bool) arena.Ref {
	if clearPayload {
		clear(o.Bytes()[format.HeaderSize:])
	}
	if obs := h.observer(); obs != nil {
		obs.TagChanged(boxed.TagFree, boxed.TagUninitialized)
	}
	size := int64(boxed.ObjectSize(o))
	h.stats.Allocations++
	h.stats.BytesLive += size
	if h.stats.BytesLive > h.stats.BytesLivePeak {
		h.stats.BytesLivePeak = h.stats.BytesLive
	}
	return o.Ref()
}
