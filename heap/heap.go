package heap

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/joshuapare/boxheap/heap/alloc"
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/heap/markstack"
	"github.com/joshuapare/boxheap/heap/roots"
	"github.com/joshuapare/boxheap/internal/format"
)

// Stats is a snapshot of heap accounting.
type Stats struct {
	BytesLive         int64 // Bytes of allocated records
	BytesLiveAtLastGC int64 // BytesLive right after the last sweep
	BytesLivePeak     int64 // High-water mark of BytesLive
	BytesInHeap       int64 // Page memory owned by the heap
	BytesLimit        int64 // Collection threshold while a mutator executes
	BytesOfflineLimit int64 // Collection threshold while idle
	BytesFree         int64 // Bytes linked on the free lists

	Pages      int // Normal pages owned
	LargePages int // Large pages owned

	Allocations     int64 // Successful allocations
	AllocFastPath   int64 // Allocations served by the bump region
	AllocSlowPath   int64 // Allocations served by free lists or new pages
	AllocFailures   int64 // Allocate calls that returned ErrOutOfMemory
	SimpleFailures  int64 // AllocateSimple calls that returned false
	PagesAllocated  int64 // Pages obtained from the page allocator
	PagesReleased   int64 // Pages returned by sweep
	Collections     int64 // Completed collections
	DeferredGCs     int64 // Collections postponed by Lock
	FallbackScans   int64 // Exhaustion rescans over all collections
	BytesReclaimed  int64 // Bytes reclaimed over all collections
	TotalGCDuration time.Duration
	LastGCDuration  time.Duration
}

// Heap is a managed heap. See the package documentation.
type Heap struct {
	group   *Group
	cfg     Config
	space   *arena.Space
	stack   *markstack.Stack
	classes alloc.SizeClassConfig
	kinds   [256]*boxed.Kind

	pages map[uint32]*arena.Page
	free  *alloc.FreeLists

	// Bump region: [bumpTop, bumpEnd) of bumpPage is unformatted.
	bumpPage *arena.Page
	bumpTop  int
	bumpEnd  int

	roots    roots.Set
	dynamic  *roots.Dynamic
	mutators mutatorList

	lockCount  int
	needsGC    bool
	collecting bool
	destroyed  bool

	// Valid only while collecting.
	handle *markstack.Handle
	cycle  CollectionStats

	stats Stats
}

func (h *Heap) init() {
	h.free = alloc.New(h.space, h.classes)
	h.dynamic = roots.NewDynamic()
	h.stats.BytesLimit = h.cfg.InitialLimit
	h.stats.BytesOfflineLimit = h.cfg.InitialLimit / 2
	h.registerKinds()
}

// Group returns the group h belongs to.
func (h *Heap) Group() *Group { return h.group }

// Space returns the page registry h allocates from.
func (h *Heap) Space() *arena.Space { return h.space }

// Destroyed reports whether h was destroyed or merged away.
func (h *Heap) Destroyed() bool { return h.destroyed }

// Collecting reports whether a collection is in progress.
func (h *Heap) Collecting() bool { return h.collecting }

// Lock forbids collection until the matching Unlock. Locks nest.
func (h *Heap) Lock() {
	format.Assert(!h.collecting, "Lock during collection")
	h.lockCount++
}

// Unlock releases one Lock. A collection requested while locked runs at
// the next CollectIfNeeded.
func (h *Heap) Unlock() {
	format.Assert(!h.collecting, "Unlock during collection")
	if h.lockCount == 0 {
		panic("heap: Unlock of unlocked heap")
	}
	h.lockCount--
}

// Locked reports whether collection is currently forbidden.
func (h *Heap) Locked() bool { return h.lockCount > 0 }

// NeedsGC reports whether a collection was postponed by Lock.
func (h *Heap) NeedsGC() bool { return h.needsGC }

// AddRoot registers r. Its Trace method is called at every collection
// until RemoveRoot.
func (h *Heap) AddRoot(r roots.Root) { h.roots.Add(r) }

// RemoveRoot unregisters r. Removing an unregistered root is a no-op.
func (h *Heap) RemoveRoot(r roots.Root) { h.roots.Remove(r) }

// Roots returns the number of registered roots.
func (h *Heap) Roots() int { return h.roots.Len() }

// AddDynamicRoot pins ref until the matching RemoveDynamicRoot.
func (h *Heap) AddDynamicRoot(ref arena.Ref) { h.dynamic.Add(ref) }

// RemoveDynamicRoot drops one pin of ref. Unpinning an object that is not
// pinned is ignored.
func (h *Heap) RemoveDynamicRoot(ref arena.Ref) { h.dynamic.Remove(ref) }

// DynamicRoots returns the number of distinct pinned objects.
func (h *Heap) DynamicRoots() int { return h.dynamic.Len() }

// Stats returns a copy of the accounting counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.BytesFree = int64(h.free.Bytes())
	for _, p := range h.pages {
		if p.Large() {
			s.LargePages++
		} else {
			s.Pages++
		}
	}
	return s
}

// BytesLive returns the bytes of allocated records.
func (h *Heap) BytesLive() int64 { return h.stats.BytesLive }

// BytesLiveAtLastGC returns BytesLive as of the end of the last sweep.
func (h *Heap) BytesLiveAtLastGC() int64 { return h.stats.BytesLiveAtLastGC }

// BytesLivePeak returns the high-water mark of BytesLive.
func (h *Heap) BytesLivePeak() int64 { return h.stats.BytesLivePeak }

// BytesInHeap returns the page memory owned by the heap.
func (h *Heap) BytesInHeap() int64 { return h.stats.BytesInHeap }

// BytesLimit returns the executing-mode collection threshold.
func (h *Heap) BytesLimit() int64 { return h.stats.BytesLimit }

// BytesOfflineLimit returns the idle-mode collection threshold.
func (h *Heap) BytesOfflineLimit() int64 { return h.stats.BytesOfflineLimit }

// FreeListStats returns the free list counters.
func (h *Heap) FreeListStats() alloc.Stats { return h.free.Stats() }

// Object resolves ref to a record owned by h.
func (h *Heap) Object(ref arena.Ref) (boxed.Object, error) {
	p, off, ok := h.space.Resolve(ref)
	if !ok || p.Owner != h {
		return boxed.Object{}, fmt.Errorf("%w: %s", ErrNotOwned, ref)
	}
	return boxed.At(p, off), nil
}

// Owns reports whether ref points into a page of h.
func (h *Heap) Owns(ref arena.Ref) bool {
	p, _, ok := h.space.Resolve(ref)
	return ok && p.Owner == h
}

// ChangeTag sets the lifecycle tag of ref, reporting the transition to the
// configured observer.
func (h *Heap) ChangeTag(ref arena.Ref, tag boxed.Tag) error {
	o, err := h.Object(ref)
	if err != nil {
		return err
	}
	o.ChangeTag(tag, h.observer())
	return nil
}

func (h *Heap) observer() boxed.TagObserver {
	if h.cfg.Observer == nil {
		return nil
	}
	return h.cfg.Observer
}

// Destroy releases every page of h. It fails with ErrHeapInUse while roots,
// dynamic roots or mutators still reference the heap.
func (h *Heap) Destroy() error {
	if h.destroyed {
		return ErrHeapDestroyed
	}
	if h.collecting {
		return ErrCollecting
	}
	if h.roots.Len() > 0 || h.dynamic.Len() > 0 || h.mutators.len > 0 {
		return fmt.Errorf("%w: %d roots, %d dynamic roots, %d mutators",
			ErrHeapInUse, h.roots.Len(), h.dynamic.Len(), h.mutators.len)
	}
	for _, p := range h.sortedPages() {
		h.releasePage(p)
	}
	h.free.Reset()
	h.bumpPage = nil
	h.finish()
	return nil
}

// finish marks h unusable and drops its mark stack reference.
func (h *Heap) finish() {
	h.destroyed = true
	h.stack.Drop()
}

func (h *Heap) sortedPages() []*arena.Page {
	out := make([]*arena.Page, 0, len(h.pages))
	for _, p := range h.pages {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *arena.Page) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}
