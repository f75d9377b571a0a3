// Package heap is the allocator and collector of a boxheap managed heap.
//
// A Heap hands out records from 64KB pages: a bump region on the current
// page serves the fast path, segregated free lists rebuilt by every sweep
// serve the slow path, and requests at or above
// Config.LargeObjectThreshold get a dedicated large page. Every record
// starts with the header word defined in internal/format.
//
// Collection is a non-moving mark/sweep. Marking starts from the heap's
// roots (embedder objects that embed roots.Link) and its dynamic roots,
// and proceeds through the segmented mark stack shared by the heap's
// Group. If the mark stack cannot grow, marking falls back to rescanning
// every marked object of the heap until no push is dropped. Sweep returns
// dead records to the free lists, runs kind finalizers and releases pages
// that became empty.
//
// Collections run only at safe points: inside Allocate (through
// CollectIfNeeded) or when the embedder calls ForceCollect. Lock defers
// collection across compound allocations.
//
// A single heap is not safe for concurrent use. Heaps of one group may be
// used from different goroutines, but only one of them can collect at a
// time.
package heap
