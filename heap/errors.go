package heap

import "errors"

var (
	// ErrOutOfMemory indicates the page allocator could not satisfy a request
	// even after a forced collection.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrNeedSmall indicates the requested size is too small (must include
	// the 8-byte header).
	ErrNeedSmall = errors.New("heap: size must include header and be >= 8 bytes")

	// ErrHeapLocked indicates a collection was requested while the heap is locked.
	ErrHeapLocked = errors.New("heap: locked")

	// ErrCollecting indicates the heap is already collecting.
	ErrCollecting = errors.New("heap: collection in progress")

	// ErrHeapDestroyed indicates use of a heap after Destroy or after it was
	// merged into another heap.
	ErrHeapDestroyed = errors.New("heap: destroyed")

	// ErrHeapBusy indicates a merge with a heap that is locked or collecting.
	ErrHeapBusy = errors.New("heap: busy")

	// ErrForeignGroup indicates a merge between heaps of different groups.
	ErrForeignGroup = errors.New("heap: heaps belong to different groups")

	// ErrSameHeap indicates a heap was merged with itself.
	ErrSameHeap = errors.New("heap: cannot merge a heap with itself")

	// ErrHeapInUse indicates Destroy was called while roots, dynamic roots or
	// mutators still reference the heap.
	ErrHeapInUse = errors.New("heap: still referenced")

	// ErrNotOwned indicates a reference that does not point into this heap.
	ErrNotOwned = errors.New("heap: reference not owned by this heap")

	// ErrBadTag indicates a record of an unexpected kind.
	ErrBadTag = errors.New("heap: unexpected object tag")

	// ErrBadConfig indicates an invalid configuration value.
	ErrBadConfig = errors.New("heap: invalid config")
)
