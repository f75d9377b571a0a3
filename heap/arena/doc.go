// Package arena provides the page memory the collected heap lives in.
//
// # Overview
//
// A Space is a registry of pages shared by every heap of a cooperating group.
// Each page receives an ID that is unique within its Space, and every heap
// address is a Ref:
//
//	Ref = pageID<<32 | offset
//
// Because page IDs never repeat inside a Space, a page can change owner (for
// example when one heap is merged into another) without invalidating any Ref
// that points into it.
//
// # Page Memory
//
// On Linux and macOS page memory comes from anonymous private mmap so that
// released pages are returned to the OS immediately. Other platforms fall
// back to Go-allocated byte slices.
//
// # Thread Safety
//
// Space is safe for concurrent use. Page contents are not synchronized; each
// page is mutated only by its owning heap.
package arena
