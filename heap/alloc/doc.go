// Package alloc provides size-classed free lists for the collected heap.
//
// # Overview
//
// Free space inside heap pages is kept on segregated, intrusive, singly
// linked lists. Each free record is a boxed.FreeNode: its header is tagged
// free and the word after the header holds the Ref of the next node, so the
// lists cost no memory outside the pages themselves.
//
// # Size Classes
//
// Class boundaries come from a SizeClassConfig: linear steps for small
// records, then geometric growth up to MediumMax. Records at or above
// MediumMax go to a single large list searched first-fit.
//
//	Balanced (default):
//	  16 - 512 bytes   step 16
//	  512 - 16K        x1.5
//	  16K+             large list
//
// # Fragmentation
//
// Records smaller than format.MinFreeNodeSize cannot hold a next pointer.
// Insert refuses them; they remain tagged free inside the page until a sweep
// coalesces them with a neighbour.
//
// # Thread Safety
//
// Lists are not thread-safe. They are owned by one heap.
package alloc
