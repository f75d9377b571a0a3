package boxed

import (
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/internal/format"
)

// FreeNode is a record on a free list. The word after the header holds the
// Ref of the next node.
type FreeNode struct {
	Object
}

// AsFreeNode reinterprets o as a free-list node. ok is false when o is too
// small to hold the next pointer; such records stay tagged free but are
// never linked.
func AsFreeNode(o Object) (FreeNode, bool) {
	if ObjectSize(o) < format.MinFreeNodeSize {
		return FreeNode{}, false
	}
	return FreeNode{Object: o}, true
}

// Next returns the following node's Ref, or arena.Nil at the end of a list.
func (n FreeNode) Next() arena.Ref {
	return arena.Ref(n.U64(format.FreeNextOffset))
}

// SetNext links n to next.
func (n FreeNode) SetNext(next arena.Ref) {
	n.PutU64(format.FreeNextOffset, uint64(next))
}

// MakeFree retags o as free and clears every flag, keeping its size.
// Observers are not notified; callers that track live tags use ChangeTag
// before calling MakeFree.
func MakeFree(o Object) {
	h := o.header().WithBits(0).WithTag(uint8(TagFree))
	o.setHeader(h)
	if ObjectSize(o) >= format.MinFreeNodeSize {
		o.PutU64(format.FreeNextOffset, uint64(arena.Nil))
	}
}

// SplitAllocation shrinks o to end exactly at next and writes a new header
// at next covering the remainder of o's old extent. The new record has zero
// flag bits and TagUninitialized; the caller assigns its real tag.
//
// Preconditions (checked in debug builds only): next lies on o's page,
// strictly inside o, on an allocation unit boundary; o is not a large-page
// object; both resulting sizes fit the size field.
func SplitAllocation(o Object, next arena.Ref) Object {
	size := ObjectSize(o)
	nextOff := int(next.Offset())
	format.Assert(o.page.Contains(next), "split target %s outside page %d", next, o.page.ID())
	format.Assert(nextOff > o.off && nextOff < o.off+size, "split target %s outside object", next)
	format.Assert(format.IsUnitAligned(nextOff), "split target %s unaligned", next)
	format.Assert(format.IsUnitAligned(size) && o.Size() != format.SizeSentinel, "object size not unit aligned")
	format.Assert(!o.IsOnLargePage(), "cannot split a large-page object")

	head := nextOff - o.off
	tail := size - head
	o.SetSize(head >> format.UnitShift)

	rest := Object{page: o.page, off: nextOff}
	rest.setHeader(format.NewHeader(tail>>format.UnitShift, 0, uint8(TagUninitialized)))
	return rest
}
