package boxed

import (
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/internal/format"
)

// Object is a view of one heap record: a page plus the byte offset of the
// record header. It is a value type; copying it does not copy the record.
type Object struct {
	page *arena.Page
	off  int
}

// At returns the record whose header starts at off within p.
func At(p *arena.Page, off int) Object {
	format.Assert(p != nil, "nil page")
	format.Assert(format.IsUnitAligned(off), "unaligned record offset %d", off)
	return Object{page: p, off: off}
}

// Initialize writes a fresh header for a record of size bytes at off and
// returns it. The tag is TagUninitialized and all flag bits are clear except
// FlagLargePage on large pages. Sizes the header cannot state are recorded on
// the (large) page and the header carries the sentinel.
func Initialize(p *arena.Page, off int, size int) Object {
	format.Assert(format.IsUnitAligned(size), "unaligned record size %d", size)
	units := size >> format.UnitShift
	var bits uint8
	if p.Large() {
		bits = format.FlagLargePage
		p.SetObjectSize(size)
	}
	if units > format.MaxSizeUnits {
		format.Assert(p.Large(), "size %d needs a large page", size)
		units = format.SizeSentinel
	}
	format.PutHeader(p.Bytes(), off, format.NewHeader(units, bits, uint8(TagUninitialized)))
	return Object{page: p, off: off}
}

// IsZero reports whether o is the zero Object.
func (o Object) IsZero() bool { return o.page == nil }

// Page returns the page holding o.
func (o Object) Page() *arena.Page { return o.page }

// Offset returns the byte offset of o's header within its page.
func (o Object) Offset() int { return o.off }

// Ref returns the heap address of o.
func (o Object) Ref() arena.Ref { return o.page.Ref(o.off) }

func (o Object) header() format.Header {
	return format.ReadHeader(o.page.Bytes(), o.off)
}

func (o Object) setHeader(h format.Header) {
	format.PutHeader(o.page.Bytes(), o.off, h)
}

// Size returns the raw size field in allocation units. It equals
// format.SizeSentinel for objects whose size lives on the page; use
// ObjectSize for the byte size.
func (o Object) Size() int { return o.header().SizeUnits() }

// SetSize stores n allocation units in the size field.
func (o Object) SetSize(n int) {
	format.Assert(n >= 0 && n <= format.SizeMask, "size %d does not fit the size field", n)
	o.setHeader(o.header().WithSizeUnits(n))
}

// Bits returns the header flag field.
func (o Object) Bits() uint8 { return o.header().Bits() }

// Tag returns the lifecycle tag.
func (o Object) Tag() Tag { return Tag(o.header().Tag()) }

// SetTag overwrites the lifecycle tag without notifying any observer.
func (o Object) SetTag(t Tag) {
	o.setHeader(o.header().WithTag(uint8(t)))
}

// ChangeTag moves o to a new lifecycle phase and reports the transition to
// obs when instrumentation is attached.
func (o Object) ChangeTag(t Tag, obs TagObserver) {
	old := o.Tag()
	o.SetTag(t)
	if obs != nil {
		obs.TagChanged(old, t)
	}
}

func (o Object) setFlag(flag uint8, on bool) {
	h := o.header()
	if on {
		h = h.WithBits(h.Bits() | flag)
	} else {
		h = h.WithBits(h.Bits() &^ flag)
	}
	o.setHeader(h)
}

// IsBuiltinMarker reports whether o is flagged as a builtin string.
func (o Object) IsBuiltinMarker() bool { return o.header().Has(format.FlagBuiltin) }

// SetBuiltinMarker sets or clears the builtin string flag.
func (o Object) SetBuiltinMarker(on bool) { o.setFlag(format.FlagBuiltin, on) }

// IsOnLargePage reports whether o occupies a dedicated large page.
func (o Object) IsOnLargePage() bool { return o.header().Has(format.FlagLargePage) }

// SetOnLargePage sets or clears the large page flag.
func (o Object) SetOnLargePage(on bool) { o.setFlag(format.FlagLargePage, on) }

// IsMarked reports whether the collector has marked o in the current cycle.
func (o Object) IsMarked() bool { return o.header().Has(format.FlagMarked) }

// SetMarked sets or clears the mark bit.
func (o Object) SetMarked(on bool) { o.setFlag(format.FlagMarked, on) }

// Bytes returns the whole record, header included.
func (o Object) Bytes() []byte {
	return o.page.Bytes()[o.off : o.off+ObjectSize(o)]
}

// U32 reads a little-endian uint32 at byte offset off within the record.
func (o Object) U32(off int) uint32 {
	return format.ReadU32(o.page.Bytes(), o.off+off)
}

// PutU32 writes a little-endian uint32 at byte offset off within the record.
func (o Object) PutU32(off int, v uint32) {
	format.PutU32(o.page.Bytes(), o.off+off, v)
}

// U64 reads a little-endian uint64 at byte offset off within the record.
func (o Object) U64(off int) uint64 {
	return format.ReadU64(o.page.Bytes(), o.off+off)
}

// PutU64 writes a little-endian uint64 at byte offset off within the record.
func (o Object) PutU64(off int, v uint64) {
	format.PutU64(o.page.Bytes(), o.off+off, v)
}

// ObjectSize returns the size of o in bytes, consulting the page when the
// header carries the size sentinel.
func ObjectSize(o Object) int {
	units := o.Size()
	if units == format.SizeSentinel {
		return o.page.ObjectSize()
	}
	return units << format.UnitShift
}
