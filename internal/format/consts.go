// Package format holds the low-level layout of the collected heap: the packed
// header word every allocation starts with, the allocation unit, and the
// field offsets of the builtin object kinds. It is kept free of heap state so
// the allocator, the collector and the kind accessors agree on one encoding.
package format

const (
	// UnitSize is the allocation unit. Every object size and every object
	// offset within a page is a multiple of it.
	UnitSize = 8

	// UnitShift converts between bytes and units (bytes >> UnitShift).
	UnitShift = 3

	// UnitMask is the bitmask used for aligning to UnitSize (UnitSize - 1).
	UnitMask = UnitSize - 1

	// HeaderSize is the size of the header word at the start of every record.
	HeaderSize = 8

	// PageSize is the size of a normal (shared) heap page. It must stay
	// representable in the header size field.
	PageSize = 64 << 10

	// LargePageAlignment is the granularity of dedicated large-object pages.
	LargePageAlignment = 4 << 10

	// LargePageAlignmentMask is LargePageAlignment - 1.
	LargePageAlignmentMask = LargePageAlignment - 1
)

// Header word layout (little-endian uint64):
//
//	Bits    Field
//	0-15    size in allocation units; SizeSentinel defers to the page
//	16-23   flag bits
//	24-31   lifecycle tag
//	32-63   reserved (zero)
const (
	SizeBits  = 16
	SizeMask  = 1<<SizeBits - 1
	BitsShift = 16
	BitsMask  = 0xFF
	TagShift  = 24
	TagMask   = 0xFF

	// SizeSentinel marks a header whose true size is recorded by its page.
	SizeSentinel = SizeMask

	// MaxSizeUnits is the largest size the header can state directly.
	MaxSizeUnits = SizeSentinel - 1
)

// Flag bits stored in the header bits field.
const (
	// FlagBuiltin marks builtin (engine-owned) strings.
	FlagBuiltin uint8 = 1 << 0

	// FlagLargePage marks an object that occupies a dedicated large page.
	FlagLargePage uint8 = 1 << 1

	// FlagMarked is the collector's mark bit.
	FlagMarked uint8 = 1 << 2
)

// Free node layout.
//
//	Offset  Size  Description
//	0x00    8     Header (tag free)
//	0x08    8     Ref of the next free node, 0 terminates the list
const (
	FreeNextOffset  = 0x08
	MinFreeNodeSize = 16
)

// Slot object layout.
//
//	Offset  Size  Description
//	0x00    8     Header
//	0x08    4     Slot count
//	0x0C    4     Reserved
//	0x10    8*n   Values
const (
	SlotsCountOffset = 0x08
	SlotsDataOffset  = 0x10
	ValueSize        = 8
)

// Properties array layout.
//
//	Offset          Size    Description
//	0x00            8       Header
//	0x08            4       Capacity
//	0x0C            4       Used
//	0x10            8*cap   Values
//	0x10+8*cap      4*cap   Serials
const (
	PropsCapacityOffset = 0x08
	PropsUsedOffset     = 0x0C
	PropsValuesOffset   = 0x10
	SerialSize          = 4
)

// String layout.
//
//	Offset  Size  Description
//	0x00    8     Header
//	0x08    4     Length in UTF-16 code units
//	0x0C    4     Reserved
//	0x10    2*n   UTF-16LE code units
const (
	StringLengthOffset = 0x08
	StringDataOffset   = 0x10
)

// Foreign object layout.
//
//	Offset  Size  Description
//	0x00    8     Header
//	0x08    8     Embedder handle
const (
	ForeignHandleOffset = 0x08
	ForeignSize         = 0x10
)

// SlotsSize returns the total record size of a slot object with n slots.
func SlotsSize(n int) int {
	return SlotsDataOffset + n*ValueSize
}

// PropsSize returns the total record size of a properties array with the
// given capacity.
func PropsSize(capacity int) int {
	return Align8(PropsValuesOffset + capacity*(ValueSize+SerialSize))
}

// PropsSerialsOffset returns the offset of the serial vector for capacity.
func PropsSerialsOffset(capacity int) int {
	return PropsValuesOffset + capacity*ValueSize
}

// StringSize returns the total record size of a string of n code units.
func StringSize(n int) int {
	return Align8(StringDataOffset + 2*n)
}
