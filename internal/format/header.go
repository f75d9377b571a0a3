package format

import "github.com/joshuapare/boxheap/internal/buf"

// Header is the packed first word of every heap record.
type Header uint64

// NewHeader packs a header from its fields.
func NewHeader(sizeUnits int, bits uint8, tag uint8) Header {
	Assert(sizeUnits >= 0 && sizeUnits <= SizeMask, "header size %d exceeds field", sizeUnits)
	return Header(uint64(sizeUnits)&SizeMask |
		uint64(bits)<<BitsShift |
		uint64(tag)<<TagShift)
}

// SizeUnits returns the raw size field.
func (h Header) SizeUnits() int {
	return int(uint64(h) & SizeMask)
}

// WithSizeUnits returns h with the size field replaced.
func (h Header) WithSizeUnits(n int) Header {
	Assert(n >= 0 && n <= SizeMask, "header size %d exceeds field", n)
	return Header(uint64(h)&^SizeMask | uint64(n)&SizeMask)
}

// Bits returns the flag field.
func (h Header) Bits() uint8 {
	return uint8(uint64(h) >> BitsShift & BitsMask)
}

// WithBits returns h with the flag field replaced.
func (h Header) WithBits(bits uint8) Header {
	return Header(uint64(h)&^(BitsMask<<BitsShift) | uint64(bits)<<BitsShift)
}

// Tag returns the lifecycle tag.
func (h Header) Tag() uint8 {
	return uint8(uint64(h) >> TagShift & TagMask)
}

// WithTag returns h with the lifecycle tag replaced.
func (h Header) WithTag(tag uint8) Header {
	return Header(uint64(h)&^(TagMask<<TagShift) | uint64(tag)<<TagShift)
}

// Has reports whether every bit of flag is set.
func (h Header) Has(flag uint8) bool {
	return h.Bits()&flag == flag
}

// ReadHeader decodes the header at off in b.
func ReadHeader(b []byte, off int) Header {
	return Header(buf.U64LE(b[off:]))
}

// PutHeader writes h at off in b.
func PutHeader(b []byte, off int, h Header) {
	buf.PutU64LE(b[off:], uint64(h))
}

// ReadU32 reads a little-endian uint32 at off.
func ReadU32(b []byte, off int) uint32 {
	return buf.U32LE(b[off:])
}

// PutU32 writes a little-endian uint32 at off.
func PutU32(b []byte, off int, v uint32) {
	buf.PutU32LE(b[off:], v)
}

// ReadU64 reads a little-endian uint64 at off.
func ReadU64(b []byte, off int) uint64 {
	return buf.U64LE(b[off:])
}

// PutU64 writes a little-endian uint64 at off.
func PutU64(b []byte, off int, v uint64) {
	buf.PutU64LE(b[off:], v)
}
