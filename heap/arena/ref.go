package arena

import "fmt"

// Ref is a heap address: the page ID in the high half and the byte offset of
// the record header within the page in the low half. The zero Ref is nil.
type Ref uint64

// Nil is the zero reference.
const Nil Ref = 0

// MakeRef builds a Ref from a page ID and a byte offset.
func MakeRef(page uint32, off uint32) Ref {
	return Ref(uint64(page)<<32 | uint64(off))
}

// Page returns the page ID of r.
func (r Ref) Page() uint32 {
	return uint32(r >> 32)
}

// Offset returns the byte offset of r within its page.
func (r Ref) Offset() uint32 {
	return uint32(r)
}

// IsNil reports whether r is the zero reference.
func (r Ref) IsNil() bool {
	return r == Nil
}

// Add returns the reference n bytes past r on the same page.
func (r Ref) Add(n int) Ref {
	return MakeRef(r.Page(), r.Offset()+uint32(n))
}

func (r Ref) String() string {
	if r == Nil {
		return "nil"
	}
	return fmt.Sprintf("%d:0x%X", r.Page(), r.Offset())
}
