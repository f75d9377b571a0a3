// Package jsstring stores immutable strings on a boxheap heap as UTF-16LE
// code units, the representation ECMAScript string values use.
package jsstring

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/boxheap/heap"
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/internal/buf"
	"github.com/joshuapare/boxheap/internal/format"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// String is a view of a string record.
type String struct {
	o boxed.Object
}

// New stores s on h.
func New(h *heap.Heap, m *heap.Mutator, s string) (String, error) {
	return newString(h, m, s, false)
}

// NewBuiltin stores s on h flagged as an engine-owned builtin string.
func NewBuiltin(h *heap.Heap, m *heap.Mutator, s string) (String, error) {
	return newString(h, m, s, true)
}

func newString(h *heap.Heap, m *heap.Mutator, s string, builtin bool) (String, error) {
	units, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return String{}, fmt.Errorf("jsstring: encode: %w", err)
	}
	n := len(units) / 2
	ref, err := h.Allocate(m, format.StringSize(n))
	if err != nil {
		return String{}, err
	}
	o, err := h.Object(ref)
	if err != nil {
		return String{}, err
	}
	o.PutU32(format.StringLengthOffset, uint32(n))
	copy(o.Bytes()[format.StringDataOffset:], units)
	if builtin {
		o.SetBuiltinMarker(true)
	}
	if err := h.ChangeTag(ref, boxed.TagString); err != nil {
		return String{}, err
	}
	return String{o: o}, nil
}

// At returns the string at ref.
func At(h *heap.Heap, ref arena.Ref) (String, error) {
	o, err := h.Object(ref)
	if err != nil {
		return String{}, err
	}
	if o.Tag() != boxed.TagString {
		return String{}, fmt.Errorf("%w: %s is %s, want string", heap.ErrBadTag, ref, o.Tag())
	}
	return String{o: o}, nil
}

// Ref returns the heap address of s.
func (s String) Ref() arena.Ref { return s.o.Ref() }

// Len returns the length in UTF-16 code units.
func (s String) Len() int { return int(s.o.U32(format.StringLengthOffset)) }

// Builtin reports whether s was created with NewBuiltin.
func (s String) Builtin() bool { return s.o.IsBuiltinMarker() }

// Units returns the raw UTF-16LE bytes, or nil when the length field
// overruns the record.
func (s String) Units() []byte {
	b, _ := buf.Slice(s.o.Bytes(), format.StringDataOffset, 2*s.Len())
	return b
}

// Read decodes s. Unpaired surrogates decode to U+FFFD.
func (s String) Read() (string, error) {
	units, ok := buf.Slice(s.o.Bytes(), format.StringDataOffset, 2*s.Len())
	if !ok {
		return "", fmt.Errorf("jsstring: %s: length %d overruns %d-byte record", s.Ref(), s.Len(), len(s.o.Bytes()))
	}
	b, err := utf16le.NewDecoder().Bytes(units)
	if err != nil {
		return "", fmt.Errorf("jsstring: decode %s: %w", s.Ref(), err)
	}
	return string(b), nil
}
