// Package object provides slot objects: fixed-length vectors of values,
// the generic building block of object graphs on a boxheap heap.
package object

import (
	"errors"
	"fmt"

	"github.com/joshuapare/boxheap/heap"
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/heap/value"
	"github.com/joshuapare/boxheap/internal/format"
)

// ErrIndex indicates a slot index outside the object.
var ErrIndex = errors.New("object: slot index out of range")

// Slots is a view of a slot object.
type Slots struct {
	o boxed.Object
}

// New allocates a slot object with n undefined slots.
func New(h *heap.Heap, m *heap.Mutator, n int) (Slots, error) {
	ref, err := h.Allocate(m, format.SlotsSize(n))
	if err != nil {
		return Slots{}, err
	}
	o, err := h.Object(ref)
	if err != nil {
		return Slots{}, err
	}
	o.PutU32(format.SlotsCountOffset, uint32(n))
	if err := h.ChangeTag(ref, boxed.TagSlots); err != nil {
		return Slots{}, err
	}
	return Slots{o: o}, nil
}

// At returns the slot object at ref.
func At(h *heap.Heap, ref arena.Ref) (Slots, error) {
	o, err := h.Object(ref)
	if err != nil {
		return Slots{}, err
	}
	if o.Tag() != boxed.TagSlots {
		return Slots{}, fmt.Errorf("%w: %s is %s, want slots", heap.ErrBadTag, ref, o.Tag())
	}
	return Slots{o: o}, nil
}

// Ref returns the heap address of s.
func (s Slots) Ref() arena.Ref { return s.o.Ref() }

// Len returns the number of slots.
func (s Slots) Len() int { return int(s.o.U32(format.SlotsCountOffset)) }

// Get returns slot i.
func (s Slots) Get(i int) (value.Value, error) {
	if i < 0 || i >= s.Len() {
		return value.Undefined, fmt.Errorf("%w: %d of %d", ErrIndex, i, s.Len())
	}
	return value.Value(s.o.U64(format.SlotsDataOffset + i*format.ValueSize)), nil
}

// Set stores v in slot i.
func (s Slots) Set(i int, v value.Value) error {
	if i < 0 || i >= s.Len() {
		return fmt.Errorf("%w: %d of %d", ErrIndex, i, s.Len())
	}
	s.o.PutU64(format.SlotsDataOffset+i*format.ValueSize, uint64(v))
	return nil
}
