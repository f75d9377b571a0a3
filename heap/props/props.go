// Package props implements properties arrays: growable value vectors with
// a per-slot serial number recording insertion order.
//
// A properties array never grows in place. Append on a full array
// allocates a new array of twice the capacity (at least 4), copies the
// values and serials and returns it; the caller replaces its reference and
// the old array becomes garbage.
package props

import (
	"fmt"

	"github.com/joshuapare/boxheap/heap"
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/heap/value"
	"github.com/joshuapare/boxheap/internal/format"
)

// MinGrowCapacity is the smallest capacity an array grows to.
const MinGrowCapacity = 4

// Array is a view of a properties array record.
type Array struct {
	h *heap.Heap
	o boxed.Object
}

// Make allocates an array with room for max(size, used) slots. Slots
// [0, used) are undefined and get serials serialBase, serialBase+1, ...
func Make(h *heap.Heap, m *heap.Mutator, size, used int, serialBase uint32) (Array, error) {
	if size < 0 || used < 0 {
		return Array{}, fmt.Errorf("props: negative size %d or used %d", size, used)
	}
	a, err := allocate(h, m, max(size, used))
	if err != nil {
		return Array{}, err
	}
	for i := range used {
		a.setSerial(i, serialBase+uint32(i))
	}
	a.setUsed(used)
	return a, nil
}

func allocate(h *heap.Heap, m *heap.Mutator, capacity int) (Array, error) {
	ref, err := h.Allocate(m, format.PropsSize(capacity))
	if err != nil {
		return Array{}, fmt.Errorf("props: allocate capacity %d: %w", capacity, err)
	}
	o, err := h.Object(ref)
	if err != nil {
		return Array{}, err
	}
	o.PutU32(format.PropsCapacityOffset, uint32(capacity))
	o.PutU32(format.PropsUsedOffset, 0)
	if err := h.ChangeTag(ref, boxed.TagPropertiesArray); err != nil {
		return Array{}, err
	}
	return Array{h: h, o: o}, nil
}

// At returns the properties array at ref.
func At(h *heap.Heap, ref arena.Ref) (Array, error) {
	o, err := h.Object(ref)
	if err != nil {
		return Array{}, err
	}
	if o.Tag() != boxed.TagPropertiesArray {
		return Array{}, fmt.Errorf("%w: %s is %s, want properties", heap.ErrBadTag, ref, o.Tag())
	}
	return Array{h: h, o: o}, nil
}

// Ref returns the heap address of a.
func (a Array) Ref() arena.Ref { return a.o.Ref() }

// Capacity returns the number of slots.
func (a Array) Capacity() int { return int(a.o.U32(format.PropsCapacityOffset)) }

// Used returns the number of occupied slots.
func (a Array) Used() int { return int(a.o.U32(format.PropsUsedOffset)) }

func (a Array) setUsed(n int) { a.o.PutU32(format.PropsUsedOffset, uint32(n)) }

func (a Array) valueOffset(i int) int {
	return format.PropsValuesOffset + i*format.ValueSize
}

func (a Array) serialOffset(i int) int {
	return format.PropsSerialsOffset(a.Capacity()) + i*format.SerialSize
}

// Get returns slot i. i must be below Used.
func (a Array) Get(i int) value.Value {
	format.Assert(i >= 0 && i < a.Used(), "props index %d out of range [0, %d)", i, a.Used())
	return value.Value(a.o.U64(a.valueOffset(i)))
}

// Set stores v in slot i. i must be below Used.
func (a Array) Set(i int, v value.Value) {
	format.Assert(i >= 0 && i < a.Used(), "props index %d out of range [0, %d)", i, a.Used())
	a.o.PutU64(a.valueOffset(i), uint64(v))
}

// Serial returns the insertion serial of slot i.
func (a Array) Serial(i int) uint32 {
	format.Assert(i >= 0 && i < a.Used(), "props index %d out of range [0, %d)", i, a.Used())
	return a.o.U32(a.serialOffset(i))
}

func (a Array) setSerial(i int, s uint32) {
	a.o.PutU32(a.serialOffset(i), s)
}

// Append stores v with the given serial in the next free slot and returns
// the array holding it together with its index. When a is full the result
// is a new, larger array and a becomes garbage.
func (a Array) Append(m *heap.Mutator, v value.Value, serial uint32) (Array, int, error) {
	used := a.Used()
	if used < a.Capacity() {
		a.setUsed(used + 1)
		a.Set(used, v)
		a.setSerial(used, serial)
		return a, used, nil
	}

	// The allocation below may collect: keep the old array (and through
	// it the stored values) and the new value alive until they are copied.
	h := a.h
	h.AddDynamicRoot(a.Ref())
	defer h.RemoveDynamicRoot(a.Ref())
	if v.IsObject() {
		h.AddDynamicRoot(v.Ref())
		defer h.RemoveDynamicRoot(v.Ref())
	}

	grown, err := allocate(h, m, max(MinGrowCapacity, 2*a.Capacity()))
	if err != nil {
		return a, -1, err
	}
	grown.setUsed(used + 1)
	for i := range used {
		grown.Set(i, a.Get(i))
		grown.setSerial(i, a.Serial(i))
	}
	grown.Set(used, v)
	grown.setSerial(used, serial)
	return grown, used, nil
}

// Delete removes slot i, shifting later slots (and their serials) down by
// one and clearing the vacated last slot.
func (a Array) Delete(i int) {
	used := a.Used()
	format.Assert(i >= 0 && i < used, "props index %d out of range [0, %d)", i, used)
	for j := i; j < used-1; j++ {
		a.Set(j, a.Get(j+1))
		a.setSerial(j, a.Serial(j+1))
	}
	a.Set(used-1, value.Undefined)
	a.setSerial(used-1, 0)
	a.setUsed(used - 1)
}
