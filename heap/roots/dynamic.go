package roots

import (
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
)

// Dynamic is the table of heap objects pinned outside the normal root graph.
// Pins are counted: an object stays pinned until it has been removed as many
// times as it was added. Removing an object that is not pinned is ignored.
type Dynamic struct {
	pins map[arena.Ref]uint32
}

// NewDynamic creates an empty table.
func NewDynamic() *Dynamic {
	return &Dynamic{pins: make(map[arena.Ref]uint32)}
}

// Add pins ref. Nil refs are ignored.
func (d *Dynamic) Add(ref arena.Ref) {
	if ref == arena.Nil {
		return
	}
	d.pins[ref]++
}

// Remove drops one pin of ref. It reports whether ref was pinned.
func (d *Dynamic) Remove(ref arena.Ref) bool {
	n, ok := d.pins[ref]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(d.pins, ref)
	} else {
		d.pins[ref] = n - 1
	}
	return true
}

// Pinned reports whether ref holds at least one pin.
func (d *Dynamic) Pinned(ref arena.Ref) bool {
	_, ok := d.pins[ref]
	return ok
}

// Len returns the number of distinct pinned objects.
func (d *Dynamic) Len() int { return len(d.pins) }

// Trace marks every pinned object.
func (d *Dynamic) Trace(m boxed.Marker) {
	for ref := range d.pins {
		m.Mark(ref)
	}
}

// Refs returns the pinned objects in no particular order.
func (d *Dynamic) Refs() []arena.Ref {
	out := make([]arena.Ref, 0, len(d.pins))
	for ref := range d.pins {
		out = append(out, ref)
	}
	return out
}

// Absorb moves every pin of other into d, leaving other empty.
func (d *Dynamic) Absorb(other *Dynamic) {
	if other == d {
		return
	}
	for ref, n := range other.pins {
		d.pins[ref] += n
	}
	clear(other.pins)
}
