package heap

import (
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/heap/value"
	"github.com/joshuapare/boxheap/internal/format"
)

func (h *Heap) registerKinds() {
	h.kinds[boxed.TagUninitialized] = &boxed.Kind{Name: "uninitialized"}
	h.kinds[boxed.TagSlots] = &boxed.Kind{Name: "slots", Trace: traceSlots}
	h.kinds[boxed.TagPropertiesArray] = &boxed.Kind{Name: "properties", Trace: traceProps}
	h.kinds[boxed.TagString] = &boxed.Kind{Name: "string"}
	h.kinds[boxed.TagForeign] = &boxed.Kind{Name: "foreign", Finalize: h.finalizeForeign}
	for tag, k := range h.cfg.Kinds {
		h.kinds[tag] = k
	}
}

// Kind returns the kind registered for t, or nil.
func (h *Heap) Kind(t boxed.Tag) *boxed.Kind {
	return h.kinds[t]
}

func traceValues(m boxed.Marker, o boxed.Object, off, n int) {
	for i := range n {
		if v := value.Value(o.U64(off + i*format.ValueSize)); v.IsObject() {
			m.Mark(v.Ref())
		}
	}
}

func traceSlots(m boxed.Marker, o boxed.Object) {
	traceValues(m, o, format.SlotsDataOffset, int(o.U32(format.SlotsCountOffset)))
}

func traceProps(m boxed.Marker, o boxed.Object) {
	traceValues(m, o, format.PropsValuesOffset, int(o.U32(format.PropsUsedOffset)))
}
