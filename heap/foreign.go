package heap

import (
	"fmt"

	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/internal/format"
)

// NewForeign allocates a foreign object wrapping an embedder handle. When
// sweep finds it dead, Config.ReleaseForeign is called with the handle.
func (h *Heap) NewForeign(m *Mutator, handle uint64) (arena.Ref, error) {
	ref, err := h.Allocate(m, format.ForeignSize)
	if err != nil {
		return arena.Nil, err
	}
	o, _ := h.Object(ref)
	o.PutU64(format.ForeignHandleOffset, handle)
	o.ChangeTag(boxed.TagForeign, h.observer())
	return ref, nil
}

// ForeignHandle returns the embedder handle of a foreign object.
func (h *Heap) ForeignHandle(ref arena.Ref) (uint64, error) {
	o, err := h.Object(ref)
	if err != nil {
		return 0, err
	}
	if o.Tag() != boxed.TagForeign {
		return 0, fmt.Errorf("%w: %s is %s, want foreign", ErrBadTag, ref, o.Tag())
	}
	return o.U64(format.ForeignHandleOffset), nil
}

func (h *Heap) finalizeForeign(o boxed.Object) {
	if h.cfg.ReleaseForeign != nil {
		h.cfg.ReleaseForeign(o.U64(format.ForeignHandleOffset))
	}
}
