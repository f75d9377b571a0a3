package heap

import (
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
)

// Walk calls fn for every allocated record of h in address order, stopping
// early when fn returns false. Free records are skipped. fn must not
// allocate.
func (h *Heap) Walk(fn func(o boxed.Object) bool) {
	stop := false
	for _, p := range h.sortedPages() {
		h.eachRecord(p, func(o boxed.Object) {
			if stop || o.Tag() == boxed.TagFree {
				return
			}
			stop = !fn(o)
		})
		if stop {
			return
		}
	}
}

// edgeRecorder collects the refs a trace callback reports.
type edgeRecorder struct {
	refs []arena.Ref
	seen map[arena.Ref]struct{}
}

func (r *edgeRecorder) Mark(ref arena.Ref) bool {
	if ref == arena.Nil {
		return true
	}
	if r.seen != nil {
		if _, dup := r.seen[ref]; dup {
			return true
		}
		r.seen[ref] = struct{}{}
	}
	r.refs = append(r.refs, ref)
	return true
}

// Edges returns the references held by the object at ref, in trace order.
func (h *Heap) Edges(ref arena.Ref) ([]arena.Ref, error) {
	o, err := h.Object(ref)
	if err != nil {
		return nil, err
	}
	var rec edgeRecorder
	if k := h.kinds[o.Tag()]; k != nil && k.Trace != nil {
		k.Trace(&rec, o)
	}
	return rec.refs, nil
}

// RootRefs returns the distinct references held by the roots and the
// dynamic roots of h.
func (h *Heap) RootRefs() []arena.Ref {
	rec := edgeRecorder{seen: make(map[arena.Ref]struct{})}
	h.roots.TraceAll(&rec)
	h.dynamic.Trace(&rec)
	return rec.refs
}
