// Package workload drives a heap with a deterministic, seeded mix of
// mutator operations: building object graphs, growing properties arrays,
// creating strings, large and foreign objects, pinning, and dropping
// references. It is used by stress tests and by gcctl.
package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/tliron/commonlog"

	"github.com/joshuapare/boxheap/heap"
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/heap/jsstring"
	"github.com/joshuapare/boxheap/heap/object"
	"github.com/joshuapare/boxheap/heap/props"
	"github.com/joshuapare/boxheap/heap/roots"
	"github.com/joshuapare/boxheap/heap/value"
	"github.com/joshuapare/boxheap/internal/format"
)

var log = commonlog.GetLogger("boxheap.workload")

// ErrCorrupt indicates a reachable object that the collector reclaimed.
var ErrCorrupt = errors.New("workload: reachable object was reclaimed")

// Options configures a workload.
type Options struct {
	Seed       uint64 `json:"seed"`
	Steps      int    `json:"steps"`
	Globals    int    `json:"globals"`     // Root slots holding the live set
	MaxSlots   int    `json:"max_slots"`   // Largest slot object
	LargeEvery int    `json:"large_every"` // Allocate a large object every N steps (0 = never)
	LargeSize  int    `json:"large_size"`
	CheckEvery int    `json:"check_every"` // Verify reachability every N steps (0 = never)
}

// DefaultOptions returns a moderate workload.
func DefaultOptions() Options {
	return Options{
		Seed:       1,
		Steps:      100000,
		Globals:    256,
		MaxSlots:   8,
		LargeEvery: 5000,
		LargeSize:  64 << 10,
		CheckEvery: 0,
	}
}

// Result counts what a run did.
type Result struct {
	Steps       int `json:"steps"`
	Objects     int `json:"objects"`
	Strings     int `json:"strings"`
	PropsGrows  int `json:"props_grows"`
	Appends     int `json:"appends"`
	Foreign     int `json:"foreign"`
	Large       int `json:"large"`
	Drops       int `json:"drops"`
	Pins        int `json:"pins"`
	Unpins      int `json:"unpins"`
	SimpleFalls int `json:"simple_fallbacks"` // AllocateSimple failures retried with Allocate
	Checks      int `json:"checks"`
}

// globals is the workload's root: a table of values outside the heap.
type globals struct {
	roots.Link
	vals []value.Value
}

func (g *globals) Trace(m boxed.Marker) {
	for _, v := range g.vals {
		if v.IsObject() {
			m.Mark(v.Ref())
		}
	}
}

// Workload is a running mutator on one heap.
type Workload struct {
	m      *heap.Mutator
	opts   Options
	rng    *rand.Rand
	roots  *globals
	pinned []arena.Ref
	serial uint32
	res    Result
}

// New attaches a workload to h.
func New(h *heap.Heap, opts Options) *Workload {
	if opts.Globals <= 0 {
		opts.Globals = 1
	}
	if opts.MaxSlots <= 0 {
		opts.MaxSlots = 1
	}
	w := &Workload{
		m:     h.NewMutator(fmt.Sprintf("workload-%d", opts.Seed)),
		opts:  opts,
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed*0x9E3779B97F4A7C15+1)),
		roots: &globals{vals: make([]value.Value, opts.Globals)},
	}
	h.AddRoot(w.roots)
	return w
}

// Heap returns the heap the workload runs on. It follows the mutator, so
// after a merge it is the destination heap.
func (w *Workload) Heap() *heap.Heap { return w.m.Heap() }

// Close unpins everything, unregisters the root and detaches the mutator.
func (w *Workload) Close() {
	h := w.Heap()
	if h == nil {
		return
	}
	for _, ref := range w.pinned {
		h.RemoveDynamicRoot(ref)
	}
	w.pinned = nil
	h.RemoveRoot(w.roots)
	w.m.Close()
}

// Result returns the counters so far.
func (w *Workload) Result() Result { return w.res }

// Run executes opts.Steps steps, stopping early when ctx is done.
func (w *Workload) Run(ctx context.Context) (Result, error) {
	for i := 0; i < w.opts.Steps; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return w.res, err
			}
		}
		if err := w.Step(); err != nil {
			return w.res, fmt.Errorf("step %d: %w", w.res.Steps, err)
		}
		if w.opts.CheckEvery > 0 && w.res.Steps%w.opts.CheckEvery == 0 {
			if err := w.Verify(); err != nil {
				return w.res, fmt.Errorf("step %d: %w", w.res.Steps, err)
			}
		}
	}
	log.Debugf("workload %d finished %d steps: %d objects, %d strings, %d props grows",
		w.opts.Seed, w.res.Steps, w.res.Objects, w.res.Strings, w.res.PropsGrows)
	return w.res, nil
}

// Step performs one randomly chosen operation inside an Enter/Leave pair.
func (w *Workload) Step() error {
	w.m.Enter()
	defer w.m.Leave()
	w.res.Steps++

	if w.opts.LargeEvery > 0 && w.res.Steps%w.opts.LargeEvery == 0 {
		return w.large()
	}
	switch op := w.rng.IntN(100); {
	case op < 35:
		return w.newObject()
	case op < 50:
		return w.newString()
	case op < 70:
		return w.appendProp()
	case op < 73:
		return w.newForeign()
	case op < 78:
		w.pin()
		return nil
	case op < 83:
		w.unpin()
		return nil
	default:
		w.drop()
		return nil
	}
}

// store places v in a random global or in a random slot of a reachable
// slot object.
func (w *Workload) store(v value.Value) {
	g := w.rng.IntN(len(w.roots.vals))
	if cur := w.roots.vals[g]; cur.IsObject() && w.rng.IntN(2) == 0 {
		if s, err := object.At(w.Heap(), cur.Ref()); err == nil && s.Len() > 0 {
			_ = s.Set(w.rng.IntN(s.Len()), v)
			return
		}
	}
	w.roots.vals[g] = v
}

// pick returns a random global value.
func (w *Workload) pick() value.Value {
	return w.roots.vals[w.rng.IntN(len(w.roots.vals))]
}

func (w *Workload) newObject() error {
	n := w.rng.IntN(w.opts.MaxSlots + 1)
	var s object.Slots
	if ref, ok := w.Heap().AllocateSimple(w.m, format.SlotsSize(n)); ok {
		o, err := w.Heap().Object(ref)
		if err != nil {
			return err
		}
		o.PutU32(format.SlotsCountOffset, uint32(n))
		if err := w.Heap().ChangeTag(ref, boxed.TagSlots); err != nil {
			return err
		}
		if s, err = object.At(w.Heap(), ref); err != nil {
			return err
		}
	} else {
		w.res.SimpleFalls++
		var err error
		if s, err = object.New(w.Heap(), w.m, n); err != nil {
			return err
		}
	}
	for i := range n {
		if w.rng.IntN(3) == 0 {
			_ = s.Set(i, w.pick())
		} else {
			_ = s.Set(i, value.Int(int32(w.rng.Uint32())))
		}
	}
	w.res.Objects++
	w.store(value.Object(s.Ref()))
	return nil
}

var words = []string{"length", "prototype", "constructor", "toString", "valueOf", "名前", "emoji 🙂", ""}

func (w *Workload) newString() error {
	text := words[w.rng.IntN(len(words))]
	var (
		s   jsstring.String
		err error
	)
	if w.rng.IntN(8) == 0 {
		s, err = jsstring.NewBuiltin(w.Heap(), w.m, text)
	} else {
		s, err = jsstring.New(w.Heap(), w.m, text)
	}
	if err != nil {
		return err
	}
	w.res.Strings++
	w.store(value.Object(s.Ref()))
	return nil
}

func (w *Workload) appendProp() error {
	g := w.rng.IntN(len(w.roots.vals))
	var arr props.Array
	if cur := w.roots.vals[g]; cur.IsObject() && w.isProps(cur.Ref()) {
		arr, _ = props.At(w.Heap(), cur.Ref())
	} else {
		a, err := props.Make(w.Heap(), w.m, w.rng.IntN(5), 0, w.serial)
		if err != nil {
			return err
		}
		arr = a
		w.roots.vals[g] = value.Object(arr.Ref())
	}

	if arr.Used() > 0 && w.rng.IntN(6) == 0 {
		arr.Delete(w.rng.IntN(arr.Used()))
		return nil
	}
	w.serial++
	grown, _, err := arr.Append(w.m, w.pick(), w.serial)
	if err != nil {
		return err
	}
	if grown.Ref() != arr.Ref() {
		w.res.PropsGrows++
	}
	w.roots.vals[g] = value.Object(grown.Ref())
	w.res.Appends++
	return nil
}

func (w *Workload) isProps(ref arena.Ref) bool {
	o, err := w.Heap().Object(ref)
	return err == nil && o.Tag() == boxed.TagPropertiesArray
}

func (w *Workload) newForeign() error {
	ref, err := w.Heap().NewForeign(w.m, w.rng.Uint64())
	if err != nil {
		return err
	}
	w.res.Foreign++
	w.store(value.Object(ref))
	return nil
}

func (w *Workload) large() error {
	size := max(w.opts.LargeSize, 16)
	ref, err := w.Heap().Allocate(w.m, size)
	if err != nil {
		return err
	}
	if err := w.Heap().ChangeTag(ref, boxed.TagString); err != nil {
		return err
	}
	o, err := w.Heap().Object(ref)
	if err != nil {
		return err
	}
	o.PutU32(format.StringLengthOffset, uint32((size-format.StringDataOffset)/2))
	w.res.Large++
	w.store(value.Object(ref))
	return nil
}

func (w *Workload) pin() {
	v := w.pick()
	if !v.IsObject() {
		return
	}
	w.Heap().AddDynamicRoot(v.Ref())
	w.pinned = append(w.pinned, v.Ref())
	w.res.Pins++
}

func (w *Workload) unpin() {
	if len(w.pinned) == 0 {
		return
	}
	i := w.rng.IntN(len(w.pinned))
	w.Heap().RemoveDynamicRoot(w.pinned[i])
	w.pinned[i] = w.pinned[len(w.pinned)-1]
	w.pinned = w.pinned[:len(w.pinned)-1]
	w.res.Unpins++
}

func (w *Workload) drop() {
	w.roots.vals[w.rng.IntN(len(w.roots.vals))] = value.Undefined
	w.res.Drops++
}

// Verify walks everything reachable from the workload's globals and pins
// and fails if any of it was reclaimed.
func (w *Workload) Verify() error {
	w.res.Checks++
	seen := make(map[arena.Ref]bool)
	var queue []arena.Ref
	for _, v := range w.roots.vals {
		if v.IsObject() {
			queue = append(queue, v.Ref())
		}
	}
	queue = append(queue, w.pinned...)
	for len(queue) > 0 {
		ref := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		o, err := w.Heap().Object(ref)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCorrupt, ref, err)
		}
		if o.Tag() == boxed.TagFree {
			return fmt.Errorf("%w: %s", ErrCorrupt, ref)
		}
		edges, err := w.Heap().Edges(ref)
		if err != nil {
			return err
		}
		queue = append(queue, edges...)
	}
	return nil
}
