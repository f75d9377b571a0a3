package heap

import (
	"fmt"

	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/markstack"
)

// Group is a set of cooperating heaps. Its heaps share one page registry,
// so references stay valid when heaps are merged, and one mark stack.
type Group struct {
	cfg   Config
	space *arena.Space
	stack *markstack.Stack
}

// NewGroup validates cfg and creates an empty group.
func NewGroup(cfg Config) (*Group, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stack := markstack.New(markstack.Options{
		SegmentCapacity: cfg.MarkStackSegment,
		MaxSegments:     cfg.MaxMarkStackSegments,
		AllocSegment:    cfg.AllocSegment,
	})
	return &Group{
		cfg:   cfg,
		space: arena.NewSpace(),
		stack: stack,
	}, nil
}

// New creates a heap in a private group.
func New(cfg Config) (*Heap, error) {
	g, err := NewGroup(cfg)
	if err != nil {
		return nil, err
	}
	h, err := g.NewHeap()
	// The group's own reference is not needed once the heap holds one.
	g.stack.Drop()
	return h, err
}

// NewHeap creates an empty heap in g.
func (g *Group) NewHeap() (*Heap, error) {
	classes, err := g.cfg.sizeClasses()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	g.stack.Retain()
	h := &Heap{
		group:   g,
		cfg:     g.cfg,
		space:   g.space,
		stack:   g.stack,
		pages:   make(map[uint32]*arena.Page),
		classes: classes,
	}
	h.init()
	return h, nil
}

// Config returns the group configuration.
func (g *Group) Config() Config { return g.cfg }

// Space returns the page registry shared by the group's heaps.
func (g *Group) Space() *arena.Space { return g.space }

// MarkStack returns the mark stack shared by the group's heaps.
func (g *Group) MarkStack() *markstack.Stack { return g.stack }

// Close drops the group's own reference to the shared mark stack. Heaps
// created earlier keep working.
func (g *Group) Close() {
	g.stack.Drop()
}
