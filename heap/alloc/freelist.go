package alloc

import (
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/internal/format"
)

// Resolver maps heap addresses to pages. *arena.Space implements it.
type Resolver interface {
	Resolve(r arena.Ref) (*arena.Page, int, bool)
}

// Stats holds free list statistics for testing and instrumentation.
type Stats struct {
	Inserts  int // Nodes linked
	Rejected int // Records too small to link
	Takes    int // Successful Take calls
	Misses   int // Take calls that found no fit
	Scanned  int // Nodes inspected by Take
}

// FreeLists is a set of segregated free lists, one per size class plus a
// trailing large list.
type FreeLists struct {
	space Resolver
	table *sizeClassTable

	heads  []arena.Ref
	counts []int
	bytes  int
	nodes  int

	stats Stats
}

// New creates empty free lists over space using config for the class
// boundaries. A zero config selects DefaultConfig.
func New(space Resolver, config SizeClassConfig) *FreeLists {
	if config.Name == "" && config.SmallMin == 0 {
		config = DefaultConfig
	}
	table := newSizeClassTable(config)
	return &FreeLists{
		space:  space,
		table:  table,
		heads:  make([]arena.Ref, table.NumClasses()+1),
		counts: make([]int, table.NumClasses()+1),
	}
}

func (fl *FreeLists) object(r arena.Ref) boxed.Object {
	p, off, ok := fl.space.Resolve(r)
	format.Assert(ok, "free list node %s does not resolve", r)
	return boxed.At(p, off)
}

// Insert links o, which must already be tagged free, at the head of its
// size class. It returns false and leaves o unlinked when o is too small to
// be a free node.
func (fl *FreeLists) Insert(o boxed.Object) bool {
	format.Assert(o.Tag() == boxed.TagFree, "inserting %s record %s", o.Tag(), o.Ref())
	n, ok := boxed.AsFreeNode(o)
	if !ok {
		fl.stats.Rejected++
		return false
	}
	size := boxed.ObjectSize(o)
	sc := fl.table.getSizeClass(size)
	n.SetNext(fl.heads[sc])
	fl.heads[sc] = o.Ref()
	fl.counts[sc]++
	fl.bytes += size
	fl.nodes++
	fl.stats.Inserts++
	return true
}

// Take unlinks and returns a free record of at least need bytes. Smaller
// classes are never searched; within a class the first fit wins.
func (fl *FreeLists) Take(need int) (boxed.Object, bool) {
	for sc := fl.table.getSizeClass(need); sc < len(fl.heads); sc++ {
		if fl.heads[sc] == arena.Nil {
			continue
		}
		if o, ok := fl.takeFrom(sc, need); ok {
			fl.stats.Takes++
			return o, true
		}
	}
	fl.stats.Misses++
	return boxed.Object{}, false
}

func (fl *FreeLists) takeFrom(sc int, need int) (boxed.Object, bool) {
	var prev boxed.FreeNode
	havePrev := false
	for r := fl.heads[sc]; r != arena.Nil; {
		fl.stats.Scanned++
		o := fl.object(r)
		n, _ := boxed.AsFreeNode(o)
		size := boxed.ObjectSize(o)
		if size >= need {
			if havePrev {
				prev.SetNext(n.Next())
			} else {
				fl.heads[sc] = n.Next()
			}
			n.SetNext(arena.Nil)
			fl.counts[sc]--
			fl.bytes -= size
			fl.nodes--
			return o, true
		}
		prev, havePrev = n, true
		r = n.Next()
	}
	return boxed.Object{}, false
}

// Drain unlinks every node, calling fn for each in list order.
func (fl *FreeLists) Drain(fn func(o boxed.Object)) {
	for sc := range fl.heads {
		for r := fl.heads[sc]; r != arena.Nil; {
			o := fl.object(r)
			n, _ := boxed.AsFreeNode(o)
			r = n.Next()
			n.SetNext(arena.Nil)
			if fn != nil {
				fn(o)
			}
		}
	}
	fl.Reset()
}

// Reset forgets every node without touching page memory. Used when sweep
// rebuilds the lists from scratch.
func (fl *FreeLists) Reset() {
	clear(fl.heads)
	clear(fl.counts)
	fl.bytes = 0
	fl.nodes = 0
}

// Bytes returns the total size of linked nodes.
func (fl *FreeLists) Bytes() int { return fl.bytes }

// Len returns the number of linked nodes.
func (fl *FreeLists) Len() int { return fl.nodes }

// ClassCount returns the number of nodes in size class sc. The large list
// is class NumClasses().
func (fl *FreeLists) ClassCount(sc int) int { return fl.counts[sc] }

// NumClasses returns the number of size classes, excluding the large list.
func (fl *FreeLists) NumClasses() int { return fl.table.NumClasses() }

// SizeClass returns the class index a record of size bytes is filed under.
func (fl *FreeLists) SizeClass(size int) int { return fl.table.getSizeClass(size) }

// Config returns the size class configuration in use.
func (fl *FreeLists) Config() SizeClassConfig { return fl.table.config }

// Stats returns a copy of the list statistics.
func (fl *FreeLists) Stats() Stats { return fl.stats }
