// Package snapshot captures the object graph of a heap for offline
// inspection, and provides a reference reachability computation that does
// not depend on the collector.
package snapshot

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/joshuapare/boxheap/heap"
	"github.com/joshuapare/boxheap/heap/arena"
	"github.com/joshuapare/boxheap/heap/boxed"
)

// Version is the snapshot format version written by Encode.
const Version = 1

// Object is one allocated record.
type Object struct {
	Ref   arena.Ref   `cbor:"1,keyasint"`
	Tag   boxed.Tag   `cbor:"2,keyasint"`
	Size  int         `cbor:"3,keyasint"`
	Bits  uint8       `cbor:"4,keyasint,omitempty"`
	Edges []arena.Ref `cbor:"5,keyasint,omitempty"`
}

// Snapshot is the object graph of a heap at one point in time.
type Snapshot struct {
	Version     int         `cbor:"1,keyasint"`
	TakenAt     int64       `cbor:"2,keyasint"` // Unix nanoseconds
	BytesLive   int64       `cbor:"3,keyasint"`
	BytesInHeap int64       `cbor:"4,keyasint"`
	Collections int64       `cbor:"5,keyasint"`
	Roots       []arena.Ref `cbor:"6,keyasint,omitempty"`
	Objects     []Object    `cbor:"7,keyasint,omitempty"`
}

// MaxObjects is the largest object or edge list Decode accepts.
const MaxObjects = math.MaxInt32

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{MaxArrayElements: MaxObjects}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Take records every allocated object of h with its outgoing references,
// plus the references held by h's roots and dynamic roots. h must not be
// collecting.
func Take(h *heap.Heap) (*Snapshot, error) {
	if h.Destroyed() {
		return nil, heap.ErrHeapDestroyed
	}
	if h.Collecting() {
		return nil, heap.ErrCollecting
	}
	s := h.Stats()
	snap := &Snapshot{
		Version:     Version,
		TakenAt:     time.Now().UnixNano(),
		BytesLive:   s.BytesLive,
		BytesInHeap: s.BytesInHeap,
		Collections: s.Collections,
		Roots:       h.RootRefs(),
	}

	var walkErr error
	h.Walk(func(o boxed.Object) bool {
		edges, err := h.Edges(o.Ref())
		if err != nil {
			walkErr = err
			return false
		}
		snap.Objects = append(snap.Objects, Object{
			Ref:   o.Ref(),
			Tag:   o.Tag(),
			Size:  boxed.ObjectSize(o),
			Bits:  o.Bits(),
			Edges: edges,
		})
		return true
	})
	if walkErr != nil {
		return nil, fmt.Errorf("snapshot: %w", walkErr)
	}
	return snap, nil
}

// Encode writes s as canonical CBOR.
func Encode(w io.Writer, s *Snapshot) error {
	if err := encMode.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := decMode.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", s.Version)
	}
	return &s, nil
}

// Index returns the objects keyed by Ref.
func (s *Snapshot) Index() map[arena.Ref]*Object {
	idx := make(map[arena.Ref]*Object, len(s.Objects))
	for i := range s.Objects {
		idx[s.Objects[i].Ref] = &s.Objects[i]
	}
	return idx
}

// Reachable returns the objects reachable from the roots by breadth-first
// search over the recorded edges. References to objects outside the
// snapshot are ignored.
func (s *Snapshot) Reachable() map[arena.Ref]bool {
	idx := s.Index()
	seen := make(map[arena.Ref]bool, len(s.Objects))
	queue := slices.Clone(s.Roots)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref] {
			continue
		}
		o, ok := idx[ref]
		if !ok {
			continue
		}
		seen[ref] = true
		queue = append(queue, o.Edges...)
	}
	return seen
}

// TagSummary aggregates the objects of one tag.
type TagSummary struct {
	Tag       boxed.Tag
	Objects   int
	Bytes     int64
	Reachable int
}

// Summary aggregates a snapshot.
type Summary struct {
	Objects        int
	Bytes          int64
	Reachable      int
	ReachableBytes int64
	GarbageBytes   int64 // Allocated but unreachable: reclaimed by the next collection
	Tags           []TagSummary
}

// Summarize aggregates s by tag, ordered by descending byte count.
func (s *Snapshot) Summarize() Summary {
	reach := s.Reachable()
	byTag := make(map[boxed.Tag]*TagSummary)
	var sum Summary
	for _, o := range s.Objects {
		ts := byTag[o.Tag]
		if ts == nil {
			ts = &TagSummary{Tag: o.Tag}
			byTag[o.Tag] = ts
		}
		ts.Objects++
		ts.Bytes += int64(o.Size)
		sum.Objects++
		sum.Bytes += int64(o.Size)
		if reach[o.Ref] {
			ts.Reachable++
			sum.Reachable++
			sum.ReachableBytes += int64(o.Size)
		}
	}
	sum.GarbageBytes = sum.Bytes - sum.ReachableBytes
	for _, ts := range byTag {
		sum.Tags = append(sum.Tags, *ts)
	}
	slices.SortFunc(sum.Tags, func(a, b TagSummary) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	return sum
}
