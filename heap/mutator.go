package heap

// Mutator is an execution context attached to a heap. A mutator is
// executing between Enter and Leave; CollectIfNeeded uses the executing
// threshold for executing mutators and the lower idle threshold otherwise.
//
// Collection never runs inside mutator code: Allocate is the only place
// it can start, and the embedder guarantees that calling Allocate is a
// safe point.
type Mutator struct {
	heap       *Heap
	name       string
	depth      int
	prev, next *Mutator
}

type mutatorList struct {
	head *Mutator
	len  int
}

func (l *mutatorList) push(m *Mutator) {
	m.prev = nil
	m.next = l.head
	if l.head != nil {
		l.head.prev = m
	}
	l.head = m
	l.len++
}

func (l *mutatorList) remove(m *Mutator) {
	if m.prev != nil {
		m.prev.next = m.next
	} else {
		l.head = m.next
	}
	if m.next != nil {
		m.next.prev = m.prev
	}
	m.prev, m.next = nil, nil
	l.len--
}

// absorb moves every mutator of other to l and points them at h.
func (l *mutatorList) absorb(other *mutatorList, h *Heap) {
	for m := other.head; m != nil; {
		next := m.next
		m.heap = h
		l.push(m)
		m = next
	}
	other.head = nil
	other.len = 0
}

// executing reports whether any attached mutator is between Enter and Leave.
func (h *Heap) executing() bool {
	for m := h.mutators.head; m != nil; m = m.next {
		if m.depth > 0 {
			return true
		}
	}
	return false
}

// NewMutator attaches a new execution context to h.
func (h *Heap) NewMutator(name string) *Mutator {
	m := &Mutator{heap: h, name: name}
	h.mutators.push(m)
	return m
}

// Mutators returns the number of attached mutators.
func (h *Heap) Mutators() int { return h.mutators.len }

// Heap returns the heap m is attached to. It changes when the heap is
// merged into another one, and is nil after Close.
func (m *Mutator) Heap() *Heap { return m.heap }

// Name returns the name given at creation.
func (m *Mutator) Name() string { return m.name }

// Enter marks m as executing. Calls nest.
func (m *Mutator) Enter() { m.depth++ }

// Leave ends one Enter.
func (m *Mutator) Leave() {
	if m.depth == 0 {
		panic("heap: Leave without Enter")
	}
	m.depth--
}

// Executing reports whether m is between Enter and Leave.
func (m *Mutator) Executing() bool { return m != nil && m.depth > 0 }

// Close detaches m from its heap.
func (m *Mutator) Close() {
	if m.heap == nil {
		return
	}
	m.heap.mutators.remove(m)
	m.heap = nil
}

func (m *Mutator) String() string {
	if m == nil {
		return "<none>"
	}
	return m.name
}
