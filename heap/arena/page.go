package arena

// Page is a contiguous block of heap memory. A normal page is shared by many
// records; a large page holds exactly one object whose size is recorded here
// because it may not fit the header size field.
type Page struct {
	id         uint32
	data       []byte
	large      bool
	objectSize int

	// Owner identifies the heap that currently allocates from and sweeps
	// this page. It is compared by identity only.
	Owner any
}

// ID returns the page ID.
func (p *Page) ID() uint32 { return p.id }

// Bytes returns the page memory.
func (p *Page) Bytes() []byte { return p.data }

// Len returns the page size in bytes.
func (p *Page) Len() int { return len(p.data) }

// Large reports whether the page is a dedicated large-object page.
func (p *Page) Large() bool { return p.large }

// ObjectSize returns the authoritative size of the single object on a large
// page. It is zero for normal pages.
func (p *Page) ObjectSize() int { return p.objectSize }

// SetObjectSize records the size of the object occupying a large page.
func (p *Page) SetObjectSize(n int) { p.objectSize = n }

// Ref returns the heap address of byte offset off within the page.
func (p *Page) Ref(off int) Ref {
	return MakeRef(p.id, uint32(off))
}

// Contains reports whether r points into this page.
func (p *Page) Contains(r Ref) bool {
	return r.Page() == p.id && int(r.Offset()) < len(p.data)
}
