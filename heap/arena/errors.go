package arena

import "errors"

var (
	// ErrPageAlloc indicates that the platform could not provide page memory.
	ErrPageAlloc = errors.New("arena: page allocation failed")

	// ErrBadPageSize indicates a non-positive or misaligned page size request.
	ErrBadPageSize = errors.New("arena: bad page size")

	// ErrUnknownPage indicates a page that is not (or no longer) registered.
	ErrUnknownPage = errors.New("arena: unknown page")

	// ErrIDsExhausted indicates the Space ran out of page IDs.
	ErrIDsExhausted = errors.New("arena: page ids exhausted")
)
