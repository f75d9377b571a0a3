package format

import "errors"

// ErrInvariant is the panic value family raised by debug-build assertions.
// Release builds never check these preconditions.
var ErrInvariant = errors.New("format: invariant violated")
