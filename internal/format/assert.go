package format

import "fmt"

// Assert panics with ErrInvariant when cond is false and the module was built
// with the boxheap_debug tag. Callers guard expensive conditions with
// DebugChecks themselves so release builds pay nothing.
func Assert(cond bool, msg string, args ...any) {
	if DebugChecks && !cond {
		panic(fmt.Errorf("%w: "+msg, append([]any{ErrInvariant}, args...)...))
	}
}
