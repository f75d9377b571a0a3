//go:build boxheap_debug

package format

// DebugChecks enables invariant assertions (boxheap_debug build tag).
const DebugChecks = true
