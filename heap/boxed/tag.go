// Package boxed provides typed access to heap records: the header every
// collectible value starts with, free-list nodes, and the per-tag kind
// table the collector dispatches through.
package boxed

import "fmt"

// Tag is the lifecycle tag stored in a record header.
type Tag uint8

const (
	// TagUninitialized is the tag of a fresh allocation. The allocating code
	// must set the real tag before the object becomes reachable.
	TagUninitialized Tag = 0
	// TagFree marks free-list nodes and unreachable records after sweep.
	TagFree Tag = 1
	// TagSlots is a generic object holding a vector of values.
	TagSlots Tag = 2
	// TagPropertiesArray is a growable property storage array.
	TagPropertiesArray Tag = 3
	// TagString is an immutable UTF-16 string.
	TagString Tag = 4
	// TagForeign wraps an embedder-owned resource released at sweep time.
	TagForeign Tag = 5

	// TagFirstEmbedder is the first tag available to embedder-defined kinds.
	TagFirstEmbedder Tag = 32
)

var tagNames = map[Tag]string{
	TagUninitialized:   "uninitialized",
	TagFree:            "free",
	TagSlots:           "slots",
	TagPropertiesArray: "properties",
	TagString:          "string",
	TagForeign:         "foreign",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// IsBuiltin reports whether t is reserved for kinds defined by this module.
func (t Tag) IsBuiltin() bool {
	return t < TagFirstEmbedder
}
