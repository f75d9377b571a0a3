// Package value defines the 64-bit tagged values stored in object slots.
//
// Encoding (low three bits select the kind):
//
//	0               undefined (the zero word, so fresh memory reads as undefined)
//	ref, low 000    object reference (refs are 8-byte aligned and never zero)
//	1               null
//	bool<<3 | 2     boolean
//	int32<<32 | 3   32-bit integer
package value

import (
	"fmt"

	"github.com/joshuapare/boxheap/heap/arena"
)

// Value is one slot word.
type Value uint64

const (
	kindMask  = 0x7
	kindRef   = 0
	kindNull  = 1
	kindBool  = 2
	kindInt   = 3
	boolShift = 3
	intShift  = 32
)

const (
	// Undefined is the zero Value.
	Undefined Value = 0
	// Null is the null Value.
	Null Value = kindNull
)

// Object returns a Value referring to the heap object at r.
func Object(r arena.Ref) Value {
	return Value(r)
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value(1<<boolShift | kindBool)
	}
	return Value(kindBool)
}

// Int returns an integer Value.
func Int(i int32) Value {
	return Value(uint64(uint32(i))<<intShift | kindInt)
}

// IsUndefined reports whether v is undefined.
func (v Value) IsUndefined() bool { return v == Undefined }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v == Null }

// IsObject reports whether v refers to a heap object.
func (v Value) IsObject() bool { return v != Undefined && v&kindMask == kindRef }

// IsBool reports whether v is a boolean.
func (v Value) IsBool() bool { return v&kindMask == kindBool }

// IsInt reports whether v is an integer.
func (v Value) IsInt() bool { return v&kindMask == kindInt }

// Ref returns the referenced object, or arena.Nil for non-object values.
func (v Value) Ref() arena.Ref {
	if !v.IsObject() {
		return arena.Nil
	}
	return arena.Ref(v)
}

// AsBool returns the boolean payload. It is false for non-booleans.
func (v Value) AsBool() bool {
	return v.IsBool() && v>>boolShift&1 == 1
}

// AsInt returns the integer payload. It is zero for non-integers.
func (v Value) AsInt() int32 {
	if !v.IsInt() {
		return 0
	}
	return int32(uint32(v >> intShift))
}

func (v Value) String() string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsObject():
		return "object(" + v.Ref().String() + ")"
	case v.IsBool():
		return fmt.Sprintf("%t", v.AsBool())
	case v.IsInt():
		return fmt.Sprintf("%d", v.AsInt())
	default:
		return fmt.Sprintf("value(0x%X)", uint64(v))
	}
}
