// Package value provides the dynamically typed datum held by store slots.
package value

import (
	"errors"
	"math"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// Invalid is the kind of the zero Value, which is the NotSet sentinel.
	Invalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	// KindOpaque holds a Go value that cannot be serialized.
	KindOpaque
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindOpaque:
		return "opaque"
	default:
		return "notset"
	}
}

// ErrNotSerializable is returned when an opaque value or NotSet is marshalled.
var ErrNotSerializable = errors.New("value: not serializable")

// Value is an immutable dynamically typed datum.
//
// Scalars (null, bool, number, string) compare by value. Arrays, objects and
// opaque values are references: every constructor call creates a new identity
// and two references are the same only if they come from the same call.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	ref  *ref
}

// ref is the shared identity of reference values.
type ref struct {
	items  []Value
	fields map[string]Value
	opaque any
}

// NotSet is the absent sentinel. It is never a legitimate stored value.
var NotSet = Value{}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a numeric value from an integer.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array returns a new array reference holding a copy of items.
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, ref: &ref{items: cp}}
}

// Object returns a new object reference holding a copy of fields.
func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, ref: &ref{fields: cp}}
}

// Opaque wraps an arbitrary Go value. Opaque values can be stored but not
// persisted.
func Opaque(v any) Value {
	return Value{kind: KindOpaque, ref: &ref{opaque: v}}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether v is anything other than NotSet.
func (v Value) IsSet() bool { return v.kind != Invalid }

// Complete reports whether v is set and no array element or object field
// inside it, at any depth, is NotSet.
func (v Value) Complete() bool {
	switch v.kind {
	case Invalid:
		return false
	case KindArray:
		for _, item := range v.ref.items {
			if !item.Complete() {
				return false
			}
		}
	case KindObject:
		for _, f := range v.ref.fields {
			if !f.Complete() {
				return false
			}
		}
	}
	return true
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// Items returns a copy of the array elements, or nil if v is not an array.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	cp := make([]Value, len(v.ref.items))
	copy(cp, v.ref.items)
	return cp
}

// Len returns the number of array elements or object fields.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.ref.items)
	case KindObject:
		return len(v.ref.fields)
	case KindString:
		return len(v.str)
	}
	return 0
}

// Fields returns a copy of the object fields, or nil if v is not an object.
func (v Value) Fields() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	cp := make(map[string]Value, len(v.ref.fields))
	for k, f := range v.ref.fields {
		cp[k] = f
	}
	return cp
}

// Field returns a single object field.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return NotSet, false
	}
	f, ok := v.ref.fields[name]
	return f, ok
}

// Keys returns the sorted object keys.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.ref.fields))
	for k := range v.ref.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unwrap returns the Go value held by an opaque value.
func (v Value) Unwrap() (any, bool) {
	if v.kind != KindOpaque {
		return nil, false
	}
	return v.ref.opaque, true
}

// Interface converts v to plain Go data: nil, bool, float64, string,
// []any, map[string]any, or the wrapped opaque value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.ref.items))
		for i, item := range v.ref.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.ref.fields))
		for k, f := range v.ref.fields {
			out[k] = f.Interface()
		}
		return out
	case KindOpaque:
		return v.ref.opaque
	}
	return nil
}

// String renders v for diagnostics. It is not a serialization format.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindArray:
		return "array(" + strconv.Itoa(len(v.ref.items)) + ")"
	case KindObject:
		return "object(" + strconv.Itoa(len(v.ref.fields)) + ")"
	case KindOpaque:
		return "opaque"
	}
	return "notset"
}

// Same reports whether a and b are indistinguishable under identity
// semantics: NaN is the same as NaN, +0 and -0 differ, and reference values
// are the same only when they share identity.
func Same(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Invalid, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		if math.IsNaN(a.num) {
			return math.IsNaN(b.num)
		}
		return math.Float64bits(a.num) == math.Float64bits(b.num)
	case KindString:
		return a.str == b.str
	default:
		return a.ref == b.ref
	}
}
