package tile

import (
	moserr "github.com/stitchlab/mosaic/pkg/errors"
)

// ValueKind identifies the type held by a [Value].
type ValueKind int

// Supported attribute value kinds.
const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// Value is a closed tagged union over the four attribute types. Use the
// constructor functions to build values; the zero Value is an empty string.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
}

// String builds a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int builds an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float builds a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the type tag of the value.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload and whether the value holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsInt returns the integer payload and whether the value holds one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload and whether the value holds one.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean payload and whether the value holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Attributes maps metadata column names to ordered, non-empty, homogeneous
// value lists. It replaces the original free-form attribute bag with a closed
// set of element types.
type Attributes map[string][]Value

// Validate checks that every list is non-empty and holds a single kind.
func (a Attributes) Validate() error {
	for key, values := range a {
		if len(values) == 0 {
			return moserr.New(moserr.ErrCodeInvalidInput, "attribute %q has an empty value list", key)
		}
		kind := values[0].Kind()
		for i, v := range values[1:] {
			if v.Kind() != kind {
				return moserr.New(moserr.ErrCodeInvalidInput,
					"attribute %q mixes %s and %s values (index %d)", key, kind, v.Kind(), i+1)
			}
		}
	}
	return nil
}
