package ir

import (
	"maps"
	"slices"
	"unicode/utf16"
)

// Value is a literal carried by the IR: a front-matter entry, a condition
// operand, a spawn input or a runtime-call argument. The set is closed.
// There is no float; the resolver rejects fractional literals.
type Value interface {
	irValue()
}

// Null is the JSON null literal.
type Null struct{}

func (Null) irValue() {}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// String is a string literal.
type String string

func (String) irValue() {}

// Int is an integer literal. Always int64, never float64.
type Int int64

func (Int) irValue() {}

// Bool is a boolean literal.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps string keys to values. Iterate with SortedKeys.
type Object map[string]Value

func (Object) irValue() {}

// SortedKeys orders the keys by UTF-16 code units, as RFC 8785 requires.
// Byte order differs for keys outside the BMP.
func (obj Object) SortedKeys() []string {
	return slices.SortedFunc(maps.Keys(obj), compareUTF16)
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// MarshalJSON writes the object in canonical form.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// Truthy reports the static truthiness of a literal: present, non-empty and
// not literal false, 0 or the empty string.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case String:
		return val != ""
	case Int:
		return val != 0
	case Bool:
		return bool(val)
	case Array:
		return len(val) > 0
	case Object:
		return len(val) > 0
	default:
		return false
	}
}

// TextOf renders a literal the way it appears inline in prose: strings are
// unquoted, everything else is its JSON form.
func TextOf(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	b, err := MarshalCanonical(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
