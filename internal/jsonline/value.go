package jsonline

import (
	"strconv"

	"golang.org/x/exp/constraints"
)

// Kind discriminates the closed set of encodable value shapes.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindFloat
	KindString
	KindArray
)

// Value is one encodable element of a line: a scalar or an array of
// Values. The set is closed; anything else has to be converted through
// one of the constructors below, so an unsupported type is a compile
// error at the call site rather than a runtime failure.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	arr  []Value
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind { return v.kind }

// Bool builds a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int builds an integer value from any signed integer type.
func Int[T constraints.Signed](v T) Value { return Value{kind: KindInt, i: int64(v)} }

// Uint builds an integer value from any unsigned integer type.
func Uint[T constraints.Unsigned](v T) Value { return Value{kind: KindUint, u: uint64(v)} }

// Float builds a floating point value.
func Float[T constraints.Float](v T) Value { return Value{kind: KindFloat, f: float64(v)} }

// Str builds a text value from a string.
func Str(v string) Value { return Value{kind: KindString, s: v} }

// Text builds a text value from a string or byte sequence. A byte
// sequence is text, never an array of character codes; there is no
// constructor that turns bytes into a numeric array.
func Text[T ~string | ~[]byte](v T) Value { return Value{kind: KindString, s: string(v)} }

// Array builds an array value. Elements render in the given order and
// may themselves be arrays.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Ints converts a slice of signed integers to an array value.
func Ints[T constraints.Signed](vs []T) Value {
	arr := make([]Value, len(vs))
	for i, v := range vs {
		arr[i] = Int(v)
	}
	return Value{kind: KindArray, arr: arr}
}

// Strs converts a slice of strings to an array value.
func Strs(vs []string) Value {
	arr := make([]Value, len(vs))
	for i, v := range vs {
		arr[i] = Str(v)
	}
	return Value{kind: KindArray, arr: arr}
}

// String renders the value in its JSON textual form.
func (v Value) String() string { return string(v.appendTo(nil)) }

// appendTo appends the JSON textual form of v to dst.
func (v Value) appendTo(dst []byte) []byte {
	switch v.kind {
	case KindBool:
		if v.b {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case KindInt:
		return strconv.AppendInt(dst, v.i, 10)
	case KindUint:
		return strconv.AppendUint(dst, v.u, 10)
	case KindFloat:
		return strconv.AppendFloat(dst, v.f, 'g', -1, 64)
	case KindString:
		return appendEscaped(dst, v.s)
	case KindArray:
		dst = append(dst, '[')
		for i, e := range v.arr {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = e.appendTo(dst)
		}
		return append(dst, ']')
	}
	// Kind is closed; constructors cannot produce anything else.
	return dst
}

// appendEscaped appends s as a quoted JSON string. Only the characters
// in the escape table are rewritten; everything else, including
// non-ASCII bytes, passes through verbatim.
func appendEscaped(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			dst = append(dst, '\\', '\\')
		case '"':
			dst = append(dst, '\\', '"')
		case '/':
			dst = append(dst, '\\', '/')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}
