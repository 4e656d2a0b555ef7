package ifd

import (
	"fmt"
	"strings"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

const (
	KindNone Kind = iota
	KindInts
	KindRationals
	KindString
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindInts:
		return "ints"
	case KindRationals:
		return "rationals"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "none"
	}
}

// Rational is a numerator/denominator pair from a RATIONAL or SRATIONAL entry.
type Rational struct {
	Num, Den int64
}

// Float64 returns the value of the rational, or 0 for a zero denominator.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Value is a decoded tag value: an integer sequence, a rational sequence, a string or an
// opaque byte blob.  The kind is fixed when the entry is filled.
type Value struct {
	kind Kind
	ints []int64
	rats []Rational
	str  string
	raw  []byte
}

func NewInts(v ...int64) Value {
	return Value{kind: KindInts, ints: v}
}

func NewRationals(v ...Rational) Value {
	return Value{kind: KindRationals, rats: v}
}

func NewString(s string) Value {
	return Value{kind: KindString, str: s}
}

func NewBytes(b []byte) Value {
	return Value{kind: KindBytes, raw: b}
}

func (v Value) Kind() Kind {
	return v.kind
}

// Len returns the # of elements held: integers, rationals, bytes, or 1 for a string.
func (v Value) Len() int {
	switch v.kind {
	case KindInts:
		return len(v.ints)
	case KindRationals:
		return len(v.rats)
	case KindString:
		return 1
	case KindBytes:
		return len(v.raw)
	}
	return 0
}

// Ints returns the integer sequence if the value holds one.
func (v Value) Ints() ([]int64, bool) {
	return v.ints, v.kind == KindInts
}

// Int returns the first integer of an integer sequence.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInts || len(v.ints) == 0 {
		return 0, false
	}
	return v.ints[0], true
}

func (v Value) Rationals() ([]Rational, bool) {
	return v.rats, v.kind == KindRationals
}

// Text returns the string if the value holds one.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Bytes() ([]byte, bool) {
	return v.raw, v.kind == KindBytes
}

func (v Value) String() string {
	const maxShown = 8
	switch v.kind {
	case KindInts:
		return shortList(v.ints, maxShown)
	case KindRationals:
		return shortList(v.rats, maxShown)
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.raw))
	}
	return "<none>"
}

func shortList[T any](vals []T, maxShown int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, val := range vals {
		if i == maxShown {
			fmt.Fprintf(&sb, " ... (%d total)", len(vals))
			break
		}
		if i != 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, val)
	}
	sb.WriteByte(']')
	return sb.String()
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}
