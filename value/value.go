// Package value implements the dialect's tagged scalar Value (spec §3.1):
// a sum type over Int16, Single, Double, and StringRef, with no untagged
// container ever holding one of these without its Kind.
package value

import "github.com/gwbasic/core/heap"

// Kind tags which variant of Value is populated.
type Kind uint8

const (
	Int16 Kind = iota
	Single
	Double
	StringRef
)

func (k Kind) String() string {
	switch k {
	case Int16:
		return "Int16"
	case Single:
		return "Single"
	case Double:
		return "Double"
	case StringRef:
		return "String"
	default:
		return "Unknown"
	}
}

// Value is a tagged scalar. Exactly one of i/f/d/s is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind
	i    int16
	f    float32
	d    float64
	s    heap.StrDesc
}

func MakeInt16(v int16) Value    { return Value{Kind: Int16, i: v} }
func MakeSingle(v float32) Value { return Value{Kind: Single, f: v} }
func MakeDouble(v float64) Value { return Value{Kind: Double, d: v} }
func MakeString(s heap.StrDesc) Value {
	return Value{Kind: StringRef, s: s}
}

// Empty returns the zero-length empty string value.
func Empty() Value { return Value{Kind: StringRef} }

func (v Value) Int16Val() int16       { return v.i }
func (v Value) SingleVal() float32    { return v.f }
func (v Value) DoubleVal() float64    { return v.d }
func (v Value) StrDesc() heap.StrDesc { return v.s }

// StrDescPtr returns a pointer to v's internal string descriptor, for
// registration as a heap.RootProvider target: the heap's mark-compact
// GC rewrites a StrDesc's Ptr field in place when it relocates the
// bytes, so anything that holds a Value across an allocation point
// must expose this rather than a copy. Callers must only call this on
// an addressable Value (e.g. a field of a struct reachable by pointer).
func (v *Value) StrDescPtr() *heap.StrDesc { return &v.s }

func (v Value) IsString() bool  { return v.Kind == StringRef }
func (v Value) IsNumeric() bool { return v.Kind != StringRef }

// AsFloat64 converts any numeric Value to float64. Calling this on a
// String value panics; callers must check IsNumeric first.
func (v Value) AsFloat64() float64 {
	switch v.Kind {
	case Int16:
		return float64(v.i)
	case Single:
		return float64(v.f)
	case Double:
		return v.d
	default:
		panic("value: AsFloat64 on a String value")
	}
}

// DefaultForKind returns the zero value of the given kind (numeric
// zero, or the empty string for StringRef).
func DefaultForKind(k Kind) Value {
	switch k {
	case Int16:
		return MakeInt16(0)
	case Single:
		return MakeSingle(0)
	case Double:
		return MakeDouble(0)
	default:
		return Empty()
	}
}
