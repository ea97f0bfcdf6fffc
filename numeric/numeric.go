// Package numeric provides the little-endian literal decoding and
// Int16 range/overflow helpers the expression evaluator and CINT-family
// built-ins depend on.
//
// Grounded on arch/arch.go's Architecture.Int/Uint/Uintptr: fixed-width
// little-endian decode out of a byte slice, just specialized to the
// token byte widths spec.md §4.5 names (2/4/8 bytes for Int16/Single/Double).
package numeric

import (
	"encoding/binary"
	"math"
)

// ByteOrder is the fixed byte order for token literal encoding.
var ByteOrder = binary.LittleEndian

// DecodeInt16 decodes a 2-byte little-endian Int16 literal (token 0x11).
func DecodeInt16(b []byte) int16 {
	return int16(ByteOrder.Uint16(b))
}

// DecodeSingle decodes a 4-byte little-endian IEEE-754 binary32 literal (token 0x1D).
func DecodeSingle(b []byte) float32 {
	return math.Float32frombits(ByteOrder.Uint32(b))
}

// DecodeDouble decodes an 8-byte little-endian IEEE-754 binary64 literal (token 0x1F).
func DecodeDouble(b []byte) float64 {
	return math.Float64frombits(ByteOrder.Uint64(b))
}

// EncodeInt16 is the inverse of DecodeInt16, used by tests and by any
// external tokenizer constructing literal bytes.
func EncodeInt16(v int16) []byte {
	b := make([]byte, 2)
	ByteOrder.PutUint16(b, uint16(v))
	return b
}

// EncodeSingle is the inverse of DecodeSingle.
func EncodeSingle(v float32) []byte {
	b := make([]byte, 4)
	ByteOrder.PutUint32(b, math.Float32bits(v))
	return b
}

// EncodeDouble is the inverse of DecodeDouble.
func EncodeDouble(v float64) []byte {
	b := make([]byte, 8)
	ByteOrder.PutUint64(b, math.Float64bits(v))
	return b
}

const (
	MinInt16 = -32768
	MaxInt16 = 32767
)

// FitsInt16 reports whether f is an exact integer representable in Int16 range.
func FitsInt16(f float64) bool {
	if f != math.Trunc(f) {
		return false
	}
	return f >= MinInt16 && f <= MaxInt16
}

// NarrowToInt16 narrows f to an Int16, either by strict range check
// (overflow is an error for the caller to raise) or by saturation,
// depending on strict.
func NarrowToInt16(f float64, strict bool) (int16, bool) {
	r := math.Round(f)
	if r >= MinInt16 && r <= MaxInt16 {
		return int16(r), true
	}
	if strict {
		return 0, false
	}
	if r < MinInt16 {
		return MinInt16, true
	}
	return MaxInt16, true
}
