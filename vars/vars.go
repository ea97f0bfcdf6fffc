// Package vars implements the dialect's VariableTable (spec §3.5, §4.3):
// symbol normalization (first two alphanumeric characters, uppercased,
// aliasing later collisions rather than rejecting them), default typing
// via DEFTBL, and scalar variable slots. A slot is either a scalar or an
// array slot, sharing one key namespace — never both.
//
// Grounded on original_source/src/Runtime/VariableTable.hpp
// (SymbolKey, getOrCreate, tryGet) with Go's map+comparable-struct key
// replacing the C++ custom hash.
package vars

import (
	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/heap"
	"github.com/gwbasic/core/value"
)

// Key is the normalized symbol key: the first two alphanumeric
// characters of the identifier, uppercased, plus its type suffix (0 if
// none).
type Key struct {
	Name   string
	Suffix byte
}

// Normalize builds a Key from a raw identifier. Only the first two
// alphanumeric characters are significant; a trailing suffix character
// (%!#$) is split off first.
func Normalize(raw string) Key {
	name := raw
	var suffix byte
	if n := len(raw); n > 0 {
		switch raw[n-1] {
		case '%', '!', '#', '$':
			suffix = raw[n-1]
			name = raw[:n-1]
		}
	}
	var b []byte
	for i := 0; i < len(name) && len(b) < 2; i++ {
		c := name[i]
		if isAlnum(c) {
			b = append(b, upper(c))
		}
	}
	return Key{Name: string(b), Suffix: suffix}
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// Slot is either a scalar value or a reference to an array by name —
// never both; IsArray discriminates.
type Slot struct {
	IsArray   bool
	Scalar    value.Value
	ArrayName string // valid when IsArray
}

// Table is the VariableTable: a map from normalized Key to Slot, plus
// the DEFTBL default-typing table. It is a heap.RootProvider over every
// string-typed scalar slot.
type Table struct {
	deftbl *DefaultTypeTable
	h      *heap.Heap
	slots  map[Key]*Slot
}

func New(deftbl *DefaultTypeTable, h *heap.Heap) *Table {
	t := &Table{deftbl: deftbl, h: h, slots: make(map[Key]*Slot)}
	if h != nil {
		h.AddRootProvider(t)
	}
	return t
}

// GetOrCreate resolves rawName to its slot, creating a scalar slot with
// the DEFTBL/suffix-inferred type if it does not already exist. It
// returns basicerr.TypeMismatch if the existing slot is an array.
func (t *Table) GetOrCreate(rawName string) (*Slot, error) {
	key := Normalize(rawName)
	if s, ok := t.slots[key]; ok {
		if s.IsArray {
			return nil, basicerr.New(basicerr.TypeMismatch, 0)
		}
		return s, nil
	}
	kind := t.inferKind(key)
	s := &Slot{Scalar: value.DefaultForKind(kind)}
	t.slots[key] = s
	return s, nil
}

func (t *Table) inferKind(key Key) value.Kind {
	if key.Suffix != 0 {
		if k, ok := KindFromSuffix(key.Suffix); ok {
			return k
		}
	}
	lead := byte('A')
	if len(key.Name) > 0 {
		lead = key.Name[0]
	}
	return t.deftbl.DefaultFor(lead)
}

// TryGet returns the existing slot for rawName, or nil if none exists.
func (t *Table) TryGet(rawName string) *Slot {
	key := Normalize(rawName)
	return t.slots[key]
}

// CreateArraySlot registers rawName as an array slot bound to
// arrayName in an ArrayManager. It fails with basicerr.RedimensionedArray
// if any slot (scalar or array) already exists under this key.
func (t *Table) CreateArraySlot(rawName, arrayName string) error {
	key := Normalize(rawName)
	if _, ok := t.slots[key]; ok {
		return basicerr.New(basicerr.RedimensionedArray, 0)
	}
	t.slots[key] = &Slot{IsArray: true, ArrayName: arrayName}
	return nil
}

// SetScalar assigns v into rawName's scalar slot, coercing as needed by
// the caller (the evaluator is responsible for type coercion before
// calling this). Fails if the slot is an array.
func (t *Table) SetScalar(rawName string, v value.Value) error {
	s, err := t.GetOrCreate(rawName)
	if err != nil {
		return err
	}
	s.Scalar = v
	return nil
}

// Clear empties the table (NEW-style reset; spec.md's original_source
// supplement, see SPEC_FULL.md).
func (t *Table) Clear() {
	t.slots = make(map[Key]*Slot)
}

func (t *Table) Len() int { return len(t.slots) }

// AppendStringRoots implements heap.RootProvider.
func (t *Table) AppendStringRoots(dst []*heap.StrDesc) []*heap.StrDesc {
	for _, s := range t.slots {
		if !s.IsArray && s.Scalar.Kind == value.StringRef {
			dst = append(dst, s.Scalar.StrDescPtr())
		}
	}
	return dst
}
