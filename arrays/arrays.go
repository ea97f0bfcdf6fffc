// Package arrays implements the dialect's multi-dimensional arrays
// (spec §3.4, §4.3): contiguous typed storage, right-to-left strides,
// bounds checking, and GC-root contribution for string array elements.
//
// Grounded on original_source/src/Runtime/ArrayManager.cpp and
// ArrayTypes.hpp (Dim{lb,ub,stride}, finalizeStrides, flatIndex)
// almost directly; elemPtr-into-a-contiguous-byte-block follows
// internal/gocore/object.go's object-as-offset-into-backing-bytes model.
package arrays

import (
	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/heap"
	"github.com/gwbasic/core/value"
)

// Dim is one dimension's inclusive bounds and stride, in elements.
type Dim struct {
	LB, UB int
	Stride int
}

func (d Dim) extent() int { return d.UB - d.LB + 1 }

// Array is one multi-dimensional array's metadata and storage. String
// elements are stored as value.Value with Kind==StringRef directly in
// Elems; numeric elements likewise, avoiding a second byte-level
// encoding layer the C++ original needed but Go's slice-of-Value does not.
type Array struct {
	Kind  value.Kind
	Dims  []Dim
	Count int
	Elems []value.Value
}

// Manager owns every array in a running program. It is a
// heap.RootProvider contributing every string element of every string
// array.
type Manager struct {
	h          *heap.Heap
	arrays     map[string]*Array
	optionBase int
	baseFrozen bool
}

func New(h *heap.Heap) *Manager {
	m := &Manager{h: h, arrays: make(map[string]*Array)}
	if h != nil {
		h.AddRootProvider(m)
	}
	return m
}

// SetOptionBase sets the array lower bound (0 or 1) used by dimensions
// that omit an explicit lower bound. Per Open Question (b), resolved
// as "first DIM freezes the base": once any array exists, further
// calls fail with basicerr.IllegalFunctionCall.
func (m *Manager) SetOptionBase(base int) error {
	if m.baseFrozen {
		return basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	m.optionBase = base
	return nil
}

func (m *Manager) OptionBase() int { return m.optionBase }

// CreateArray creates a new array named name with the given per-dimension
// upper bounds (lower bound is the current option base for every
// dimension, matching DIM A(10) style declarations). Fails with
// basicerr.RedimensionedArray if the name already exists.
func (m *Manager) CreateArray(name string, kind value.Kind, upperBounds []int) error {
	if _, exists := m.arrays[name]; exists {
		return basicerr.New(basicerr.RedimensionedArray, 0)
	}
	m.baseFrozen = true

	dims := make([]Dim, len(upperBounds))
	for i, ub := range upperBounds {
		dims[i] = Dim{LB: m.optionBase, UB: ub}
	}
	finalizeStrides(dims)

	count := 1
	if len(dims) > 0 {
		count = dims[0].Stride * dims[0].extent()
	}

	elems := make([]value.Value, count)
	for i := range elems {
		elems[i] = value.DefaultForKind(kind)
	}

	m.arrays[name] = &Array{Kind: kind, Dims: dims, Count: count, Elems: elems}
	return nil
}

// finalizeStrides builds strides right-to-left so the rightmost index
// varies fastest, per spec §3.4.
func finalizeStrides(dims []Dim) {
	stride := 1
	for i := len(dims) - 1; i >= 0; i-- {
		dims[i].Stride = stride
		stride *= dims[i].extent()
	}
}

func (m *Manager) Exists(name string) bool {
	_, ok := m.arrays[name]
	return ok
}

func (m *Manager) Info(name string) (*Array, bool) {
	a, ok := m.arrays[name]
	return a, ok
}

// flatIndex validates subscripts against bounds and computes the flat
// element offset, per the Index invariant (spec §3.4).
func flatIndex(a *Array, subs []int) (int, error) {
	if len(subs) != len(a.Dims) {
		return 0, basicerr.New(basicerr.SubscriptOutOfRange, 0)
	}
	idx := 0
	for k, d := range a.Dims {
		s := subs[k]
		if s < d.LB || s > d.UB {
			return 0, basicerr.New(basicerr.SubscriptOutOfRange, 0)
		}
		idx += (s - d.LB) * d.Stride
	}
	if idx < 0 || idx >= a.Count {
		return 0, basicerr.New(basicerr.SubscriptOutOfRange, 0)
	}
	return idx, nil
}

// GetElement returns the element at subs, or a basicerr if name is
// unknown or subs are out of bounds. It does not check the element kind.
func (m *Manager) GetElement(name string, subs []int) (value.Value, error) {
	a, ok := m.arrays[name]
	if !ok {
		return value.Value{}, basicerr.New(basicerr.SubscriptOutOfRange, 0)
	}
	idx, err := flatIndex(a, subs)
	if err != nil {
		return value.Value{}, err
	}
	return a.Elems[idx], nil
}

// SetElement stores v at subs. v.Kind must match the array's element kind.
func (m *Manager) SetElement(name string, subs []int, v value.Value) error {
	a, ok := m.arrays[name]
	if !ok {
		return basicerr.New(basicerr.SubscriptOutOfRange, 0)
	}
	if v.Kind != a.Kind {
		return basicerr.New(basicerr.TypeMismatch, 0)
	}
	idx, err := flatIndex(a, subs)
	if err != nil {
		return err
	}
	a.Elems[idx] = v
	return nil
}

// Clear removes every array and unfreezes the option base (NEW-style reset).
func (m *Manager) Clear() {
	m.arrays = make(map[string]*Array)
	m.baseFrozen = false
}

func (m *Manager) Len() int { return len(m.arrays) }

// AppendStringRoots implements heap.RootProvider: every element of
// every string-typed array is a GC root.
func (m *Manager) AppendStringRoots(dst []*heap.StrDesc) []*heap.StrDesc {
	for _, a := range m.arrays {
		if a.Kind != value.StringRef {
			continue
		}
		for i := range a.Elems {
			dst = append(dst, a.Elems[i].StrDescPtr())
		}
	}
	return dst
}
