// Package strmgr implements the dialect's high-level string operations
// (spec §4.2) over a heap.Heap: concat, left/right/mid, instr, compare,
// plus the bounded temp pool that protects intermediate results during
// nested expression evaluation.
//
// Grounded on original_source/src/Runtime/StringManager.hpp and
// StringFunctions.cpp for the exact clamping rules, and StringTypes.hpp's
// TempStrPool for the ring-buffer shape.
package strmgr

import (
	"bytes"
	"fmt"

	"github.com/gwbasic/core/heap"
)

// ErrPoolFull describes a full temp pool. Push and PushCopy report that
// condition by returning nil rather than this error.
var ErrPoolFull = fmt.Errorf("strmgr: temp pool is full")

// ErrConcatTooLong is returned by Concat when the combined length would exceed 255 bytes.
var ErrConcatTooLong = fmt.Errorf("strmgr: concatenation exceeds 255 bytes")

// Manager wraps a heap.Heap with string-domain operations.
type Manager struct {
	h    *heap.Heap
	pool *TempPool
}

func New(h *heap.Heap) *Manager {
	m := &Manager{h: h, pool: NewTempPool(32)}
	h.AddRootProvider(m.pool)
	return m
}

func (m *Manager) Heap() *heap.Heap { return m.h }
func (m *Manager) Pool() *TempPool  { return m.pool }

// Len returns the length of a descriptor's string.
func (m *Manager) Len(d heap.StrDesc) int { return int(d.Len) }

// Bytes returns the live bytes of d (valid until the next allocation/GC).
func (m *Manager) Bytes(d heap.StrDesc) []byte { return m.h.Bytes(d) }

// Concat implements string `+`.
func (m *Manager) Concat(a, b heap.StrDesc) (heap.StrDesc, error) {
	total := int(a.Len) + int(b.Len)
	if total > 255 {
		return heap.StrDesc{}, ErrConcatTooLong
	}
	if total == 0 {
		return heap.StrDesc{}, nil
	}
	buf := make([]byte, total)
	copy(buf, m.h.Bytes(a))
	copy(buf[a.Len:], m.h.Bytes(b))
	return m.h.AllocCopy(buf)
}

// Left returns LEFT$(s, n): the first n bytes of s, clamped to len(s).
func (m *Manager) Left(s heap.StrDesc, n int) (heap.StrDesc, error) {
	if n <= 0 {
		return heap.StrDesc{}, nil
	}
	if n > int(s.Len) {
		n = int(s.Len)
	}
	return m.h.AllocCopy(m.h.Bytes(s)[:n])
}

// Right returns RIGHT$(s, n): the last n bytes of s, clamped to len(s).
func (m *Manager) Right(s heap.StrDesc, n int) (heap.StrDesc, error) {
	if n <= 0 {
		return heap.StrDesc{}, nil
	}
	if n > int(s.Len) {
		n = int(s.Len)
	}
	b := m.h.Bytes(s)
	return m.h.AllocCopy(b[len(b)-n:])
}

// Mid returns MID$(s, start1, optCount): start1 is 1-based; optCount<0
// means "to end". start1<1 or start1>len(s) yields the empty string.
func (m *Manager) Mid(s heap.StrDesc, start1 int, optCount int) (heap.StrDesc, error) {
	n := int(s.Len)
	if start1 < 1 || start1 > n {
		return heap.StrDesc{}, nil
	}
	start0 := start1 - 1
	remain := n - start0
	count := remain
	if optCount >= 0 && optCount < remain {
		count = optCount
	}
	if count <= 0 {
		return heap.StrDesc{}, nil
	}
	b := m.h.Bytes(s)
	return m.h.AllocCopy(b[start0 : start0+count])
}

// Instr returns INSTR([start1,] hay, needle): the 1-based index of the
// first match of needle in hay at or after start1 (default 1), or 0 if
// not found. An empty needle matches at start1 (clamped into range),
// following the original's search semantics.
func (m *Manager) Instr(hay, needle heap.StrDesc, start1 int) int {
	if start1 < 1 {
		start1 = 1
	}
	hb := m.h.Bytes(hay)
	nb := m.h.Bytes(needle)
	if start1 > len(hb)+1 {
		return 0
	}
	start0 := start1 - 1
	if len(nb) == 0 {
		return start1
	}
	idx := bytes.Index(hb[start0:], nb)
	if idx < 0 {
		return 0
	}
	return start0 + idx + 1
}

// Compare performs lexicographic comparison over unsigned bytes; an
// equal-prefix shorter string compares less than a longer one. Returns
// <0, 0, >0 like bytes.Compare.
func (m *Manager) Compare(a, b heap.StrDesc) int {
	return bytes.Compare(m.h.Bytes(a), m.h.Bytes(b))
}

// OverwriteLeft implements the in-place, length-preserving overwrite
// used by LSET-style assignment: blank-pad the first n bytes with
// spaces then copy src truncated to n, without reallocating target.
// (The MID$ statement form, which does not pad, is OverwriteMid.)
// Grounded on StringHeap.hpp's
// overwrite_left (spec.md's original_source supplement).
func (m *Manager) OverwriteLeft(target heap.StrDesc, src heap.StrDesc, n int) {
	if target.Len == 0 || n <= 0 {
		return
	}
	count := n
	if count > int(target.Len) {
		count = int(target.Len)
	}
	copyLen := count
	if copyLen > int(src.Len) {
		copyLen = int(src.Len)
	}
	region := m.h.Bytes(target)[:count]
	for i := range region {
		region[i] = ' '
	}
	if copyLen > 0 {
		copy(region, m.h.Bytes(src)[:copyLen])
	}
}

// OverwriteRight is the right-aligned counterpart of OverwriteLeft.
func (m *Manager) OverwriteRight(target heap.StrDesc, src heap.StrDesc, n int) {
	if target.Len == 0 || n <= 0 {
		return
	}
	count := n
	if count > int(target.Len) {
		count = int(target.Len)
	}
	copyLen := count
	if copyLen > int(src.Len) {
		copyLen = int(src.Len)
	}
	full := m.h.Bytes(target)
	region := full[int(target.Len)-count:]
	for i := range region {
		region[i] = ' '
	}
	if copyLen > 0 {
		srcBytes := m.h.Bytes(src)
		copy(region[count-copyLen:], srcBytes[int(src.Len)-copyLen:])
	}
}

// OverwriteMid implements MID$(target, start1[, count]) = src: a
// length-preserving, in-place overwrite starting at the 1-based
// position start1 (clamped to 1), running optCount bytes (optCount<0
// means "to end of target").
func (m *Manager) OverwriteMid(target heap.StrDesc, src heap.StrDesc, start1 int, optCount int) {
	if target.Len == 0 {
		return
	}
	if start1 < 1 {
		start1 = 1
	}
	start0 := start1 - 1
	if start0 >= int(target.Len) {
		return
	}
	remain := int(target.Len) - start0
	count := remain
	if optCount >= 0 && optCount < remain {
		count = optCount
	}
	if count <= 0 {
		return
	}
	copyLen := count
	if copyLen > int(src.Len) {
		copyLen = int(src.Len)
	}
	if copyLen > 0 {
		copy(m.h.Bytes(target)[start0:start0+copyLen], m.h.Bytes(src)[:copyLen])
	}
}
