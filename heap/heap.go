// Package heap implements the dialect's bounded string arena with
// mark-compact garbage collection (spec §3.3, §4.1).
//
// The arena is a single fixed-size []byte. Two cursors delimit it:
// base (always 0) and end (len(buf)); a third, top, is the current
// allocation watermark and starts at end, moving toward base as bytes
// are allocated. Free space is [base, top); used space is [top, end).
//
// Grounded on original_source/src/Runtime/StringHeap.hpp for the
// allocation/compaction algorithm, and on internal/gocore/root.go's
// root-provider-as-callback pattern (Design Note: "Root providers as
// an interface, not inheritance") for how liveness is discovered
// without the heap knowing about VariableTable, ArrayManager, or any
// other holder of a StrDesc.
package heap

import (
	"fmt"
	"sort"
)

// StrDesc is a string descriptor: a length and an offset into a Heap's
// arena. The empty string is Len==0 with Ptr meaningless. A StrDesc
// never owns its bytes; the Heap does, and may relocate them during a
// compacting GC — anything holding a StrDesc across an allocation
// point must be a RootProvider or use Heap.Protect.
type StrDesc struct {
	Len uint8
	Ptr int
}

// Empty reports whether the descriptor denotes the zero-length string.
func (d StrDesc) Empty() bool { return d.Len == 0 }

// RootProvider is implemented by anything that may hold live StrDescs
// longer than a single Heap call (variable slots, array elements,
// runtime-stack frames, temp pools). AppendStringRoots appends pointers
// to all of its currently-live descriptors onto dst and returns the
// grown slice, following the append-and-return convention idiomatic in
// Go rather than the teacher's out-parameter vector.
type RootProvider interface {
	AppendStringRoots(dst []*StrDesc) []*StrDesc
}

// GCPolicy selects when collectGarbage runs preventively, in addition
// to the mandatory retry-after-allocation-failure case.
type GCPolicy int

const (
	// OnDemand collects only when an allocation fails.
	OnDemand GCPolicy = iota
	// Aggressive additionally collects when free space drops below Threshold.
	Aggressive
	// Conservative additionally collects when fragmentation exceeds Threshold.
	Conservative
)

// Stats tracks allocation and GC activity for diagnostics (the
// cmd/gwbasic "roots" command; spec.md is silent on
// instrumentation, see SPEC_FULL.md "Supplemented Features").
type Stats struct {
	TotalAllocations uint64
	GCCycles         uint64
	BytesReclaimed   uint64
	MaxUsed          int
}

// Heap is a fixed-capacity, downward-growing string arena.
type Heap struct {
	buf  []byte
	top  int
	pol  GCPolicy
	thr  float64 // threshold theta in (0,1), default 0.2
	prov []RootProvider
	prot []*StrDesc
	st   Stats
}

// New creates a Heap over a freshly allocated arena of the given
// capacity (must fit in an int and, per allocation limits, hold
// strings up to 255 bytes each).
func New(capacity int, policy GCPolicy) *Heap {
	h := &Heap{
		buf: make([]byte, capacity),
		pol: policy,
		thr: 0.2,
	}
	h.top = capacity
	return h
}

func (h *Heap) SetThreshold(theta float64) { h.thr = theta }
func (h *Heap) Policy() GCPolicy           { return h.pol }
func (h *Heap) SetPolicy(p GCPolicy)       { h.pol = p }

// AddRootProvider registers a provider. Re-registering the same
// provider is a no-op.
func (h *Heap) AddRootProvider(p RootProvider) {
	for _, existing := range h.prov {
		if existing == p {
			return
		}
	}
	h.prov = append(h.prov, p)
}

// RemoveRootProvider unregisters a provider previously added with AddRootProvider.
func (h *Heap) RemoveRootProvider(p RootProvider) {
	for i, existing := range h.prov {
		if existing == p {
			h.prov = append(h.prov[:i], h.prov[i+1:]...)
			return
		}
	}
}

// Protect adds desc to the temporary root set, keeping its bytes alive
// across the next GC cycle(s) until ClearProtected is called. Used to
// pin an intermediate result inside a single expression evaluation
// (spec §5 "Ordering guarantees").
func (h *Heap) Protect(desc *StrDesc) {
	if desc == nil || desc.Len == 0 {
		return
	}
	h.prot = append(h.prot, desc)
}

// ClearProtected empties the protected set without affecting the heap's contents.
func (h *Heap) ClearProtected() {
	h.prot = h.prot[:0]
}

// Base, End, Top expose the arena's cursors for diagnostics and invariant checks.
func (h *Heap) Base() int { return 0 }
func (h *Heap) End() int  { return len(h.buf) }
func (h *Heap) Top() int  { return h.top }

func (h *Heap) FreeBytes() int { return h.top - h.Base() }
func (h *Heap) UsedBytes() int { return h.End() - h.top }

// Fragmentation is 1 - free/total, per spec §4.1's Conservative policy definition.
func (h *Heap) Fragmentation() float64 {
	total := len(h.buf)
	if total == 0 {
		return 0
	}
	return 1 - float64(h.FreeBytes())/float64(total)
}

func (h *Heap) Stats() Stats {
	s := h.st
	s.MaxUsed = maxInt(s.MaxUsed, h.UsedBytes())
	return s
}

var (
	// ErrTooLong is returned when an allocation requests more than 255 bytes.
	ErrTooLong = fmt.Errorf("heap: string length exceeds 255 bytes")
	// ErrOutOfMemory is returned when allocation fails even after a GC retry.
	ErrOutOfMemory = fmt.Errorf("heap: out of string space")
)

// Alloc reserves n bytes (1..255) and returns a descriptor over
// zeroed storage. n==0 returns the empty descriptor without touching
// the arena. On first failure, a GC cycle runs and the allocation is
// retried once before giving up with ErrOutOfMemory.
func (h *Heap) Alloc(n int) (StrDesc, error) {
	if n == 0 {
		return StrDesc{}, nil
	}
	if n < 0 || n > 255 {
		return StrDesc{}, ErrTooLong
	}
	if d, ok := h.tryAlloc(n); ok {
		h.afterAlloc(n)
		if h.shouldTriggerGC() {
			// root d for this collection so the bytes just reserved survive it
			h.prot = append(h.prot, &d)
			h.CollectGarbage()
			h.prot = h.prot[:len(h.prot)-1]
		}
		return d, nil
	}
	h.CollectGarbage()
	if d, ok := h.tryAlloc(n); ok {
		h.afterAlloc(n)
		return d, nil
	}
	return StrDesc{}, ErrOutOfMemory
}

// AllocCopy allocates len(src) bytes and copies src into the arena.
func (h *Heap) AllocCopy(src []byte) (StrDesc, error) {
	d, err := h.Alloc(len(src))
	if err != nil {
		return StrDesc{}, err
	}
	if len(src) > 0 {
		copy(h.buf[d.Ptr:d.Ptr+int(d.Len)], src)
	}
	return d, nil
}

func (h *Heap) afterAlloc(n int) {
	h.st.TotalAllocations++
	if used := h.UsedBytes(); used > h.st.MaxUsed {
		h.st.MaxUsed = used
	}
}

func (h *Heap) tryAlloc(n int) (StrDesc, bool) {
	newTop := h.top - n
	if newTop < h.Base() {
		return StrDesc{}, false
	}
	for i := newTop; i < h.top; i++ {
		h.buf[i] = 0
	}
	h.top = newTop
	return StrDesc{Len: uint8(n), Ptr: newTop}, true
}

func (h *Heap) shouldTriggerGC() bool {
	switch h.pol {
	case Aggressive:
		return float64(h.FreeBytes()) < float64(len(h.buf))*h.thr
	case Conservative:
		return h.Fragmentation() > h.thr
	default:
		return false
	}
}

// Bytes returns the live bytes referenced by d. The returned slice
// aliases the arena and is only valid until the next allocation or GC.
func (h *Heap) Bytes(d StrDesc) []byte {
	if d.Len == 0 {
		return nil
	}
	return h.buf[d.Ptr : d.Ptr+int(d.Len)]
}

// collectRoots gathers the full root set: every provider's live
// descriptors plus the protected set, deduplicated by descriptor
// address (pointer identity), per the Root Completeness invariant (§3.2).
func (h *Heap) collectRoots() []*StrDesc {
	var all []*StrDesc
	for _, p := range h.prov {
		all = p.AppendStringRoots(all)
	}
	all = append(all, h.prot...)

	seen := make(map[*StrDesc]bool, len(all))
	out := all[:0]
	for _, r := range all {
		if r == nil || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// CollectGarbage runs a full mark-compact cycle using the registered
// root providers and protected set, and returns the number of bytes
// reclaimed.
func (h *Heap) CollectGarbage() int {
	before := h.UsedBytes()
	h.Compact(h.collectRoots())
	after := h.UsedBytes()
	reclaimed := before - after
	if reclaimed < 0 {
		reclaimed = 0
	}
	h.st.GCCycles++
	h.st.BytesReclaimed += uint64(reclaimed)
	return reclaimed
}

// Compact relocates every descriptor in roots to a contiguous region
// just below end, preserving their relative address order, and moves
// top to the new watermark. Callers that want to supply their own
// complete root set (bypassing provider registration) may call this
// directly, as this package's own tests do.
func (h *Heap) Compact(roots []*StrDesc) {
	live := make([]*StrDesc, 0, len(roots))
	for _, r := range roots {
		if r != nil && r.Len > 0 {
			live = append(live, r)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Ptr > live[j].Ptr })

	newTop := h.End()
	for _, r := range live {
		n := int(r.Len)
		newTop -= n
		if r.Ptr != newTop {
			copy(h.buf[newTop:newTop+n], h.buf[r.Ptr:r.Ptr+n])
			r.Ptr = newTop
		}
	}
	h.top = newTop
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
