package heap

import "fmt"

// Region describes the arena's address space for diagnostics (the heap
// tests print it when a layout check fails). Grounded on core/mapping.go's
// Mapping{Min,Max,Size}, simplified to the single contiguous region a
// string heap actually has (no page table is needed: the arena is one
// []byte, not a sparse virtual address space).
type Region struct {
	Base, Top, End int
}

func (h *Heap) Describe() Region {
	return Region{Base: h.Base(), Top: h.top, End: h.End()}
}

func (r Region) String() string {
	return fmt.Sprintf("[base=%d top=%d end=%d free=%d used=%d]",
		r.Base, r.Top, r.End, r.Top-r.Base, r.End-r.Top)
}
