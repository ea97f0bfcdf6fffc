package strmgr

import "github.com/gwbasic/core/heap"

// TempPool is a bounded ring of StrDescs used to protect intermediate
// string results produced mid-expression from being collected before
// an enclosing subexpression consumes them (spec §5, "Ordering
// guarantees"). It is itself a heap.RootProvider.
//
// Grounded on original_source/src/Runtime/StringTypes.hpp's TempStrPool.
type TempPool struct {
	items []heap.StrDesc
	cap   int
}

func NewTempPool(capacity int) *TempPool {
	return &TempPool{items: make([]heap.StrDesc, 0, capacity), cap: capacity}
}

// Push reserves a blank slot and returns a pointer into the pool for
// the caller to fill in (e.g. after a successful heap.Alloc).
func (p *TempPool) Push() *heap.StrDesc {
	if len(p.items) >= p.cap {
		return nil
	}
	p.items = append(p.items, heap.StrDesc{})
	return &p.items[len(p.items)-1]
}

// PushCopy stores a copy of d in the pool and returns a pointer to the
// stored copy, or nil if the pool is full.
func (p *TempPool) PushCopy(d heap.StrDesc) *heap.StrDesc {
	if len(p.items) >= p.cap {
		return nil
	}
	p.items = append(p.items, d)
	return &p.items[len(p.items)-1]
}

// Clear empties the pool's slots (not the heap itself).
func (p *TempPool) Clear() {
	p.items = p.items[:0]
}

func (p *TempPool) Len() int      { return len(p.items) }
func (p *TempPool) Capacity() int { return p.cap }

// AppendStringRoots implements heap.RootProvider.
func (p *TempPool) AppendStringRoots(dst []*heap.StrDesc) []*heap.StrDesc {
	for i := range p.items {
		dst = append(dst, &p.items[i])
	}
	return dst
}

// Guard is a scoped temp-pool guard: Close clears the pool, mirroring
// an RAII StringProtector. Typical use:
//
//	g := mgr.Pool().Guard()
//	defer g.Close()
func (p *TempPool) Guard() *Guard {
	return &Guard{pool: p}
}

type Guard struct {
	pool *TempPool
}

func (g *Guard) Close() {
	g.pool.Clear()
}
