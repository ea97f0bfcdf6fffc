package heap

import (
	"bytes"
	"testing"
)

type fakeProvider struct {
	roots []*StrDesc
}

func (f *fakeProvider) AppendStringRoots(dst []*StrDesc) []*StrDesc {
	return append(dst, f.roots...)
}

func TestAllocBasic(t *testing.T) {
	h := New(64, OnDemand)
	d, err := h.AllocCopy([]byte("hello"))
	if err != nil {
		t.Fatalf("AllocCopy: %v", err)
	}
	if d.Len != 5 {
		t.Fatalf("Len = %d, want 5", d.Len)
	}
	if got := string(h.Bytes(d)); got != "hello" {
		t.Fatalf("Bytes = %q, want hello", got)
	}
	if h.Base() > h.Top() || h.Top() > h.End() {
		t.Fatalf("heap layout invariant broken: %v", h.Describe())
	}
}

func TestAllocZeroLength(t *testing.T) {
	h := New(16, OnDemand)
	d, err := h.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc(0): %v", err)
	}
	if !d.Empty() {
		t.Fatalf("expected empty descriptor, got %+v", d)
	}
	if h.Top() != h.End() {
		t.Fatalf("zero-length alloc must not move top")
	}
}

func TestAllocTooLongRejectedWithoutGC(t *testing.T) {
	h := New(300, OnDemand)
	before := h.Stats().GCCycles
	_, err := h.Alloc(256)
	if err != ErrTooLong {
		t.Fatalf("err = %v, want ErrTooLong", err)
	}
	if h.Stats().GCCycles != before {
		t.Fatalf("a rejected too-long allocation must not trigger GC")
	}
}

func TestAllocOOMAfterGCRetry(t *testing.T) {
	h := New(10, OnDemand)
	fp := &fakeProvider{}
	h.AddRootProvider(fp)

	d1, err := h.AllocCopy([]byte("12345"))
	if err != nil {
		t.Fatalf("first alloc: %v", err)
	}
	fp.roots = append(fp.roots, &d1) // keep it alive across GC

	_, err = h.AllocCopy([]byte("678901")) // needs 6 bytes, only 5 free
	if err != ErrOutOfMemory {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
}

// Scenario 4 from spec.md §8: protect two of three strings; GC reclaims
// exactly the unprotected one's length, and the protected ones survive
// with their bytes intact.
func TestGCCorrectnessScenario(t *testing.T) {
	h := New(64, OnDemand)

	protected, err := h.AllocCopy([]byte("Protected"))
	if err != nil {
		t.Fatal(err)
	}
	also, err := h.AllocCopy([]byte("Also"))
	if err != nil {
		t.Fatal(err)
	}
	unprotected, err := h.AllocCopy([]byte("Unprotected"))
	if err != nil {
		t.Fatal(err)
	}

	h.Protect(&protected)
	h.Protect(&also)

	reclaimed := h.CollectGarbage()
	if reclaimed != len("Unprotected") {
		t.Fatalf("reclaimed = %d, want %d", reclaimed, len("Unprotected"))
	}
	_ = unprotected

	if !bytes.Equal(h.Bytes(protected), []byte("Protected")) {
		t.Fatalf("protected string corrupted: %q", h.Bytes(protected))
	}
	if !bytes.Equal(h.Bytes(also), []byte("Also")) {
		t.Fatalf("also string corrupted: %q", h.Bytes(also))
	}

	h.ClearProtected()
	reclaimed2 := h.CollectGarbage()
	if reclaimed2 != len("Protected")+len("Also") {
		t.Fatalf("after ClearProtected, reclaimed = %d, want %d", reclaimed2, len("Protected")+len("Also"))
	}
}

func TestCompactPreservesOrderAndLayout(t *testing.T) {
	h := New(32, OnDemand)
	a, _ := h.AllocCopy([]byte("AAA"))
	b, _ := h.AllocCopy([]byte("BB"))
	c, _ := h.AllocCopy([]byte("C"))

	roots := []*StrDesc{&a, &b, &c}
	h.Compact(roots)

	if h.Base() > h.Top() || h.Top() > h.End() {
		t.Fatalf("invariant broken after compact: %v", h.Describe())
	}
	if h.End()-h.Top() != 6 {
		t.Fatalf("used bytes = %d, want 6", h.End()-h.Top())
	}
	// a was allocated first so it started closest to end; that
	// relative order must survive compaction.
	if !(a.Ptr > b.Ptr && b.Ptr > c.Ptr) {
		t.Fatalf("relative address order not preserved: a=%d b=%d c=%d", a.Ptr, b.Ptr, c.Ptr)
	}
	for _, r := range roots {
		if r.Ptr < h.Top() || r.Ptr+int(r.Len) > h.End() {
			t.Fatalf("root %+v out of live region %v", r, h.Describe())
		}
	}
	if string(h.Bytes(a)) != "AAA" || string(h.Bytes(b)) != "BB" || string(h.Bytes(c)) != "C" {
		t.Fatalf("bytes corrupted after compact: a=%q b=%q c=%q", h.Bytes(a), h.Bytes(b), h.Bytes(c))
	}
}

func TestAggressivePolicyTriggersEarly(t *testing.T) {
	h := New(20, Aggressive)
	h.SetThreshold(0.5)
	fp := &fakeProvider{}
	h.AddRootProvider(fp)

	before := h.Stats().GCCycles
	d, _ := h.AllocCopy([]byte("0123456789012")) // 13 bytes; free becomes 7/20 = 0.35 < 0.5
	fp.roots = append(fp.roots, &d)
	if h.Stats().GCCycles <= before {
		t.Fatalf("expected aggressive policy to trigger a preventive GC")
	}
}

func TestRemoveRootProvider(t *testing.T) {
	h := New(16, OnDemand)
	fp := &fakeProvider{}
	h.AddRootProvider(fp)
	h.RemoveRootProvider(fp)

	d, _ := h.AllocCopy([]byte("keep"))
	fp.roots = append(fp.roots, &d)
	// fp is no longer registered, so its root is invisible to GC and
	// the string may be reclaimed.
	reclaimed := h.CollectGarbage()
	if reclaimed != len("keep") {
		t.Fatalf("reclaimed = %d, want %d (unregistered provider's root should not be scanned)", reclaimed, len("keep"))
	}
}
