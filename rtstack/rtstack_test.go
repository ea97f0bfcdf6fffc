package rtstack

import (
	"testing"

	"github.com/gwbasic/core/heap"
	"github.com/gwbasic/core/value"
)

func TestForPushPopLIFO(t *testing.T) {
	s := New()
	s.PushFor(ForFrame{VarKey: "I"})
	s.PushFor(ForFrame{VarKey: "J"})

	f, ok := s.PopFor()
	if !ok || f.VarKey != "J" {
		t.Fatalf("PopFor = %+v, ok=%v, want J", f, ok)
	}
	f, ok = s.PopFor()
	if !ok || f.VarKey != "I" {
		t.Fatalf("PopFor = %+v, ok=%v, want I", f, ok)
	}
	if _, ok := s.PopFor(); ok {
		t.Fatal("PopFor on empty stack should fail")
	}
}

func TestFindForDiscardsNestedFrames(t *testing.T) {
	s := New()
	s.PushFor(ForFrame{VarKey: "I"})
	s.PushFor(ForFrame{VarKey: "J"})
	s.PushFor(ForFrame{VarKey: "K"})

	f, ok := s.FindFor("I")
	if !ok || f.VarKey != "I" {
		t.Fatalf("FindFor(I) = %+v, ok=%v", f, ok)
	}
	if s.TopFor() != nil {
		t.Fatal("FindFor should have discarded J and K along with I")
	}
}

func TestGosubLIFO(t *testing.T) {
	s := New()
	s.PushGosub(GosubFrame{ReturnLine: 10})
	s.PushGosub(GosubFrame{ReturnLine: 20})
	f, _ := s.PopGosub()
	if f.ReturnLine != 20 {
		t.Fatalf("ReturnLine = %d, want 20", f.ReturnLine)
	}
}

func TestErrorHandlerQueries(t *testing.T) {
	s := New()
	if s.HasErrorHandler() {
		t.Fatal("no frame pushed, should not have handler")
	}
	s.PushErr(ErrFrame{HandlerLine: 1000, Enabled: true})
	if !s.HasErrorHandler() {
		t.Fatal("expected active handler")
	}
	if s.CurrentHandlerLine() != 1000 {
		t.Fatalf("CurrentHandlerLine = %d, want 1000", s.CurrentHandlerLine())
	}
}

func TestCapacityBound(t *testing.T) {
	s := NewWithCapacity(2)
	if !s.PushGosub(GosubFrame{}) {
		t.Fatal("first push should succeed")
	}
	if !s.PushGosub(GosubFrame{}) {
		t.Fatal("second push should succeed")
	}
	if s.PushGosub(GosubFrame{}) {
		t.Fatal("third push should fail: stack full")
	}
}

func TestForFrameStringRootsEnumerated(t *testing.T) {
	h := heap.New(32, heap.OnDemand)
	s := New()
	d, _ := h.AllocCopy([]byte("x"))
	s.PushFor(ForFrame{VarKey: "S$", Control: value.MakeString(d)})

	roots := s.AppendStringRoots(nil)
	if len(roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(roots))
	}
}
