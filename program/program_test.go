package program

import "testing"

func TestSetLineAndOrdering(t *testing.T) {
	s := New()
	s.SetLine(20, []byte("PRINT"))
	s.SetLine(10, []byte("CLS"))
	s.SetLine(30, []byte("END"))

	first, ok := s.FirstLine()
	if !ok || first != 10 {
		t.Fatalf("FirstLine = %d, ok=%v, want 10", first, ok)
	}
	next, ok := s.NextLine(10)
	if !ok || next != 20 {
		t.Fatalf("NextLine(10) = %d, ok=%v, want 20", next, ok)
	}
	next, ok = s.NextLine(20)
	if !ok || next != 30 {
		t.Fatalf("NextLine(20) = %d, ok=%v, want 30", next, ok)
	}
	if _, ok := s.NextLine(30); ok {
		t.Fatal("NextLine(30) should report end of program")
	}
}

func TestSetLineEmptyTokensDeletes(t *testing.T) {
	s := New()
	s.SetLine(10, []byte("X=1"))
	if !s.HasLine(10) {
		t.Fatal("line 10 should exist")
	}
	s.SetLine(10, nil)
	if s.HasLine(10) {
		t.Fatal("line 10 should have been deleted")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestReplaceLinePreservesOrder(t *testing.T) {
	s := New()
	s.SetLine(10, []byte("A"))
	s.SetLine(20, []byte("B"))
	s.SetLine(10, []byte("A2"))

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	got, _ := s.GetLine(10)
	if string(got) != "A2" {
		t.Fatalf("GetLine(10) = %q, want A2", got)
	}
}

func TestCurrentLineCursor(t *testing.T) {
	s := New()
	s.SetCurrentLine(50)
	if s.CurrentLine() != 50 {
		t.Fatalf("CurrentLine = %d, want 50", s.CurrentLine())
	}
}

func TestClearResetsEverything(t *testing.T) {
	s := New()
	s.SetLine(10, []byte("X"))
	s.SetCurrentLine(10)
	s.Clear()
	if s.Len() != 0 || s.CurrentLine() != 0 {
		t.Fatal("Clear should reset lines and cursor")
	}
	if _, ok := s.FirstLine(); ok {
		t.Fatal("FirstLine should report empty after Clear")
	}
}
