package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gwbasic/core/interp"
)

func newTestSession() (*Session, *bytes.Buffer) {
	var out bytes.Buffer
	s := NewSession(DefaultConfig(), &out, strings.NewReader(""))
	return s, &out
}

func run(t *testing.T, s *Session, program string) interp.Status {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(program), "\n") {
		num, rest, err := splitLineNumber(line)
		if err != nil {
			t.Fatalf("bad test program line %q: %v", line, err)
		}
		s.Prog.SetLine(num, s.Tok.Crunch([]byte(rest)))
	}
	loop := newLoop(s)
	status, err := loop.Run()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return status
}

func TestPrintLiteral(t *testing.T) {
	s, out := newTestSession()
	run(t, s, `10 PRINT "HELLO"`)
	if got := out.String(); got != "HELLO\n" {
		t.Fatalf("output = %q, want %q", got, "HELLO\n")
	}
}

func TestAssignmentAndArithmetic(t *testing.T) {
	s, out := newTestSession()
	run(t, s, "10 X = 2 + 3\n20 PRINT X")
	if got := out.String(); got != "5\n" {
		t.Fatalf("output = %q, want %q", got, "5\n")
	}
}

func TestGotoSkipsLines(t *testing.T) {
	s, out := newTestSession()
	run(t, s, "10 GOTO 30\n20 PRINT \"SKIPPED\"\n30 PRINT \"HERE\"")
	if got := out.String(); got != "HERE\n" {
		t.Fatalf("output = %q, want %q", got, "HERE\n")
	}
}

func TestForNextAccumulates(t *testing.T) {
	s, out := newTestSession()
	run(t, s, "10 S = 0\n20 FOR I = 1 TO 3\n30 S = S + I\n40 NEXT I\n50 PRINT S")
	if got := out.String(); got != "6\n" {
		t.Fatalf("output = %q, want %q", got, "6\n")
	}
}

func TestGosubReturn(t *testing.T) {
	s, out := newTestSession()
	run(t, s, "10 GOSUB 100\n20 PRINT \"BACK\"\n30 END\n100 PRINT \"SUB\"\n110 RETURN")
	if got := out.String(); got != "SUB\nBACK\n" {
		t.Fatalf("output = %q, want %q", got, "SUB\nBACK\n")
	}
}

func TestIfThenElseBranches(t *testing.T) {
	s, out := newTestSession()
	run(t, s, "10 X = 5\n20 IF X > 10 THEN 100 ELSE 200\n100 PRINT \"BIG\"\n110 END\n200 PRINT \"SMALL\"")
	if got := out.String(); got != "SMALL\n" {
		t.Fatalf("output = %q, want %q", got, "SMALL\n")
	}
}

func TestDimAndArrayAssignment(t *testing.T) {
	s, out := newTestSession()
	run(t, s, "10 DIM A(5)\n20 A(2) = 42\n30 PRINT A(2)")
	if got := out.String(); got != "42\n" {
		t.Fatalf("output = %q, want %q", got, "42\n")
	}
}

func TestOnErrorGotoHandlesDivisionByZero(t *testing.T) {
	s, out := newTestSession()
	status := run(t, s, "10 ON ERROR GOTO 100\n20 X = 1 / 0\n30 END\n100 PRINT \"CAUGHT\"\n110 RESUME NEXT")
	if got := out.String(); got != "CAUGHT\n" {
		t.Fatalf("output = %q, want %q", got, "CAUGHT\n")
	}
	if status.State != interp.Halted {
		t.Fatalf("state = %v, want Halted", status.State)
	}
}

func TestTokensRoundTripThroughDispatch(t *testing.T) {
	s, buf := newTestSession()
	out := s.Tok.Crunch([]byte("PRINT 1"))
	if out[0] < 0x81 {
		t.Fatalf("PRINT should crunch to a reserved byte, got %#x", out[0])
	}
	if name := s.Tok.TokenName(out[0]); name != "PRINT" {
		t.Fatalf("TokenName(%#x) = %q, want %q", out[0], name, "PRINT")
	}
	if _, _, err := s.Dispatch(out, 0); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := buf.String(); got != "1\n" {
		t.Fatalf("output = %q, want %q", got, "1\n")
	}
}
