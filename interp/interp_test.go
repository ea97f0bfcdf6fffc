package interp

import (
	"testing"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/program"
	"github.com/gwbasic/core/rtstack"
	"github.com/gwbasic/core/traps"
)

func newProg(lines ...int) *program.Store {
	p := program.New()
	for _, n := range lines {
		p.SetLine(n, []byte{byte(n)})
	}
	return p
}

func TestRunFallsThroughToEndOfProgram(t *testing.T) {
	p := newProg(10, 20, 30)
	var seen []int
	handler := func(tokens []byte, line int) (uint16, bool, error) {
		seen = append(seen, line)
		return FallThrough, false, nil
	}
	loop := New(p, traps.New(), rtstack.New(), handler)
	status, err := loop.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status.State != Halted {
		t.Fatalf("state = %v, want Halted", status.State)
	}
	if len(seen) != 3 || seen[0] != 10 || seen[2] != 30 {
		t.Fatalf("seen = %v, want [10 20 30]", seen)
	}
}

func TestOverrideJumpsToTargetLine(t *testing.T) {
	p := newProg(10, 20, 30)
	visits := 0
	handler := func(tokens []byte, line int) (uint16, bool, error) {
		visits++
		if line == 10 {
			return 30, false, nil
		}
		return Terminate, false, nil
	}
	loop := New(p, traps.New(), rtstack.New(), handler)
	status, err := loop.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status.Line != 30 || status.State != Halted {
		t.Fatalf("status = %+v, want line 30 halted", status)
	}
	if visits != 2 {
		t.Fatalf("visits = %d, want 2 (10 then 30)", visits)
	}
}

func TestTerminateOverrideHalts(t *testing.T) {
	p := newProg(10)
	handler := func(tokens []byte, line int) (uint16, bool, error) {
		return Terminate, false, nil
	}
	loop := New(p, traps.New(), rtstack.New(), handler)
	status, _ := loop.Run()
	if status.State != Halted {
		t.Fatalf("state = %v, want Halted", status.State)
	}
}

func TestWaitingSuspendsWithoutAdvancing(t *testing.T) {
	p := newProg(10, 20)
	calls := 0
	handler := func(tokens []byte, line int) (uint16, bool, error) {
		calls++
		if calls == 1 {
			return FallThrough, true, nil
		}
		return Terminate, false, nil
	}
	loop := New(p, traps.New(), rtstack.New(), handler)
	status, err := loop.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status.State != Waiting || status.Line != 10 {
		t.Fatalf("status = %+v, want Waiting at line 10", status)
	}
	// host supplies the awaited data, then resumes by calling Run again
	loop.state = Running
	status, err = loop.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status.State != Halted {
		t.Fatalf("status = %+v, want Halted after resuming", status)
	}
}

func TestErrorWithoutHandlerHalts(t *testing.T) {
	p := newProg(10)
	handler := func(tokens []byte, line int) (uint16, bool, error) {
		return 0, false, basicerr.New(basicerr.DivisionByZero, 0)
	}
	loop := New(p, traps.New(), rtstack.New(), handler)
	status, err := loop.Run()
	if err == nil {
		t.Fatal("expected an error to surface with no ON ERROR handler")
	}
	be, ok := err.(*basicerr.Error)
	if !ok || be.Code != basicerr.DivisionByZero || be.Line != 10 {
		t.Fatalf("err = %v, want DivisionByZero at line 10", err)
	}
	if status.State != Halted {
		t.Fatalf("state = %v, want Halted", status.State)
	}
}

func TestErrorWithHandlerJumpsAndPushesFrame(t *testing.T) {
	p := newProg(10, 1000)
	rt := rtstack.New()
	rt.PushErr(rtstack.ErrFrame{HandlerLine: 1000, Enabled: true})

	calls := 0
	handler := func(tokens []byte, line int) (uint16, bool, error) {
		calls++
		if line == 10 {
			return 0, false, basicerr.New(basicerr.DivisionByZero, 0)
		}
		return Terminate, false, nil
	}
	loop := New(p, traps.New(), rt, handler)
	status, err := loop.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status.State != Halted || status.Line != 1000 {
		t.Fatalf("status = %+v, want halted at handler line 1000", status)
	}
	if rt.TopErr() == nil || rt.TopErr().ResumeLine != 10 {
		t.Fatal("expected an ErrFrame recording resume line 10")
	}
}

func TestTrapRedirectsCurrentLine(t *testing.T) {
	p := newProg(10, 500)
	tr := traps.New()
	tr.Register(traps.Key, 1, 500)
	tr.SetEnabled(traps.Key, 1, true)
	tr.Fire(traps.Key, 1)

	var seen []int
	handler := func(tokens []byte, line int) (uint16, bool, error) {
		seen = append(seen, line)
		return Terminate, false, nil
	}
	loop := New(p, tr, rtstack.New(), handler)
	loop.Run()
	if len(seen) != 1 || seen[0] != 500 {
		t.Fatalf("seen = %v, want [500] (trap redirected before fetch)", seen)
	}
}
