// Package interp implements the dialect's interpreter loop (spec
// §4.8): a line-at-a-time driver that polls the trap system between
// statements, dispatches to an externally supplied statement handler,
// and consults the runtime stack for an active ON ERROR handler when
// that handler throws.
//
// Grounded on original_source/src/InterpreterLoop/InterpreterLoop.cpp
// for the step/dispatch order; program/program.go's
// Run()/Stop()/Resume()/Status() interface (the teacher's remote
// debugger control surface) grounds this package's exported method
// shape — Run, Stop, Step, Status — repurposed from "control a
// debuggee process" to "drive a BASIC program".
package interp

import (
	"time"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/program"
	"github.com/gwbasic/core/rtstack"
	"github.com/gwbasic/core/traps"
)

// State is one of the loop's four states (spec §4.8).
type State int

const (
	Idle State = iota
	Running
	Waiting
	Halted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Waiting:
		return "Waiting"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// Reserved next-line-override sentinels (spec §4.8 step 4/6).
const (
	FallThrough uint16 = 0
	Terminate   uint16 = 0xFFFF
)

// StatementHandler is the external integration point: given one line's
// token bytes and its line number, it executes the statement(s) on that
// line and returns either a next-line override, a waiting flag (an
// INPUT-like statement suspending for host data), or an error. It is
// supplied to the loop at construction.
type StatementHandler func(tokens []byte, currentLine int) (override uint16, waiting bool, err error)

// TraceHook is invoked with a line's number and token bytes immediately
// before the statement handler runs, for diagnostics/tests.
type TraceHook func(line int, tokens []byte)

// Status reports the loop's current line and state.
type Status struct {
	Line  int
	State State
}

// Loop drives program execution one line at a time.
type Loop struct {
	prog    *program.Store
	traps   *traps.Manager
	rt      *rtstack.Stack
	handler StatementHandler
	trace   TraceHook
	state   State
}

func New(prog *program.Store, tr *traps.Manager, rt *rtstack.Stack, handler StatementHandler) *Loop {
	return &Loop{prog: prog, traps: tr, rt: rt, handler: handler, state: Idle}
}

func (l *Loop) SetTrace(hook TraceHook) { l.trace = hook }

func (l *Loop) Status() Status { return Status{Line: l.prog.CurrentLine(), State: l.state} }

// Stop cooperatively halts the loop: the statement in progress (if
// Step is mid-call, which cannot happen from outside a single
// goroutine) still runs to completion; Stop only prevents further steps.
func (l *Loop) Stop() Status {
	if l.state != Halted {
		l.state = Halted
	}
	return l.Status()
}

// Run starts (or resumes) execution at the program's first line if the
// loop is Idle, then steps until the loop leaves the Running state.
func (l *Loop) Run() (Status, error) {
	if l.state == Idle {
		first, ok := l.prog.FirstLine()
		if !ok {
			l.state = Halted
			return l.Status(), nil
		}
		l.prog.SetCurrentLine(first)
		l.state = Running
	}
	for l.state == Running {
		status, err := l.Step()
		if err != nil {
			return status, err
		}
	}
	return l.Status(), nil
}

// Step executes the single step algorithm (spec §4.8): poll traps,
// fetch the current line, invoke the handler, and apply its override
// (or dispatch its error through the runtime stack's ON ERROR frame).
func (l *Loop) Step() (Status, error) {
	if l.state == Halted || l.prog.CurrentLine() == 0 {
		l.state = Halted
		return l.Status(), nil
	}

	if l.traps != nil {
		l.traps.PollTimer(time.Now())
		if tr, ok := l.traps.CheckForEvents(); ok && l.prog.HasLine(tr.HandlerLine) {
			l.prog.SetCurrentLine(tr.HandlerLine)
		}
	}

	line := l.prog.CurrentLine()
	tokens, ok := l.prog.GetLine(line)
	if !ok {
		l.state = Halted
		return l.Status(), nil
	}

	if l.trace != nil {
		l.trace(line, tokens)
	}

	override, waiting, err := l.handler(tokens, line)
	if err != nil {
		return l.dispatchError(line, err)
	}
	if waiting {
		l.state = Waiting
		return l.Status(), nil
	}
	l.applyOverride(line, override)
	return l.Status(), nil
}

func (l *Loop) applyOverride(line int, override uint16) {
	switch override {
	case Terminate:
		l.state = Halted
	case FallThrough:
		if next, ok := l.prog.NextLine(line); ok {
			l.prog.SetCurrentLine(next)
			l.state = Running
		} else {
			l.state = Halted
		}
	default:
		target := int(override)
		if l.prog.HasLine(target) {
			l.prog.SetCurrentLine(target)
			l.state = Running
		} else {
			l.state = Halted
		}
	}
}

// dispatchError wraps an arbitrary error as a dialect error and, if an
// enabled ON ERROR handler is active, pushes an ErrFrame and jumps to
// it instead of halting (spec §7's propagation policy).
func (l *Loop) dispatchError(line int, err error) (Status, error) {
	be := basicerr.Wrap(line, err)
	be = basicerr.WithLine(be, line)

	if l.rt != nil && l.rt.HasErrorHandler() {
		handlerLine := l.rt.CurrentHandlerLine()
		if l.prog.HasLine(handlerLine) {
			l.rt.PushErr(rtstack.ErrFrame{
				ErrCode:     int(be.Code),
				ResumeLine:  line,
				HandlerLine: handlerLine,
				Enabled:     true,
			})
			l.prog.SetCurrentLine(handlerLine)
			l.state = Running
			return l.Status(), nil
		}
		// handler line vanished out from under the frame: disable it
		// and fall through to halting below.
		if top := l.rt.TopErr(); top != nil {
			top.Enabled = false
		}
	}
	l.state = Halted
	return l.Status(), be
}

// RunImmediate executes tokens as a single, non-polling statement at
// line 0 (spec §4.8's immediate-mode entry point): no trap polling, no
// line advance, no ON ERROR dispatch — the caller decides what to do
// with a returned error.
func RunImmediate(handler StatementHandler, tokens []byte) error {
	_, _, err := handler(tokens, 0)
	return err
}
