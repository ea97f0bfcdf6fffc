package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gwbasic/core/arrays"
	"github.com/gwbasic/core/eval"
	"github.com/gwbasic/core/heap"
	"github.com/gwbasic/core/interp"
	"github.com/gwbasic/core/program"
	"github.com/gwbasic/core/rtstack"
	"github.com/gwbasic/core/strmgr"
	"github.com/gwbasic/core/token"
	"github.com/gwbasic/core/traps"
	"github.com/gwbasic/core/userfunc"
	"github.com/gwbasic/core/value"
	"github.com/gwbasic/core/vars"
)

// Session owns one running dialect environment: every core collaborator
// plus the program store, tokenizer, and I/O streams a statement
// handler needs. It implements interp.StatementHandler via Dispatch.
type Session struct {
	cfg Config

	Heap    *heap.Heap
	Strings *strmgr.Manager
	DefTbl  *vars.DefaultTypeTable
	Vars    *vars.Table
	Arrays  *arrays.Manager
	Funcs   *userfunc.Manager
	Eval    *eval.Evaluator
	RT      *rtstack.Stack
	Traps   *traps.Manager
	Prog    *program.Store
	Tok     *token.Tokenizer

	out io.Writer
	in  *bufio.Reader
}

// NewSession wires every collaborator together exactly once: the heap
// first (every holder of strings registers as one of its root providers), then
// storage, then the evaluator (which needs the heap and string manager
// for literals and string built-ins), then the function manager (which
// needs the evaluator back to run DEF FN bodies).
func NewSession(cfg Config, out io.Writer, in io.Reader) *Session {
	h := heap.New(cfg.HeapSize, cfg.Policy)
	sm := strmgr.New(h)
	deftbl := vars.NewDefaultTypeTable()
	vt := vars.New(deftbl, h)
	am := arrays.New(h)
	tk := token.New()

	s := &Session{
		cfg:     cfg,
		Heap:    h,
		Strings: sm,
		DefTbl:  deftbl,
		Vars:    vt,
		Arrays:  am,
		RT:      rtstack.New(),
		Traps:   traps.New(),
		Prog:    program.New(),
		Tok:     tk,
		out:     out,
		in:      bufio.NewReader(in),
	}
	h.AddRootProvider(s.RT)
	s.Eval = eval.New(sm, h, tk)
	s.Funcs = userfunc.New(s.Eval)
	am.SetOptionBase(cfg.OptionBase)
	return s
}

// env builds the eval.Env hooks bound to this session's tables. A fresh
// one is cheap enough to build per statement; it carries no state of
// its own.
func (s *Session) env() *eval.Env {
	return &eval.Env{
		GetVar:       s.getVar,
		IsUserFunc:   s.Funcs.Exists,
		CallUserFunc: s.callUserFunc,
		ArrayExists:  s.Arrays.Exists,
		GetArrayElem: s.Arrays.GetElement,
	}
}

// getVar resolves name through vars.Table.GetOrCreate rather than
// TryGet, so a variable's first read (same as its first assignment)
// picks up DEFTBL's default typing instead of leaving that inference
// to the caller.
func (s *Session) getVar(name string) (value.Value, bool) {
	slot, err := s.Vars.GetOrCreate(name)
	if err != nil || slot.IsArray {
		return value.Value{}, false
	}
	return slot.Scalar, true
}

func (s *Session) callUserFunc(name string, args []value.Value) (value.Value, error) {
	fn, ok := s.Funcs.Lookup(name)
	if !ok {
		return value.Value{}, fmt.Errorf("undefined function %s", name)
	}
	return s.Funcs.Call(fn, args, s.getVar)
}

// Clear resets every piece of mutable state to NEW's semantics, leaving
// the heap's arena in place but unrooted.
func (s *Session) Clear() {
	s.Vars.Clear()
	s.Arrays.Clear()
	s.Funcs.Clear()
	s.RT.Clear()
	s.Traps.Clear()
}

var _ interp.StatementHandler = (*Session)(nil).Dispatch

// newLoop builds an interp.Loop bound to this session's program,
// traps, runtime stack, and statement dispatcher.
func newLoop(s *Session) *interp.Loop {
	return interp.New(s.Prog, s.Traps, s.RT, s.Dispatch)
}
