package userfunc

import (
	"testing"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/value"
)

// fakeEval is a minimal stand-in for eval.Evaluator: Body is interpreted
// as a single instruction understood by this test's tiny interpreter,
// not real token bytes, so these tests can exercise Manager.Call
// without depending on the eval package.
type fakeEval struct{}

// Body encoding used only by these tests:
//
//	[]byte{0} + name bytes -> look up name via getVar
//	empty body             -> Int16 0
//
// Recursion is exercised separately through recursiveEval below.
func (fakeEval) EvaluateWithEnv(tokens []byte, pos int, getVar func(name string) (value.Value, bool)) (value.Value, error) {
	if len(tokens) == 0 {
		return value.MakeInt16(0), nil
	}
	name := string(tokens[1:])
	if v, ok := getVar(name); ok {
		return v, nil
	}
	return value.MakeInt16(0), nil
}

func (fakeEval) Coerce(v value.Value, kind value.Kind) (value.Value, error) {
	if kind == value.Int16 && v.Kind != value.Int16 {
		return value.MakeInt16(int16(v.AsFloat64())), nil
	}
	return v, nil
}

func TestCallBindsParamsAndCoercesReturn(t *testing.T) {
	m := New(fakeEval{})
	fn := &Func{Name: "FNDOUBLE", Params: []string{"X"}, Body: append([]byte{0}, []byte("X")...), ReturnKind: value.Int16}
	m.Define(fn)

	got, err := m.Call(fn, []value.Value{value.MakeInt16(21)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int16Val() != 21 {
		t.Errorf("result = %d, want 21", got.Int16Val())
	}
}

func TestCallWrongArityFails(t *testing.T) {
	m := New(fakeEval{})
	fn := &Func{Name: "FNONE", Params: []string{"X"}, Body: []byte{0, 'X'}}
	m.Define(fn)

	_, err := m.Call(fn, nil, nil)
	be, ok := err.(*basicerr.Error)
	if !ok || be.Code != basicerr.Syntax {
		t.Fatalf("err = %v, want Syntax (arity mismatch)", err)
	}
}

func TestCallFallsBackToOuterGetVar(t *testing.T) {
	m := New(fakeEval{})
	fn := &Func{Name: "FNOUTER", Params: []string{"X"}, Body: append([]byte{0}, []byte("Y")...)}
	m.Define(fn)

	outer := func(name string) (value.Value, bool) {
		if name == "Y" {
			return value.MakeInt16(99), true
		}
		return value.Value{}, false
	}
	got, err := m.Call(fn, []value.Value{value.MakeInt16(1)}, outer)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int16Val() != 99 {
		t.Errorf("result = %d, want 99 (from outer env)", got.Int16Val())
	}
}

func TestCallParamShadowsOuter(t *testing.T) {
	m := New(fakeEval{})
	fn := &Func{Name: "FNSHADOW", Params: []string{"X"}, Body: append([]byte{0}, []byte("X")...)}
	m.Define(fn)

	outer := func(name string) (value.Value, bool) {
		return value.MakeInt16(-1), true
	}
	got, err := m.Call(fn, []value.Value{value.MakeInt16(7)}, outer)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int16Val() != 7 {
		t.Errorf("result = %d, want 7 (param shadows outer X)", got.Int16Val())
	}
}

// recursiveEval calls back into a Manager to simulate DEF FN recursion,
// so the depth guard can be exercised without the real eval package.
type recursiveEval struct {
	m  *Manager
	fn *Func
}

func (r *recursiveEval) EvaluateWithEnv(tokens []byte, pos int, getVar func(name string) (value.Value, bool)) (value.Value, error) {
	v, _ := getVar("X")
	return r.m.Call(r.fn, []value.Value{v}, getVar)
}

func (r *recursiveEval) Coerce(v value.Value, kind value.Kind) (value.Value, error) { return v, nil }

func TestRecursionDepthGuard(t *testing.T) {
	m := New(nil)
	re := &recursiveEval{m: m}
	m.eval = re
	fn := &Func{Name: "FNLOOP", Params: []string{"X"}, Body: []byte{0}}
	re.fn = fn
	m.Define(fn)

	_, err := m.Call(fn, []value.Value{value.MakeInt16(0)}, nil)
	be, ok := err.(*basicerr.Error)
	if !ok || be.Code != basicerr.IllegalFunctionCall {
		t.Fatalf("err = %v, want IllegalFunctionCall from depth guard", err)
	}
	if m.depth != 0 {
		t.Errorf("depth = %d, want 0 after unwinding", m.depth)
	}
}

func TestClearResetsDefinitions(t *testing.T) {
	m := New(fakeEval{})
	m.Define(&Func{Name: "FNX"})
	if m.Len() != 1 {
		t.Fatal("expected 1 definition")
	}
	m.Clear()
	if m.Len() != 0 {
		t.Fatal("Clear should remove all definitions")
	}
	if _, ok := m.Lookup("FNX"); ok {
		t.Fatal("FNX should no longer be defined after Clear")
	}
}
