// Package userfunc implements the dialect's DEF FN table (spec §4.4):
// named single-expression functions with positional parameter binding
// and per-call local environments, supporting recursion behind a
// bounded call-depth guard.
//
// Grounded on original_source/src/Runtime/UserFunctionManager.cpp
// (frame stack, locals map per call). The call-depth guard is a
// supplement (see SPEC_FULL.md) grounded on the same file's finite
// frame vector: the original's std::vector of call frames is bounded
// by available memory in practice, which a depth ceiling makes explicit
// rather than letting the host's Go call stack overflow.
package userfunc

import (
	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/value"
)

// MaxCallDepth bounds DEF FN recursion. Exceeding it raises
// basicerr.IllegalFunctionCall rather than overflowing the Go stack.
const MaxCallDepth = 64

// Func is one DEF FN definition: its parameter names, its body as a
// byte-tokenized expression, and its declared return type. ReturnKind
// is set by whoever builds the Func; Define stores it as given.
type Func struct {
	Name       string
	Params     []string
	Body       []byte
	ReturnKind value.Kind
}

// Evaluator is the subset of eval.Evaluator that userfunc needs, kept
// as an interface here so this package does not import eval (eval in
// turn reaches user functions only through its Env hooks).
type Evaluator interface {
	EvaluateWithEnv(tokens []byte, pos int, getVar func(name string) (value.Value, bool)) (value.Value, error)
	Coerce(v value.Value, kind value.Kind) (value.Value, error)
}

// Manager owns every DEF FN in a running program.
type Manager struct {
	funcs []*Func
	byKey map[string]*Func
	depth int
	eval  Evaluator
}

func New(eval Evaluator) *Manager {
	return &Manager{byKey: make(map[string]*Func), eval: eval}
}

// Define registers or replaces a function definition.
func (m *Manager) Define(f *Func) {
	if _, exists := m.byKey[f.Name]; !exists {
		m.funcs = append(m.funcs, f)
	}
	m.byKey[f.Name] = f
}

func (m *Manager) Lookup(name string) (*Func, bool) {
	f, ok := m.byKey[name]
	return f, ok
}

func (m *Manager) Exists(name string) bool {
	_, ok := m.byKey[name]
	return ok
}

// Call invokes fn with args, validating arity, binding parameters into
// a fresh local environment, evaluating the body, and coercing the
// result to the function's declared return type. Falls back to the
// caller-supplied outer getVar for any identifier not one of fn's
// parameters (Design Note: "No captured globals except via the outer
// env.get_var fallback").
func (m *Manager) Call(fn *Func, args []value.Value, outerGetVar func(name string) (value.Value, bool)) (value.Value, error) {
	if len(args) != len(fn.Params) {
		return value.Value{}, basicerr.Newf(basicerr.Syntax, 0, "DEF FN %s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args))
	}
	if m.depth >= MaxCallDepth {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}

	locals := make(map[string]value.Value, len(fn.Params))
	for i, p := range fn.Params {
		locals[p] = args[i]
	}
	getVar := func(name string) (value.Value, bool) {
		if v, ok := locals[name]; ok {
			return v, true
		}
		if outerGetVar != nil {
			return outerGetVar(name)
		}
		return value.Value{}, false
	}

	m.depth++
	result, err := m.eval.EvaluateWithEnv(fn.Body, 0, getVar)
	m.depth--
	if err != nil {
		return value.Value{}, err
	}
	return m.eval.Coerce(result, fn.ReturnKind)
}

// Clear removes every definition (NEW-style reset).
func (m *Manager) Clear() {
	m.funcs = nil
	m.byKey = make(map[string]*Func)
	m.depth = 0
}

func (m *Manager) Len() int { return len(m.funcs) }
