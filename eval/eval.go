// Package eval implements the dialect's expression evaluator (spec §4.5):
// an operator-precedence (Pratt) parser over a byte-tokenized expression,
// built-in function dispatch, and the coercion/truth rules shared by
// every statement that needs a value.
//
// Grounded on original_source/src/Runtime/ExpressionEvaluator.hpp/.cpp
// for the binding-power table and the IDENT( resolution order (builtin,
// then user function, then array; an IDENT( that is none of these is an
// Illegal function call error, and a bare IDENT is a variable reference).
// Variable, array, and user-function storage are all external
// collaborators reached through Env so this package has no import-cycle
// dependency on vars/arrays/userfunc.
package eval

import (
	"strings"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/heap"
	"github.com/gwbasic/core/strmgr"
	"github.com/gwbasic/core/value"
)

// Namer resolves the reserved token bytes (0x80-0xFE for operator/keyword
// words, 0xFF followed by a code byte for built-in function names) that
// an external tokenizer may have crunched a source line into. A nil
// Namer is fine for expressions made only of ASCII text.
type Namer interface {
	TokenName(b byte) string
	FuncName(code byte) string
}

// Env supplies the identifier-resolution hooks an expression needs
// beyond arithmetic: reading a scalar variable, and — only when an
// identifier is immediately followed by ( or [ — dispatching to a user
// function or indexing an array. Any nil hook is treated as "not
// available", not an error; a name GetVar does not resolve reads as the
// default of its suffix's type (zero, or the empty string for $).
type Env struct {
	GetVar       func(name string) (value.Value, bool)
	IsUserFunc   func(name string) bool
	CallUserFunc func(name string, args []value.Value) (value.Value, error)
	ArrayExists  func(name string) bool
	GetArrayElem func(name string, indices []int) (value.Value, error)
}

// Evaluator holds the collaborators expression evaluation needs for
// string allocation (string literals, STR$, CHR$, ...) and dispatch.
type Evaluator struct {
	strings *strmgr.Manager
	h       *heap.Heap
	namer   Namer
	rnd     *rnd
}

func New(strings *strmgr.Manager, h *heap.Heap, namer Namer) *Evaluator {
	return &Evaluator{strings: strings, h: h, namer: namer, rnd: newRnd(1)}
}

// Evaluate parses and evaluates one expression starting at pos, returning
// the value and the cursor position immediately after the expression and
// any spaces that follow it.
func (e *Evaluator) Evaluate(tokens []byte, pos int, env *Env) (value.Value, int, error) {
	v, newPos, err := e.parseExpr(tokens, pos, env, 0)
	if err != nil {
		return value.Value{}, pos, err
	}
	return v, newPos, nil
}

// EvaluateWithEnv implements userfunc.Evaluator: a DEF FN body is always
// one full expression with no surrounding statement syntax, so this
// discards the trailing cursor.
func (e *Evaluator) EvaluateWithEnv(tokens []byte, pos int, getVar func(name string) (value.Value, bool)) (value.Value, error) {
	v, _, err := e.Evaluate(tokens, pos, &Env{GetVar: getVar})
	return v, err
}

// Coerce converts v to kind, as LET and DEF FN return-type binding both
// require: numeric-to-numeric narrows/widens, string-to-string passes
// through, and any numeric/string mix is a type mismatch.
func (e *Evaluator) Coerce(v value.Value, kind value.Kind) (value.Value, error) {
	if kind == value.StringRef {
		if !v.IsString() {
			return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
		}
		return v, nil
	}
	if v.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	switch kind {
	case value.Int16:
		return coerceInt16(v)
	case value.Single:
		return value.MakeSingle(float32(v.AsFloat64())), nil
	case value.Double:
		return value.MakeDouble(v.AsFloat64()), nil
	default:
		return v, nil
	}
}

// Truthy implements the dialect's truth test: zero or the empty string
// is false, everything else is true.
func Truthy(v value.Value) bool {
	if v.IsString() {
		return v.StrDesc().Len != 0
	}
	return v.AsFloat64() != 0
}

// BoolValue converts a Go bool to the dialect's Int16 boolean encoding:
// false is 0, true is -1 (all bits set), matching how AND/OR/NOT treat
// comparison results as ordinary integers.
func BoolValue(b bool) value.Value {
	if b {
		return value.MakeInt16(-1)
	}
	return value.MakeInt16(0)
}

// --- byte classification ---

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_' }
func isAlnum(c byte) bool { return isDigit(c) || isAlpha(c) }
func isSuffix(c byte) bool {
	return c == '%' || c == '!' || c == '#' || c == '$'
}

// upperWord reads an ASCII alpha run starting at pos (without consuming
// a trailing type suffix) and upper-cases it, for keyword comparison.
func upperWord(b []byte, pos int) (string, int) {
	start := pos
	for pos < len(b) && isAlpha(b[pos]) {
		pos++
	}
	return strings.ToUpper(string(b[start:pos])), pos - start
}
