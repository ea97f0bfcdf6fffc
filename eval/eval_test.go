package eval

import (
	"testing"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/heap"
	"github.com/gwbasic/core/strmgr"
	"github.com/gwbasic/core/value"
)

func newEvaluator() *Evaluator {
	h := heap.New(4096, heap.OnDemand)
	return New(strmgr.New(h), h, nil)
}

func evalStr(t *testing.T, e *Evaluator, src string, env *Env) value.Value {
	t.Helper()
	v, _, err := e.Evaluate([]byte(src), 0, env)
	if err != nil {
		t.Fatalf("Evaluate(%q) error: %v", src, err)
	}
	return v
}

// -5^2 must be -(5^2) = -25, not (-5)^2 = 25: unary minus binds looser
// than ^ (spec.md §8 scenario 1).
func TestUnaryMinusPowerPrecedence(t *testing.T) {
	e := newEvaluator()
	got := evalStr(t, e, "-5^2", nil)
	if got.Kind != value.Double || got.DoubleVal() != -25 {
		t.Fatalf("got %v/%v, want Double -25", got.Kind, got.DoubleVal())
	}
}

func TestIntegerOverflowPromotesToDouble(t *testing.T) {
	e := newEvaluator()
	got := evalStr(t, e, "30000+30000", nil)
	if got.Kind != value.Double || got.DoubleVal() != 60000 {
		t.Fatalf("got %v/%v, want Double 60000", got.Kind, got.DoubleVal())
	}
}

func TestIntegerArithmeticStaysInt16WhenItFits(t *testing.T) {
	e := newEvaluator()
	got := evalStr(t, e, "100+23", nil)
	if got.Kind != value.Int16 || got.Int16Val() != 123 {
		t.Fatalf("got %v/%v, want Int16 123", got.Kind, got.Int16Val())
	}
}

func TestCintIdempotent(t *testing.T) {
	e := newEvaluator()
	once := evalStr(t, e, "CINT(3.7)", nil)
	twice := evalStr(t, e, "CINT(CINT(3.7))", nil)
	if once.Kind != value.Int16 || twice.Kind != value.Int16 || once.Int16Val() != twice.Int16Val() {
		t.Fatalf("CINT not idempotent: once=%v twice=%v", once.Int16Val(), twice.Int16Val())
	}
	if once.Int16Val() != 4 {
		t.Fatalf("CINT(3.7) = %d, want 4 (round to nearest)", once.Int16Val())
	}
}

func TestStringConcat(t *testing.T) {
	e := newEvaluator()
	got := evalStr(t, e, `"AB"+"CD"`, nil)
	if !got.IsString() || e.strings.Bytes(got.StrDesc())[0] != 'A' {
		t.Fatal("expected concatenated string starting with A")
	}
	if string(e.strings.Bytes(got.StrDesc())) != "ABCD" {
		t.Fatalf("got %q, want ABCD", e.strings.Bytes(got.StrDesc()))
	}
}

func TestStringPlusNumberIsTypeMismatch(t *testing.T) {
	e := newEvaluator()
	_, _, err := e.Evaluate([]byte(`"AB"+5`), 0, nil)
	be, ok := err.(*basicerr.Error)
	if !ok || be.Code != basicerr.TypeMismatch {
		t.Fatalf("err = %v, want TypeMismatch", err)
	}
}

func TestStringComparison(t *testing.T) {
	e := newEvaluator()
	got := evalStr(t, e, `"ABC"<"ABD"`, nil)
	if got.Int16Val() != -1 {
		t.Fatalf("\"ABC\"<\"ABD\" = %d, want -1 (true)", got.Int16Val())
	}
}

func TestDivisionByZero(t *testing.T) {
	e := newEvaluator()
	_, _, err := e.Evaluate([]byte("5/0"), 0, nil)
	be, ok := err.(*basicerr.Error)
	if !ok || be.Code != basicerr.DivisionByZero {
		t.Fatalf("err = %v, want DivisionByZero", err)
	}
}

func TestBitwiseLogicalOperators(t *testing.T) {
	e := newEvaluator()
	if got := evalStr(t, e, "5 AND 3", nil); got.Int16Val() != 1 {
		t.Errorf("5 AND 3 = %d, want 1", got.Int16Val())
	}
	if got := evalStr(t, e, "0 OR 5", nil); got.Int16Val() != 5 {
		t.Errorf("0 OR 5 = %d, want 5", got.Int16Val())
	}
	if got := evalStr(t, e, "NOT 0", nil); got.Int16Val() != -1 {
		t.Errorf("NOT 0 = %d, want -1", got.Int16Val())
	}
}

func TestVariableResolutionViaEnv(t *testing.T) {
	e := newEvaluator()
	env := &Env{GetVar: func(name string) (value.Value, bool) {
		if name == "X" {
			return value.MakeInt16(42), true
		}
		return value.Value{}, false
	}}
	got := evalStr(t, e, "X+1", env)
	if got.Int16Val() != 43 {
		t.Fatalf("X+1 = %d, want 43", got.Int16Val())
	}
}

func TestArraySubscriptViaEnv(t *testing.T) {
	e := newEvaluator()
	env := &Env{
		ArrayExists: func(name string) bool { return name == "A" },
		GetArrayElem: func(name string, indices []int) (value.Value, error) {
			if name == "A" && len(indices) == 1 && indices[0] == 5 {
				return value.MakeInt16(77), nil
			}
			return value.Value{}, basicerr.New(basicerr.SubscriptOutOfRange, 0)
		},
	}
	got := evalStr(t, e, "A(5)", env)
	if got.Int16Val() != 77 {
		t.Fatalf("A(5) = %d, want 77", got.Int16Val())
	}
}

func TestUserFunctionViaEnv(t *testing.T) {
	e := newEvaluator()
	env := &Env{
		IsUserFunc: func(name string) bool { return name == "FNSQ" },
		CallUserFunc: func(name string, args []value.Value) (value.Value, error) {
			n := args[0].Int16Val()
			return value.MakeInt16(n * n), nil
		},
	}
	got := evalStr(t, e, "FNSQ(4)", env)
	if got.Int16Val() != 16 {
		t.Fatalf("FNSQ(4) = %d, want 16", got.Int16Val())
	}
}

func TestBuiltinStringFunctions(t *testing.T) {
	e := newEvaluator()
	if got := evalStr(t, e, `LEFT$("HELLO",3)`, nil); string(e.strings.Bytes(got.StrDesc())) != "HEL" {
		t.Errorf("LEFT$ = %q, want HEL", e.strings.Bytes(got.StrDesc()))
	}
	if got := evalStr(t, e, `RIGHT$("HELLO",3)`, nil); string(e.strings.Bytes(got.StrDesc())) != "LLO" {
		t.Errorf("RIGHT$ = %q, want LLO", e.strings.Bytes(got.StrDesc()))
	}
	if got := evalStr(t, e, `MID$("HELLO",2,3)`, nil); string(e.strings.Bytes(got.StrDesc())) != "ELL" {
		t.Errorf("MID$ = %q, want ELL", e.strings.Bytes(got.StrDesc()))
	}
	if got := evalStr(t, e, `INSTR("HELLO","LL")`, nil); got.Int16Val() != 3 {
		t.Errorf("INSTR = %d, want 3", got.Int16Val())
	}
	if got := evalStr(t, e, `LEN("HELLO")`, nil); got.Int16Val() != 5 {
		t.Errorf("LEN = %d, want 5", got.Int16Val())
	}
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	e := newEvaluator()
	got := evalStr(t, e, "(2+3)*4", nil)
	if got.Int16Val() != 20 {
		t.Fatalf("(2+3)*4 = %d, want 20", got.Int16Val())
	}
}

func TestUndefinedVariableDefaultsToZero(t *testing.T) {
	e := newEvaluator()
	got := evalStr(t, e, "Q+1", nil)
	if got.Int16Val() != 1 {
		t.Fatalf("Q+1 with undefined Q = %d, want 1", got.Int16Val())
	}
}

func TestTruthyAndBoolValue(t *testing.T) {
	if Truthy(value.MakeInt16(0)) {
		t.Error("0 should be falsy")
	}
	if !Truthy(value.MakeInt16(1)) {
		t.Error("nonzero should be truthy")
	}
	if !BoolValue(true).IsString() && BoolValue(true).Int16Val() != -1 {
		t.Error("BoolValue(true) should be -1")
	}
	if BoolValue(false).Int16Val() != 0 {
		t.Error("BoolValue(false) should be 0")
	}
}
