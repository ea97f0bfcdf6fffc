package eval

import (
	"math"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/numeric"
	"github.com/gwbasic/core/value"
)

// bpInfo is one operator's left binding power and the minimum binding
// power its right-hand operand must be parsed with. Left-associative
// operators recurse with lbp+1 so that equal-precedence operators to
// their right stop and are picked up by the outer loop instead; ^ is
// right-associative so it recurses with its own lbp, letting a chain of
// ^ nest to the right (2^3^2 == 2^(3^2)).
type bpInfo struct {
	lbp      int
	rhsMinBP int
}

var binOps = map[string]bpInfo{
	"IMP": {10, 11},
	"EQV": {10, 11},
	"OR":  {20, 21},
	"XOR": {20, 21},
	"AND": {30, 31},
	"=":   {40, 41},
	"<>":  {40, 41},
	"<":   {40, 41},
	">":   {40, 41},
	"<=":  {40, 41},
	">=":  {40, 41},
	"+":   {50, 51},
	"-":   {50, 51},
	"*":   {60, 61},
	"/":   {60, 61},
	"\\":  {60, 61},
	"MOD": {60, 61},
	"^":   {80, 80},
}

// unaryBP is the minimum binding power a unary +/-/NOT operand is
// parsed with: tight enough to exclude */ (60) but loose enough to
// include ^ (80), so that -5^2 parses as -(5^2).
const unaryBP = 80

func isBinaryKeyword(w string) bool {
	switch w {
	case "AND", "OR", "XOR", "IMP", "EQV", "MOD":
		return true
	}
	return false
}

// peekOp looks ahead at pos for a binary operator without mutating pos,
// returning its canonical symbol and the number of bytes it occupies.
func (e *Evaluator) peekOp(b []byte, pos int) (sym string, width int, ok bool) {
	if pos >= len(b) {
		return "", 0, false
	}
	c := b[pos]
	switch c {
	case '+':
		return "+", 1, true
	case '-':
		return "-", 1, true
	case '*':
		return "*", 1, true
	case '/':
		return "/", 1, true
	case '\\':
		return "\\", 1, true
	case '^':
		return "^", 1, true
	case '=':
		return "=", 1, true
	case '<':
		if pos+1 < len(b) && b[pos+1] == '=' {
			return "<=", 2, true
		}
		if pos+1 < len(b) && b[pos+1] == '>' {
			return "<>", 2, true
		}
		return "<", 1, true
	case '>':
		if pos+1 < len(b) && b[pos+1] == '=' {
			return ">=", 2, true
		}
		return ">", 1, true
	}
	word, width := e.peekKeyword(b, pos)
	if width > 0 && isBinaryKeyword(word) {
		return word, width, true
	}
	return "", 0, false
}

// peekKeyword looks ahead at pos for a keyword: either a reserved token
// byte (>=0x80) resolved through Namer, or a raw ASCII alpha run. It
// never mutates pos; callers decide whether the returned word is one
// they recognize before consuming it.
func (e *Evaluator) peekKeyword(b []byte, pos int) (string, int) {
	if pos >= len(b) {
		return "", 0
	}
	c := b[pos]
	if c >= 0x80 && c != 0xFF && e.namer != nil {
		name := e.namer.TokenName(c)
		if name == "" {
			return "", 0
		}
		return upperOf(name), 1
	}
	if isAlpha(c) {
		return upperWord(b, pos)
	}
	return "", 0
}

func upperOf(s string) string {
	w, _ := upperWord([]byte(s), 0)
	return w
}

// parseExpr is the precedence-climbing loop: it parses one unary/primary
// operand, then repeatedly consumes binary operators whose left binding
// power is at least minBP, recursing for each right-hand operand.
// Spaces before an operand and before an operator are skipped.
func (e *Evaluator) parseExpr(b []byte, pos int, env *Env, minBP int) (value.Value, int, error) {
	for pos < len(b) && b[pos] == ' ' {
		pos++
	}
	lhs, pos, err := e.parseUnary(b, pos, env)
	if err != nil {
		return value.Value{}, pos, err
	}
	for {
		for pos < len(b) && b[pos] == ' ' {
			pos++
		}
		sym, width, ok := e.peekOp(b, pos)
		if !ok {
			break
		}
		info := binOps[sym]
		if info.lbp < minBP {
			break
		}
		pos += width
		var rhs value.Value
		rhs, pos, err = e.parseExpr(b, pos, env, info.rhsMinBP)
		if err != nil {
			return value.Value{}, pos, err
		}
		lhs, err = e.applyBinOp(sym, lhs, rhs)
		if err != nil {
			return value.Value{}, pos, err
		}
	}
	return lhs, pos, nil
}

func (e *Evaluator) parseUnary(b []byte, pos int, env *Env) (value.Value, int, error) {
	if pos < len(b) {
		switch b[pos] {
		case '+':
			operand, newPos, err := e.parseExpr(b, pos+1, env, unaryBP)
			if err != nil {
				return value.Value{}, newPos, err
			}
			v, err := applyUnaryPlus(operand)
			return v, newPos, err
		case '-':
			operand, newPos, err := e.parseExpr(b, pos+1, env, unaryBP)
			if err != nil {
				return value.Value{}, newPos, err
			}
			v, err := applyUnaryMinus(operand)
			return v, newPos, err
		}
	}
	if word, width := e.peekKeyword(b, pos); width > 0 && word == "NOT" {
		operand, newPos, err := e.parseExpr(b, pos+width, env, unaryBP)
		if err != nil {
			return value.Value{}, newPos, err
		}
		v, err := applyUnaryNot(operand)
		return v, newPos, err
	}
	return e.parsePrimary(b, pos, env)
}

func applyUnaryPlus(v value.Value) (value.Value, error) {
	if v.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	return v, nil
}

func applyUnaryMinus(v value.Value) (value.Value, error) {
	if v.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	af := -v.AsFloat64()
	if v.Kind == value.Int16 && numeric.FitsInt16(af) {
		return value.MakeInt16(int16(af)), nil
	}
	return value.MakeDouble(af), nil
}

func applyUnaryNot(v value.Value) (value.Value, error) {
	n, err := toInt16Strict(v)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeInt16(^n), nil
}

func (e *Evaluator) applyBinOp(sym string, a, b value.Value) (value.Value, error) {
	switch sym {
	case "+":
		return e.applyAdd(a, b)
	case "-":
		return applyArith(sym, a, b)
	case "*":
		return applyArith(sym, a, b)
	case "/":
		return applyDiv(a, b)
	case "\\":
		return applyIntDiv(a, b)
	case "MOD":
		return applyMod(a, b)
	case "^":
		return applyPow(a, b)
	case "=", "<>", "<", ">", "<=", ">=":
		return e.applyCompare(sym, a, b)
	case "AND", "OR", "XOR", "IMP", "EQV":
		return applyLogical(sym, a, b)
	}
	return value.Value{}, basicerr.New(basicerr.Syntax, 0)
}

func (e *Evaluator) applyAdd(a, b value.Value) (value.Value, error) {
	if a.IsString() && b.IsString() {
		d, err := e.strings.Concat(a.StrDesc(), b.StrDesc())
		if err != nil {
			return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
		}
		return value.MakeString(d), nil
	}
	if a.IsString() || b.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	return applyArith("+", a, b)
}

func applyArith(sym string, a, b value.Value) (value.Value, error) {
	if a.IsString() || b.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	var r float64
	switch sym {
	case "+":
		r = af + bf
	case "-":
		r = af - bf
	case "*":
		r = af * bf
	}
	if a.Kind == value.Int16 && b.Kind == value.Int16 && numeric.FitsInt16(r) {
		return value.MakeInt16(int16(r)), nil
	}
	return value.MakeDouble(r), nil
}

func applyDiv(a, b value.Value) (value.Value, error) {
	if a.IsString() || b.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	bf := b.AsFloat64()
	if bf == 0 {
		return value.Value{}, basicerr.New(basicerr.DivisionByZero, 0)
	}
	return value.MakeDouble(a.AsFloat64() / bf), nil
}

func applyIntDiv(a, b value.Value) (value.Value, error) {
	if a.IsString() || b.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	ib := int64(math.Round(b.AsFloat64()))
	if ib == 0 {
		return value.Value{}, basicerr.New(basicerr.DivisionByZero, 0)
	}
	ia := int64(math.Round(a.AsFloat64()))
	return narrowInt64(ia / ib)
}

func applyMod(a, b value.Value) (value.Value, error) {
	if a.IsString() || b.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	ib := int64(math.Round(b.AsFloat64()))
	if ib == 0 {
		return value.Value{}, basicerr.New(basicerr.DivisionByZero, 0)
	}
	ia := int64(math.Round(a.AsFloat64()))
	return narrowInt64(ia % ib)
}

func applyPow(a, b value.Value) (value.Value, error) {
	if a.IsString() || b.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	if af == 0 && bf < 0 {
		return value.Value{}, basicerr.New(basicerr.DivisionByZero, 0)
	}
	r := math.Pow(af, bf)
	if math.IsNaN(r) {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	return value.MakeDouble(r), nil
}

func (e *Evaluator) applyCompare(sym string, a, b value.Value) (value.Value, error) {
	if a.IsString() != b.IsString() {
		return value.Value{}, basicerr.New(basicerr.TypeMismatch, 0)
	}
	var cmp int
	if a.IsString() {
		cmp = e.strings.Compare(a.StrDesc(), b.StrDesc())
	} else {
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	}
	var result bool
	switch sym {
	case "=":
		result = cmp == 0
	case "<>":
		result = cmp != 0
	case "<":
		result = cmp < 0
	case ">":
		result = cmp > 0
	case "<=":
		result = cmp <= 0
	case ">=":
		result = cmp >= 0
	}
	return BoolValue(result), nil
}

func applyLogical(sym string, a, b value.Value) (value.Value, error) {
	ia, err := toInt16Strict(a)
	if err != nil {
		return value.Value{}, err
	}
	ib, err := toInt16Strict(b)
	if err != nil {
		return value.Value{}, err
	}
	var r int16
	switch sym {
	case "AND":
		r = ia & ib
	case "OR":
		r = ia | ib
	case "XOR":
		r = ia ^ ib
	case "IMP":
		r = (^ia) | ib
	case "EQV":
		r = ^(ia ^ ib)
	}
	return value.MakeInt16(r), nil
}

func toInt16Strict(v value.Value) (int16, error) {
	if v.IsString() {
		return 0, basicerr.New(basicerr.TypeMismatch, 0)
	}
	n, ok := numeric.NarrowToInt16(v.AsFloat64(), true)
	if !ok {
		return 0, basicerr.New(basicerr.Overflow, 0)
	}
	return n, nil
}

func narrowInt64(v int64) (value.Value, error) {
	if v < numeric.MinInt16 || v > numeric.MaxInt16 {
		return value.Value{}, basicerr.New(basicerr.Overflow, 0)
	}
	return value.MakeInt16(int16(v)), nil
}

func coerceInt16(v value.Value) (value.Value, error) {
	n, ok := numeric.NarrowToInt16(v.AsFloat64(), true)
	if !ok {
		return value.Value{}, basicerr.New(basicerr.Overflow, 0)
	}
	return value.MakeInt16(n), nil
}
