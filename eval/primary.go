package eval

import (
	"strconv"
	"strings"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/numeric"
	"github.com/gwbasic/core/value"
)

// Token bytes for literal encodings, matching the widths numeric.Decode*
// expects (spec §3.4/§4.5).
const (
	tokInt16  byte = 0x11
	tokSingle byte = 0x1D
	tokDouble byte = 0x1F
	tokFunc   byte = 0xFF
	tokQuote  byte = '"'
	tokLParen byte = '('
)

func (e *Evaluator) parsePrimary(b []byte, pos int, env *Env) (value.Value, int, error) {
	if pos >= len(b) || b[pos] == 0x00 {
		return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
	}
	c := b[pos]
	switch {
	case c == tokInt16:
		if pos+3 > len(b) {
			return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
		}
		return value.MakeInt16(numeric.DecodeInt16(b[pos+1 : pos+3])), pos + 3, nil
	case c == tokSingle:
		if pos+5 > len(b) {
			return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
		}
		return value.MakeSingle(numeric.DecodeSingle(b[pos+1 : pos+5])), pos + 5, nil
	case c == tokDouble:
		if pos+9 > len(b) {
			return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
		}
		return value.MakeDouble(numeric.DecodeDouble(b[pos+1 : pos+9])), pos + 9, nil
	case c == tokQuote:
		return e.parseStringLiteral(b, pos)
	case c == tokFunc:
		return e.parseEncodedFuncCall(b, pos, env)
	case c == tokLParen:
		inner, newPos, err := e.parseExpr(b, pos+1, env, 0)
		if err != nil {
			return value.Value{}, newPos, err
		}
		if newPos >= len(b) || b[newPos] != ')' {
			return value.Value{}, newPos, basicerr.New(basicerr.Syntax, 0)
		}
		return inner, newPos + 1, nil
	case isDigit(c) || c == '.':
		return parseNumericLiteral(b, pos)
	case isAlpha(c):
		return e.parseIdentOrCall(b, pos, env)
	default:
		return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
	}
}

func (e *Evaluator) parseStringLiteral(b []byte, pos int) (value.Value, int, error) {
	start := pos + 1
	i := start
	for i < len(b) && b[i] != tokQuote {
		i++
	}
	if i >= len(b) {
		return value.Value{}, i, basicerr.New(basicerr.Syntax, 0)
	}
	d, err := e.h.AllocCopy(b[start:i])
	if err != nil {
		return value.Value{}, i + 1, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), i + 1, nil
}

// parseEncodedFuncCall handles the crunched 0xFF <code> form of a
// built-in function name, as an external tokenizer would emit it.
func (e *Evaluator) parseEncodedFuncCall(b []byte, pos int, env *Env) (value.Value, int, error) {
	if pos+1 >= len(b) || e.namer == nil {
		return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
	}
	name := upperOf(e.namer.FuncName(b[pos+1]))
	if name == "" {
		return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
	}
	pos += 2
	return e.callIdent(name, b, pos, env)
}

// parseNumericLiteral scans an immediate-mode ASCII numeral: digits, an
// optional decimal point and more digits, an optional exponent
// (E/e/D/d with optional sign and digits), and an optional trailing
// type suffix (% ! #). With no suffix, an integral value in Int16 range
// stays Int16; anything else (fractional, exponent, out of range) is
// Double. An explicit ! gives Single, % gives Int16, and # gives Double.
func parseNumericLiteral(b []byte, pos int) (value.Value, int, error) {
	start := pos
	hasFraction := false
	hasExponent := false
	for pos < len(b) && isDigit(b[pos]) {
		pos++
	}
	if pos < len(b) && b[pos] == '.' {
		hasFraction = true
		pos++
		for pos < len(b) && isDigit(b[pos]) {
			pos++
		}
	}
	numEnd := pos
	if pos < len(b) && (b[pos] == 'E' || b[pos] == 'e' || b[pos] == 'D' || b[pos] == 'd') {
		hasExponent = true
		expMarker := b[pos]
		save := pos
		pos++
		if pos < len(b) && (b[pos] == '+' || b[pos] == '-') {
			pos++
		}
		digitsStart := pos
		for pos < len(b) && isDigit(b[pos]) {
			pos++
		}
		if pos == digitsStart {
			// not actually an exponent (e.g. bare "E" identifier follows)
			hasExponent = false
			pos = save
		} else {
			numEnd = pos
			_ = expMarker
		}
	}
	text := strings.Map(func(r rune) rune {
		if r == 'D' || r == 'd' {
			return 'E'
		}
		return r
	}, string(b[start:numEnd]))

	var suffix byte
	if pos < len(b) && (b[pos] == '%' || b[pos] == '!' || b[pos] == '#') {
		suffix = b[pos]
		pos++
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return value.Value{}, pos, basicerr.New(basicerr.Syntax, 0)
	}
	switch suffix {
	case '%':
		n, ok := numeric.NarrowToInt16(f, true)
		if !ok {
			return value.Value{}, pos, basicerr.New(basicerr.Overflow, 0)
		}
		return value.MakeInt16(n), pos, nil
	case '!':
		return value.MakeSingle(float32(f)), pos, nil
	case '#':
		return value.MakeDouble(f), pos, nil
	}
	if !hasFraction && !hasExponent && numeric.FitsInt16(f) {
		return value.MakeInt16(int16(f)), pos, nil
	}
	return value.MakeDouble(f), pos, nil
}

func readIdent(b []byte, pos int) (string, int) {
	start := pos
	for pos < len(b) && isAlnum(b[pos]) {
		pos++
	}
	if pos < len(b) && isSuffix(b[pos]) {
		pos++
	}
	return strings.ToUpper(string(b[start:pos])), pos
}

func (e *Evaluator) parseIdentOrCall(b []byte, pos int, env *Env) (value.Value, int, error) {
	name, newPos := readIdent(b, pos)
	return e.callIdent(name, b, newPos, env)
}

// callIdent resolves name (already read, case-normalized) at b[pos]:
// a built-in, then a user function, then an array, in that order, each
// only if name is immediately followed by ( or [; otherwise it's a
// plain variable reference.
func (e *Evaluator) callIdent(name string, b []byte, pos int, env *Env) (value.Value, int, error) {
	if pos < len(b) && (b[pos] == '(' || b[pos] == '[') {
		if bf, ok := builtinTable[name]; ok {
			args, newPos, err := e.parseArgList(b, pos, env)
			if err != nil {
				return value.Value{}, newPos, err
			}
			if len(args) < bf.minArgs || len(args) > bf.maxArgs {
				return value.Value{}, newPos, basicerr.Newf(basicerr.Syntax, 0, "%s expects %d-%d argument(s)", name, bf.minArgs, bf.maxArgs)
			}
			v, err := bf.call(e, args)
			return v, newPos, err
		}
		if env != nil && env.IsUserFunc != nil && env.IsUserFunc(name) {
			args, newPos, err := e.parseArgList(b, pos, env)
			if err != nil {
				return value.Value{}, newPos, err
			}
			v, err := env.CallUserFunc(name, args)
			return v, newPos, err
		}
		if env != nil && env.ArrayExists != nil && env.ArrayExists(name) {
			argVals, newPos, err := e.parseArgList(b, pos, env)
			if err != nil {
				return value.Value{}, newPos, err
			}
			indices := make([]int, len(argVals))
			for i, v := range argVals {
				if v.IsString() {
					return value.Value{}, newPos, basicerr.New(basicerr.TypeMismatch, 0)
				}
				indices[i] = int(roundNearest(v.AsFloat64()))
			}
			v, err := env.GetArrayElem(name, indices)
			return v, newPos, err
		}
		return value.Value{}, pos, basicerr.Newf(basicerr.IllegalFunctionCall, 0, "undefined function or array: %s", name)
	}
	if env != nil && env.GetVar != nil {
		if v, ok := env.GetVar(name); ok {
			return v, pos, nil
		}
	}
	return value.DefaultForKind(inferKindFromName(name)), pos, nil
}

// inferKindFromName covers the case where GetVar reports "not found"
// (e.g. no backing vars.Table was wired): fall back to the suffix-only
// part of the default-type rule so an undefined reference still yields
// a value of a plausible type rather than always Int16.
func inferKindFromName(name string) value.Kind {
	if len(name) == 0 {
		return value.Int16
	}
	switch name[len(name)-1] {
	case '$':
		return value.StringRef
	case '!':
		return value.Single
	case '#':
		return value.Double
	case '%':
		return value.Int16
	}
	return value.Int16
}

func (e *Evaluator) parseArgList(b []byte, pos int, env *Env) ([]value.Value, int, error) {
	pos++ // consume '(' or '['
	if pos < len(b) && (b[pos] == ')' || b[pos] == ']') {
		return nil, pos + 1, nil
	}
	var args []value.Value
	for {
		v, newPos, err := e.parseExpr(b, pos, env, 0)
		if err != nil {
			return nil, newPos, err
		}
		args = append(args, v)
		pos = newPos
		if pos < len(b) && b[pos] == ',' {
			pos++
			continue
		}
		break
	}
	if pos >= len(b) || (b[pos] != ')' && b[pos] != ']') {
		return nil, pos, basicerr.New(basicerr.Syntax, 0)
	}
	return args, pos + 1, nil
}

func roundNearest(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}
