package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/eval"
	"github.com/gwbasic/core/interp"
	"github.com/gwbasic/core/rtstack"
	"github.com/gwbasic/core/value"
	"github.com/gwbasic/core/vars"
)

// Dispatch implements interp.StatementHandler: it walks tokens,
// executing ':'-separated statements left to right, until one of them
// produces a line override, a waiting request, or an error. A bare
// line's worth of statements that all fall through returns
// interp.FallThrough so the loop advances to the next program line.
//
// This is the "external glue" the core spec deliberately leaves open —
// it recognizes only the statement vocabulary needed to run a program
// end to end, not the dialect's full grammar.
func (s *Session) Dispatch(tokens []byte, line int) (uint16, bool, error) {
	pos := 0
	for {
		pos = skipSpace(tokens, pos)
		if pos >= len(tokens) {
			return interp.FallThrough, false, nil
		}
		override, waiting, err := s.execStatement(tokens, &pos, line)
		if err != nil {
			return 0, false, err
		}
		if waiting {
			return 0, true, nil
		}
		if override != interp.FallThrough {
			return override, false, nil
		}
		pos = skipSpace(tokens, pos)
		if pos < len(tokens) && tokens[pos] == ':' {
			pos++
			continue
		}
		return interp.FallThrough, false, nil
	}
}

func (s *Session) execStatement(b []byte, pos *int, line int) (uint16, bool, error) {
	name, isKeyword := s.peekKeyword(b, *pos)
	if isKeyword {
		switch name {
		case "REM":
			*pos = len(b)
			return interp.FallThrough, false, nil
		case "LET":
			*pos++
			return s.execAssignment(b, pos)
		case "PRINT":
			*pos++
			return s.execPrint(b, pos)
		case "GOTO":
			*pos++
			n, err := s.parseLineNumber(b, pos)
			return uint16(n), false, err
		case "GOSUB":
			*pos++
			return s.execGosub(b, pos, line)
		case "RETURN":
			*pos++
			return s.execReturn()
		case "IF":
			*pos++
			return s.execIf(b, pos)
		case "FOR":
			*pos++
			return s.execFor(b, pos, line)
		case "NEXT":
			*pos++
			return s.execNext(b, pos)
		case "DIM":
			*pos++
			return s.execDim(b, pos)
		case "INPUT":
			*pos++
			return s.execInput(b, pos)
		case "ON":
			*pos++
			return s.execOnError(b, pos)
		case "RESUME":
			*pos++
			return s.execResume(b, pos, line)
		case "END", "STOP":
			*pos = len(b)
			return interp.Terminate, false, nil
		default:
			return 0, false, basicerr.Newf(basicerr.Syntax, line, "unsupported statement %s", name)
		}
	}
	// No recognized keyword: an implicit LET, e.g. `X = X + 1`.
	return s.execAssignment(b, pos)
}

// peekKeyword resolves a crunched keyword byte (or, in immediate-mode
// uncrunched text, the ASCII word itself) at pos without consuming it.
func (s *Session) peekKeyword(b []byte, pos int) (string, bool) {
	if pos >= len(b) {
		return "", false
	}
	if b[pos] >= 0x81 {
		if name := s.Tok.TokenName(b[pos]); name != "" {
			return name, true
		}
		return "", false
	}
	if !isAlpha(b[pos]) {
		return "", false
	}
	start := pos
	for pos < len(b) && isAlnum(b[pos]) {
		pos++
	}
	word := strings.ToUpper(string(b[start:pos]))
	if _, ok := s.Tok.IsStatementKeyword(word); ok {
		return word, true
	}
	return "", false
}

func skipSpace(b []byte, pos int) int {
	for pos < len(b) && b[pos] == ' ' {
		pos++
	}
	return pos
}

func isAlpha(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_' }
func isAlnum(c byte) bool { return isAlpha(c) || (c >= '0' && c <= '9') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func readName(b []byte, pos int) (string, int) {
	start := pos
	for pos < len(b) && isAlnum(b[pos]) {
		pos++
	}
	if pos < len(b) && (b[pos] == '%' || b[pos] == '!' || b[pos] == '#' || b[pos] == '$') {
		pos++
	}
	return strings.ToUpper(string(b[start:pos])), pos
}

// leadingLetter returns a Normalize'd key's first character, or 'A' for
// the all-digit/empty names DEFTBL lookup never actually sees in
// practice but must still tolerate.
func leadingLetter(normalizedName string) byte {
	if len(normalizedName) == 0 {
		return 'A'
	}
	return normalizedName[0]
}

func (s *Session) parseLineNumber(b []byte, pos *int) (int, error) {
	*pos = skipSpace(b, *pos)
	start := *pos
	for *pos < len(b) && isDigit(b[*pos]) {
		*pos++
	}
	if *pos == start {
		return 0, basicerr.New(basicerr.Syntax, 0)
	}
	n, _ := strconv.Atoi(string(b[start:*pos]))
	return n, nil
}

// --- LET / implicit assignment ---

func (s *Session) execAssignment(b []byte, pos *int) (uint16, bool, error) {
	*pos = skipSpace(b, *pos)
	name, newPos := readName(b, *pos)
	if name == "" {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	*pos = newPos
	*pos = skipSpace(b, *pos)

	var indices []int
	if *pos < len(b) && b[*pos] == '(' {
		*pos++
		for {
			v, newPos, err := s.Eval.Evaluate(b, *pos, s.env())
			if err != nil {
				return 0, false, err
			}
			*pos = newPos
			if v.IsString() {
				return 0, false, basicerr.New(basicerr.TypeMismatch, 0)
			}
			indices = append(indices, int(v.AsFloat64()))
			*pos = skipSpace(b, *pos)
			if *pos < len(b) && b[*pos] == ',' {
				*pos++
				continue
			}
			break
		}
		if *pos >= len(b) || b[*pos] != ')' {
			return 0, false, basicerr.New(basicerr.Syntax, 0)
		}
		*pos++
		*pos = skipSpace(b, *pos)
	}

	if *pos >= len(b) || b[*pos] != '=' {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	*pos++
	rhs, newPos, err := s.Eval.Evaluate(b, *pos, s.env())
	if err != nil {
		return 0, false, err
	}
	*pos = newPos

	if indices != nil {
		info, ok := s.Arrays.Info(name)
		if !ok {
			return 0, false, basicerr.New(basicerr.SubscriptOutOfRange, 0)
		}
		coerced, err := s.Eval.Coerce(rhs, info.Kind)
		if err != nil {
			return 0, false, err
		}
		return interp.FallThrough, false, s.Arrays.SetElement(name, indices, coerced)
	}

	slot, err := s.Vars.GetOrCreate(name)
	if err != nil {
		return 0, false, err
	}
	coerced, err := s.Eval.Coerce(rhs, slot.Scalar.Kind)
	if err != nil {
		return 0, false, err
	}
	return interp.FallThrough, false, s.Vars.SetScalar(name, coerced)
}

// --- PRINT ---

func (s *Session) execPrint(b []byte, pos *int) (uint16, bool, error) {
	for {
		*pos = skipSpace(b, *pos)
		if *pos >= len(b) || b[*pos] == ':' {
			break
		}
		if b[*pos] == ';' || b[*pos] == ',' {
			*pos++
			continue
		}
		v, newPos, err := s.Eval.Evaluate(b, *pos, s.env())
		if err != nil {
			return 0, false, err
		}
		*pos = newPos
		fmt.Fprint(s.out, s.format(v))
	}
	fmt.Fprintln(s.out)
	return interp.FallThrough, false, nil
}

func (s *Session) format(v value.Value) string {
	switch v.Kind {
	case value.Int16:
		return strconv.FormatInt(int64(v.Int16Val()), 10)
	case value.Single:
		return strconv.FormatFloat(float64(v.SingleVal()), 'g', -1, 32)
	case value.Double:
		return strconv.FormatFloat(v.DoubleVal(), 'g', -1, 64)
	default:
		return string(s.Strings.Bytes(v.StrDesc()))
	}
}

// --- GOSUB/RETURN ---

func (s *Session) execGosub(b []byte, pos *int, line int) (uint16, bool, error) {
	target, err := s.parseLineNumber(b, pos)
	if err != nil {
		return 0, false, err
	}
	returnLine, _ := s.Prog.NextLine(line)
	if !s.RT.PushGosub(rtstack.GosubFrame{ReturnLine: returnLine}) {
		return 0, false, basicerr.New(basicerr.Internal, line)
	}
	return uint16(target), false, nil
}

func (s *Session) execReturn() (uint16, bool, error) {
	frame, ok := s.RT.PopGosub()
	if !ok {
		return 0, false, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	if frame.ReturnLine == 0 {
		return interp.Terminate, false, nil
	}
	return uint16(frame.ReturnLine), false, nil
}

// --- IF/THEN/ELSE ---

func (s *Session) execIf(b []byte, pos *int) (uint16, bool, error) {
	cond, newPos, err := s.Eval.Evaluate(b, *pos, s.env())
	if err != nil {
		return 0, false, err
	}
	*pos = newPos
	*pos = skipSpace(b, *pos)
	if name, ok := s.peekKeyword(b, *pos); !ok || name != "THEN" {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	_, consumed := s.consumeKeyword(b, *pos)
	*pos = consumed

	thenTarget, err := s.parseLineNumber(b, pos)
	if err != nil {
		return 0, false, err
	}

	elseTarget := -1
	*pos = skipSpace(b, *pos)
	if name, ok := s.peekKeyword(b, *pos); ok && name == "ELSE" {
		_, consumed := s.consumeKeyword(b, *pos)
		*pos = consumed
		elseTarget, err = s.parseLineNumber(b, pos)
		if err != nil {
			return 0, false, err
		}
	}

	*pos = len(b)
	if eval.Truthy(cond) {
		return uint16(thenTarget), false, nil
	}
	if elseTarget >= 0 {
		return uint16(elseTarget), false, nil
	}
	return interp.FallThrough, false, nil
}

// consumeKeyword advances past the keyword at pos (crunched byte or
// ASCII word) and returns its name and the new position.
func (s *Session) consumeKeyword(b []byte, pos int) (string, int) {
	if pos < len(b) && b[pos] >= 0x81 {
		return s.Tok.TokenName(b[pos]), pos + 1
	}
	start := pos
	for pos < len(b) && isAlnum(b[pos]) {
		pos++
	}
	return strings.ToUpper(string(b[start:pos])), pos
}

// --- FOR/NEXT ---

func (s *Session) execFor(b []byte, pos *int, line int) (uint16, bool, error) {
	*pos = skipSpace(b, *pos)
	name, newPos := readName(b, *pos)
	*pos = newPos
	*pos = skipSpace(b, *pos)
	if *pos >= len(b) || b[*pos] != '=' {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	*pos++
	start, newPos, err := s.Eval.Evaluate(b, *pos, s.env())
	if err != nil {
		return 0, false, err
	}
	*pos = newPos
	*pos = skipSpace(b, *pos)
	if kw, ok := s.peekKeyword(b, *pos); !ok || kw != "TO" {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	_, consumed := s.consumeKeyword(b, *pos)
	*pos = consumed
	limit, newPos, err := s.Eval.Evaluate(b, *pos, s.env())
	if err != nil {
		return 0, false, err
	}
	*pos = newPos

	step := value.MakeInt16(1)
	*pos = skipSpace(b, *pos)
	if kw, ok := s.peekKeyword(b, *pos); ok && kw == "STEP" {
		_, consumed := s.consumeKeyword(b, *pos)
		*pos = consumed
		step, newPos, err = s.Eval.Evaluate(b, *pos, s.env())
		if err != nil {
			return 0, false, err
		}
		*pos = newPos
	}

	bodyLine, _ := s.Prog.NextLine(line)
	if err := s.Vars.SetScalar(name, start); err != nil {
		return 0, false, err
	}
	s.RT.PushFor(rtstack.ForFrame{
		VarKey:       name,
		Control:      start,
		Limit:        limit,
		Step:         step,
		ResumeCursor: bodyLine,
	})
	return interp.FallThrough, false, nil
}

func (s *Session) execNext(b []byte, pos *int) (uint16, bool, error) {
	*pos = skipSpace(b, *pos)
	var key string
	if *pos < len(b) && isAlpha(b[*pos]) {
		key, *pos = readName(b, *pos)
	} else if top := s.RT.TopFor(); top != nil {
		key = top.VarKey
	}
	frame, ok := s.RT.FindFor(key)
	if !ok {
		return 0, false, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	next := frame.Control.AsFloat64() + frame.Step.AsFloat64()
	nextVal, err := s.Eval.Coerce(value.MakeDouble(next), frame.Control.Kind)
	if err != nil {
		return 0, false, err
	}
	done := frame.Step.AsFloat64() >= 0 && next > frame.Limit.AsFloat64() ||
		frame.Step.AsFloat64() < 0 && next < frame.Limit.AsFloat64()
	if done {
		return interp.FallThrough, false, nil
	}
	if err := s.Vars.SetScalar(key, nextVal); err != nil {
		return 0, false, err
	}
	frame.Control = nextVal
	s.RT.PushFor(frame)
	if frame.ResumeCursor == 0 {
		return interp.Terminate, false, nil
	}
	return uint16(frame.ResumeCursor), false, nil
}

// --- DIM ---

func (s *Session) execDim(b []byte, pos *int) (uint16, bool, error) {
	*pos = skipSpace(b, *pos)
	name, newPos := readName(b, *pos)
	*pos = newPos
	*pos = skipSpace(b, *pos)
	if *pos >= len(b) || b[*pos] != '(' {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	*pos++
	var bounds []int
	for {
		v, newPos, err := s.Eval.Evaluate(b, *pos, s.env())
		if err != nil {
			return 0, false, err
		}
		*pos = newPos
		bounds = append(bounds, int(v.AsFloat64()))
		*pos = skipSpace(b, *pos)
		if *pos < len(b) && b[*pos] == ',' {
			*pos++
			continue
		}
		break
	}
	if *pos >= len(b) || b[*pos] != ')' {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	*pos++

	key := vars.Normalize(name)
	kind, ok := vars.KindFromSuffix(key.Suffix)
	if !ok {
		kind = s.DefTbl.DefaultFor(leadingLetter(key.Name))
	}
	if err := s.Arrays.CreateArray(name, kind, bounds); err != nil {
		return 0, false, err
	}
	return interp.FallThrough, false, s.Vars.CreateArraySlot(name, name)
}

// --- INPUT ---

func (s *Session) execInput(b []byte, pos *int) (uint16, bool, error) {
	*pos = skipSpace(b, *pos)
	prompt := "? "
	if *pos < len(b) && b[*pos] == '"' {
		start := *pos + 1
		i := start
		for i < len(b) && b[i] != '"' {
			i++
		}
		prompt = string(b[start:i]) + "? "
		*pos = i + 1
		*pos = skipSpace(b, *pos)
		if *pos < len(b) && b[*pos] == ';' {
			*pos++
		}
	}
	*pos = skipSpace(b, *pos)
	name, newPos := readName(b, *pos)
	*pos = newPos
	if name == "" {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}

	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return 0, false, basicerr.Wrap(0, err)
	}
	line = strings.TrimRight(line, "\r\n")

	key := vars.Normalize(name)
	kind, ok := vars.KindFromSuffix(key.Suffix)
	if !ok {
		kind = s.DefTbl.DefaultFor(leadingLetter(key.Name))
	}
	var v value.Value
	if kind == value.StringRef {
		d, err := s.Heap.AllocCopy([]byte(line))
		if err != nil {
			return 0, false, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
		}
		v = value.MakeString(d)
	} else {
		f, convErr := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if convErr != nil {
			return 0, false, basicerr.New(basicerr.TypeMismatch, 0)
		}
		v, err = s.Eval.Coerce(value.MakeDouble(f), kind)
		if err != nil {
			return 0, false, err
		}
	}
	return interp.FallThrough, false, s.Vars.SetScalar(name, v)
}

// --- ON ERROR GOTO / RESUME ---

func (s *Session) execOnError(b []byte, pos *int) (uint16, bool, error) {
	*pos = skipSpace(b, *pos)
	if kw, ok := s.peekKeyword(b, *pos); !ok || kw != "ERROR" {
		return 0, false, basicerr.Newf(basicerr.Syntax, 0, "only ON ERROR is supported")
	}
	_, consumed := s.consumeKeyword(b, *pos)
	*pos = consumed
	*pos = skipSpace(b, *pos)
	if kw, ok := s.peekKeyword(b, *pos); !ok || kw != "GOTO" {
		return 0, false, basicerr.New(basicerr.Syntax, 0)
	}
	_, consumed = s.consumeKeyword(b, *pos)
	*pos = consumed
	target, err := s.parseLineNumber(b, pos)
	if err != nil {
		return 0, false, err
	}
	if top := s.RT.TopErr(); top != nil {
		top.HandlerLine = target
		top.Enabled = target != 0
	} else {
		s.RT.PushErr(rtstack.ErrFrame{HandlerLine: target, Enabled: target != 0})
	}
	return interp.FallThrough, false, nil
}

func (s *Session) execResume(b []byte, pos *int, line int) (uint16, bool, error) {
	frame, ok := s.RT.PopErr()
	if !ok {
		return 0, false, basicerr.New(basicerr.IllegalFunctionCall, line)
	}
	*pos = skipSpace(b, *pos)
	if kw, ok := s.peekKeyword(b, *pos); ok && kw == "NEXT" {
		_, consumed := s.consumeKeyword(b, *pos)
		*pos = consumed
		next, ok := s.Prog.NextLine(frame.ResumeLine)
		if !ok {
			return interp.Terminate, false, nil
		}
		return uint16(next), false, nil
	}
	if *pos < len(b) && isDigit(b[*pos]) {
		n, err := s.parseLineNumber(b, pos)
		if err != nil {
			return 0, false, err
		}
		return uint16(n), false, nil
	}
	return uint16(frame.ResumeLine), false, nil
}
