package eval

import (
	"math"
	"strconv"

	"github.com/gwbasic/core/basicerr"
	"github.com/gwbasic/core/numeric"
	"github.com/gwbasic/core/value"
)

type builtinFn struct {
	minArgs, maxArgs int
	call             func(e *Evaluator, args []value.Value) (value.Value, error)
}

// builtinTable is the fixed dispatch table for the dialect's built-in
// functions (spec §4.5). Grounded on original_source/src/Runtime's
// MathFunctions.cpp and StringFunctions.cpp for clamping/error rules.
var builtinTable = map[string]builtinFn{
	"ABS":     {1, 1, builtinAbs},
	"SGN":     {1, 1, builtinSgn},
	"INT":     {1, 1, builtinInt},
	"FIX":     {1, 1, builtinFix},
	"SQR":     {1, 1, builtinSqr},
	"SIN":     {1, 1, mathFn(math.Sin)},
	"COS":     {1, 1, mathFn(math.Cos)},
	"TAN":     {1, 1, mathFn(math.Tan)},
	"ATN":     {1, 1, mathFn(math.Atan)},
	"EXP":     {1, 1, mathFn(math.Exp)},
	"LOG":     {1, 1, builtinLog},
	"RND":     {0, 1, builtinRnd},
	"LEN":     {1, 1, builtinLen},
	"ASC":     {1, 1, builtinAsc},
	"CHR$":    {1, 1, builtinChr},
	"STR$":    {1, 1, builtinStr},
	"VAL":     {1, 1, builtinVal},
	"LEFT$":   {2, 2, builtinLeft},
	"RIGHT$":  {2, 2, builtinRight},
	"MID$":    {2, 3, builtinMid},
	"STRING$": {2, 2, builtinStringDollar},
	"SPACE$":  {1, 1, builtinSpace},
	"INSTR":   {2, 3, builtinInstr},
	"CINT":    {1, 1, builtinCint},
	"CSNG":    {1, 1, builtinCsng},
	"CDBL":    {1, 1, builtinCdbl},
	"HEX$":    {1, 1, builtinHex},
	"OCT$":    {1, 1, builtinOct},
}

func requireNumeric(v value.Value) error {
	if v.IsString() {
		return basicerr.New(basicerr.TypeMismatch, 0)
	}
	return nil
}

func requireString(v value.Value) error {
	if !v.IsString() {
		return basicerr.New(basicerr.TypeMismatch, 0)
	}
	return nil
}

func mathFn(f func(float64) float64) func(*Evaluator, []value.Value) (value.Value, error) {
	return func(e *Evaluator, args []value.Value) (value.Value, error) {
		if err := requireNumeric(args[0]); err != nil {
			return value.Value{}, err
		}
		return value.MakeDouble(f(args[0].AsFloat64())), nil
	}
}

func builtinAbs(e *Evaluator, args []value.Value) (value.Value, error) {
	v := args[0]
	if err := requireNumeric(v); err != nil {
		return value.Value{}, err
	}
	af := math.Abs(v.AsFloat64())
	if v.Kind == value.Int16 && numeric.FitsInt16(af) {
		return value.MakeInt16(int16(af)), nil
	}
	return value.MakeDouble(af), nil
}

func builtinSgn(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	af := args[0].AsFloat64()
	switch {
	case af > 0:
		return value.MakeInt16(1), nil
	case af < 0:
		return value.MakeInt16(-1), nil
	default:
		return value.MakeInt16(0), nil
	}
}

func builtinInt(e *Evaluator, args []value.Value) (value.Value, error) {
	v := args[0]
	if err := requireNumeric(v); err != nil {
		return value.Value{}, err
	}
	if v.Kind == value.Int16 {
		return v, nil
	}
	return value.MakeDouble(math.Floor(v.AsFloat64())), nil
}

func builtinFix(e *Evaluator, args []value.Value) (value.Value, error) {
	v := args[0]
	if err := requireNumeric(v); err != nil {
		return value.Value{}, err
	}
	if v.Kind == value.Int16 {
		return v, nil
	}
	return value.MakeDouble(math.Trunc(v.AsFloat64())), nil
}

func builtinSqr(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	af := args[0].AsFloat64()
	if af < 0 {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	return value.MakeDouble(math.Sqrt(af)), nil
}

func builtinLog(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	af := args[0].AsFloat64()
	if af <= 0 {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	return value.MakeDouble(math.Log(af)), nil
}

func builtinRnd(e *Evaluator, args []value.Value) (value.Value, error) {
	var n float64 = 1
	if len(args) == 1 {
		if err := requireNumeric(args[0]); err != nil {
			return value.Value{}, err
		}
		n = args[0].AsFloat64()
	}
	return value.MakeSingle(float32(e.rnd.next(n))), nil
}

func builtinLen(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireString(args[0]); err != nil {
		return value.Value{}, err
	}
	return value.MakeInt16(int16(args[0].StrDesc().Len)), nil
}

func builtinAsc(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireString(args[0]); err != nil {
		return value.Value{}, err
	}
	d := args[0].StrDesc()
	if d.Len == 0 {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	return value.MakeInt16(int16(e.strings.Bytes(d)[0])), nil
}

func builtinChr(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	n := int(roundNearest(args[0].AsFloat64()))
	if n < 0 || n > 255 {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	d, err := e.h.AllocCopy([]byte{byte(n)})
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinStr(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	d, err := e.h.AllocCopy([]byte(formatNumber(args[0])))
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinVal(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireString(args[0]); err != nil {
		return value.Value{}, err
	}
	f := parseLeadingNumber(e.strings.Bytes(args[0].StrDesc()))
	return value.MakeDouble(f), nil
}

func builtinLeft(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireString(args[0]); err != nil {
		return value.Value{}, err
	}
	if err := requireNumeric(args[1]); err != nil {
		return value.Value{}, err
	}
	d, err := e.strings.Left(args[0].StrDesc(), int(roundNearest(args[1].AsFloat64())))
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinRight(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireString(args[0]); err != nil {
		return value.Value{}, err
	}
	if err := requireNumeric(args[1]); err != nil {
		return value.Value{}, err
	}
	d, err := e.strings.Right(args[0].StrDesc(), int(roundNearest(args[1].AsFloat64())))
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinMid(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireString(args[0]); err != nil {
		return value.Value{}, err
	}
	if err := requireNumeric(args[1]); err != nil {
		return value.Value{}, err
	}
	count := -1
	if len(args) == 3 {
		if err := requireNumeric(args[2]); err != nil {
			return value.Value{}, err
		}
		count = int(roundNearest(args[2].AsFloat64()))
	}
	d, err := e.strings.Mid(args[0].StrDesc(), int(roundNearest(args[1].AsFloat64())), count)
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinStringDollar(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	n := int(roundNearest(args[0].AsFloat64()))
	if n < 0 || n > 255 {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	var ch byte
	switch {
	case args[1].IsString():
		d := args[1].StrDesc()
		if d.Len == 0 {
			return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
		}
		ch = e.strings.Bytes(d)[0]
	default:
		code := int(roundNearest(args[1].AsFloat64()))
		if code < 0 || code > 255 {
			return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
		}
		ch = byte(code)
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ch
	}
	d, err := e.h.AllocCopy(buf)
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinSpace(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	n := int(roundNearest(args[0].AsFloat64()))
	if n < 0 || n > 255 {
		return value.Value{}, basicerr.New(basicerr.IllegalFunctionCall, 0)
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ' '
	}
	d, err := e.h.AllocCopy(buf)
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinInstr(e *Evaluator, args []value.Value) (value.Value, error) {
	start := 1
	hay, needle := args[0], args[1]
	if len(args) == 3 {
		if err := requireNumeric(args[0]); err != nil {
			return value.Value{}, err
		}
		start = int(roundNearest(args[0].AsFloat64()))
		hay, needle = args[1], args[2]
	}
	if err := requireString(hay); err != nil {
		return value.Value{}, err
	}
	if err := requireString(needle); err != nil {
		return value.Value{}, err
	}
	return value.MakeInt16(int16(e.strings.Instr(hay.StrDesc(), needle.StrDesc(), start))), nil
}

func builtinCint(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	return coerceInt16(args[0])
}

func builtinCsng(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	return value.MakeSingle(float32(args[0].AsFloat64())), nil
}

func builtinCdbl(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	return value.MakeDouble(args[0].AsFloat64()), nil
}

func builtinHex(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	n, ok := numeric.NarrowToInt16(args[0].AsFloat64(), true)
	if !ok {
		return value.Value{}, basicerr.New(basicerr.Overflow, 0)
	}
	d, err := e.h.AllocCopy([]byte(strconv.FormatUint(uint64(uint16(n)), 16)))
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

func builtinOct(e *Evaluator, args []value.Value) (value.Value, error) {
	if err := requireNumeric(args[0]); err != nil {
		return value.Value{}, err
	}
	n, ok := numeric.NarrowToInt16(args[0].AsFloat64(), true)
	if !ok {
		return value.Value{}, basicerr.New(basicerr.Overflow, 0)
	}
	d, err := e.h.AllocCopy([]byte(strconv.FormatUint(uint64(uint16(n)), 8)))
	if err != nil {
		return value.Value{}, basicerr.Newf(basicerr.OutOfStringSpace, 0, "%s", err)
	}
	return value.MakeString(d), nil
}

// formatNumber renders a numeric Value the way STR$ does: a leading
// space in place of the sign for zero or positive values.
func formatNumber(v value.Value) string {
	var s string
	if v.Kind == value.Int16 {
		s = strconv.Itoa(int(v.Int16Val()))
	} else {
		s = strconv.FormatFloat(v.AsFloat64(), 'G', -1, 64)
	}
	if len(s) > 0 && s[0] != '-' {
		return " " + s
	}
	return s
}

// parseLeadingNumber implements VAL: skip leading spaces, parse as much
// of a valid numeral as possible, and return 0 if none is found.
func parseLeadingNumber(b []byte) float64 {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	start := i
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		i++
	}
	for i < len(b) && isDigit(b[i]) {
		i++
	}
	if i < len(b) && b[i] == '.' {
		i++
		for i < len(b) && isDigit(b[i]) {
			i++
		}
	}
	if i < len(b) && (b[i] == 'E' || b[i] == 'e' || b[i] == 'D' || b[i] == 'd') {
		save := i
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		digitsStart := i
		for i < len(b) && isDigit(b[i]) {
			i++
		}
		if i == digitsStart {
			i = save
		}
	}
	if i == start {
		return 0
	}
	text := string(b[start:i])
	for j := range text {
		if text[j] == 'D' || text[j] == 'd' {
			text = text[:j] + "E" + text[j+1:]
			break
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return f
}
