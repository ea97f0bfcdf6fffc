// Package token is the external tokenizer collaborator the evaluator
// and program store depend on only through interfaces (eval.Namer):
// it crunches keyword words in source text down to single reserved
// bytes the way the dialect's line editor does on entry, and can
// resolve those bytes back to names for error messages and the
// `tokens` CLI diagnostic.
//
// Grounded on debug/dwarf/symbol.go's flat code<->name lookup table
// shape: two parallel maps built once at construction, no parsing
// cleverness beyond that.
package token

import "strings"

// FuncMarker precedes a built-in function's one-byte code in a crunched
// token stream (spec §4.5's "0xFF xx" encoding).
const FuncMarker byte = 0xFF

// operatorKeywords is crunched to single bytes starting at 0x81 (0x80
// is reserved as a future end-of-statement marker, mirroring the
// original tokenizer's byte layout).
var operatorKeywords = []string{
	"AND", "OR", "XOR", "NOT", "MOD", "IMP", "EQV",
}

// statementKeywords covers the core statement vocabulary the
// interpreter loop and its statement handlers recognize.
var statementKeywords = []string{
	"LET", "PRINT", "IF", "THEN", "ELSE", "GOTO", "GOSUB", "RETURN",
	"FOR", "TO", "STEP", "NEXT", "DIM", "END", "INPUT", "REM", "ON",
	"ERROR", "RESUME", "DEF", "FN", "OPTION", "BASE", "CLEAR", "STOP",
	"RUN", "LIST", "NEW", "RANDOMIZE", "DATA", "READ", "RESTORE",
}

// builtinFuncs is the full built-in function name list (spec §4.5),
// each assigned a one-byte code used after FuncMarker.
var builtinFuncs = []string{
	"ABS", "SGN", "INT", "FIX", "SQR", "SIN", "COS", "TAN", "ATN", "LOG",
	"EXP", "RND", "LEN", "ASC", "CHR$", "STR$", "VAL", "LEFT$", "RIGHT$",
	"MID$", "STRING$", "SPACE$", "INSTR", "CINT", "CSNG", "CDBL", "HEX$",
	"OCT$",
}

// Tokenizer implements eval.Namer and provides Crunch, a minimal real
// stand-in for the dialect's line-entry tokenizer.
type Tokenizer struct {
	byName   map[string]byte
	byCode   map[byte]string
	fnByName map[string]byte
	fnByCode map[byte]string
}

func New() *Tokenizer {
	t := &Tokenizer{
		byName:   make(map[string]byte),
		byCode:   make(map[byte]string),
		fnByName: make(map[string]byte),
		fnByCode: make(map[byte]string),
	}
	code := byte(0x81)
	for _, w := range operatorKeywords {
		t.byName[w] = code
		t.byCode[code] = w
		code++
	}
	for _, w := range statementKeywords {
		t.byName[w] = code
		t.byCode[code] = w
		code++
	}
	fcode := byte(0x01)
	for _, w := range builtinFuncs {
		t.fnByName[w] = fcode
		t.fnByCode[fcode] = w
		fcode++
	}
	return t
}

// TokenName implements eval.Namer: resolves a reserved keyword byte
// back to its uppercase name, or "" if b is not a known keyword code.
func (t *Tokenizer) TokenName(b byte) string { return t.byCode[b] }

// FuncName implements eval.Namer: resolves a built-in function code
// (the byte following FuncMarker) back to its name.
func (t *Tokenizer) FuncName(code byte) string { return t.fnByCode[code] }

// IsStatementKeyword reports whether word (already upper-cased) is one
// of the keywords this tokenizer crunches to a single byte (statement
// words and the operator words AND, OR, NOT, ...) — used by a
// statement handler to recognize a crunched byte without re-deriving
// the keyword table.
func (t *Tokenizer) IsStatementKeyword(word string) (byte, bool) {
	code, ok := t.byName[word]
	return code, ok
}

// Crunch rewrites src, replacing each recognized keyword word with its
// reserved byte (or FuncMarker+code for a built-in function name).
// Identifiers pass through upper-cased; numeric literals, string
// literals, spaces, and ASCII operator characters pass through
// unchanged — the evaluator parses those
// directly out of raw source text, so there is nothing to gain by
// encoding them.
func (t *Tokenizer) Crunch(src []byte) []byte {
	out := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' {
				i++
			}
			if i < len(src) {
				i++
			}
			out = append(out, src[start:i]...)
		case isAlpha(c):
			start := i
			for i < len(src) && isAlnum(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '$' {
				i++
			}
			word := strings.ToUpper(string(src[start:i]))
			if code, ok := t.byName[word]; ok {
				out = append(out, code)
			} else if code, ok := t.fnByName[word]; ok {
				out = append(out, FuncMarker, code)
			} else {
				out = append(out, []byte(word)...)
			}
		default:
			out = append(out, c)
			i++
		}
	}
	return out
}

func isAlpha(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_' }
func isAlnum(c byte) bool { return isAlpha(c) || (c >= '0' && c <= '9') }
