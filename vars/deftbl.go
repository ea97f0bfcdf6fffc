package vars

import "github.com/gwbasic/core/value"

// DefaultTypeTable maps each leading letter A-Z to the default scalar
// type used when a bare identifier carries no type suffix
// (DEFINT/DEFSNG/DEFDBL/DEFSTR ranges, spec §3.5).
//
// Grounded on original_source/src/Runtime/VariableTable.hpp's
// DefaultTypeTable.
type DefaultTypeTable struct {
	kinds [26]value.Kind
}

// NewDefaultTypeTable returns a table where every letter defaults to Single,
// the dialect's default absent any DEFxxx statement.
func NewDefaultTypeTable() *DefaultTypeTable {
	t := &DefaultTypeTable{}
	t.Reset()
	return t
}

func (t *DefaultTypeTable) Reset() {
	for i := range t.kinds {
		t.kinds[i] = value.Single
	}
}

// SetRange assigns kind to every letter in the inclusive range [from,to].
func (t *DefaultTypeTable) SetRange(from, to byte, kind value.Kind) {
	from, to = upper(from), upper(to)
	if from > to {
		from, to = to, from
	}
	for c := from; c <= to; c++ {
		if c >= 'A' && c <= 'Z' {
			t.kinds[c-'A'] = kind
		}
	}
}

func (t *DefaultTypeTable) DefaultFor(leadingLetter byte) value.Kind {
	c := upper(leadingLetter)
	if c < 'A' || c > 'Z' {
		return value.Single
	}
	return t.kinds[c-'A']
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// KindFromSuffix maps a type suffix character to its Kind. ok is false
// for a character that is not one of %!#$.
func KindFromSuffix(suffix byte) (value.Kind, bool) {
	switch suffix {
	case '%':
		return value.Int16, true
	case '!':
		return value.Single, true
	case '#':
		return value.Double, true
	case '$':
		return value.StringRef, true
	default:
		return value.Single, false
	}
}
