// Package token splits ZOML source text into control, property and value
// tokens. Tokens and errors carry byte offsets into the source so callers can
// point at the culprit.
package token

import (
	"fmt"
	"strconv"
)

// Kind distinguishes the four lexical token shapes.
type Kind uint8

const (
	KindControl       Kind = iota // opening "<name"
	KindEndControl                // "/>" or "</name>"
	KindProperty                  // "name=" inside an element head
	KindPropertyValue             // literal following a property
)

func (k Kind) String() string {
	switch k {
	case KindControl:
		return "Control"
	case KindEndControl:
		return "EndControl"
	case KindProperty:
		return "Property"
	case KindPropertyValue:
		return "PropertyValue"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ValueKind identifies the literal type held by a Value.
type ValueKind uint8

const (
	ValueString   ValueKind = iota // quoted string
	ValueUnsigned                  // bare unsigned integer
	ValueSigned                    // bare negative (or explicitly signed) integer
	ValueFloat                     // bare floating point number
	ValueTuple                     // raw "(a, b, ...)" text, parsed later by ParseTuple
)

// Value is a property literal. Only the field matching Kind is meaningful;
// Str holds the string contents for ValueString and the verbatim tuple text,
// parentheses included, for ValueTuple.
type Value struct {
	Kind     ValueKind
	Str      string
	Unsigned uint64
	Signed   int64
	Float    float64
}

// String returns the debug form of the value, e.g. UnsignedInt(12).
func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return "String(" + strconv.Quote(v.Str) + ")"
	case ValueUnsigned:
		return "UnsignedInt(" + strconv.FormatUint(v.Unsigned, 10) + ")"
	case ValueSigned:
		return "Int(" + strconv.FormatInt(v.Signed, 10) + ")"
	case ValueFloat:
		return "Float(" + strconv.FormatFloat(v.Float, 'g', -1, 64) + ")"
	case ValueTuple:
		return "Tuple(" + v.Str + ")"
	default:
		return fmt.Sprintf("Value(%d)", uint8(v.Kind))
	}
}

// Token is a single lexical token. Name is set for controls, end controls and
// properties; Value is set for property values. Pos is the byte offset of the
// token's first character.
type Token struct {
	Kind  Kind
	Name  string
	Value Value
	Pos   int
}

// String returns the debug form of the token, e.g. Property(radius).
func (t Token) String() string {
	if t.Kind == KindPropertyValue {
		return "PropertyValue(" + t.Value.String() + ")"
	}
	return t.Kind.String() + "(" + t.Name + ")"
}

// Result is one item of a token stream: either a token or an error.
type Result struct {
	Token Token
	Err   error
}

// parseNumber runs the numeric ladder shared by property values and tuple
// items: unsigned, then signed, then floating point. Words containing
// anything but digits, signs, dots and exponents are rejected so that "inf"
// and "nan" spellings never parse.
func parseNumber(word string) (Value, bool) {
	if word == "" {
		return Value{}, false
	}
	for i := 0; i < len(word); i++ {
		switch c := word[i]; {
		case c >= '0' && c <= '9', c == '.', c == '-', c == '+', c == 'e', c == 'E':
		default:
			return Value{}, false
		}
	}
	if u, err := strconv.ParseUint(word, 10, 64); err == nil {
		return Value{Kind: ValueUnsigned, Unsigned: u}, true
	}
	if s, err := strconv.ParseInt(word, 10, 64); err == nil {
		return Value{Kind: ValueSigned, Signed: s}, true
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return Value{Kind: ValueFloat, Float: f}, true
	}
	return Value{}, false
}

// LineColumn converts a byte offset into a 1-based line and a 1-based column
// counted in runes. Offsets past the end clamp to the end of the source.
func LineColumn(src string, pos int) (line, col int) {
	if pos > len(src) {
		pos = len(src)
	}
	line, col = 1, 1
	for _, r := range src[:pos] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
