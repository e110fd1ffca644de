package token

import (
	"iter"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tuple is a parsed "(a, b, ...)" literal. Items are scalar values; nested
// tuples are not part of the grammar.
type Tuple []Value

// ParseTuple parses raw tuple text as captured by the tokenizer, including
// the surrounding parentheses. Error positions are byte offsets into raw.
func ParseTuple(raw string) (Tuple, error) {
	p := tupleParser{src: raw}
	return p.parse()
}

type tupleParser struct {
	src string
	pos int
}

func (p *tupleParser) eof() bool { return p.pos >= len(p.src) }

func (p *tupleParser) peek() rune {
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *tupleParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		_, size := utf8.DecodeRuneInString(p.src[p.pos:])
		p.pos += size
	}
}

func (p *tupleParser) errAt(kind ErrorKind, pos int) error {
	if pos >= len(p.src) {
		pos = len(p.src) - 1
	}
	if pos < 0 {
		pos = 0
	}
	return newError(kind, pos)
}

func (p *tupleParser) parse() (Tuple, error) {
	p.skipSpace()
	if p.eof() || p.peek() != '(' {
		return nil, p.errAt(CouldNotFindTupleStart, p.pos)
	}
	p.pos++
	p.skipSpace()
	out := Tuple{}
	if !p.eof() && p.peek() == ')' {
		p.pos++
		return out, p.trailing()
	}
	for {
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.eof() {
			return nil, p.errAt(CouldNotFindTupleEnd, p.pos)
		}
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return out, p.trailing()
		default:
			return nil, p.errAt(UnexpectedTupleCharacter, p.pos)
		}
	}
}

// trailing rejects anything but whitespace after the closing parenthesis.
func (p *tupleParser) trailing() error {
	p.skipSpace()
	if !p.eof() {
		return p.errAt(UnexpectedTupleCharacter, p.pos)
	}
	return nil
}

func (p *tupleParser) value() (Value, error) {
	if p.eof() {
		return Value{}, p.errAt(CouldNotFindTupleEnd, p.pos)
	}
	start := p.pos
	if p.peek() == '"' {
		p.pos++
		var b strings.Builder
		for {
			if p.eof() {
				return Value{}, p.errAt(CouldNotFindTupleEnd, start)
			}
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			p.pos += size
			if r == '"' {
				return Value{Kind: ValueString, Str: b.String()}, nil
			}
			if r == '\\' && !p.eof() {
				r, size = utf8.DecodeRuneInString(p.src[p.pos:])
				p.pos += size
			}
			b.WriteRune(r)
		}
	}
	for !p.eof() {
		r := p.peek()
		if r == ',' || r == ')' || unicode.IsSpace(r) {
			break
		}
		_, size := utf8.DecodeRuneInString(p.src[p.pos:])
		p.pos += size
	}
	v, ok := parseNumber(p.src[start:p.pos])
	if !ok {
		return Value{}, p.errAt(CouldNotParseNumberValue, start)
	}
	return v, nil
}

// Floats yields every numeric item as a float64. Strings are dropped.
func (t Tuple) Floats() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for _, v := range t {
			var f float64
			switch v.Kind {
			case ValueUnsigned:
				f = float64(v.Unsigned)
			case ValueSigned:
				f = float64(v.Signed)
			case ValueFloat:
				f = v.Float
			default:
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// Uint16s yields unsigned items that fit in 16 bits.
func (t Tuple) Uint16s() iter.Seq[uint16] {
	return func(yield func(uint16) bool) {
		for _, v := range t {
			if v.Kind != ValueUnsigned || v.Unsigned > math.MaxUint16 {
				continue
			}
			if !yield(uint16(v.Unsigned)) {
				return
			}
		}
	}
}

// Uint8s yields unsigned items that fit in 8 bits.
func (t Tuple) Uint8s() iter.Seq[uint8] {
	return func(yield func(uint8) bool) {
		for _, v := range t {
			if v.Kind != ValueUnsigned || v.Unsigned > math.MaxUint8 {
				continue
			}
			if !yield(uint8(v.Unsigned)) {
				return
			}
		}
	}
}
