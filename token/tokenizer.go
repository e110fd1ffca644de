package token

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// state is a position in the tokenizer's state machine.
type state uint8

const (
	stateStart state = iota
	stateStartControl
	stateInControl
	stateEndControl
	stateEndNestedControl
	stateInProperty
	stateStartPropertyValue
	stateInStringValue
	stateInUnsignedNumber
	stateInSignedNumber
	stateInTupleValue
	stateInWhitespace
)

// Tokenizer is a pull-based state machine over a finite source string.
// Errors are emitted as stream items; tokenizing continues after each one.
type Tokenizer struct {
	src      string
	pos      int
	state    state
	resume   state // entered when stateInWhitespace finishes
	tagStart int
	parents  []string
	pending  []Result
	done     bool
}

// NewTokenizer returns a tokenizer positioned at the start of src.
func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: src, parents: make([]string, 0, 8)}
}

// Tokenize returns the lazy token stream of src. Each item is either a token
// with a nil error or a zero token with a positioned *Error.
func Tokenize(src string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		t := NewTokenizer(src)
		for {
			r, ok := t.Next()
			if !ok {
				return
			}
			if !yield(r.Token, r.Err) {
				return
			}
		}
	}
}

// All drains src into a slice. Convenient for tests and small sources.
func All(src string) []Result {
	var out []Result
	t := NewTokenizer(src)
	for {
		r, ok := t.Next()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// Next returns the next token or error. ok is false once the source is
// exhausted and every unclosed control has been reported.
func (t *Tokenizer) Next() (r Result, ok bool) {
	for len(t.pending) == 0 {
		if t.done {
			return Result{}, false
		}
		t.step()
	}
	r = t.pending[0]
	t.pending = t.pending[1:]
	return r, true
}

func (t *Tokenizer) emit(tok Token) {
	t.pending = append(t.pending, Result{Token: tok})
}

func (t *Tokenizer) fail(kind ErrorKind, pos int) {
	t.pending = append(t.pending, Result{Err: newError(kind, t.clamp(pos))})
}

// clamp keeps error positions inside the source.
func (t *Tokenizer) clamp(pos int) int {
	if pos >= len(t.src) {
		pos = len(t.src) - 1
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (t *Tokenizer) eof() bool {
	return t.pos >= len(t.src)
}

func (t *Tokenizer) peek() rune {
	if t.eof() {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(t.src[t.pos:])
	return r
}

func (t *Tokenizer) advance() {
	_, size := utf8.DecodeRuneInString(t.src[t.pos:])
	t.pos += size
}

// skipSpace moves to the next non-whitespace character through the
// InWhitespace state.
func (t *Tokenizer) skipSpace(then state) {
	t.resume = then
	t.state = stateInWhitespace
}

// skipTo advances to the next occurrence of c, or to the end of the source.
func (t *Tokenizer) skipTo(c byte) {
	if i := strings.IndexByte(t.src[t.pos:], c); i >= 0 {
		t.pos += i
		return
	}
	t.pos = len(t.src)
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == ':' || r == '.'
}

func isValueDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '/' || r == '>' || r == '<'
}

// readName consumes a run of name characters and returns it.
func (t *Tokenizer) readName() string {
	start := t.pos
	for !t.eof() && isNameRune(t.peek()) {
		t.advance()
	}
	return t.src[start:t.pos]
}

// finish reports every control still open at the end of the source.
func (t *Tokenizer) finish() {
	for i := len(t.parents) - 1; i >= 0; i-- {
		t.fail(CouldNotFindControlCloseSymbol, len(t.src)-1)
	}
	t.parents = t.parents[:0]
	t.done = true
}

func (t *Tokenizer) top() string {
	return t.parents[len(t.parents)-1]
}

func (t *Tokenizer) pop() {
	t.parents = t.parents[:len(t.parents)-1]
}

// step runs the state machine until it has produced at least one result or
// moved to a new state.
func (t *Tokenizer) step() {
	switch t.state {
	case stateInWhitespace:
		for !t.eof() && unicode.IsSpace(t.peek()) {
			t.advance()
		}
		t.state = t.resume

	case stateStart:
		if t.eof() {
			t.finish()
			return
		}
		r := t.peek()
		switch {
		case unicode.IsSpace(r):
			t.skipSpace(stateStart)
		case r == '<':
			t.tagStart = t.pos
			t.advance()
			t.state = stateStartControl
		default:
			t.fail(CouldNotFindStartTag, t.pos)
			t.skipTo('<')
		}

	case stateStartControl:
		for !t.eof() && unicode.IsSpace(t.peek()) {
			t.advance()
		}
		if t.eof() {
			t.fail(CouldNotFindControlName, t.pos)
			t.finish()
			return
		}
		if t.peek() == '/' {
			t.advance()
			t.state = stateEndNestedControl
			return
		}
		start := t.pos
		name := t.readName()
		if name == "" {
			t.fail(CouldNotFindControlName, start)
			t.skipTo('>')
			if !t.eof() {
				t.advance()
			}
			t.state = stateStart
			return
		}
		t.emit(Token{Kind: KindControl, Name: name, Pos: start})
		t.parents = append(t.parents, name)
		t.state = stateInControl

	case stateInControl:
		for !t.eof() && unicode.IsSpace(t.peek()) {
			t.advance()
		}
		if t.eof() {
			t.finish()
			return
		}
		r := t.peek()
		switch {
		case r == '/':
			t.state = stateEndControl
		case r == '>':
			t.advance()
			t.state = stateStart
		case isNameRune(r):
			t.state = stateInProperty
		default:
			t.fail(CouldNotFindControlCloseSymbol, t.pos)
			t.advance()
		}

	case stateEndControl:
		slash := t.pos
		t.advance()
		if t.peek() != '>' {
			t.fail(CouldNotFindControlCloseSymbol, slash)
			t.state = stateInControl
			return
		}
		t.advance()
		t.emit(Token{Kind: KindEndControl, Name: t.top(), Pos: slash})
		t.pop()
		t.state = stateStart

	case stateEndNestedControl:
		tagStart := t.tagStart
		for !t.eof() && unicode.IsSpace(t.peek()) {
			t.advance()
		}
		nameStart := t.pos
		name := t.readName()
		for !t.eof() && unicode.IsSpace(t.peek()) {
			t.advance()
		}
		closed := !t.eof() && t.peek() == '>'
		if closed {
			t.advance()
		}
		t.state = stateStart
		switch {
		case name == "":
			t.fail(CouldNotFindControlName, nameStart)
		case len(t.parents) == 0:
			t.fail(CouldNotFindControlToClose, nameStart)
		case t.top() != name:
			t.fail(ClosingWrongTag, nameStart)
		default:
			t.emit(Token{Kind: KindEndControl, Name: name, Pos: tagStart})
			t.pop()
		}
		if !closed {
			t.fail(CouldNotFindControlCloseSymbol, t.pos)
		}

	case stateInProperty:
		start := t.pos
		name := t.readName()
		for !t.eof() && unicode.IsSpace(t.peek()) {
			t.advance()
		}
		if t.eof() || t.peek() != '=' {
			t.fail(CouldNotFindPropertyStartSymbol, t.pos)
			t.state = stateInControl
			return
		}
		t.advance()
		t.emit(Token{Kind: KindProperty, Name: name, Pos: start})
		t.skipSpace(stateStartPropertyValue)

	case stateStartPropertyValue:
		if t.eof() {
			t.finish()
			return
		}
		switch r := t.peek(); {
		case r == '"':
			t.state = stateInStringValue
		case r == '(':
			t.state = stateInTupleValue
		case r == '-' || r == '+':
			t.state = stateInSignedNumber
		default:
			// Digits, dots and anything else go through the number ladder,
			// which rejects non-numeric words.
			t.state = stateInUnsignedNumber
		}

	case stateInStringValue:
		start := t.pos
		t.advance()
		var b strings.Builder
		for {
			if t.eof() {
				t.fail(CouldNotFindControlCloseSymbol, start)
				t.finish()
				return
			}
			r := t.peek()
			t.advance()
			if r == '"' {
				break
			}
			if r == '\\' && !t.eof() {
				r = t.peek()
				t.advance()
			}
			b.WriteRune(r)
		}
		t.emit(Token{Kind: KindPropertyValue, Value: Value{Kind: ValueString, Str: b.String()}, Pos: start})
		t.state = stateInControl

	case stateInUnsignedNumber, stateInSignedNumber:
		start := t.pos
		if t.state == stateInSignedNumber {
			t.advance()
		}
		for !t.eof() && !isValueDelimiter(t.peek()) {
			t.advance()
		}
		word := t.src[start:t.pos]
		t.state = stateInControl
		v, ok := parseNumber(word)
		if !ok {
			t.fail(CouldNotParseNumberValue, start)
			return
		}
		t.emit(Token{Kind: KindPropertyValue, Value: v, Pos: start})

	case stateInTupleValue:
		start := t.pos
		depth := 0
		quoted := false
		for !t.eof() {
			r := t.peek()
			t.advance()
			switch {
			case quoted && r == '\\':
				if !t.eof() {
					t.advance()
				}
			case r == '"':
				quoted = !quoted
			case quoted:
			case r == '(':
				depth++
			case r == ')':
				depth--
			}
			if depth == 0 && !quoted {
				break
			}
		}
		if depth != 0 || quoted {
			t.fail(CouldNotFindControlCloseSymbol, start)
			t.finish()
			return
		}
		raw := t.src[start:t.pos]
		t.emit(Token{Kind: KindPropertyValue, Value: Value{Kind: ValueTuple, Str: raw}, Pos: start})
		t.state = stateInControl
	}
}
