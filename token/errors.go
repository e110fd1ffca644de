package token

import "fmt"

// ErrorKind classifies a lexical error. An ErrorKind is itself an error so
// that errors.Is(err, token.ClosingWrongTag) matches any positioned *Error of
// that kind.
type ErrorKind uint8

const (
	CouldNotFindStartTag ErrorKind = iota + 1
	CouldNotFindControlName
	CouldNotFindPropertyStartSymbol
	CouldNotParseNumberValue
	CouldNotFindControlCloseSymbol
	CouldNotFindControlToClose
	ClosingWrongTag

	// Tuple errors.
	CouldNotFindTupleStart
	CouldNotFindTupleEnd
	UnexpectedTupleCharacter
)

var errorKindNames = map[ErrorKind]string{
	CouldNotFindStartTag:            "could not find start tag",
	CouldNotFindControlName:         "could not find control name",
	CouldNotFindPropertyStartSymbol: "could not find property start symbol",
	CouldNotParseNumberValue:        "could not parse number value",
	CouldNotFindControlCloseSymbol:  "could not find control close symbol",
	CouldNotFindControlToClose:      "could not find control to close",
	ClosingWrongTag:                 "closing wrong tag",
	CouldNotFindTupleStart:          "could not find tuple start",
	CouldNotFindTupleEnd:            "could not find tuple end",
	UnexpectedTupleCharacter:        "unexpected tuple character",
}

func (k ErrorKind) Error() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token error %d", uint8(k))
}

// Error is a lexical error at a byte offset.
type Error struct {
	Kind ErrorKind
	Pos  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Kind.Error(), e.Pos)
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func newError(kind ErrorKind, pos int) *Error {
	return &Error{Kind: kind, Pos: pos}
}
