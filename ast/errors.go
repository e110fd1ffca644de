package ast

import "fmt"

// ErrorKind classifies a semantic error. Like token.ErrorKind it is an error
// itself, so errors.Is(err, ast.UnknownProperty) works on positioned errors.
type ErrorKind uint8

const (
	UnusedPropertyType ErrorKind = iota + 1
	UnknownProperty
	BadColourValue
	BadStrokeColourValue
	BadCornerRadiiValue
	SourceTokenError
)

func (k ErrorKind) Error() string {
	switch k {
	case UnusedPropertyType:
		return "unused property type"
	case UnknownProperty:
		return "unknown property"
	case BadColourValue:
		return "bad colour value"
	case BadStrokeColourValue:
		return "bad stroke colour value"
	case BadCornerRadiiValue:
		return "bad corner radii value"
	case SourceTokenError:
		return "source token error"
	default:
		return fmt.Sprintf("ast error %d", uint8(k))
	}
}

// Error is a semantic error. Property names the offending attribute when
// there is one; Err wraps the underlying token error for SourceTokenError and
// tuple failures.
type Error struct {
	Kind     ErrorKind
	Pos      int
	Property string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Property != "" {
		msg += " " + e.Property
	}
	msg += fmt.Sprintf(" at offset %d", e.Pos)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}
