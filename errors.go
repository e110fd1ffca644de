package zoml

import (
	"errors"
	"fmt"
	"strings"
)

// Collaborator sentinels. Implementations wrap them with fmt.Errorf so
// callers can test with errors.Is.
var (
	ErrSourceNotFound     = errors.New("zoml: source not found")
	ErrDoesNotExist       = errors.New("zoml: relative source does not exist")
	ErrNoFileChanges      = errors.New("zoml: no file changes")
	ErrNoLongerMonitoring = errors.New("zoml: no longer monitoring")
)

// BuildErrorKind classifies errors recorded while building the scene.
type BuildErrorKind uint8

const (
	UnexpectedToken BuildErrorKind = iota + 1
	MissingRequiredTokens
	ControlDoesNotExist
	ControlSourceDoesNotExist
	RelativeSourceNotResolvable
	RecursiveControl
	SourceTokenError
	SemanticError
)

func (k BuildErrorKind) Error() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case MissingRequiredTokens:
		return "missing required tokens"
	case ControlDoesNotExist:
		return "control does not exist"
	case ControlSourceDoesNotExist:
		return "control source does not exist"
	case RelativeSourceNotResolvable:
		return "relative source not resolvable"
	case RecursiveControl:
		return "recursive control"
	case SourceTokenError:
		return "source token error"
	case SemanticError:
		return "semantic error"
	}
	return fmt.Sprintf("build error %d", uint8(k))
}

// BuildError is one error recorded on an entity. Pos is a byte offset into
// Location, or -1 when the error has no position. Missing lists the
// attribute names a MissingRequiredTokens error is about.
type BuildError struct {
	Kind     BuildErrorKind
	Location Location
	Pos      int
	Detail   string
	Missing  []string
	Err      error
}

func (e BuildError) Error() string {
	var b strings.Builder
	if e.Location != "" {
		b.WriteString(string(e.Location))
		if e.Pos >= 0 {
			fmt.Fprintf(&b, ":%d", e.Pos)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(" ")
		b.WriteString(e.Detail)
	}
	if len(e.Missing) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Missing, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e BuildError) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e BuildError) Is(target error) bool {
	k, ok := target.(BuildErrorKind)
	return ok && k == e.Kind
}
