package tot

import "fmt"

// ErrorKind classifies the failures the codec can raise.
type ErrorKind int8

const (
	// LexicalError indicates a malformed token, such as an unterminated
	// string, a bad escape sequence, or a number outside the double range.
	LexicalError = ErrorKind(iota)
	// GrammarError indicates a structural mismatch, such as an unmatched
	// bracket, a key without a value, or trailing garbage after the root.
	GrammarError
	// CoercionError indicates a value that cannot be converted to the
	// requested shape, such as an out-of-range integer or a multi-rune
	// string requested as a single character.
	CoercionError
	// FrameworkError wraps failures raised while mapping between Tot and
	// Go values, such as an unsupported target type.
	FrameworkError
	// IoError indicates that the underlying writer failed during emission.
	IoError
)

func (k ErrorKind) String() string {
	switch k {
	case LexicalError:
		return "lexical error"
	case GrammarError:
		return "grammar error"
	case CoercionError:
		return "coercion error"
	case FrameworkError:
		return "framework error"
	case IoError:
		return "io error"
	default:
		panic("unknown ErrorKind")
	}
}

// Error is the error type returned by every codec entry point. Callers can
// match on Kind; Offset is the byte position in the input where the problem
// was detected, or -1 when no position applies.
type Error struct {
	Kind   ErrorKind
	Offset int
	msg    string
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at byte %d: %s", e.Kind, e.Offset, e.msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func errf(kind ErrorKind, offset int, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: offset, msg: fmt.Sprintf(format, args...)}
}

func ioErr(err error) *Error {
	return &Error{Kind: IoError, Offset: -1, msg: err.Error()}
}
