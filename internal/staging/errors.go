package staging

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentifier is returned before any filesystem mutation when the
// identifier is not eight ASCII digits.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Kind classifies a staging failure.
type Kind int

const (
	// KindInvalidInput means the call was rejected before touching disk.
	KindInvalidInput Kind = iota + 1
	// KindIO covers create, delete, copy, rename and write failures. Always
	// fatal for the current call.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a fatal staging failure with the operation and path that caused it.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("staging %s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("staging %s: %s %q: %v", e.Kind, e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func ioError(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

// IsIO reports whether err is a fatal filesystem failure from Stage.
func IsIO(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindIO
}
