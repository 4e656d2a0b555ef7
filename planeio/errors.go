package planeio

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer.  Use errors.Is to test for a kind; I/O errors from
// the underlying stream are never replaced by one of these.
var (
	// ErrMalformed means a container, directory or tag is structurally invalid.
	ErrMalformed = errors.New("malformed container")

	// ErrUnsupportedCodec means a compression scheme is unknown, or known but not
	// implemented for the requested direction.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrOutOfRange means a requested series, plane or sub-rectangle lies outside the
	// declared bounds.  The session is left untouched.
	ErrOutOfRange = errors.New("out of range")

	// ErrUninitialized means a session was used before it was opened or after Close.
	ErrUninitialized = errors.New("uninitialized session")
)

// Error attaches the failing operation to an underlying error.
type Error struct {
	Op  string // Operation that failed, e.g., "fill directory", "decode plane"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("planeio: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError returns an *Error for op whose message is formatted and which wraps kind.
func NewError(op string, kind error, format string, args ...interface{}) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// WrapError returns nil for a nil err, otherwise err wrapped with op context.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
