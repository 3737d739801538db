package textpage

import (
	"errors"
	"fmt"

	"github.com/tsawler/textpage/engine"
)

var (
	// ErrClosedHandle is returned by any operation on a document or text
	// page that has been closed, including a second Close.
	ErrClosedHandle = errors.New("textpage: handle is closed")

	// ErrOutOfRange is returned for a page, character or rectangle index
	// (or a count or tolerance) outside the valid range.
	ErrOutOfRange = errors.New("textpage: index out of range")

	// ErrLoad is returned when a document cannot be read or parsed.
	ErrLoad = errors.New("textpage: cannot load document")
)

// OpError records the operation that failed. It unwraps to one of the
// package sentinels, a context error, or the underlying engine error.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return "textpage: " + e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// translate maps an engine error onto the package sentinels and wraps it in
// an OpError. The engine error stays in the chain.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}

	switch {
	case errors.Is(err, engine.ErrInvalidRef):
		err = fmt.Errorf("%w: %w", ErrClosedHandle, err)
	case errors.Is(err, engine.ErrIndex):
		err = fmt.Errorf("%w: %w", ErrOutOfRange, err)
	case errors.Is(err, engine.ErrLoad):
		err = fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return &OpError{Op: op, Err: err}
}
