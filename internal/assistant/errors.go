package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/docqa/internal/engine"
	"github.com/kalambet/docqa/internal/storage"
)

// Error kinds. Every error returned by an Assistant operation matches at
// most one of them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnsupportedInput = errors.New("unsupported input")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrIndex            = errors.New("index error")
	ErrModel            = errors.New("model error")
	ErrConsistency      = errors.New("consistency error")
)

// Error is a classified task failure. Both Kind and the underlying cause are
// reachable through errors.Is and errors.As.
type Error struct {
	Kind      error
	Op        string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether err is a classified failure worth retrying.
func Retryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// Kind returns the error kind of err, or nil when err is unclassified.
func Kind(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Retryable: isTemporary(err)}
}

// lockError reports a request abandoned while waiting for its turn. Nothing
// ran, so the request can be repeated.
func lockError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf("waiting for lock: %w", err), Retryable: true}
}

func notFound(op string, format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

func invalid(op string, msg string) *Error {
	return &Error{Kind: ErrInvalidRequest, Op: op, Err: errors.New(msg)}
}

// storeError maps a document store failure, turning storage.ErrNotFound
// into ErrNotFound and passing anything else through wrapped.
func storeError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &Error{Kind: ErrNotFound, Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t engine.Temporary
	return errors.As(err, &t) && t.Temporary()
}
