package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies benchmark failures. Both kinds stop the run; a
// transient failure means the engine stayed contended past the retry policy.
type ErrorKind string

const (
	KindTransient ErrorKind = "TRANSIENT"
	KindFatal     ErrorKind = "FATAL"
)

var (
	// ErrRetryExhausted is returned when a bounded retry policy gives up on a
	// statement that kept reporting busy or locked.
	ErrRetryExhausted = errors.New("busy retry exhausted")

	// ErrInvalidConfig is returned for configuration values the benchmark cannot run with.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// BenchError carries the failing operation, the statement or path it was
// applied to, and the engine's own diagnostic.
type BenchError struct {
	Kind      ErrorKind
	Op        string
	Statement string
	Cause     error
}

func (e *BenchError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Cause)
	}
	return fmt.Sprintf("[%s] %s %q: %v", e.Kind, e.Op, e.Statement, e.Cause)
}

func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is matches another BenchError with the same kind and op.
func (e *BenchError) Is(target error) bool {
	var t *BenchError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Op == t.Op
	}
	return false
}

// Fatal wraps cause as a non-recoverable failure of op.
func Fatal(op, statement string, cause error) *BenchError {
	return &BenchError{Kind: KindFatal, Op: op, Statement: statement, Cause: cause}
}

func exhausted(statement string, cause error) *BenchError {
	return &BenchError{Kind: KindTransient, Op: "step", Statement: statement, Cause: cause}
}

// IsFatal reports whether err (or anything it wraps) is a fatal benchmark error.
func IsFatal(err error) bool {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Kind == KindFatal
	}
	return false
}

// joinCleanup attaches errors from resource release to the primary error
// without hiding it.
func joinCleanup(primary error, cleanup ...error) error {
	errs := make([]error, 0, len(cleanup)+1)
	errs = append(errs, primary)
	for _, err := range cleanup {
		if err != nil {
			errs = append(errs, Fatal("cleanup", "", err))
		}
	}
	return errors.Join(errs...)
}
