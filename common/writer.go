package common

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds the busy/locked spin of a single insert. The zero value
// retries forever without sleeping, which is what real measurements use.
type RetryPolicy struct {
	MaxRetries int
	Deadline   time.Duration
}

// Bounded reports whether the policy can give up.
func (p RetryPolicy) Bounded() bool {
	return p.MaxRetries > 0 || p.Deadline > 0
}

// Writer inserts synthetic records through one prepared statement that is
// reused for every call.
type Writer struct {
	stmt    Stmt
	text    string
	payload string
	retry   RetryPolicy
	clock   Clock
	log     Logger
	retries int
}

func NewWriter(stmt Stmt, text, payload string, retry RetryPolicy, clock Clock, log Logger) *Writer {
	if clock == nil {
		clock = Now
	}
	if log == nil {
		log = NewNopLogger()
	}
	return &Writer{
		stmt:    stmt,
		text:    text,
		payload: payload,
		retry:   retry,
		clock:   clock,
		log:     log,
	}
}

// Insert binds (seq, payload, now) and steps the statement until it is done.
func (w *Writer) Insert(ctx context.Context, seq int64) error {
	if err := w.stmt.BindInt64(1, seq); err != nil {
		return Fatal("bind int", w.text, err)
	}
	if err := w.stmt.BindText(2, w.payload); err != nil {
		return Fatal("bind text", w.text, err)
	}
	if err := w.stmt.BindFloat64(3, w.clock().Float64()); err != nil {
		return Fatal("bind real", w.text, err)
	}
	if err := w.step(ctx); err != nil {
		return err
	}
	if err := w.stmt.Reset(); err != nil {
		return Fatal("reset", w.text, err)
	}
	return nil
}

// Retries returns the number of busy/locked retries seen so far.
func (w *Writer) Retries() int {
	return w.retries
}

func (w *Writer) step(ctx context.Context) error {
	var first time.Time
	attempts := 0
	for {
		status, err := w.stmt.Step(ctx)
		if err != nil {
			return Fatal("step", w.text, err)
		}
		if status == StepDone {
			return nil
		}
		if !status.Transient() {
			return Fatal("step", w.text, fmt.Errorf("unexpected step result: %s", status))
		}

		if w.retry.MaxRetries > 0 && attempts >= w.retry.MaxRetries {
			return exhausted(w.text, fmt.Errorf("%w: %s after %d retries", ErrRetryExhausted, status, attempts))
		}
		if w.retry.Deadline > 0 {
			if first.IsZero() {
				first = time.Now()
			} else if time.Since(first) >= w.retry.Deadline {
				return exhausted(w.text, fmt.Errorf("%w: %s for %v", ErrRetryExhausted, status, w.retry.Deadline))
			}
		}
		if err := ctx.Err(); err != nil {
			return Fatal("step", w.text, err)
		}

		attempts++
		w.retries++
		w.log.Debug("statement contended, retrying", "status", status.String(), "attempt", attempts)
	}
}
