package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, e *fakeEngine, retry RetryPolicy) *Writer {
	t.Helper()
	conn, err := e.Open(context.Background(), "")
	require.NoError(t, err)
	stmt, err := conn.Prepare(context.Background(), fakeDialect.Insert)
	require.NoError(t, err)
	return NewWriter(stmt, fakeDialect.Insert, Payload, retry, fixedClock(Timestamp{Sec: 1}), nil)
}

func TestWriterInsert(t *testing.T) {
	e := newFakeEngine()
	w := newTestWriter(t, e, RetryPolicy{})

	for seq := int64(0); seq < 3; seq++ {
		require.NoError(t, w.Insert(context.Background(), seq))
	}
	assert.Equal(t, []int64{0, 1, 2}, e.inserted)
	assert.Equal(t, 3, e.steps)
	assert.Equal(t, 3, e.resets)
	assert.Zero(t, w.Retries())
}

func TestWriterRetriesBusyAndLocked(t *testing.T) {
	e := newFakeEngine()
	e.status = func(seq int64, attempt int) StepStatus {
		if seq != 1 {
			return StepDone
		}
		switch attempt {
		case 0, 1:
			return StepBusy
		case 2:
			return StepLocked
		}
		return StepDone
	}
	w := newTestWriter(t, e, RetryPolicy{})

	for seq := int64(0); seq < 3; seq++ {
		require.NoError(t, w.Insert(context.Background(), seq))
	}
	assert.Equal(t, []int64{0, 1, 2}, e.inserted, "retries must not duplicate or drop records")
	assert.Equal(t, 6, e.steps)
	assert.Equal(t, 3, w.Retries())
	assert.Equal(t, 3, e.resets)
}

func TestWriterMaxRetries(t *testing.T) {
	e := newFakeEngine()
	e.status = func(int64, int) StepStatus { return StepBusy }
	w := newTestWriter(t, e, RetryPolicy{MaxRetries: 4})

	err := w.Insert(context.Background(), 0)
	require.ErrorIs(t, err, ErrRetryExhausted)
	assert.False(t, IsFatal(err), "contention is not an engine failure")
	assert.Equal(t, 5, e.steps, "one attempt plus four retries")
	assert.Empty(t, e.inserted)
}

func TestWriterRetryDeadline(t *testing.T) {
	e := newFakeEngine()
	e.status = func(int64, int) StepStatus { return StepLocked }
	w := newTestWriter(t, e, RetryPolicy{Deadline: 20 * time.Millisecond})

	start := time.Now()
	err := w.Insert(context.Background(), 0)
	require.ErrorIs(t, err, ErrRetryExhausted)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Greater(t, e.steps, 1)
}

func TestWriterStopsOnCancel(t *testing.T) {
	e := newFakeEngine()
	e.status = func(int64, int) StepStatus { return StepBusy }
	w := newTestWriter(t, e, RetryPolicy{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Insert(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsFatal(err))
}

func TestWriterBindFailureIsFatal(t *testing.T) {
	e := newFakeEngine()
	e.failBindSeq = 7
	w := newTestWriter(t, e, RetryPolicy{})

	err := w.Insert(context.Background(), 7)
	require.Error(t, err)
	require.ErrorIs(t, err, errInjected)

	var be *BenchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, KindFatal, be.Kind)
	assert.Equal(t, "bind int", be.Op)
	assert.Equal(t, fakeDialect.Insert, be.Statement)
	assert.Zero(t, e.steps)
}

func TestWriterUnexpectedStatusIsFatal(t *testing.T) {
	e := newFakeEngine()
	e.status = func(int64, int) StepStatus { return StepStatus(42) }
	w := newTestWriter(t, e, RetryPolicy{})

	err := w.Insert(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.NotErrorIs(t, err, ErrRetryExhausted)
	assert.Contains(t, err.Error(), "step(42)")
	assert.Equal(t, 1, e.steps)
}
