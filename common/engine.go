package common

import (
	"context"
	"fmt"
)

// StepStatus is the outcome of a single execution step of a prepared statement.
type StepStatus int

const (
	StepDone StepStatus = iota
	StepBusy
	StepLocked
)

func (s StepStatus) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepBusy:
		return "busy"
	case StepLocked:
		return "locked"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Transient reports whether the status is a contention state that may be retried.
func (s StepStatus) Transient() bool {
	return s == StepBusy || s == StepLocked
}

// Engine is a storage engine under test. Each benchmark run opens its own
// connection on a fresh dataset path and removes the dataset when done.
type Engine interface {
	Name() string
	Version() string
	Dialect() Dialect
	Open(ctx context.Context, path string) (Conn, error)
	// Remove deletes the dataset and any side files the engine keeps next to it.
	Remove(path string) error
}

// Conn is a single exclusive connection to an opened dataset.
type Conn interface {
	Exec(ctx context.Context, text string) error
	Prepare(ctx context.Context, text string) (Stmt, error)
	Close() error
}

// Stmt is a prepared statement. Bind positions are 1-based; Step never
// retries by itself, the caller decides what to do with busy or locked.
type Stmt interface {
	BindInt64(pos int, v int64) error
	BindText(pos int, v string) error
	BindFloat64(pos int, v float64) error
	Step(ctx context.Context) (StepStatus, error)
	Reset() error
	Finalize() error
}

// Dialect is the statement text an engine understands for the benchmark
// workload. The record schema is (sequence_number, payload, timestamp).
type Dialect struct {
	Setup       []string
	CreateTable string
	Insert      string
	Begin       string
	Commit      string
	Count       string
	Update      string
	Delete      string
	Compact     string
}

// WithSetup returns a copy of the dialect with extra statements executed right
// after the dataset is opened.
func (d Dialect) WithSetup(stmts ...string) Dialect {
	setup := make([]string, 0, len(d.Setup)+len(stmts))
	setup = append(setup, d.Setup...)
	d.Setup = append(setup, stmts...)
	return d
}

// openDataset opens path on engine and runs the dialect setup and DDL.
// On failure the connection is closed before returning.
func openDataset(ctx context.Context, engine Engine, path string) (Conn, error) {
	conn, err := engine.Open(ctx, path)
	if err != nil {
		return nil, Fatal("open", path, err)
	}
	dialect := engine.Dialect()
	for _, stmt := range append(append([]string{}, dialect.Setup...), dialect.CreateTable) {
		if err := conn.Exec(ctx, stmt); err != nil {
			return nil, joinCleanup(Fatal("exec", stmt, err), conn.Close())
		}
	}
	return conn, nil
}
