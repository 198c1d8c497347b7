package common

import (
	"context"
	"errors"
	"fmt"
)

var fakeDialect = Dialect{
	CreateTable: "CREATE TABLE evaltab (no INT, data TEXT, time REAL);",
	Insert:      "INSERT INTO evaltab VALUES (?, ?, ?);",
	Begin:       "BEGIN;",
	Commit:      "COMMIT;",
	Count:       "SELECT COUNT() FROM evaltab;",
	Update:      "UPDATE evaltab SET no = no + 1;",
	Delete:      "DELETE FROM evaltab;",
	Compact:     "VACUUM;",
}

var errInjected = errors.New("injected failure")

// fakeEngine is an in-memory engine that records every call and fails on demand.
type fakeEngine struct {
	// status returns the outcome of the attempt-th step of the insert of seq.
	status       func(seq int64, attempt int) StepStatus
	failOpen     bool
	failPrepare  bool
	failExec     string
	failBindSeq  int64
	failFinalize bool

	opens     int
	closes    int
	open      int
	removes   int
	prepares  int
	finalizes int
	steps     int
	resets    int
	execs     []string
	inserted  []int64
	batches   []int
	rows      int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{failBindSeq: -1}
}

func (e *fakeEngine) Name() string     { return "fake" }
func (e *fakeEngine) Version() string  { return "0.0.0" }
func (e *fakeEngine) Dialect() Dialect { return fakeDialect }

func (e *fakeEngine) Remove(string) error {
	e.removes++
	e.rows = 0
	return nil
}

func (e *fakeEngine) Open(context.Context, string) (Conn, error) {
	if e.failOpen {
		return nil, errInjected
	}
	e.opens++
	e.open++
	return &fakeConn{engine: e, txSize: -1}, nil
}

type fakeConn struct {
	engine *fakeEngine
	txSize int
}

func (c *fakeConn) Exec(_ context.Context, text string) error {
	e := c.engine
	e.execs = append(e.execs, text)
	if text == e.failExec {
		return errInjected
	}
	switch text {
	case fakeDialect.Begin:
		if c.txSize >= 0 {
			return errors.New("cannot start a transaction within a transaction")
		}
		c.txSize = 0
	case fakeDialect.Commit:
		if c.txSize < 0 {
			return errors.New("cannot commit - no transaction is active")
		}
		e.batches = append(e.batches, c.txSize)
		c.txSize = -1
	case fakeDialect.Delete:
		e.rows = 0
	}
	return nil
}

func (c *fakeConn) Prepare(_ context.Context, text string) (Stmt, error) {
	if c.engine.failPrepare {
		return nil, errInjected
	}
	if text != fakeDialect.Insert {
		return nil, fmt.Errorf("unexpected statement: %q", text)
	}
	c.engine.prepares++
	return &fakeStmt{conn: c}, nil
}

func (c *fakeConn) Close() error {
	c.engine.closes++
	c.engine.open--
	return nil
}

type fakeStmt struct {
	conn    *fakeConn
	seq     int64
	bound   int
	attempt int
}

func (s *fakeStmt) BindInt64(pos int, v int64) error {
	if pos != 1 {
		return fmt.Errorf("bad position %d", pos)
	}
	if v == s.conn.engine.failBindSeq {
		return errInjected
	}
	s.seq = v
	s.bound++
	return nil
}

func (s *fakeStmt) BindText(pos int, v string) error {
	if pos != 2 || v == "" {
		return fmt.Errorf("bad text binding at %d", pos)
	}
	s.bound++
	return nil
}

func (s *fakeStmt) BindFloat64(pos int, v float64) error {
	if pos != 3 {
		return fmt.Errorf("bad position %d", pos)
	}
	s.bound++
	return nil
}

func (s *fakeStmt) Step(context.Context) (StepStatus, error) {
	e := s.conn.engine
	e.steps++
	if s.bound != 3 {
		return StepDone, errors.New("parameters not bound")
	}
	status := StepDone
	if e.status != nil {
		status = e.status(s.seq, s.attempt)
	}
	s.attempt++
	if status != StepDone {
		return status, nil
	}
	e.inserted = append(e.inserted, s.seq)
	e.rows++
	if s.conn.txSize >= 0 {
		s.conn.txSize++
	}
	return StepDone, nil
}

func (s *fakeStmt) Reset() error {
	s.conn.engine.resets++
	s.bound = 0
	s.attempt = 0
	return nil
}

func (s *fakeStmt) Finalize() error {
	s.conn.engine.finalizes++
	if s.conn.engine.failFinalize {
		return errInjected
	}
	return nil
}

func fixedClock(stamps ...Timestamp) Clock {
	i := 0
	return func() Timestamp {
		t := stamps[i%len(stamps)]
		i++
		return t
	}
}
