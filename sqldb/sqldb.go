// Package sqldb runs the benchmark workload through database/sql so that any
// registered SQL driver can be measured.
//
// A benchmark connection is pinned to one *sql.Conn: transaction boundaries
// are plain BEGIN/COMMIT statements and must reach the same session as the
// inserts between them.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"txn_bench/common"
)

// Classifier maps an error returned while executing a statement to a
// transient step status. ok is false for anything that must not be retried.
type Classifier func(err error) (status common.StepStatus, ok bool)

// Options describes a database/sql backed engine.
type Options struct {
	Name    string
	Version string
	Driver  string
	// DSN turns a dataset path into the driver's data source name.
	DSN      func(path string) string
	Dialect  common.Dialect
	Classify Classifier
	// SideFiles are suffixes of files the engine keeps next to the dataset.
	SideFiles []string
}

// Engine implements common.Engine on top of a database/sql driver.
type Engine struct {
	opts Options
}

var _ common.Engine = (*Engine)(nil)

func New(opts Options) *Engine {
	if opts.DSN == nil {
		opts.DSN = func(path string) string { return path }
	}
	return &Engine{opts: opts}
}

func (e *Engine) Name() string            { return e.opts.Name }
func (e *Engine) Version() string         { return e.opts.Version }
func (e *Engine) Dialect() common.Dialect { return e.opts.Dialect }

// WithDialect returns a copy of the engine using dialect.
func (e *Engine) WithDialect(dialect common.Dialect) *Engine {
	opts := e.opts
	opts.Dialect = dialect
	return &Engine{opts: opts}
}

func (e *Engine) Open(ctx context.Context, path string) (common.Conn, error) {
	return Open(ctx, e.opts.Driver, e.opts.DSN(path), e.opts.Classify)
}

// Remove deletes the dataset file or directory and its side files.
func (e *Engine) Remove(path string) error {
	var errs []error
	for _, p := range append([]string{path}, sideFiles(path, e.opts.SideFiles)...) {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func sideFiles(path string, suffixes []string) []string {
	files := make([]string, len(suffixes))
	for i, suffix := range suffixes {
		files[i] = path + suffix
	}
	return files
}

// Conn is one pinned database/sql connection.
type Conn struct {
	db       *sql.DB
	conn     *sql.Conn
	classify Classifier
}

var _ common.Conn = (*Conn)(nil)

// Open opens dsn with driver and reserves a single connection from the pool.
func Open(ctx context.Context, driver, dsn string, classify Classifier) (*Conn, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect %s database: %w", driver, err), db.Close())
	}
	return &Conn{db: db, conn: conn, classify: classify}, nil
}

func (c *Conn) Exec(ctx context.Context, text string) error {
	_, err := c.conn.ExecContext(ctx, text)
	return err
}

func (c *Conn) Prepare(ctx context.Context, text string) (common.Stmt, error) {
	stmt, err := c.conn.PrepareContext(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Stmt{
		stmt:     stmt,
		args:     make([]any, strings.Count(text, "?")),
		classify: c.classify,
	}, nil
}

// Close releases the pinned connection and the pool behind it.
func (c *Conn) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

// Stmt keeps positional bindings until the next Step. Unbound positions are
// sent as NULL.
type Stmt struct {
	stmt     *sql.Stmt
	args     []any
	classify Classifier
}

var _ common.Stmt = (*Stmt)(nil)

func (s *Stmt) BindInt64(pos int, v int64) error     { return s.bind(pos, v) }
func (s *Stmt) BindText(pos int, v string) error     { return s.bind(pos, v) }
func (s *Stmt) BindFloat64(pos int, v float64) error { return s.bind(pos, v) }

func (s *Stmt) bind(pos int, v any) error {
	if pos < 1 || pos > len(s.args) {
		return fmt.Errorf("bind position %d out of range [1, %d]", pos, len(s.args))
	}
	s.args[pos-1] = v
	return nil
}

// Step executes the statement once with the current bindings.
func (s *Stmt) Step(ctx context.Context) (common.StepStatus, error) {
	if _, err := s.stmt.ExecContext(ctx, s.args...); err != nil {
		if s.classify != nil {
			if status, ok := s.classify(err); ok {
				return status, nil
			}
		}
		return common.StepDone, err
	}
	return common.StepDone, nil
}

// Reset clears the bindings.
func (s *Stmt) Reset() error {
	for i := range s.args {
		s.args[i] = nil
	}
	return nil
}

func (s *Stmt) Finalize() error {
	return s.stmt.Close()
}
