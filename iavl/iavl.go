// Package iavl measures an IAVL+ tree persisted in GoLevelDB.
//
// The tree has no SQL front end, so the engine understands exactly the
// commands of its Dialect: a commit saves a new tree version, compaction
// prunes every version but the latest.
package iavl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cosmos/iavl"
	"github.com/cosmos/iavl/db"

	"txn_bench/common"
)

// Dialect is the command vocabulary of the IAVL engine.
var Dialect = common.Dialect{
	CreateTable: "LOAD",
	Insert:      "SET ? ? ?",
	Begin:       "BEGIN",
	Commit:      "SAVE",
	Count:       "SIZE",
	Update:      "INCREMENT",
	Delete:      "CLEAR",
	Compact:     "PRUNE",
}

type Engine struct{}

var _ common.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string            { return "IAVL+" }
func (e *Engine) Version() string         { return common.ModuleVersion("github.com/cosmos/iavl") }
func (e *Engine) Dialect() common.Dialect { return Dialect }

func (e *Engine) Open(_ context.Context, path string) (common.Conn, error) {
	leveldb, err := db.NewGoLevelDB("evaldb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to create leveldb: %w", err)
	}
	return &Conn{
		leveldb: leveldb,
		tree:    iavl.NewMutableTree(leveldb, 0, false, iavl.NewNopLogger()),
	}, nil
}

func (e *Engine) Remove(path string) error {
	return os.RemoveAll(path)
}

// Conn owns the tree and its LevelDB. Outside an explicit BEGIN every write
// saves its own version, like autocommit.
type Conn struct {
	leveldb *db.GoLevelDB
	tree    *iavl.MutableTree
	inTx    bool
}

var _ common.Conn = (*Conn)(nil)

func (c *Conn) Exec(_ context.Context, text string) error {
	switch text {
	case Dialect.CreateTable:
		if _, err := c.tree.Load(); err != nil {
			return fmt.Errorf("failed to load tree: %w", err)
		}
		return nil
	case Dialect.Begin:
		if c.inTx {
			return errors.New("cannot start a transaction within a transaction")
		}
		c.inTx = true
		return nil
	case Dialect.Commit:
		if !c.inTx {
			return errors.New("cannot commit - no transaction is active")
		}
		c.inTx = false
		return c.save()
	case Dialect.Count:
		_ = c.tree.Size()
		return nil
	case Dialect.Update:
		return c.increment()
	case Dialect.Delete:
		return c.clear()
	case Dialect.Compact:
		return c.prune()
	}
	return fmt.Errorf("unsupported command: %q", text)
}

func (c *Conn) Prepare(_ context.Context, text string) (common.Stmt, error) {
	if text != Dialect.Insert {
		return nil, fmt.Errorf("unsupported statement: %q", text)
	}
	return &Stmt{conn: c}, nil
}

func (c *Conn) Close() error {
	return errors.Join(c.tree.Close(), c.leveldb.Close())
}

func (c *Conn) set(key, value []byte) error {
	if _, err := c.tree.Set(key, value); err != nil {
		return fmt.Errorf("failed to update iavl tree: %w", err)
	}
	return c.autocommit()
}

func (c *Conn) autocommit() error {
	if c.inTx {
		return nil
	}
	return c.save()
}

func (c *Conn) save() error {
	if _, _, err := c.tree.SaveVersion(); err != nil {
		return fmt.Errorf("failed to version iavl tree: %w", err)
	}
	return nil
}

// increment adds one to the sequence number of every record.
func (c *Conn) increment() error {
	type entry struct{ key, value []byte }
	var entries []entry
	var decodeErr error
	_, err := c.tree.Iterate(func(key, value []byte) bool {
		r, err := decodeRecord(value)
		if err != nil {
			decodeErr = err
			return true
		}
		r.no++
		entries = append(entries, entry{key: append([]byte(nil), key...), value: r.encode()})
		return false
	})
	if err != nil {
		return fmt.Errorf("failed to iterate iavl tree: %w", err)
	}
	if decodeErr != nil {
		return decodeErr
	}
	for _, e := range entries {
		if _, err := c.tree.Set(e.key, e.value); err != nil {
			return fmt.Errorf("failed to update iavl tree: %w", err)
		}
	}
	return c.autocommit()
}

func (c *Conn) clear() error {
	var keys [][]byte
	_, err := c.tree.Iterate(func(key, _ []byte) bool {
		keys = append(keys, append([]byte(nil), key...))
		return false
	})
	if err != nil {
		return fmt.Errorf("failed to iterate iavl tree: %w", err)
	}
	for _, key := range keys {
		if _, _, err := c.tree.Remove(key); err != nil {
			return fmt.Errorf("failed to remove from iavl tree: %w", err)
		}
	}
	return c.autocommit()
}

// prune drops every saved version older than the latest one.
func (c *Conn) prune() error {
	latest := c.tree.Version()
	if latest <= 1 {
		return nil
	}
	if err := c.tree.DeleteVersionsTo(latest - 1); err != nil {
		return fmt.Errorf("failed to prune iavl versions: %w", err)
	}
	return nil
}

// Stmt inserts one record per Step, keyed by its sequence number.
type Stmt struct {
	conn    *Conn
	no      *int64
	payload *string
	time    *float64
}

var _ common.Stmt = (*Stmt)(nil)

func (s *Stmt) BindInt64(pos int, v int64) error {
	if pos != 1 {
		return bindError(pos, "integer")
	}
	s.no = &v
	return nil
}

func (s *Stmt) BindText(pos int, v string) error {
	if pos != 2 {
		return bindError(pos, "text")
	}
	s.payload = &v
	return nil
}

func (s *Stmt) BindFloat64(pos int, v float64) error {
	if pos != 3 {
		return bindError(pos, "real")
	}
	s.time = &v
	return nil
}

func (s *Stmt) Step(context.Context) (common.StepStatus, error) {
	if s.no == nil || s.payload == nil || s.time == nil {
		return common.StepDone, errors.New("all three parameters must be bound")
	}
	r := record{no: *s.no, time: *s.time, payload: *s.payload}
	return common.StepDone, s.conn.set(recordKey(*s.no), r.encode())
}

func (s *Stmt) Reset() error {
	s.no, s.payload, s.time = nil, nil, nil
	return nil
}

func (s *Stmt) Finalize() error {
	s.conn = nil
	return nil
}

func bindError(pos int, kind string) error {
	return fmt.Errorf("cannot bind %s at position %d", kind, pos)
}

type record struct {
	no      int64
	time    float64
	payload string
}

// The key is the big-endian sequence number so that records iterate in
// insertion order.
func recordKey(no int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(no))
	return key
}

func (r record) encode() []byte {
	buf := make([]byte, 16+len(r.payload))
	binary.LittleEndian.PutUint64(buf[0:], uint64(r.no))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(r.time))
	copy(buf[16:], r.payload)
	return buf
}

func decodeRecord(buf []byte) (record, error) {
	if len(buf) < 16 {
		return record{}, fmt.Errorf("invalid record size: %d", len(buf))
	}
	return record{
		no:      int64(binary.LittleEndian.Uint64(buf[0:])),
		time:    math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])),
		payload: string(buf[16:]),
	}, nil
}
