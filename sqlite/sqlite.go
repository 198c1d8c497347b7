// Package sqlite provides the SQLite engines under test: the cgo build of
// the library through go-sqlite3 and a pure Go translation of it.
package sqlite

import (
	"database/sql"
	"errors"

	glebarez "github.com/glebarez/go-sqlite"
	"github.com/mattn/go-sqlite3"

	"txn_bench/common"
	"txn_bench/sqldb"
)

// Primary result codes shared by both builds.
const (
	codeBusy   = 5
	codeLocked = 6
)

// PragmaWAL switches the dataset to write-ahead logging.
const PragmaWAL = "PRAGMA journal_mode=WAL;"

// Dialect is the workload in SQLite's SQL.
var Dialect = common.Dialect{
	CreateTable: "CREATE TABLE evaltab (no INT, data TEXT, time REAL);",
	Insert:      "INSERT INTO evaltab VALUES (?, ?, ?);",
	Begin:       "BEGIN;",
	Commit:      "COMMIT;",
	Count:       "SELECT COUNT() FROM evaltab;",
	Update:      "UPDATE evaltab SET no = no + 1;",
	Delete:      "DELETE FROM evaltab;",
	Compact:     "VACUUM;",
}

var sideFiles = []string{"-journal", "-wal", "-shm"}

// New returns the go-sqlite3 engine. With wal the dataset runs in WAL mode.
func New(wal bool) *sqldb.Engine {
	version, _, _ := sqlite3.Version()
	return sqldb.New(sqldb.Options{
		Name:    "SQLite3",
		Version: version,
		Driver:  "sqlite3",
		// go-sqlite3 waits 5s on a busy database by default; the benchmark
		// spins on busy itself, as the C API does without a busy handler.
		DSN:       func(path string) string { return path + "?_busy_timeout=0" },
		Dialect:   dialect(wal),
		Classify:  classifyCgo,
		SideFiles: sideFiles,
	})
}

// NewPure returns the engine backed by the pure Go translation of SQLite.
func NewPure(wal bool) *sqldb.Engine {
	return sqldb.New(sqldb.Options{
		Name:      "SQLite3 (pure Go)",
		Version:   pureVersion(),
		Driver:    "sqlite",
		Dialect:   dialect(wal),
		Classify:  classifyPure,
		SideFiles: sideFiles,
	})
}

func dialect(wal bool) common.Dialect {
	if wal {
		return Dialect.WithSetup(PragmaWAL)
	}
	return Dialect
}

func classifyCgo(err error) (common.StepStatus, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return common.StepDone, false
	}
	return classifyCode(int(se.Code))
}

func classifyPure(err error) (common.StepStatus, bool) {
	var se *glebarez.Error
	if !errors.As(err, &se) {
		return common.StepDone, false
	}
	return classifyCode(se.Code())
}

func classifyCode(code int) (common.StepStatus, bool) {
	switch code & 0xff {
	case codeBusy:
		return common.StepBusy, true
	case codeLocked:
		return common.StepLocked, true
	}
	return common.StepDone, false
}

// pureVersion asks the translated library for its version on a throwaway
// in-memory database.
func pureVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return "unknown"
	}
	defer db.Close()
	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return "unknown"
	}
	return version
}
