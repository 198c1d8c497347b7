// Package doltdb measures Dolt, a versioned SQL database embedded through its
// database/sql driver.
package doltdb

import (
	"context"
	"fmt"
	"net/url"

	"txn_bench/common"
	"txn_bench/sqldb"
)

const database = "evaldb"

// Dialect is the workload in Dolt's MySQL dialect. Compaction is Dolt's
// garbage collection of unreferenced chunks.
var Dialect = common.Dialect{
	Setup: []string{
		"CREATE DATABASE IF NOT EXISTS " + database + ";",
		"USE " + database + ";",
	},
	CreateTable: "CREATE TABLE evaltab (no INT, data TEXT, time DOUBLE);",
	Insert:      "INSERT INTO evaltab VALUES (?, ?, ?);",
	Begin:       "START TRANSACTION;",
	Commit:      "COMMIT;",
	Count:       "SELECT COUNT(*) FROM evaltab;",
	Update:      "UPDATE evaltab SET no = no + 1;",
	Delete:      "DELETE FROM evaltab;",
	Compact:     "CALL DOLT_GC();",
}

// Engine keeps each dataset as a Dolt multi-repository directory.
type Engine struct {
	*sqldb.Engine
}

var _ common.Engine = (*Engine)(nil)

// New returns the Dolt engine. Dolt serializes writers inside the process,
// so no driver error is treated as transient contention.
func New() *Engine {
	return &Engine{
		Engine: sqldb.New(sqldb.Options{
			Name:    "Dolt",
			Version: common.ModuleVersion("github.com/dolthub/driver"),
			Driver:  "dolt",
			DSN:     dsn,
			Dialect: Dialect,
		}),
	}
}

// Open creates the dataset directory before handing it to the driver.
func (e *Engine) Open(ctx context.Context, path string) (common.Conn, error) {
	if _, err := common.CreateDirectory(path); err != nil {
		return nil, err
	}
	return e.Engine.Open(ctx, path)
}

func dsn(path string) string {
	return fmt.Sprintf("file://%s?commitname=%s&commitemail=%s&database=%s",
		path,
		url.QueryEscape("txn_bench"),
		url.QueryEscape("txn_bench@localhost"),
		database,
	)
}
