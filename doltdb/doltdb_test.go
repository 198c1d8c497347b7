package doltdb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txn_bench/common"
)

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"file:///tmp/eval.db?commitname=txn_bench&commitemail=txn_bench%40localhost&database=evaldb",
		dsn("/tmp/eval.db"))
}

func TestEngine(t *testing.T) {
	e := New()
	assert.Equal(t, "Dolt", e.Name())
	assert.NotEmpty(t, e.Version())
	assert.Equal(t, []string{"CREATE DATABASE IF NOT EXISTS evaldb;", "USE evaldb;"}, e.Dialect().Setup)
}

// The embedded Dolt engine takes a while to start, so the end-to-end run is
// opt-in.
func TestWorkloads(t *testing.T) {
	if os.Getenv("TXBENCH_TEST_DOLT") == "" {
		t.Skip("set TXBENCH_TEST_DOLT=1 to run the embedded Dolt workload")
	}
	dir := t.TempDir()
	var out bytes.Buffer

	sweep := &common.Sweep{
		Engine: New(),
		Config: common.SweepConfig{
			TotalRecords: 8,
			Payload:      common.Payload,
			Path:         filepath.Join(dir, "sweep"),
		},
		Reporter: common.NewReporter(&out),
	}
	require.NoError(t, sweep.Run(context.Background()))
	assert.NoDirExists(t, filepath.Join(dir, "sweep"))

	fixed := &common.Fixed{
		Engine: New(),
		Config: common.FixedConfig{
			TotalRecords: 50,
			Payload:      common.Payload,
			Path:         filepath.Join(dir, "fixed"),
		},
		Reporter: common.NewReporter(&out),
	}
	results, err := fixed.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 5)
}
