package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger(t *testing.T) {
	testCases := map[string]struct {
		level     string
		format    string
		wantErr   bool
		wantDebug bool
	}{
		"debug plain": {level: "debug", format: LogFormatPlain, wantDebug: true},
		"info json":   {level: "info", format: LogFormatJSON},
		"upper case":  {level: "INFO", format: "TEXT"},
		"bad level":   {level: "loud", format: LogFormatPlain, wantErr: true},
		"bad format":  {level: "info", format: "yaml", wantErr: true},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := NewDefaultLogger(&buf, tc.format, tc.level)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)

			log.Debug("debug message")
			assert.Equal(t, tc.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug message")))

			log.Info("info message")
			assert.Contains(t, buf.String(), "info message")
		})
	}
}

func TestDefaultLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewDefaultLogger(&buf, LogFormatJSON, LogLevelInfo)
	require.NoError(t, err)

	log.With("engine", "SQLite").Error("benchmark aborted", "op", "commit", "dangling")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "benchmark aborted", entry["message"])
	assert.Equal(t, "SQLite", entry["engine"])
	assert.Equal(t, "commit", entry["op"])
	assert.Equal(t, "dangling", entry["EXTRA_VALUE_AT_END"])
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger().With("k", "v")
	log.Info("nothing")
	log.Error("nothing")
}
