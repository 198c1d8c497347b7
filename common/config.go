package common

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
)

// 設定キー (コマンドライン引数 / 環境変数 TXBENCH_*)
const (
	KeyDir           = "dir"
	KeyEngine        = "engine"
	KeyRecords       = "records"
	KeyStart         = "start"
	KeyWAL           = "wal"
	KeyMaxRetries    = "max-retries"
	KeyRetryDeadline = "retry-deadline"
	KeyTimeout       = "timeout"
	KeyLogLevel      = "log-level"
	KeyLogFormat     = "log-format"
)

const lockName = "txn_bench.lock"

// Config is the resolved configuration of one harness invocation.
type Config struct {
	Engine    string
	WorkDir   string
	Records   int
	Start     int
	WAL       bool
	Retry     RetryPolicy
	Timeout   time.Duration
	LogLevel  string
	LogFormat string
}

// SetDefaults registers the default of every key on v. records depends on
// the benchmark, so the caller passes it.
func SetDefaults(v *viper.Viper, records int) {
	v.SetDefault(KeyDir, os.TempDir())
	v.SetDefault(KeyEngine, "sqlite")
	v.SetDefault(KeyRecords, records)
	v.SetDefault(KeyStart, 0)
	v.SetDefault(KeyWAL, false)
	v.SetDefault(KeyMaxRetries, 0)
	v.SetDefault(KeyRetryDeadline, time.Duration(0))
	v.SetDefault(KeyTimeout, 10*time.Minute)
	v.SetDefault(KeyLogLevel, LogLevelInfo)
	v.SetDefault(KeyLogFormat, LogFormatPlain)
}

// LoadConfig reads every key from v, creates the work directory and validates
// the result.
func LoadConfig(v *viper.Viper) (*Config, error) {
	c := &Config{
		Engine:  v.GetString(KeyEngine),
		Records: v.GetInt(KeyRecords),
		Start:   v.GetInt(KeyStart),
		WAL:     v.GetBool(KeyWAL),
		Retry: RetryPolicy{
			MaxRetries: v.GetInt(KeyMaxRetries),
			Deadline:   v.GetDuration(KeyRetryDeadline),
		},
		Timeout:   v.GetDuration(KeyTimeout),
		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dir, err := CreateDirectory(v.GetString(KeyDir))
	if err != nil {
		return nil, err
	}
	c.WorkDir = dir
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Engine == "":
		return fmt.Errorf("%w: engine is empty", ErrInvalidConfig)
	case c.Records < 1:
		return fmt.Errorf("%w: records must be positive: %d", ErrInvalidConfig, c.Records)
	case c.Start < 0:
		return fmt.Errorf("%w: start must not be negative: %d", ErrInvalidConfig, c.Start)
	case c.Retry.MaxRetries < 0:
		return fmt.Errorf("%w: max-retries must not be negative: %d", ErrInvalidConfig, c.Retry.MaxRetries)
	case c.Retry.Deadline < 0:
		return fmt.Errorf("%w: retry-deadline must not be negative: %v", ErrInvalidConfig, c.Retry.Deadline)
	}
	return nil
}

// DatabasePath is where the dataset of the configured engine lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.WorkDir, fmt.Sprintf("txn_bench-%s-%s", c.Engine, DatasetName))
}

// SweepConfig derives the sweep settings.
func (c *Config) SweepConfig() SweepConfig {
	return SweepConfig{
		TotalRecords: c.Records,
		Start:        c.Start,
		Payload:      Payload,
		Path:         c.DatabasePath(),
		Retry:        c.Retry,
		Timeout:      c.Timeout,
	}
}

// FixedConfig derives the fixed workload settings.
func (c *Config) FixedConfig() FixedConfig {
	return FixedConfig{
		TotalRecords: c.Records,
		Payload:      Payload,
		Path:         c.DatabasePath(),
		Retry:        c.Retry,
	}
}

// LockWorkDir takes an exclusive lock in the work directory so that two
// harnesses never share a dataset. The returned unlock releases it.
func LockWorkDir(dir string) (unlock func() error, err error) {
	lock := flock.New(filepath.Join(dir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock work directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("work directory is in use by another run: %s", dir)
	}
	return lock.Unlock, nil
}

func CreateDirectory(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create working directory '%s': %w", absPath, err)
	}
	return absPath, nil
}
