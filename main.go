package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"txn_bench/common"
	"txn_bench/doltdb"
	"txn_bench/iavl"
	"txn_bench/sqlite"
)

var engineNames = []string{"sqlite", "sqlite-pure", "dolt", "iavl"}

func newEngine(name string, wal bool) (common.Engine, error) {
	switch name {
	case "sqlite":
		return sqlite.New(wal), nil
	case "sqlite-pure":
		return sqlite.NewPure(wal), nil
	case "dolt":
		return doltdb.New(), nil
	case "iavl":
		return iavl.New(), nil
	}
	return nil, fmt.Errorf("%w: unknown engine %q (one of %s)", common.ErrInvalidConfig, name, strings.Join(engineNames, ", "))
}

// reportedError has already been written to the log.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(os.Args[0]), err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := newViper(common.SweepRecords)
	root := &cobra.Command{
		Use:   filepath.Base(os.Args[0]),
		Short: "Transaction batching write-throughput benchmark",
		Long: `Transaction batching write-throughput benchmark

  Inserts a fixed number of records into a fresh dataset once per batch size,
  starting with every record in a single transaction and halving the batch
  size down to one record per transaction. Each batch size prints one line:
  committed transactions, records per transaction and elapsed seconds.
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, runSweep)
		},
	}
	addFlags(root, v)
	root.Flags().Int(common.KeyStart, 0, "First batch size of the sweep (default: --records)")
	root.Flags().Duration(common.KeyTimeout, v.GetDuration(common.KeyTimeout), "Expected duration of the sweep, used for the progress ETA")
	bindFlags(root, v)

	root.AddCommand(newFixedCommand(), newCleanCommand())
	return root
}

func newFixedCommand() *cobra.Command {
	v := newViper(common.FixedRecords)
	cmd := &cobra.Command{
		Use:   "fixed",
		Short: "Time insert, count, update, delete and compaction once each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, runFixed)
		},
	}
	addFlags(cmd, v)
	bindFlags(cmd, v)
	return cmd
}

func newCleanCommand() *cobra.Command {
	v := newViper(common.SweepRecords)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove datasets left behind by an interrupted run and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, runClean)
		},
	}
	addFlags(cmd, v)
	bindFlags(cmd, v)
	return cmd
}

func newViper(records int) *viper.Viper {
	v := viper.New()
	common.SetDefaults(v, records)
	v.SetEnvPrefix("TXBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func addFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	flags.StringP(common.KeyDir, "d", v.GetString(common.KeyDir), "Directory the benchmark dataset is created in")
	flags.StringP(common.KeyEngine, "e", v.GetString(common.KeyEngine), "Storage engine: "+strings.Join(engineNames, ", "))
	flags.IntP(common.KeyRecords, "n", v.GetInt(common.KeyRecords), "Number of records inserted per run")
	flags.Bool(common.KeyWAL, false, "Run SQLite datasets in write-ahead-log mode")
	flags.Int(common.KeyMaxRetries, 0, "Give up on a busy statement after this many retries (0: never)")
	flags.Duration(common.KeyRetryDeadline, 0, "Give up on a busy statement after this long (0: never)")
	flags.String(common.KeyLogLevel, common.LogLevelInfo, "Log level: debug, info, error")
	flags.String(common.KeyLogFormat, common.LogFormatPlain, "Log format: plain, json")
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
}

type runFunc func(ctx context.Context, cmd *cobra.Command, cfg *common.Config, log common.Logger) error

// run resolves the configuration and the logger, then maps any failure of fn
// to a logged, non-zero exit.
func run(cmd *cobra.Command, v *viper.Viper, fn runFunc) error {
	cfg, err := common.LoadConfig(v)
	if err != nil {
		return err
	}
	log, err := common.NewDefaultLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	log = log.With("engine", cfg.Engine)
	printSystemInfo(log, cmd.Name(), cfg)

	if err := fn(cmd.Context(), cmd, cfg, log); err != nil {
		var be *common.BenchError
		if errors.As(err, &be) {
			log.Error("benchmark aborted", "kind", be.Kind, "op", be.Op, "statement", be.Statement, "err", err)
		} else {
			log.Error("benchmark aborted", "err", err)
		}
		return reportedError{err}
	}
	return nil
}

func runSweep(ctx context.Context, cmd *cobra.Command, cfg *common.Config, log common.Logger) error {
	engine, err := newEngine(cfg.Engine, cfg.WAL)
	if err != nil {
		return err
	}
	unlock, err := common.LockWorkDir(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer unlock()

	reporter := common.NewReporter(cmd.OutOrStdout())
	if err := reporter.Banner("Transaction Evaluation", engine.Name(), engine.Version()); err != nil {
		return err
	}
	sweep := &common.Sweep{
		Engine:   engine,
		Config:   cfg.SweepConfig(),
		Reporter: reporter,
		Log:      log,
	}
	return sweep.Run(ctx)
}

func runFixed(ctx context.Context, cmd *cobra.Command, cfg *common.Config, log common.Logger) error {
	engine, err := newEngine(cfg.Engine, cfg.WAL)
	if err != nil {
		return err
	}
	unlock, err := common.LockWorkDir(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer unlock()

	reporter := common.NewReporter(cmd.OutOrStdout())
	if err := reporter.Banner("Version Evaluation", engine.Name(), engine.Version()); err != nil {
		return err
	}
	fixed := &common.Fixed{
		Engine:   engine,
		Config:   cfg.FixedConfig(),
		Reporter: reporter,
		Log:      log,
	}
	_, err = fixed.Run(ctx)
	return err
}

func runClean(_ context.Context, _ *cobra.Command, cfg *common.Config, log common.Logger) error {
	unlock, err := common.LockWorkDir(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer unlock()

	for _, name := range engineNames {
		engine, err := newEngine(name, false)
		if err != nil {
			return err
		}
		c := *cfg
		c.Engine = name
		if err := engine.Remove(c.DatabasePath()); err != nil {
			return err
		}
		log.Info("the dataset is deleted", "path", c.DatabasePath())
	}
	return nil
}

// システム情報の表示
func printSystemInfo(log common.Logger, command string, cfg *common.Config) {
	log.Info("benchmark configuration",
		"command", command,
		"dir", cfg.WorkDir,
		"records", cfg.Records,
		"start", cfg.Start,
		"wal", cfg.WAL,
		"max_retries", cfg.Retry.MaxRetries,
		"retry_deadline", cfg.Retry.Deadline,
	)
}
