package common

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// ベンチマーク設定
const (
	SweepRecords = 100000  // スイープ測定での総レコード数
	FixedRecords = 1000000 // 単発測定での総レコード数
	DatasetName  = "eval.db"
)

// Payload is the constant 100-character text stored in every record.
const Payload = "01234567890123456789012345678901234567890123456789" +
	"01234567890123456789012345678901234567890123456789"

// SweepConfig controls one batch sweep. Start is the first batch size and
// defaults to TotalRecords.
type SweepConfig struct {
	TotalRecords int
	Start        int
	Payload      string
	Path         string
	Retry        RetryPolicy
	Timeout      time.Duration
}

// Sweep measures insert throughput for a halving series of batch sizes.
type Sweep struct {
	Engine   Engine
	Config   SweepConfig
	Reporter *Reporter
	Log      Logger
	Clock    Clock
}

// BatchSizes returns start, start/2, start/4, ... down to 1.
func BatchSizes(start int) []int {
	var sizes []int
	for n := start; n > 0; n /= 2 {
		sizes = append(sizes, n)
	}
	return sizes
}

// Run measures every batch size in turn, each against a fresh dataset, and
// stops at the first fatal error.
func (s *Sweep) Run(ctx context.Context) error {
	if err := s.validate(); err != nil {
		return err
	}
	start := s.Config.Start
	if start == 0 {
		start = s.Config.TotalRecords
	}
	sizes := BatchSizes(start)

	log := s.logger()
	progress := NewProgress(s.Config.Timeout, len(sizes), len(sizes), 10*time.Minute)
	warned := false
	for _, n := range sizes {
		res, err := s.RunPoint(ctx, n)
		if err != nil {
			return err
		}
		if progress.Advance(1) {
			log.Info("sweep point finished",
				"batch", n, "transactions", res.Transactions, "retries", res.Retries,
				"elapsed", res.Elapsed.String(), "eta", progress.ETA())
		}
		if !warned && progress.OverBudget() {
			log.Info("sweep is running past its time budget", "budget", s.Config.Timeout, "elapsed", progress.Elapsed())
			warned = true
		}
	}
	return nil
}

// 指定されたバッチサイズで TotalRecords 件を挿入し、経過時間を報告します。
func (s *Sweep) RunPoint(ctx context.Context, numTrans int) (res SweepResult, err error) {
	if numTrans < 1 {
		return res, fmt.Errorf("%w: batch size must be positive: %d", ErrInvalidConfig, numTrans)
	}
	if err := s.validate(); err != nil {
		return res, err
	}
	path := s.Config.Path
	dialect := s.Engine.Dialect()
	clock := s.clock()

	// 前回の中断で残ったデータセットを削除
	if err := s.Engine.Remove(path); err != nil {
		return res, Fatal("remove", path, err)
	}
	conn, err := openDataset(ctx, s.Engine, path)
	if err != nil {
		return res, joinCleanup(err, s.Engine.Remove(path))
	}
	defer func() {
		err = joinCleanup(err, conn.Close(), s.Engine.Remove(path))
	}()

	stmt, err := conn.Prepare(ctx, dialect.Insert)
	if err != nil {
		return res, Fatal("prepare", dialect.Insert, err)
	}
	finalized := false
	defer func() {
		if !finalized {
			err = joinCleanup(err, stmt.Finalize())
		}
	}()

	writer := NewWriter(stmt, dialect.Insert, s.Config.Payload, s.Config.Retry, clock, s.logger())
	total := s.Config.TotalRecords
	transactions := 0

	runtime.GC()
	start := clock()
	for seq := 0; seq < total; seq++ {
		if seq%numTrans == 0 {
			if err := Begin(ctx, conn, dialect); err != nil {
				return res, err
			}
		}
		if err := writer.Insert(ctx, int64(seq)); err != nil {
			return res, err
		}
		if (seq+1)%numTrans == 0 || seq == total-1 {
			if err := Commit(ctx, conn, dialect); err != nil {
				return res, err
			}
			transactions++
		}
	}
	end := clock()

	finalized = true
	if err := stmt.Finalize(); err != nil {
		return res, Fatal("finalize", dialect.Insert, err)
	}

	res = SweepResult{
		Transactions: transactions,
		BatchSize:    numTrans,
		Records:      total,
		Retries:      writer.Retries(),
		Elapsed:      Elapsed(start, end),
	}
	if err := s.Reporter.EmitSweep(res); err != nil {
		return res, fmt.Errorf("failed to emit result: %w", err)
	}
	return res, nil
}

func (s *Sweep) validate() error {
	if s.Engine == nil || s.Reporter == nil {
		return fmt.Errorf("%w: sweep needs an engine and a reporter", ErrInvalidConfig)
	}
	if s.Config.TotalRecords < 1 {
		return fmt.Errorf("%w: total records must be positive: %d", ErrInvalidConfig, s.Config.TotalRecords)
	}
	if s.Config.Start < 0 {
		return fmt.Errorf("%w: start batch size must not be negative: %d", ErrInvalidConfig, s.Config.Start)
	}
	if s.Config.Path == "" {
		return fmt.Errorf("%w: dataset path is empty", ErrInvalidConfig)
	}
	return nil
}

func (s *Sweep) clock() Clock {
	if s.Clock == nil {
		return Now
	}
	return s.Clock
}

func (s *Sweep) logger() Logger {
	if s.Log == nil {
		return NewNopLogger()
	}
	return s.Log
}
