package common

import (
	"context"
	"fmt"
	"runtime"
)

// FixedConfig controls the single-pass workload.
type FixedConfig struct {
	TotalRecords int
	Payload      string
	Path         string
	Retry        RetryPolicy
}

// Fixed times insert, count, update, delete and compaction once each on a
// single dataset.
type Fixed struct {
	Engine   Engine
	Config   FixedConfig
	Reporter *Reporter
	Log      Logger
	Clock    Clock
}

// Run executes the workload and reports every phase as soon as it finishes.
func (f *Fixed) Run(ctx context.Context) (results []PhaseResult, err error) {
	if f.Engine == nil || f.Reporter == nil {
		return nil, fmt.Errorf("%w: fixed workload needs an engine and a reporter", ErrInvalidConfig)
	}
	if f.Config.TotalRecords < 1 {
		return nil, fmt.Errorf("%w: total records must be positive: %d", ErrInvalidConfig, f.Config.TotalRecords)
	}
	if f.Config.Path == "" {
		return nil, fmt.Errorf("%w: dataset path is empty", ErrInvalidConfig)
	}
	path := f.Config.Path
	dialect := f.Engine.Dialect()

	if err := f.Engine.Remove(path); err != nil {
		return nil, Fatal("remove", path, err)
	}
	conn, err := openDataset(ctx, f.Engine, path)
	if err != nil {
		return nil, joinCleanup(err, f.Engine.Remove(path))
	}
	defer func() {
		err = joinCleanup(err, conn.Close(), f.Engine.Remove(path))
	}()

	insert, err := f.insertAll(ctx, conn, dialect)
	if err != nil {
		return results, err
	}
	if err := f.emit(&results, insert); err != nil {
		return results, err
	}

	for _, phase := range []struct{ name, text string }{
		{"SELECT", dialect.Count},
		{"UPDATE", dialect.Update},
		{"DELETE", dialect.Delete},
		{"VACUUM", dialect.Compact},
	} {
		start := f.clock()()
		if err := conn.Exec(ctx, phase.text); err != nil {
			return results, Fatal("exec", phase.text, err)
		}
		end := f.clock()()
		if err := f.emit(&results, PhaseResult{Name: phase.name, Elapsed: Elapsed(start, end)}); err != nil {
			return results, err
		}
	}
	return results, nil
}

// 1 トランザクションで TotalRecords 件を挿入
func (f *Fixed) insertAll(ctx context.Context, conn Conn, dialect Dialect) (res PhaseResult, err error) {
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

	clock := f.clock()
	writer := NewWriter(stmt, dialect.Insert, f.Config.Payload, f.Config.Retry, clock, f.Log)

	runtime.GC()
	start := clock()
	if err := Begin(ctx, conn, dialect); err != nil {
		return res, err
	}
	for seq := 0; seq < f.Config.TotalRecords; seq++ {
		if err := writer.Insert(ctx, int64(seq)); err != nil {
			return res, err
		}
	}
	if err := Commit(ctx, conn, dialect); err != nil {
		return res, err
	}
	end := clock()

	finalized = true
	if err := stmt.Finalize(); err != nil {
		return res, Fatal("finalize", dialect.Insert, err)
	}
	return PhaseResult{Name: "INSERT", Elapsed: Elapsed(start, end)}, nil
}

func (f *Fixed) emit(results *[]PhaseResult, res PhaseResult) error {
	*results = append(*results, res)
	if err := f.Reporter.EmitPhase(res); err != nil {
		return fmt.Errorf("failed to emit result: %w", err)
	}
	return nil
}

func (f *Fixed) clock() Clock {
	if f.Clock == nil {
		return Now
	}
	return f.Clock
}
