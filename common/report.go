package common

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SweepResult is one measured sweep point. It is emitted as soon as it is
// known and not retained.
type SweepResult struct {
	Transactions int
	BatchSize    int
	Records      int
	Retries      int
	Elapsed      Duration
}

// PhaseResult is one timed step of the fixed workload.
type PhaseResult struct {
	Name    string
	Elapsed Duration
}

// Reporter writes the machine-parseable result lines.
type Reporter struct {
	w io.Writer
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Banner prints the heading line that precedes the results of a run.
func (r *Reporter) Banner(title, engine, version string) error {
	_, err := fmt.Fprintf(r.w, "%s, %s version = %s\n", title, engine, version)
	return err
}

// EmitSweep prints "<transactions> TRANS, <batch size> Records : <sec>.<nsec> (sec)".
func (r *Reporter) EmitSweep(res SweepResult) error {
	_, err := fmt.Fprintf(r.w, "%7d TRANS, %7d Records : %10d.%09d (sec)\n",
		res.Transactions, res.BatchSize, res.Elapsed.Sec, res.Elapsed.Nsec)
	return err
}

// EmitPhase prints "<name> : <sec>.<nsec> (sec)".
func (r *Reporter) EmitPhase(res PhaseResult) error {
	_, err := fmt.Fprintf(r.w, "%6s : %10d.%09d (sec)\n", res.Name, res.Elapsed.Sec, res.Elapsed.Nsec)
	return err
}

// ParseSweepLine reads back a line written by EmitSweep.
func ParseSweepLine(line string) (SweepResult, error) {
	fields := strings.Fields(line)
	if len(fields) != 7 || fields[1] != "TRANS," || fields[3] != "Records" || fields[4] != ":" || fields[6] != "(sec)" {
		return SweepResult{}, fmt.Errorf("malformed sweep line: %q", line)
	}
	trans, err := strconv.Atoi(fields[0])
	if err != nil {
		return SweepResult{}, fmt.Errorf("malformed transaction count: %w", err)
	}
	batch, err := strconv.Atoi(fields[2])
	if err != nil {
		return SweepResult{}, fmt.Errorf("malformed batch size: %w", err)
	}
	elapsed, err := parseDuration(fields[5])
	if err != nil {
		return SweepResult{}, err
	}
	return SweepResult{Transactions: trans, BatchSize: batch, Elapsed: elapsed}, nil
}

func parseDuration(s string) (Duration, error) {
	sec, nsec, ok := strings.Cut(s, ".")
	if !ok || len(nsec) != 9 {
		return Duration{}, fmt.Errorf("malformed elapsed time: %q", s)
	}
	d := Duration{}
	var err error
	if d.Sec, err = strconv.ParseInt(sec, 10, 64); err != nil {
		return Duration{}, fmt.Errorf("malformed elapsed seconds: %w", err)
	}
	if d.Nsec, err = strconv.ParseInt(nsec, 10, 64); err != nil {
		return Duration{}, fmt.Errorf("malformed elapsed nanoseconds: %w", err)
	}
	return d, nil
}
