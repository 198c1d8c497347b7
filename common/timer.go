package common

import (
	"fmt"
	"time"
)

const nanosPerSecond = int64(time.Second)

// Timestamp is a point in time split into whole seconds and the nanosecond
// remainder, the way the elapsed-time report prints it.
type Timestamp struct {
	Sec  int64
	Nsec int64
}

// Clock samples the current time. Benchmarks take it as a field so tests can
// pin the timed region.
type Clock func() Timestamp

// Now returns the current wall-clock time.
func Now() Timestamp {
	t := time.Now()
	return Timestamp{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

// Float64 returns the timestamp as real-valued seconds since the epoch.
func (t Timestamp) Float64() float64 {
	return float64(t.Sec) + float64(t.Nsec)/float64(nanosPerSecond)
}

// Duration is an elapsed time with a non-negative nanosecond remainder.
type Duration struct {
	Sec  int64
	Nsec int64
}

// Elapsed returns end - start. When the end's remainder is smaller than the
// start's, one second is borrowed so that Nsec stays in [0, 1e9).
func Elapsed(start, end Timestamp) Duration {
	if end.Nsec < start.Nsec {
		return Duration{
			Sec:  end.Sec - start.Sec - 1,
			Nsec: end.Nsec + nanosPerSecond - start.Nsec,
		}
	}
	return Duration{
		Sec:  end.Sec - start.Sec,
		Nsec: end.Nsec - start.Nsec,
	}
}

// Std converts d to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Sec*nanosPerSecond + d.Nsec)
}

func (d Duration) String() string {
	return fmt.Sprintf("%d.%09d", d.Sec, d.Nsec)
}
