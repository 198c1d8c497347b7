package common

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElapsed(t *testing.T) {
	testCases := map[string]struct {
		start, end Timestamp
		want       Duration
	}{
		"same instant": {
			start: Timestamp{Sec: 10, Nsec: 5},
			end:   Timestamp{Sec: 10, Nsec: 5},
			want:  Duration{},
		},
		"no borrow": {
			start: Timestamp{Sec: 10, Nsec: 200_000_000},
			end:   Timestamp{Sec: 12, Nsec: 700_000_000},
			want:  Duration{Sec: 2, Nsec: 500_000_000},
		},
		"borrow on rollover": {
			start: Timestamp{Sec: 10, Nsec: 500_000_000},
			end:   Timestamp{Sec: 11, Nsec: 200_000_000},
			want:  Duration{Sec: 0, Nsec: 700_000_000},
		},
		"borrow with whole seconds left": {
			start: Timestamp{Sec: 100, Nsec: 999_999_999},
			end:   Timestamp{Sec: 105, Nsec: 0},
			want:  Duration{Sec: 4, Nsec: 1},
		},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Elapsed(tc.start, tc.end))
		})
	}
}

func TestDurationFormatting(t *testing.T) {
	d := Duration{Sec: 3, Nsec: 42}
	assert.Equal(t, "3.000000042", d.String())
	assert.Equal(t, 3*time.Second+42*time.Nanosecond, d.Std())
}

func TestNowHasNanosecondRemainder(t *testing.T) {
	ts := Now()
	require.GreaterOrEqual(t, ts.Nsec, int64(0))
	require.Less(t, ts.Nsec, nanosPerSecond)
	assert.InDelta(t, float64(time.Now().Unix()), ts.Float64(), 2)
}

func TestProperty_ElapsedIsNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("end - start equals the real distance and keeps Nsec in range", prop.ForAll(
		func(sec, nsec, delta int64) bool {
			start := Timestamp{Sec: sec, Nsec: nsec}
			total := sec*nanosPerSecond + nsec + delta
			end := Timestamp{Sec: total / nanosPerSecond, Nsec: total % nanosPerSecond}

			d := Elapsed(start, end)
			return d.Sec >= 0 &&
				d.Nsec >= 0 && d.Nsec < nanosPerSecond &&
				d.Sec*nanosPerSecond+d.Nsec == delta
		},
		gen.Int64Range(0, 4_000_000_000),
		gen.Int64Range(0, nanosPerSecond-1),
		gen.Int64Range(0, 1000*nanosPerSecond),
	))

	properties.TestingRun(t)
}
