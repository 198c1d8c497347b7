package common

import (
	"fmt"
	"time"
)

// Progress counts finished sweep points and estimates when the whole sweep
// will end. It only feeds the diagnostic log.
type Progress struct {
	start    time.Time
	budget   time.Duration
	total    int
	done     int
	step     int
	interval time.Duration
	noticed  time.Time
	now      func() time.Time
}

// NewProgress tracks total units. A notice is due every interval, every
// total/div units and on the last unit.
func NewProgress(budget time.Duration, total, div int, interval time.Duration) *Progress {
	step := 1
	if div > 0 && total/div > 1 {
		step = total / div
	}
	p := &Progress{
		budget:   budget,
		total:    total,
		step:     step,
		interval: interval,
		now:      time.Now,
	}
	p.start = p.now()
	p.noticed = p.start
	return p
}

// Advance records n finished units and reports whether a notice is due.
func (p *Progress) Advance(n int) bool {
	before := p.done
	p.done += n
	now := p.now()

	due := p.done >= p.total ||
		before/p.step != p.done/p.step ||
		(p.interval > 0 && now.Sub(p.noticed) >= p.interval)
	if due {
		p.noticed = now
	}
	return due
}

// OverBudget reports whether the run has used up its time budget. A zero
// budget never runs out.
func (p *Progress) OverBudget() bool {
	return p.budget > 0 && p.Elapsed() >= p.budget
}

func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// EstimatedEnd extrapolates the mean time per unit. Before the first unit it
// falls back to the budget.
func (p *Progress) EstimatedEnd() time.Time {
	if p.done == 0 {
		return p.start.Add(p.budget)
	}
	perUnit := p.Elapsed() / time.Duration(p.done)
	return p.start.Add(perUnit * time.Duration(p.total))
}

// ETA renders the estimated end as a clock time plus the remaining time,
// e.g. "14:03:59 (2m05s)".
func (p *Progress) ETA() string {
	end := p.EstimatedEnd()
	now := p.now()
	left := end.Sub(now)
	if left < 0 {
		left = 0
	}

	layout := "15:04:05"
	if end.YearDay() != now.YearDay() || end.Year() != now.Year() {
		layout = "01-02 15:04"
	} else if left >= time.Hour {
		layout = "15:04"
	}
	return fmt.Sprintf("%s (%s)", end.Format(layout), remaining(left))
}

func remaining(d time.Duration) string {
	secs := int(d / time.Second)
	h, m, s := secs/3600, secs%3600/60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
