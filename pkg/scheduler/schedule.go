package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule determines when a job runs next.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

type cronSchedule struct {
	expr  string
	sched cron.Schedule
}

func (s cronSchedule) Next(from time.Time) time.Time {
	return s.sched.Next(from)
}

func (s cronSchedule) String() string {
	return "cron " + s.expr
}

// Every runs a job at a fixed interval.
func Every(d time.Duration) Schedule {
	return intervalSchedule{every: d}
}

// Cron parses a standard five-field expression or a descriptor such as
// "@daily" or "@every 15m".
func Cron(expr string) (Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, expr, err)
	}
	return cronSchedule{expr: expr, sched: sched}, nil
}
