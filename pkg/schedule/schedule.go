package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/security"
)

// Schedule defines when a refresher should tick next.
type Schedule interface {
	Next(from time.Time) time.Time
}

// everySchedule runs at fixed intervals.
type everySchedule struct {
	interval time.Duration
}

// Every creates a schedule that ticks at fixed intervals.
// The interval is clamped to [security.MinInterval, security.MaxInterval].
func Every(d time.Duration) Schedule {
	return &everySchedule{interval: security.ClampInterval(d)}
}

func (s *everySchedule) Next(from time.Time) time.Time {
	return from.Add(s.interval)
}

func (s *everySchedule) String() string {
	return "every " + s.interval.String()
}

// cronSchedule wraps a cron expression.
type cronSchedule struct {
	expr     string
	schedule cron.Schedule
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron creates a schedule from a cron expression. It panics on an invalid
// expression; use ParseCron for user input.
func Cron(expr string) Schedule {
	s, err := ParseCron(expr)
	if err != nil {
		panic("invalid cron expression: " + err.Error())
	}
	return s
}

// ParseCron parses a five-field cron expression or a descriptor such as
// "@every 30s" or "@hourly".
func ParseCron(expr string) (Schedule, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInterval, err)
	}
	return &cronSchedule{expr: expr, schedule: schedule}, nil
}

func (s *cronSchedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

func (s *cronSchedule) String() string {
	return "cron " + s.expr
}

// Parse accepts either a Go duration ("30s", "2m") or a cron expression.
func Parse(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, core.ErrInvalidInterval
	}
	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return nil, core.ErrInvalidInterval
		}
		return Every(d), nil
	}
	return ParseCron(spec)
}
