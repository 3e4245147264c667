package cli

import (
	"fmt"
	"time"

	"github.com/kmorrow/daybell/internal/config"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/recurrence"
	"github.com/kmorrow/daybell/internal/storage"
	"github.com/kmorrow/daybell/internal/utils"
)

type Context struct {
	Store        storage.Provider
	SchedulePath string
	Strict       bool
}

// LoadSchedule reads and validates the schedule file named on the
// command line.
func (c *Context) LoadSchedule() (*config.Schedule, error) {
	sched, err := config.Load(c.SchedulePath, c.Strict)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule %s: %w", c.SchedulePath, err)
	}
	return sched, nil
}

// Now returns the current time in the schedule's configured timezone,
// falling back to local time when none is set.
func (c *Context) Now(sched *config.Schedule) time.Time {
	if sched != nil && sched.Settings.Timezone != "" {
		if t, err := utils.NowInTimezone(sched.Settings.Timezone); err == nil {
			return t
		}
	}
	return time.Now()
}

// DescribeRecurrence renders a template's recurrence rule for display.
func DescribeRecurrence(rrule string) string {
	if rrule == "" {
		return "once"
	}
	rec, err := recurrence.ParseRule(rrule)
	if err != nil {
		return "daily (invalid rule)"
	}
	return models.FormatRecurrence(rec)
}
