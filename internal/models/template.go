package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/kmorrow/daybell/internal/constants"
)

type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

// Recurrence is a parsed recurrence rule: a frequency plus optional
// by-day / by-month-day qualifiers.
type Recurrence struct {
	Freq       Frequency      `json:"freq"`
	ByWeekdays []time.Weekday `json:"by_weekdays,omitempty"`
	ByMonthDay int            `json:"by_month_day,omitempty"`
}

// TaskTemplate is the immutable definition of a task. Templates with an
// empty RRule fire exactly once; callers track "already scheduled" state.
type TaskTemplate struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Notes       string `yaml:"notes,omitempty" json:"notes,omitempty"`
	Time        string `yaml:"time" json:"time"` // HH:MM format
	Priority    int    `yaml:"priority,omitempty" json:"priority"`
	DurationMin int    `yaml:"duration,omitempty" json:"duration_min"`
	AudioAlert  bool   `yaml:"audio_alert,omitempty" json:"audio_alert"`
	SnoozeMin   int    `yaml:"snooze_duration,omitempty" json:"snooze_min"`
	RRule       string `yaml:"rrule,omitempty" json:"rrule,omitempty"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
}

func (t *TaskTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id cannot be empty")
	}

	if t.Title == "" {
		return fmt.Errorf("template title cannot be empty")
	}

	if t.Time == "" {
		return fmt.Errorf("template time cannot be empty")
	}

	// Validate time format (HH:MM)
	if _, err := time.Parse(constants.TimeFormat, t.Time); err != nil {
		return fmt.Errorf("invalid time format (expected HH:MM): %w", err)
	}

	if t.Priority < constants.MinPriority || t.Priority > constants.MaxPriority {
		return fmt.Errorf("priority must be between %d and %d, got %d",
			constants.MinPriority, constants.MaxPriority, t.Priority)
	}

	if t.DurationMin < 1 {
		return fmt.Errorf("duration must be a positive number of minutes")
	}

	if t.SnoozeMin < 1 {
		return fmt.Errorf("snooze duration must be a positive number of minutes")
	}

	return nil
}

// Recurring returns true if the template carries a recurrence rule.
func (t *TaskTemplate) Recurring() bool {
	return t.RRule != ""
}

// MinuteOfDay returns the template's time of day as minutes from
// midnight. Templates must be validated before calling.
func (t *TaskTemplate) MinuteOfDay() int {
	parsed, err := time.Parse(constants.TimeFormat, t.Time)
	if err != nil {
		return 0
	}
	return parsed.Hour()*60 + parsed.Minute()
}

// FormatRecurrence returns a human-readable description of the rule.
func FormatRecurrence(rec Recurrence) string {
	switch rec.Freq {
	case FreqDaily:
		return "daily"
	case FreqWeekly:
		if len(rec.ByWeekdays) > 0 {
			days := make([]string, len(rec.ByWeekdays))
			for i, wd := range rec.ByWeekdays {
				days[i] = wd.String()[:3]
			}
			return fmt.Sprintf("weekly on %s", strings.Join(days, ","))
		}
		return "weekly"
	case FreqMonthly:
		if rec.ByMonthDay > 0 {
			return fmt.Sprintf("monthly on day %d", rec.ByMonthDay)
		}
		return "monthly"
	case FreqYearly:
		return "yearly"
	default:
		return "unknown"
	}
}
