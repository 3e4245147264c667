package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/utils"
)

// InvalidRecurrenceError indicates a rule string that could not be
// parsed or uses an unsupported feature.
type InvalidRecurrenceError struct {
	Rule   string
	Reason string
}

func (e *InvalidRecurrenceError) Error() string {
	return fmt.Sprintf("invalid recurrence rule %q: %s", e.Rule, e.Reason)
}

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// ParseRule parses a rule of the form
// "FREQ=WEEKLY;BYDAY=MO,WE;BYMONTHDAY=15" into a typed Recurrence.
// Keys and values are case-insensitive.
func ParseRule(rule string) (models.Recurrence, error) {
	var rec models.Recurrence

	normalized := strings.ToUpper(strings.TrimSpace(rule))
	if normalized == "" {
		return rec, &InvalidRecurrenceError{Rule: rule, Reason: "empty rule"}
	}

	for _, part := range strings.Split(normalized, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, found := strings.Cut(part, "=")
		if !found || value == "" {
			return rec, &InvalidRecurrenceError{Rule: rule, Reason: fmt.Sprintf("malformed component %q", part)}
		}

		switch key {
		case "FREQ":
			switch models.Frequency(value) {
			case models.FreqDaily, models.FreqWeekly, models.FreqMonthly, models.FreqYearly:
				rec.Freq = models.Frequency(value)
			default:
				return rec, &InvalidRecurrenceError{Rule: rule, Reason: fmt.Sprintf("unsupported frequency %q", value)}
			}
		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				wd, ok := weekdayCodes[strings.TrimSpace(code)]
				if !ok {
					return rec, &InvalidRecurrenceError{Rule: rule, Reason: fmt.Sprintf("unknown weekday %q", code)}
				}
				rec.ByWeekdays = append(rec.ByWeekdays, wd)
			}
		case "BYMONTHDAY":
			day, err := strconv.Atoi(value)
			if err != nil || day < 1 || day > 31 {
				return rec, &InvalidRecurrenceError{Rule: rule, Reason: fmt.Sprintf("invalid month day %q", value)}
			}
			rec.ByMonthDay = day
		default:
			return rec, &InvalidRecurrenceError{Rule: rule, Reason: fmt.Sprintf("unsupported component %q", key)}
		}
	}

	if rec.Freq == "" {
		return rec, &InvalidRecurrenceError{Rule: rule, Reason: "missing FREQ"}
	}

	return rec, nil
}

// NextOccurrence computes the next firing instant for a template
// strictly after the reference instant. Non-recurring templates fire at
// their time of day today if it has not yet passed, otherwise tomorrow;
// they fire only once ever, which callers must track themselves.
//
// Instants are local wall-clock values. No timezone conversion happens
// here; DST transitions are out of scope.
func NextOccurrence(tmpl models.TaskTemplate, after time.Time) (time.Time, error) {
	if !tmpl.Recurring() {
		return nextDaily(tmpl.Time, after)
	}

	rec, err := ParseRule(tmpl.RRule)
	if err != nil {
		return time.Time{}, err
	}

	switch rec.Freq {
	case models.FreqDaily:
		return nextDaily(tmpl.Time, after)
	case models.FreqWeekly:
		return nextWeekly(tmpl.Time, rec.ByWeekdays, after)
	case models.FreqMonthly:
		return nextMonthly(tmpl.Time, rec.ByMonthDay, after)
	case models.FreqYearly:
		return nextYearly(tmpl.Time, after)
	default:
		return time.Time{}, &InvalidRecurrenceError{Rule: tmpl.RRule, Reason: fmt.Sprintf("unsupported frequency %q", rec.Freq)}
	}
}

// NextWithDailyFallback behaves like NextOccurrence, but degrades an
// invalid rule to DAILY with a logged warning instead of failing. This
// mirrors how malformed rules have always been handled: the task keeps
// firing rather than silently disappearing from the schedule.
func NextWithDailyFallback(tmpl models.TaskTemplate, after time.Time) time.Time {
	next, err := NextOccurrence(tmpl, after)
	if err == nil {
		return next
	}

	logger.Warn("Invalid recurrence rule, falling back to daily",
		"template", tmpl.ID, "rule", tmpl.RRule, "error", err)

	daily, fallbackErr := nextDaily(tmpl.Time, after)
	if fallbackErr != nil {
		// Only reachable with an unvalidated template time.
		return utils.StartOfDay(after.AddDate(0, 0, 1))
	}
	return daily
}

func nextDaily(timeStr string, after time.Time) (time.Time, error) {
	candidate, err := utils.AtTimeOfDay(after, timeStr)
	if err != nil {
		return time.Time{}, err
	}
	if candidate.After(after) {
		return candidate, nil
	}
	return candidate.AddDate(0, 0, 1), nil
}

func nextWeekly(timeStr string, byDays []time.Weekday, after time.Time) (time.Time, error) {
	if len(byDays) == 0 {
		// No by-day set: same weekday as the reference instant.
		byDays = []time.Weekday{after.Weekday()}
	}

	match := make(map[time.Weekday]bool, len(byDays))
	for _, wd := range byDays {
		match[wd] = true
	}

	// Walk forward at most one full week looking for a matching weekday
	// whose firing time is still ahead of the reference instant.
	for offset := 0; offset <= 7; offset++ {
		day := after.AddDate(0, 0, offset)
		if !match[day.Weekday()] {
			continue
		}
		candidate, err := utils.AtTimeOfDay(day, timeStr)
		if err != nil {
			return time.Time{}, err
		}
		if candidate.After(after) {
			return candidate, nil
		}
	}

	return time.Time{}, fmt.Errorf("no weekly occurrence found within 7 days of %s", after.Format(time.RFC3339))
}

func nextMonthly(timeStr string, byMonthDay int, after time.Time) (time.Time, error) {
	day := byMonthDay
	if day == 0 {
		day = after.Day()
	}

	candidate, err := monthlyInstant(after.Year(), after.Month(), day, timeStr, after.Location())
	if err != nil {
		return time.Time{}, err
	}
	if candidate.After(after) {
		return candidate, nil
	}

	// Same day-of-month next month, clamped to that month's last day.
	year, month := after.Year(), after.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	return monthlyInstant(year, month, day, timeStr, after.Location())
}

func monthlyInstant(year int, month time.Month, day int, timeStr string, loc *time.Location) (time.Time, error) {
	if last := utils.LastDayOfMonth(year, month); day > last {
		day = last
	}
	tod, err := utils.ParseTime(timeStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

func nextYearly(timeStr string, after time.Time) (time.Time, error) {
	candidate, err := yearlyInstant(after.Year(), after.Month(), after.Day(), timeStr, after.Location())
	if err != nil {
		return time.Time{}, err
	}
	if candidate.After(after) {
		return candidate, nil
	}
	return yearlyInstant(after.Year()+1, after.Month(), after.Day(), timeStr, after.Location())
}

func yearlyInstant(year int, month time.Month, day int, timeStr string, loc *time.Location) (time.Time, error) {
	// Feb-29 clamps to Feb-28 on non-leap years.
	if month == time.February && day == 29 && utils.LastDayOfMonth(year, month) < 29 {
		day = 28
	}
	tod, err := utils.ParseTime(timeStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, tod.Hour(), tod.Minute(), 0, 0, loc), nil
}
