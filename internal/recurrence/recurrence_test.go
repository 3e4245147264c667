package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/kmorrow/daybell/internal/models"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	if err != nil {
		t.Fatalf("bad test instant %q: %v", value, err)
	}
	return parsed
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		want    models.Recurrence
		wantErr bool
	}{
		{
			name: "daily",
			rule: "FREQ=DAILY",
			want: models.Recurrence{Freq: models.FreqDaily},
		},
		{
			name: "weekly with days",
			rule: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
			want: models.Recurrence{
				Freq:       models.FreqWeekly,
				ByWeekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
		},
		{
			name: "monthly with day",
			rule: "FREQ=MONTHLY;BYMONTHDAY=15",
			want: models.Recurrence{Freq: models.FreqMonthly, ByMonthDay: 15},
		},
		{
			name: "lowercase accepted",
			rule: "freq=weekly;byday=su",
			want: models.Recurrence{
				Freq:       models.FreqWeekly,
				ByWeekdays: []time.Weekday{time.Sunday},
			},
		},
		{name: "empty rule", rule: "", wantErr: true},
		{name: "unknown frequency", rule: "FREQ=HOURLY", wantErr: true},
		{name: "unknown weekday", rule: "FREQ=WEEKLY;BYDAY=XX", wantErr: true},
		{name: "month day out of range", rule: "FREQ=MONTHLY;BYMONTHDAY=32", wantErr: true},
		{name: "missing freq", rule: "BYDAY=MO", wantErr: true},
		{name: "unknown component", rule: "FREQ=DAILY;COUNT=3", wantErr: true},
		{name: "malformed component", rule: "FREQ=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRule(tt.rule)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRule(%q) expected error", tt.rule)
				}
				var invalidErr *InvalidRecurrenceError
				if !errors.As(err, &invalidErr) {
					t.Errorf("ParseRule(%q) error type = %T, want *InvalidRecurrenceError", tt.rule, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRule(%q) error = %v", tt.rule, err)
			}
			if got.Freq != tt.want.Freq || got.ByMonthDay != tt.want.ByMonthDay {
				t.Errorf("ParseRule(%q) = %+v, want %+v", tt.rule, got, tt.want)
			}
			if len(got.ByWeekdays) != len(tt.want.ByWeekdays) {
				t.Fatalf("ParseRule(%q) weekdays = %v, want %v", tt.rule, got.ByWeekdays, tt.want.ByWeekdays)
			}
			for i := range got.ByWeekdays {
				if got.ByWeekdays[i] != tt.want.ByWeekdays[i] {
					t.Errorf("ParseRule(%q) weekdays = %v, want %v", tt.rule, got.ByWeekdays, tt.want.ByWeekdays)
				}
			}
		})
	}
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name  string
		tmpl  models.TaskTemplate
		after string
		want  string
	}{
		{
			name:  "daily before firing time fires today",
			tmpl:  models.TaskTemplate{ID: "meds", Time: "09:00", RRule: "FREQ=DAILY"},
			after: "2026-03-10 08:00",
			want:  "2026-03-10 09:00",
		},
		{
			name:  "daily at firing time fires tomorrow",
			tmpl:  models.TaskTemplate{ID: "meds", Time: "09:00", RRule: "FREQ=DAILY"},
			after: "2026-03-10 09:00",
			want:  "2026-03-11 09:00",
		},
		{
			name:  "daily after firing time fires tomorrow",
			tmpl:  models.TaskTemplate{ID: "meds", Time: "09:00", RRule: "FREQ=DAILY"},
			after: "2026-03-10 09:01",
			want:  "2026-03-11 09:00",
		},
		{
			// 2026-03-10 is a Tuesday.
			name:  "weekly picks next listed weekday",
			tmpl:  models.TaskTemplate{ID: "gym", Time: "18:00", RRule: "FREQ=WEEKLY;BYDAY=MO,FR"},
			after: "2026-03-10 08:00",
			want:  "2026-03-13 18:00",
		},
		{
			name:  "weekly same day later time fires today",
			tmpl:  models.TaskTemplate{ID: "gym", Time: "18:00", RRule: "FREQ=WEEKLY;BYDAY=TU"},
			after: "2026-03-10 08:00",
			want:  "2026-03-10 18:00",
		},
		{
			name:  "weekly same day passed time fires next week",
			tmpl:  models.TaskTemplate{ID: "gym", Time: "18:00", RRule: "FREQ=WEEKLY;BYDAY=TU"},
			after: "2026-03-10 19:00",
			want:  "2026-03-17 18:00",
		},
		{
			name:  "weekly without byday uses reference weekday",
			tmpl:  models.TaskTemplate{ID: "review", Time: "10:00", RRule: "FREQ=WEEKLY"},
			after: "2026-03-10 11:00",
			want:  "2026-03-17 10:00",
		},
		{
			name:  "monthly later this month",
			tmpl:  models.TaskTemplate{ID: "rent", Time: "10:00", RRule: "FREQ=MONTHLY;BYMONTHDAY=15"},
			after: "2026-03-10 08:00",
			want:  "2026-03-15 10:00",
		},
		{
			name:  "monthly passed rolls to next month",
			tmpl:  models.TaskTemplate{ID: "rent", Time: "10:00", RRule: "FREQ=MONTHLY;BYMONTHDAY=5"},
			after: "2026-03-10 08:00",
			want:  "2026-04-05 10:00",
		},
		{
			name:  "monthly day 31 clamps to short month",
			tmpl:  models.TaskTemplate{ID: "bills", Time: "10:00", RRule: "FREQ=MONTHLY;BYMONTHDAY=31"},
			after: "2026-03-31 11:00",
			want:  "2026-04-30 10:00",
		},
		{
			name:  "monthly december rolls to january",
			tmpl:  models.TaskTemplate{ID: "rent", Time: "10:00", RRule: "FREQ=MONTHLY;BYMONTHDAY=5"},
			after: "2026-12-10 08:00",
			want:  "2027-01-05 10:00",
		},
		{
			name:  "yearly anniversary next year",
			tmpl:  models.TaskTemplate{ID: "renewal", Time: "09:00", RRule: "FREQ=YEARLY"},
			after: "2026-06-01 10:00",
			want:  "2027-06-01 09:00",
		},
		{
			// 2028 is a leap year; the occurrence lands on Feb 28 in 2029.
			name:  "yearly feb 29 clamps to feb 28",
			tmpl:  models.TaskTemplate{ID: "leap", Time: "09:00", RRule: "FREQ=YEARLY"},
			after: "2028-02-29 10:00",
			want:  "2029-02-28 09:00",
		},
		{
			name:  "non-recurring fires today if still ahead",
			tmpl:  models.TaskTemplate{ID: "dentist", Time: "14:00"},
			after: "2026-03-10 08:00",
			want:  "2026-03-10 14:00",
		},
		{
			name:  "non-recurring passed fires tomorrow",
			tmpl:  models.TaskTemplate{ID: "dentist", Time: "14:00"},
			after: "2026-03-10 15:00",
			want:  "2026-03-11 14:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := mustParse(t, tt.after)
			got, err := NextOccurrence(tt.tmpl, after)
			if err != nil {
				t.Fatalf("NextOccurrence() error = %v", err)
			}
			want := mustParse(t, tt.want)
			if !got.Equal(want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, want)
			}
			if !got.After(after) {
				t.Errorf("NextOccurrence() = %v is not after reference %v", got, after)
			}
		})
	}
}

func TestNextOccurrenceInvalidRule(t *testing.T) {
	tmpl := models.TaskTemplate{ID: "broken", Time: "09:00", RRule: "FREQ=SOMETIMES"}
	_, err := NextOccurrence(tmpl, mustParse(t, "2026-03-10 08:00"))
	if err == nil {
		t.Fatal("NextOccurrence() expected error for invalid rule")
	}
	var invalidErr *InvalidRecurrenceError
	if !errors.As(err, &invalidErr) {
		t.Errorf("NextOccurrence() error type = %T, want *InvalidRecurrenceError", err)
	}
}

func TestNextWithDailyFallback(t *testing.T) {
	after := mustParse(t, "2026-03-10 08:00")

	// An invalid rule degrades to daily scheduling instead of failing.
	tmpl := models.TaskTemplate{ID: "broken", Time: "09:00", RRule: "FREQ=SOMETIMES"}
	got := NextWithDailyFallback(tmpl, after)
	want := mustParse(t, "2026-03-10 09:00")
	if !got.Equal(want) {
		t.Errorf("NextWithDailyFallback() = %v, want %v", got, want)
	}

	// Valid rules pass through untouched.
	weekly := models.TaskTemplate{ID: "gym", Time: "18:00", RRule: "FREQ=WEEKLY;BYDAY=FR"}
	got = NextWithDailyFallback(weekly, after)
	want = mustParse(t, "2026-03-13 18:00")
	if !got.Equal(want) {
		t.Errorf("NextWithDailyFallback() = %v, want %v", got, want)
	}
}

func TestDailyGapNeverExceedsOneDay(t *testing.T) {
	tmpl := models.TaskTemplate{ID: "meds", Time: "09:00", RRule: "FREQ=DAILY"}
	at := mustParse(t, "2026-03-01 00:00")
	for i := 0; i < 60; i++ {
		next, err := NextOccurrence(tmpl, at)
		if err != nil {
			t.Fatalf("NextOccurrence() error = %v", err)
		}
		if gap := next.Sub(at); gap <= 0 || gap > 24*time.Hour {
			t.Fatalf("daily gap from %v to %v is %v, want (0, 24h]", at, next, gap)
		}
		at = next
	}
}
