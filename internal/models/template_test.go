package models

import (
	"testing"
	"time"
)

func validTemplate() TaskTemplate {
	return TaskTemplate{
		ID:          "meds",
		Title:       "Morning medication",
		Time:        "07:00",
		Priority:    1,
		DurationMin: 5,
		SnoozeMin:   15,
		RRule:       "FREQ=DAILY",
	}
}

func TestTaskTemplateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TaskTemplate)
		wantErr bool
	}{
		{"valid", func(tt *TaskTemplate) {}, false},
		{"empty id", func(tt *TaskTemplate) { tt.ID = "" }, true},
		{"empty title", func(tt *TaskTemplate) { tt.Title = "" }, true},
		{"empty time", func(tt *TaskTemplate) { tt.Time = "" }, true},
		{"bad time", func(tt *TaskTemplate) { tt.Time = "25:99" }, true},
		{"priority too low", func(tt *TaskTemplate) { tt.Priority = 0 }, true},
		{"priority too high", func(tt *TaskTemplate) { tt.Priority = 6 }, true},
		{"zero duration", func(tt *TaskTemplate) { tt.DurationMin = 0 }, true},
		{"zero snooze", func(tt *TaskTemplate) { tt.SnoozeMin = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(&tmpl)
			err := tmpl.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskTemplateMinuteOfDay(t *testing.T) {
	tmpl := validTemplate()
	if got := tmpl.MinuteOfDay(); got != 420 {
		t.Errorf("MinuteOfDay() = %d, want 420", got)
	}
}

func TestNewOccurrenceID(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	occ := NewOccurrence(validTemplate(), at)

	if occ.ID != "meds@2026-03-10T09:00" {
		t.Errorf("ID = %q", occ.ID)
	}
	if occ.Status != StatusPending {
		t.Errorf("Status = %q, want pending", occ.Status)
	}

	// Re-expansion mints the same identity.
	again := NewOccurrence(validTemplate(), at)
	if again.ID != occ.ID {
		t.Errorf("re-expanded ID = %q, want %q", again.ID, occ.ID)
	}
}

func TestOccurrenceStatusHelpers(t *testing.T) {
	tests := []struct {
		status       OccurrenceStatus
		terminal     bool
		acknowledged bool
	}{
		{StatusPending, false, false},
		{StatusFired, false, false},
		{StatusCompleted, true, true},
		{StatusSkipped, true, true},
		{StatusMissed, true, false},
	}

	for _, tt := range tests {
		occ := Occurrence{Status: tt.status}
		if got := occ.Terminal(); got != tt.terminal {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.terminal)
		}
		if got := occ.Acknowledged(); got != tt.acknowledged {
			t.Errorf("Acknowledged(%s) = %v, want %v", tt.status, got, tt.acknowledged)
		}
	}
}

func TestFormatRecurrence(t *testing.T) {
	tests := []struct {
		rec  Recurrence
		want string
	}{
		{Recurrence{Freq: FreqDaily}, "daily"},
		{Recurrence{Freq: FreqWeekly}, "weekly"},
		{Recurrence{Freq: FreqWeekly, ByWeekdays: []time.Weekday{time.Monday, time.Friday}}, "weekly on Mon,Fri"},
		{Recurrence{Freq: FreqMonthly, ByMonthDay: 15}, "monthly on day 15"},
		{Recurrence{Freq: FreqMonthly}, "monthly"},
		{Recurrence{Freq: FreqYearly}, "yearly"},
	}

	for _, tt := range tests {
		if got := FormatRecurrence(tt.rec); got != tt.want {
			t.Errorf("FormatRecurrence(%+v) = %q, want %q", tt.rec, got, tt.want)
		}
	}
}

func TestScheduledItemConstructors(t *testing.T) {
	occ := NewOccurrence(validTemplate(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local))
	item := RegularItem(occ)
	if item.Kind != ItemRegular || item.Occurrence == nil || item.Bundle != nil {
		t.Errorf("RegularItem() = %+v", item)
	}

	bundle := CatchUpBundle{Block: "Morning", Title: "CATCH UP: Morning"}
	item = CatchUpItem(bundle)
	if item.Kind != ItemCatchUp || item.Bundle == nil || item.Occurrence != nil {
		t.Errorf("CatchUpItem() = %+v", item)
	}
}
