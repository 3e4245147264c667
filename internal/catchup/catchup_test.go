package catchup

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/kmorrow/daybell/internal/backlog"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/storage"
	"github.com/kmorrow/daybell/internal/timeblock"
)

func occurrenceAt(t *testing.T, id string, day time.Time, clock string, status models.OccurrenceStatus) models.Occurrence {
	t.Helper()
	tod, err := time.Parse("15:04", clock)
	if err != nil {
		t.Fatalf("bad clock %q: %v", clock, err)
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, day.Location())
	return models.Occurrence{
		ID:         id + "@" + at.Format("2006-01-02T15:04"),
		TemplateID: id,
		Title:      id,
		At:         at,
		Priority:   3,
		Status:     status,
	}
}

func TestReconcileGroupsMissedByBlock(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	occurrences := []models.Occurrence{
		occurrenceAt(t, "meds", day, "07:00", models.StatusFired),       // missed, Morning
		occurrenceAt(t, "stretch", day, "08:30", models.StatusPending),  // missed, Morning
		occurrenceAt(t, "email", day, "10:15", models.StatusCompleted),  // acknowledged
		occurrenceAt(t, "standup", day, "11:00", models.StatusFired),    // missed, Mid-Morning
		occurrenceAt(t, "lunch", day, "13:00", models.StatusSkipped),    // acknowledged
		occurrenceAt(t, "review", day, "14:00", models.StatusFired),     // missed, Afternoon
		occurrenceAt(t, "gym", day, "18:00", models.StatusPending),      // future
		occurrenceAt(t, "old", day.AddDate(0, 0, -1), "09:00", models.StatusFired), // prior day
	}

	c := New(timeblock.New())
	bundles := c.Reconcile(now, occurrences)

	if len(bundles) != 3 {
		t.Fatalf("Reconcile() returned %d bundles, want 3", len(bundles))
	}

	wantTitles := []string{"CATCH UP: Morning", "CATCH UP: Mid-Morning", "CATCH UP: Afternoon"}
	for i, bundle := range bundles {
		if bundle.Title != wantTitles[i] {
			t.Errorf("bundle[%d].Title = %q, want %q", i, bundle.Title, wantTitles[i])
		}
		if bundle.Priority != 1 {
			t.Errorf("bundle[%d].Priority = %d, want 1", i, bundle.Priority)
		}
		if want := 15 * len(bundle.MissedIDs); bundle.DurationMin != want {
			t.Errorf("bundle[%d].DurationMin = %d, want %d", i, bundle.DurationMin, want)
		}
	}

	morning := bundles[0]
	if len(morning.MissedIDs) != 2 {
		t.Fatalf("morning bundle holds %d tasks, want 2", len(morning.MissedIDs))
	}
	if morning.DurationMin != 30 {
		t.Errorf("morning bundle duration = %d, want 30", morning.DurationMin)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	occurrences := []models.Occurrence{
		occurrenceAt(t, "meds", day, "07:00", models.StatusFired),
		occurrenceAt(t, "standup", day, "11:00", models.StatusPending),
	}

	c := New(timeblock.New())
	first := c.Reconcile(now, occurrences)
	second := c.Reconcile(now, occurrences)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Reconcile() not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestReconcileEmptyWhenNothingMissed(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	occurrences := []models.Occurrence{
		occurrenceAt(t, "done", day, "07:00", models.StatusCompleted),
		occurrenceAt(t, "later", day, "18:00", models.StatusPending),
	}

	c := New(timeblock.New())
	if bundles := c.Reconcile(now, occurrences); len(bundles) != 0 {
		t.Errorf("Reconcile() = %d bundles, want 0", len(bundles))
	}
}

func TestBlockEndPassed(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	c := New(timeblock.New())

	tests := []struct {
		name string
		occ  models.Occurrence
		now  string
		want bool
	}{
		{
			name: "morning task before block end",
			occ:  occurrenceAt(t, "meds", day, "07:00", models.StatusFired),
			now:  "09:59",
			want: false,
		},
		{
			name: "morning task at block end",
			occ:  occurrenceAt(t, "meds", day, "07:00", models.StatusFired),
			now:  "10:00",
			want: true,
		},
		{
			name: "early-hours task confirmed once morning opens",
			occ:  occurrenceAt(t, "night-meds", day, "03:00", models.StatusFired),
			now:  "06:00",
			want: true,
		},
		{
			name: "early-hours task still open before morning",
			occ:  occurrenceAt(t, "night-meds", day, "03:00", models.StatusFired),
			now:  "05:00",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tod, _ := time.Parse("15:04", tt.now)
			now := time.Date(2026, 3, 10, tod.Hour(), tod.Minute(), 0, 0, time.UTC)
			if got := c.BlockEndPassed(now, tt.occ); got != tt.want {
				t.Errorf("BlockEndPassed(%s, %s) = %v, want %v", tt.now, tt.occ.TemplateID, got, tt.want)
			}
		})
	}

	// A prior-day occurrence is always past its block.
	old := occurrenceAt(t, "yesterday", day.AddDate(0, 0, -1), "22:00", models.StatusFired)
	now := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	if !c.BlockEndPassed(now, old) {
		t.Error("BlockEndPassed() = false for a prior-day occurrence")
	}
}

func TestDeferExpired(t *testing.T) {
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "daybell.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer store.Close()

	ledger := backlog.New(store)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 11, 0, 5, 0, 0, time.UTC)

	occurrences := []models.Occurrence{
		occurrenceAt(t, "meds", day, "07:00", models.StatusFired),       // expired, unresolved
		occurrenceAt(t, "email", day, "10:15", models.StatusCompleted),  // resolved
		occurrenceAt(t, "today", now, "09:00", models.StatusPending),    // current day
	}

	c := New(timeblock.New())
	ids, err := c.DeferExpired(now, occurrences, ledger)
	if err != nil {
		t.Fatalf("DeferExpired() error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("DeferExpired() deferred %d entries, want 1", len(ids))
	}

	entries, err := ledger.List(false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger holds %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.TemplateID != "meds" {
		t.Errorf("entry.TemplateID = %q, want %q", entry.TemplateID, "meds")
	}
	if entry.OriginalDate != "2026-03-10" {
		t.Errorf("entry.OriginalDate = %q, want %q", entry.OriginalDate, "2026-03-10")
	}
	if entry.Reason != "missed on 2026-03-10" {
		t.Errorf("entry.Reason = %q", entry.Reason)
	}
}
