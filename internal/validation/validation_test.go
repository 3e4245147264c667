package validation

import (
	"strings"
	"testing"

	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/timeblock"
)

func tmpl(id, title, at, rrule string, priority, duration int) models.TaskTemplate {
	return models.TaskTemplate{
		ID:          id,
		Title:       title,
		Time:        at,
		Priority:    priority,
		DurationMin: duration,
		RRule:       rrule,
	}
}

func conflictTypes(result ValidationResult) map[ConflictType]int {
	counts := make(map[ConflictType]int)
	for _, c := range result.Conflicts {
		counts[c.Type]++
	}
	return counts
}

func TestValidateTemplatesClean(t *testing.T) {
	v := New(timeblock.New())
	result := v.ValidateTemplates([]models.TaskTemplate{
		tmpl("meds", "Morning medication", "07:00", "FREQ=DAILY", 1, 5),
		tmpl("gym", "Workout", "18:00", "FREQ=WEEKLY;BYDAY=MO,WE", 3, 45),
	})

	if result.HasConflicts() {
		t.Errorf("ValidateTemplates() = %v, want no conflicts", result.Conflicts)
	}
	if got := result.FormatReport(); got != "No conflicts detected." {
		t.Errorf("FormatReport() = %q", got)
	}
}

func TestValidateTemplatesDuplicates(t *testing.T) {
	v := New(timeblock.New())
	result := v.ValidateTemplates([]models.TaskTemplate{
		tmpl("meds", "Morning medication", "07:00", "FREQ=DAILY", 1, 5),
		tmpl("meds", "Other task", "09:00", "FREQ=DAILY", 2, 10),
		tmpl("walk1", "Walk", "12:00", "FREQ=DAILY", 3, 20),
		tmpl("walk2", "Walk", "19:00", "FREQ=DAILY", 3, 20),
	})

	counts := conflictTypes(result)
	if counts[ConflictDuplicateTemplateID] != 1 {
		t.Errorf("duplicate id conflicts = %d, want 1", counts[ConflictDuplicateTemplateID])
	}
	if counts[ConflictDuplicateTitle] != 1 {
		t.Errorf("duplicate title conflicts = %d, want 1", counts[ConflictDuplicateTitle])
	}
}

func TestValidateTemplatesFieldChecks(t *testing.T) {
	v := New(timeblock.New())
	result := v.ValidateTemplates([]models.TaskTemplate{
		tmpl("a", "Bad time", "25:99", "", 3, 10),
		tmpl("b", "Bad priority", "09:00", "", 7, 10),
		tmpl("c", "Bad duration", "10:00", "", 3, 0),
		tmpl("d", "Bad rule", "11:00", "FREQ=SOMETIMES", 3, 10),
	})

	counts := conflictTypes(result)
	if counts[ConflictInvalidTime] != 1 {
		t.Errorf("invalid time conflicts = %d, want 1", counts[ConflictInvalidTime])
	}
	if counts[ConflictInvalidPriority] != 1 {
		t.Errorf("invalid priority conflicts = %d, want 1", counts[ConflictInvalidPriority])
	}
	if counts[ConflictInvalidDuration] != 1 {
		t.Errorf("invalid duration conflicts = %d, want 1", counts[ConflictInvalidDuration])
	}
	if counts[ConflictInvalidRecurrence] != 1 {
		t.Errorf("invalid recurrence conflicts = %d, want 1", counts[ConflictInvalidRecurrence])
	}
}

func TestValidateTemplatesSameSlot(t *testing.T) {
	v := New(timeblock.New())

	// Same wall-clock time, recurrences coincide daily.
	result := v.ValidateTemplates([]models.TaskTemplate{
		tmpl("a", "First", "09:00", "FREQ=DAILY", 2, 10),
		tmpl("b", "Second", "09:00", "FREQ=DAILY", 3, 10),
	})
	if conflictTypes(result)[ConflictSameSlot] != 1 {
		t.Errorf("expected a same-slot conflict, got %v", result.Conflicts)
	}

	// Same time but disjoint weekdays never coincide.
	result = v.ValidateTemplates([]models.TaskTemplate{
		tmpl("a", "Mondays", "09:00", "FREQ=WEEKLY;BYDAY=MO", 2, 10),
		tmpl("b", "Tuesdays", "09:00", "FREQ=WEEKLY;BYDAY=TU", 3, 10),
	})
	if conflictTypes(result)[ConflictSameSlot] != 0 {
		t.Errorf("disjoint weekdays flagged as conflict: %v", result.Conflicts)
	}

	// Shared weekday does coincide.
	result = v.ValidateTemplates([]models.TaskTemplate{
		tmpl("a", "MonWed", "09:00", "FREQ=WEEKLY;BYDAY=MO,WE", 2, 10),
		tmpl("b", "WedFri", "09:00", "FREQ=WEEKLY;BYDAY=WE,FR", 3, 10),
	})
	if conflictTypes(result)[ConflictSameSlot] != 1 {
		t.Errorf("shared weekday not flagged: %v", result.Conflicts)
	}

	// Different monthly days never coincide.
	result = v.ValidateTemplates([]models.TaskTemplate{
		tmpl("a", "First of month", "09:00", "FREQ=MONTHLY;BYMONTHDAY=1", 2, 10),
		tmpl("b", "Mid month", "09:00", "FREQ=MONTHLY;BYMONTHDAY=15", 3, 10),
	})
	if conflictTypes(result)[ConflictSameSlot] != 0 {
		t.Errorf("different month days flagged as conflict: %v", result.Conflicts)
	}
}

func TestValidateTemplatesOvercommittedBlock(t *testing.T) {
	v := New(timeblock.New())

	// Mid-morning spans 120 minutes; schedule 150 into it.
	result := v.ValidateTemplates([]models.TaskTemplate{
		tmpl("a", "Deep work", "10:00", "FREQ=DAILY", 2, 90),
		tmpl("b", "Email", "11:00", "FREQ=DAILY", 3, 60),
	})

	counts := conflictTypes(result)
	if counts[ConflictOvercommittedBlock] != 1 {
		t.Fatalf("overcommitted block conflicts = %d, want 1", counts[ConflictOvercommittedBlock])
	}
	for _, c := range result.Conflicts {
		if c.Type == ConflictOvercommittedBlock && !strings.Contains(c.Description, "Mid-Morning") {
			t.Errorf("conflict description = %q, want Mid-Morning block named", c.Description)
		}
	}
}
