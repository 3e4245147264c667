package validation

import (
	"fmt"
	"sort"

	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/recurrence"
	"github.com/kmorrow/daybell/internal/timeblock"
	"github.com/kmorrow/daybell/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateTemplateID ConflictType = "duplicate_template_id"
	ConflictDuplicateTitle      ConflictType = "duplicate_title"
	ConflictInvalidTime         ConflictType = "invalid_time"
	ConflictInvalidPriority     ConflictType = "invalid_priority"
	ConflictInvalidDuration     ConflictType = "invalid_duration"
	ConflictInvalidRecurrence   ConflictType = "invalid_recurrence"
	ConflictSameSlot            ConflictType = "same_slot"
	ConflictOvercommittedBlock  ConflictType = "overcommitted_block"
)

// Conflict represents a detected conflict in a template set
type Conflict struct {
	Type        ConflictType
	Description string
	Items       []string // Template titles involved
	TemplateIDs []string // IDs of templates involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	report := "Conflicts detected:\n"
	for _, conflict := range vr.Conflicts {
		report += fmt.Sprintf("- %s\n", conflict.Description)
	}
	return report
}

// Validator validates task template sets for conflicts
type Validator struct {
	blocks *timeblock.Index
}

// New creates a new Validator
func New(blocks *timeblock.Index) *Validator {
	return &Validator{blocks: blocks}
}

// ValidateTemplates checks a template set for conflicts: duplicate ids
// and titles, out-of-range fields, unparseable recurrence rules, two
// templates sharing an exact slot, and time blocks whose scheduled load
// exceeds their span.
func (v *Validator) ValidateTemplates(templates []models.TaskTemplate) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	// Duplicate ids
	idCount := make(map[string][]string)
	for _, tmpl := range templates {
		if tmpl.ID == "" {
			continue
		}
		idCount[tmpl.ID] = append(idCount[tmpl.ID], tmpl.Title)
	}
	for _, id := range sortedKeys(idCount) {
		titles := idCount[id]
		if len(titles) > 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateTemplateID,
				Description: fmt.Sprintf("Duplicate template id: \"%s\" (titles: %v)", id, titles),
				Items:       titles,
				TemplateIDs: []string{id},
			})
		}
	}

	// Duplicate titles
	titleCount := make(map[string][]string)
	for _, tmpl := range templates {
		if tmpl.Title == "" {
			continue
		}
		titleCount[tmpl.Title] = append(titleCount[tmpl.Title], tmpl.ID)
	}
	for _, title := range sortedKeys(titleCount) {
		ids := titleCount[title]
		if len(ids) > 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateTitle,
				Description: fmt.Sprintf("Duplicate task title: \"%s\" (ids: %v)", title, ids),
				Items:       []string{title},
				TemplateIDs: ids,
			})
		}
	}

	// Per-template field checks
	for _, tmpl := range templates {
		if !utils.ValidateTimeFormat(tmpl.Time) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidTime,
				Description: fmt.Sprintf("Task \"%s\" has invalid time: %s", tmpl.Title, tmpl.Time),
				Items:       []string{tmpl.Title},
				TemplateIDs: []string{tmpl.ID},
			})
		}
		if tmpl.Priority < 1 || tmpl.Priority > 5 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidPriority,
				Description: fmt.Sprintf("Task \"%s\" has priority %d outside 1-5", tmpl.Title, tmpl.Priority),
				Items:       []string{tmpl.Title},
				TemplateIDs: []string{tmpl.ID},
			})
		}
		if tmpl.DurationMin <= 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDuration,
				Description: fmt.Sprintf("Task \"%s\" has non-positive duration: %d", tmpl.Title, tmpl.DurationMin),
				Items:       []string{tmpl.Title},
				TemplateIDs: []string{tmpl.ID},
			})
		}
		if tmpl.RRule != "" {
			if _, err := recurrence.ParseRule(tmpl.RRule); err != nil {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictInvalidRecurrence,
					Description: fmt.Sprintf("Task \"%s\" has unparseable recurrence %q (will degrade to daily)", tmpl.Title, tmpl.RRule),
					Items:       []string{tmpl.Title},
					TemplateIDs: []string{tmpl.ID},
				})
			}
		}
	}

	// Exact slot collisions: two templates at the same wall-clock time
	// whose recurrence patterns can coincide on a day.
	// O(n²) - fine for a personal schedule's template count.
	valid := make([]models.TaskTemplate, 0, len(templates))
	for _, tmpl := range templates {
		if utils.ValidateTimeFormat(tmpl.Time) {
			valid = append(valid, tmpl)
		}
	}
	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Time != valid[j].Time {
			return valid[i].Time < valid[j].Time
		}
		return valid[i].ID < valid[j].ID
	})
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			t1 := valid[i]
			t2 := valid[j]
			if t1.Time != t2.Time {
				break
			}
			if recurrenceOverlaps(t1, t2) {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type: ConflictSameSlot,
					Description: fmt.Sprintf("Tasks share the %s slot: \"%s\" and \"%s\"",
						t1.Time, t1.Title, t2.Title),
					Items:       []string{t1.Title, t2.Title},
					TemplateIDs: []string{t1.ID, t2.ID},
				})
			}
		}
	}

	// Block load: sum of daily-capable durations per time block against
	// the block's span.
	if v.blocks != nil {
		loadByBlock := make(map[timeblock.BlockName]int)
		for _, tmpl := range valid {
			min, err := utils.ParseTimeToMinutes(tmpl.Time)
			if err != nil {
				continue
			}
			block := v.blocks.BlockFor(min)
			loadByBlock[block] += tmpl.DurationMin
		}
		for _, b := range v.blocks.Blocks() {
			span := b.End - b.Start
			if load := loadByBlock[b.Name]; load > span {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type: ConflictOvercommittedBlock,
					Description: fmt.Sprintf("%s block overcommitted: %d min scheduled in a %d min block",
						b.Name.DisplayName(), load, span),
				})
			}
		}
	}

	return result
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// recurrenceOverlaps reports whether two templates' recurrence patterns
// can coincide on the same calendar day.
func recurrenceOverlaps(t1, t2 models.TaskTemplate) bool {
	r1, err1 := recurrence.ParseRule(t1.RRule)
	r2, err2 := recurrence.ParseRule(t2.RRule)
	// Unparseable rules degrade to daily at scheduling time, so treat
	// them as daily here too.
	if err1 != nil {
		r1 = models.Recurrence{Freq: models.FreqDaily}
	}
	if err2 != nil {
		r2 = models.Recurrence{Freq: models.FreqDaily}
	}
	// Non-recurring templates fire on their next eligible day, which can
	// be any day; assume overlap.
	if t1.RRule == "" || t2.RRule == "" {
		return true
	}

	if r1.Freq == models.FreqWeekly && r2.Freq == models.FreqWeekly {
		// An empty BYDAY falls back to a single weekday at expansion
		// time; be conservative and assume overlap.
		if len(r1.ByWeekdays) == 0 || len(r2.ByWeekdays) == 0 {
			return true
		}
		for _, d1 := range r1.ByWeekdays {
			for _, d2 := range r2.ByWeekdays {
				if d1 == d2 {
					return true
				}
			}
		}
		return false
	}

	if r1.Freq == models.FreqMonthly && r2.Freq == models.FreqMonthly &&
		r1.ByMonthDay > 0 && r2.ByMonthDay > 0 {
		return r1.ByMonthDay == r2.ByMonthDay
	}

	// Daily, yearly, and mixed-frequency pairs: assume overlap.
	return true
}
