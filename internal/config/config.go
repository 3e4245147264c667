// Package config loads and validates the YAML schedule file: named
// task categories plus an application settings block. A reload replaces
// the whole template set atomically on the dispatcher side.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/recurrence"
	"github.com/kmorrow/daybell/internal/utils"
)

// ValidationError identifies the record and field that failed during a
// schedule load.
type ValidationError struct {
	Category string
	Index    int
	Field    string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s[%d].%s: %v", e.Category, e.Index, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Schedule is the validated content of a schedule file.
type Schedule struct {
	Templates []models.TaskTemplate
	Settings  models.Settings
}

// Categories are the recognized task sections of the schedule file, in
// the order they are merged.
var Categories = []string{
	"morning_tasks",
	"learning_tasks",
	"exercise_tasks",
	"personal_tasks",
	"evening_tasks",
	"weekly_tasks",
}

type rawTask struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Notes      string `yaml:"notes"`
	Time       string `yaml:"time"`
	Priority   *int   `yaml:"priority"`
	Duration   *int   `yaml:"duration"`
	AudioAlert *bool  `yaml:"audio_alert"`
	Snooze     *int   `yaml:"snooze_duration"`
	RRule      string `yaml:"rrule"`
}

type scheduleFile struct {
	Settings      models.Settings `yaml:"settings"`
	MorningTasks  []rawTask       `yaml:"morning_tasks"`
	LearningTasks []rawTask       `yaml:"learning_tasks"`
	ExerciseTasks []rawTask       `yaml:"exercise_tasks"`
	PersonalTasks []rawTask       `yaml:"personal_tasks"`
	EveningTasks  []rawTask       `yaml:"evening_tasks"`
	WeeklyTasks   []rawTask       `yaml:"weekly_tasks"`
}

func (f *scheduleFile) sections() map[string][]rawTask {
	return map[string][]rawTask{
		"morning_tasks":  f.MorningTasks,
		"learning_tasks": f.LearningTasks,
		"exercise_tasks": f.ExerciseTasks,
		"personal_tasks": f.PersonalTasks,
		"evening_tasks":  f.EveningTasks,
		"weekly_tasks":   f.WeeklyTasks,
	}
}

// Load reads and validates a schedule file. In lenient mode (strict ==
// false), malformed records are skipped with a warning and the rest of
// the schedule loads normally. In strict mode the first malformed
// record rejects the whole load.
func Load(path string, strict bool) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	return Parse(data, strict)
}

// Parse validates raw schedule file content. See Load.
func Parse(data []byte, strict bool) (*Schedule, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schedule file: %w", err)
	}

	sched := &Schedule{
		Settings: validateSettings(file.Settings),
	}

	seen := make(map[string]bool)
	sections := file.sections()
	for _, category := range Categories {
		for i, raw := range sections[category] {
			tmpl, err := buildTemplate(raw, category, i)
			if err == nil && seen[tmpl.ID] {
				err = &ValidationError{Category: category, Index: i, Field: "id",
					Err: fmt.Errorf("duplicate template id %q", tmpl.ID)}
			}
			if err != nil {
				if strict {
					return nil, err
				}
				logger.Warn("Skipping malformed task record", "category", category, "index", i, "error", err)
				continue
			}
			seen[tmpl.ID] = true
			sched.Templates = append(sched.Templates, tmpl)
		}
	}

	return sched, nil
}

func buildTemplate(raw rawTask, category string, index int) (models.TaskTemplate, error) {
	tmpl := models.TaskTemplate{
		ID:          raw.ID,
		Title:       raw.Title,
		Notes:       raw.Notes,
		Time:        raw.Time,
		Priority:    constants.DefaultPriority,
		DurationMin: constants.DefaultDurationMin,
		AudioAlert:  true,
		SnoozeMin:   constants.DefaultSnoozeMin,
		RRule:       raw.RRule,
		Category:    category,
	}

	if raw.Priority != nil {
		tmpl.Priority = *raw.Priority
	}
	if raw.Duration != nil {
		tmpl.DurationMin = *raw.Duration
	}
	if raw.AudioAlert != nil {
		tmpl.AudioAlert = *raw.AudioAlert
	}
	if raw.Snooze != nil {
		tmpl.SnoozeMin = *raw.Snooze
	}

	if tmpl.ID == "" {
		tmpl.ID = deriveID(tmpl)
	}

	if err := tmpl.Validate(); err != nil {
		return models.TaskTemplate{}, wrapFieldError(category, index, err)
	}

	// An unparseable rule is not a load failure: the expander degrades
	// it to DAILY at scheduling time. Surface it early regardless.
	if tmpl.RRule != "" {
		if _, err := recurrence.ParseRule(tmpl.RRule); err != nil {
			logger.Warn("Task has invalid recurrence rule, will fall back to daily",
				"template", tmpl.ID, "rule", tmpl.RRule)
		}
	}

	return tmpl, nil
}

// deriveID generates a stable id from title and time for records that
// omit one, e.g. "Take Medication" at 07:00 becomes take_medication_0700.
func deriveID(tmpl models.TaskTemplate) string {
	title := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tmpl.Title), " ", "_"))
	return fmt.Sprintf("%s_%s", title, strings.ReplaceAll(tmpl.Time, ":", ""))
}

func wrapFieldError(category string, index int, err error) error {
	field := "task"
	msg := err.Error()
	// Longer tokens first: "snooze duration" contains "duration", and
	// "invalid" contains "id".
	switch {
	case strings.Contains(msg, "snooze"):
		field = "snooze_duration"
	case strings.Contains(msg, "duration"):
		field = "duration"
	case strings.Contains(msg, "priority"):
		field = "priority"
	case strings.Contains(msg, "title"):
		field = "title"
	case strings.Contains(msg, "time"):
		field = "time"
	case strings.Contains(msg, "id"):
		field = "id"
	}
	return &ValidationError{Category: category, Index: index, Field: field, Err: err}
}

func validateSettings(s models.Settings) models.Settings {
	if !utils.ValidateTimezone(s.Timezone) {
		logger.Warn("Unknown timezone in settings, using system default", "timezone", s.Timezone)
		s.Timezone = ""
	}
	if s.NotificationDuration < 10 {
		s.NotificationDuration = 60
	}
	if s.MaxSnoozeCount < 1 {
		s.MaxSnoozeCount = 3
	}
	if s.LogRetentionDays < 1 {
		s.LogRetentionDays = constants.BacklogRetentionDays
	}
	return s
}
