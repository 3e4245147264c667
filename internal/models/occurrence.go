package models

import (
	"fmt"
	"time"
)

type OccurrenceStatus string

const (
	StatusPending   OccurrenceStatus = "pending"
	StatusFired     OccurrenceStatus = "fired"
	StatusCompleted OccurrenceStatus = "completed"
	StatusSkipped   OccurrenceStatus = "skipped"
	StatusMissed    OccurrenceStatus = "missed"
)

// Occurrence is one concrete scheduled firing of a task template.
// At most one occurrence exists per template per calendar day.
type Occurrence struct {
	ID          string           `json:"id"`
	TemplateID  string           `json:"template_id"`
	Title       string           `json:"title"`
	At          time.Time        `json:"at"` // local wall-clock firing instant
	Priority    int              `json:"priority"`
	DurationMin int              `json:"duration_min"`
	Status      OccurrenceStatus `json:"status"`

	// FinalDurationMin is set by budget redistribution; zero until a
	// redistribution pass has annotated the occurrence.
	FinalDurationMin int `json:"final_duration_min,omitempty"`

	// SnoozeCount tracks how often this occurrence has been snoozed,
	// checked against the settings-level max snooze count.
	SnoozeCount int `json:"snooze_count,omitempty"`
}

// NewOccurrence builds a pending occurrence for a template at the given
// firing instant. The id is stable for a (template, instant) pair so
// re-expansion after a reload does not mint duplicate identities.
func NewOccurrence(tmpl TaskTemplate, at time.Time) Occurrence {
	return Occurrence{
		ID:          fmt.Sprintf("%s@%s", tmpl.ID, at.Format("2006-01-02T15:04")),
		TemplateID:  tmpl.ID,
		Title:       tmpl.Title,
		At:          at,
		Priority:    tmpl.Priority,
		DurationMin: tmpl.DurationMin,
		Status:      StatusPending,
	}
}

// Terminal reports whether the occurrence has reached a final status.
// A missed occurrence may later be redeemed through the backlog, but
// that is a new logical event, not a mutation of this occurrence.
func (o Occurrence) Terminal() bool {
	switch o.Status {
	case StatusCompleted, StatusSkipped, StatusMissed:
		return true
	default:
		return false
	}
}

// Acknowledged reports whether the user resolved the occurrence.
func (o Occurrence) Acknowledged() bool {
	return o.Status == StatusCompleted || o.Status == StatusSkipped
}

// CatchUpBundle is a synthetic, always-urgent grouping of missed
// occurrences within one time block. Bundles are derived wholesale from
// current occurrence statuses and are never persisted across restarts.
type CatchUpBundle struct {
	Block       string    `json:"block"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	MissedIDs   []string  `json:"missed_ids"`
	DurationMin int       `json:"duration_min"`
	Priority    int       `json:"priority"`
}

type ItemKind int

const (
	ItemRegular ItemKind = iota
	ItemCatchUp
)

// ScheduledItem is the tagged union handed to display and dispatch
// code paths: either a regular occurrence or a catch-up bundle.
// Exactly one of Occurrence/Bundle is set, matching Kind.
type ScheduledItem struct {
	Kind       ItemKind
	Occurrence *Occurrence
	Bundle     *CatchUpBundle
}

func RegularItem(o Occurrence) ScheduledItem {
	return ScheduledItem{Kind: ItemRegular, Occurrence: &o}
}

func CatchUpItem(b CatchUpBundle) ScheduledItem {
	return ScheduledItem{Kind: ItemCatchUp, Bundle: &b}
}
