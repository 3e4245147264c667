package models

import "time"

// BacklogEntry is the durable record of a task deferred past its
// catch-up window. Entries are mutated only by redeeming or removal.
type BacklogEntry struct {
	ID            string     `json:"id"`
	TemplateID    string     `json:"template_id"`
	Title         string     `json:"title"`
	Notes         string     `json:"notes,omitempty"`
	OriginalDate  string     `json:"original_date"` // YYYY-MM-DD
	BacklogDate   string     `json:"backlog_date"`  // YYYY-MM-DD
	Reason        string     `json:"reason"`
	Priority      int        `json:"priority"`
	Completed     bool       `json:"completed"`
	CompletedDate *string    `json:"completed_date,omitempty"` // YYYY-MM-DD
	CreatedAt     time.Time  `json:"created_at"`
}

// BacklogStats summarizes the ledger for reporting surfaces.
type BacklogStats struct {
	Total          int         `json:"total"`
	Completed      int         `json:"completed"`
	Pending        int         `json:"pending"`
	CompletionRate float64     `json:"completion_rate"` // percent
	ByPriority     map[int]int `json:"by_priority"`
	AgeRecent      int         `json:"age_recent"`    // <= 3 days
	AgeWeekOld     int         `json:"age_week_old"`  // 4-7 days
	AgeMonthOld    int         `json:"age_month_old"` // 8-30 days
	AgeOlder       int         `json:"age_older"`
}
