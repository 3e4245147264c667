// Package backlog is the durable ledger of tasks deferred past their
// catch-up window. Entries survive restarts and day boundaries and are
// resolved by redeeming or removal.
package backlog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/storage"
)

// ErrNotFound is returned when an entry id is unknown.
var ErrNotFound = storage.ErrNotFound

type Ledger struct {
	mu    sync.Mutex
	store storage.Provider
	nowFn func() time.Time
}

func New(store storage.Provider) *Ledger {
	return &Ledger{
		store: store,
		nowFn: time.Now,
	}
}

// SetNowFunc overrides the clock for testing.
func (l *Ledger) SetNowFunc(fn func() time.Time) {
	l.nowFn = fn
}

// Defer records an unresolved occurrence in the ledger and returns the
// new entry id.
func (l *Ledger) Defer(templateID, title, notes, reason, originalDate string, priority int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	entry := models.BacklogEntry{
		ID:           uuid.New().String(),
		TemplateID:   templateID,
		Title:        title,
		Notes:        notes,
		OriginalDate: originalDate,
		BacklogDate:  now.Format(constants.DateFormat),
		Reason:       reason,
		Priority:     priority,
		Completed:    false,
		CreatedAt:    now,
	}

	if entry.OriginalDate == "" {
		entry.OriginalDate = entry.BacklogDate
	}

	if err := l.store.AddBacklogEntry(entry); err != nil {
		return "", fmt.Errorf("failed to defer task %q: %w", title, err)
	}

	logger.Info("Task deferred to backlog", "template", templateID, "title", title, "reason", reason)
	return entry.ID, nil
}

// List returns entries ordered oldest first (original date ascending,
// entry id as the stable tie break).
func (l *Ledger) List(includeCompleted bool) ([]models.BacklogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.GetBacklogEntries(includeCompleted)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].OriginalDate != entries[j].OriginalDate {
			return entries[i].OriginalDate < entries[j].OriginalDate
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// ListByPriority returns entries ordered highest priority first, oldest
// first within a priority, entry id as the stable tie break.
func (l *Ledger) ListByPriority(includeCompleted bool) ([]models.BacklogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.GetBacklogEntries(includeCompleted)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		if entries[i].OriginalDate != entries[j].OriginalDate {
			return entries[i].OriginalDate < entries[j].OriginalDate
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Oldest returns up to limit pending entries, oldest first.
func (l *Ledger) Oldest(limit int) ([]models.BacklogEntry, error) {
	entries, err := l.List(false)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// HighPriority returns up to limit pending entries with priority <= 2,
// highest priority first.
func (l *Ledger) HighPriority(limit int) ([]models.BacklogEntry, error) {
	entries, err := l.ListByPriority(false)
	if err != nil {
		return nil, err
	}

	var filtered []models.BacklogEntry
	for _, entry := range entries {
		if entry.Priority <= 2 {
			filtered = append(filtered, entry)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// Redeem marks an entry completed. Redeeming an already-completed entry
// is a no-op success and does not touch its completion date.
func (l *Ledger) Redeem(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.store.GetBacklogEntry(id)
	if err != nil {
		return err
	}

	if entry.Completed {
		return nil
	}

	completedDate := l.nowFn().Format(constants.DateFormat)
	entry.Completed = true
	entry.CompletedDate = &completedDate

	if err := l.store.UpdateBacklogEntry(entry); err != nil {
		return fmt.Errorf("failed to redeem backlog entry: %w", err)
	}

	logger.Info("Backlog entry redeemed", "id", id, "title", entry.Title)
	return nil
}

// Remove deletes an entry from the ledger.
func (l *Ledger) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.RemoveBacklogEntry(id)
}

// CleanupOlderThan removes completed entries whose completion date
// predates the cutoff and returns the count removed.
func (l *Ledger) CleanupOlderThan(days int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.nowFn().AddDate(0, 0, -days).Format(constants.DateFormat)
	removed, err := l.store.CleanupBacklog(cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Info("Cleaned up old completed backlog entries", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// Stats summarizes the ledger for reporting surfaces.
func (l *Ledger) Stats() (models.BacklogStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.GetBacklogEntries(true)
	if err != nil {
		return models.BacklogStats{}, err
	}

	stats := models.BacklogStats{
		Total:      len(entries),
		ByPriority: make(map[int]int),
	}

	today := l.nowFn()
	for _, entry := range entries {
		stats.ByPriority[entry.Priority]++
		if entry.Completed {
			stats.Completed++
			continue
		}
		stats.Pending++

		originalDate, err := time.ParseInLocation(constants.DateFormat, entry.OriginalDate, today.Location())
		if err != nil {
			stats.AgeOlder++
			continue
		}
		daysOld := int(today.Sub(originalDate).Hours() / 24)
		switch {
		case daysOld <= 3:
			stats.AgeRecent++
		case daysOld <= 7:
			stats.AgeWeekOld++
		case daysOld <= 30:
			stats.AgeMonthOld++
		default:
			stats.AgeOlder++
		}
	}

	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return stats, nil
}
