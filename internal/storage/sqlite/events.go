package sqlite

import (
	"fmt"
	"time"
)

// EventRecord is one append-only event log row. The log is an opaque
// sink for the rest of the system; only debug surfaces read it back.
type EventRecord struct {
	ID         int64
	EventType  string
	TemplateID string
	TaskTitle  string
	Details    string
	CreatedAt  time.Time
}

func (s *Store) AppendEvent(eventType, templateID, title, details string) error {
	_, err := s.db.Exec(`
		INSERT INTO events (event_type, template_id, task_title, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, eventType, templateID, title, details, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *Store) GetRecentEvents(limit int) ([]EventRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, event_type, template_id, task_title, details, created_at
		FROM events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.TemplateID, &rec.TaskTitle, &rec.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp: %w", err)
		}
		rec.CreatedAt = parsed
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CleanupEventsBefore removes log rows older than the cutoff, enforcing
// the settings-level retention window.
func (s *Store) CleanupEventsBefore(cutoff time.Time) (int, error) {
	result, err := s.db.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed events: %w", err)
	}
	return int(affected), nil
}
