package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kmorrow/daybell/internal/models"
)

func (s *Store) AddBacklogEntry(entry models.BacklogEntry) error {
	var completedDate *string
	if entry.CompletedDate != nil {
		completedDate = entry.CompletedDate
	}

	_, err := s.db.Exec(`
		INSERT INTO backlog_entries (
			id, template_id, title, notes, original_date, backlog_date,
			reason, priority, completed, completed_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.TemplateID, entry.Title, entry.Notes,
		entry.OriginalDate, entry.BacklogDate, entry.Reason, entry.Priority,
		entry.Completed, completedDate, entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert backlog entry: %w", err)
	}

	return nil
}

func (s *Store) GetBacklogEntry(id string) (models.BacklogEntry, error) {
	row := s.db.QueryRow(`
		SELECT id, template_id, title, notes, original_date, backlog_date,
		       reason, priority, completed, completed_date, created_at
		FROM backlog_entries WHERE id = ?
	`, id)

	entry, err := scanBacklogEntry(row)
	if err == sql.ErrNoRows {
		return models.BacklogEntry{}, ErrNotFound
	}
	if err != nil {
		return models.BacklogEntry{}, fmt.Errorf("failed to get backlog entry: %w", err)
	}
	return entry, nil
}

func (s *Store) GetBacklogEntries(includeCompleted bool) ([]models.BacklogEntry, error) {
	query := `
		SELECT id, template_id, title, notes, original_date, backlog_date,
		       reason, priority, completed, completed_date, created_at
		FROM backlog_entries`
	if !includeCompleted {
		query += ` WHERE completed = 0`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query backlog entries: %w", err)
	}
	defer rows.Close()

	var entries []models.BacklogEntry
	for rows.Next() {
		entry, err := scanBacklogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backlog entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *Store) UpdateBacklogEntry(entry models.BacklogEntry) error {
	result, err := s.db.Exec(`
		UPDATE backlog_entries
		SET title = ?, notes = ?, reason = ?, priority = ?,
		    completed = ?, completed_date = ?
		WHERE id = ?
	`,
		entry.Title, entry.Notes, entry.Reason, entry.Priority,
		entry.Completed, entry.CompletedDate, entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update backlog entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) RemoveBacklogEntry(id string) error {
	result, err := s.db.Exec(`DELETE FROM backlog_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove backlog entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) CleanupBacklog(cutoffDate string) (int, error) {
	result, err := s.db.Exec(`
		DELETE FROM backlog_entries
		WHERE completed = 1 AND completed_date IS NOT NULL AND completed_date < ?
	`, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up backlog: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed entries: %w", err)
	}

	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBacklogEntry(row rowScanner) (models.BacklogEntry, error) {
	var entry models.BacklogEntry
	var completedDate sql.NullString
	var createdAtStr string

	err := row.Scan(
		&entry.ID, &entry.TemplateID, &entry.Title, &entry.Notes,
		&entry.OriginalDate, &entry.BacklogDate, &entry.Reason, &entry.Priority,
		&entry.Completed, &completedDate, &createdAtStr,
	)
	if err != nil {
		return models.BacklogEntry{}, err
	}

	if completedDate.Valid {
		entry.CompletedDate = &completedDate.String
	}

	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return models.BacklogEntry{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	entry.CreatedAt = createdAt

	return entry, nil
}
