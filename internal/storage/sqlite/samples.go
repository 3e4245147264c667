package sqlite

import (
	"fmt"
	"time"

	"github.com/kmorrow/daybell/internal/models"
)

func (s *Store) AddDurationSample(sample models.DurationSample) error {
	_, err := s.db.Exec(`
		INSERT INTO duration_samples (template_id, scheduled_min, actual_min, completed, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`,
		sample.TemplateID, sample.ScheduledMin, sample.ActualMin,
		sample.Completed, sample.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert duration sample: %w", err)
	}
	return nil
}

// GetDurationSamples returns the most recent limit samples, oldest
// first. A non-positive limit returns all samples.
func (s *Store) GetDurationSamples(limit int) ([]models.DurationSample, error) {
	query := `
		SELECT template_id, scheduled_min, actual_min, completed, timestamp
		FROM duration_samples ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query duration samples: %w", err)
	}
	defer rows.Close()

	var samples []models.DurationSample
	for rows.Next() {
		var sample models.DurationSample
		var ts string
		if err := rows.Scan(&sample.TemplateID, &sample.ScheduledMin, &sample.ActualMin, &sample.Completed, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan duration sample: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sample timestamp: %w", err)
		}
		sample.Timestamp = parsed
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}

	return samples, nil
}

// PruneDurationSamples evicts the oldest rows, keeping only the most
// recent keep samples. Returns the number of rows removed.
func (s *Store) PruneDurationSamples(keep int) (int, error) {
	result, err := s.db.Exec(`
		DELETE FROM duration_samples
		WHERE id NOT IN (SELECT id FROM duration_samples ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune duration samples: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned samples: %w", err)
	}
	return int(affected), nil
}
