package storage

import (
	"time"

	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/storage/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = sqlite.ErrNotFound

// EventRecord is one row of the append-only event log.
type EventRecord = sqlite.EventRecord

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Backlog
	AddBacklogEntry(models.BacklogEntry) error
	GetBacklogEntry(id string) (models.BacklogEntry, error)
	GetBacklogEntries(includeCompleted bool) ([]models.BacklogEntry, error)
	UpdateBacklogEntry(models.BacklogEntry) error
	RemoveBacklogEntry(id string) error
	// CleanupBacklog removes completed entries whose completed date
	// predates the cutoff and returns the number removed.
	CleanupBacklog(cutoffDate string) (int, error)

	// Duration samples
	AddDurationSample(models.DurationSample) error
	GetDurationSamples(limit int) ([]models.DurationSample, error)
	// PruneDurationSamples keeps only the most recent keep samples.
	PruneDurationSamples(keep int) (int, error)

	// Event log (append-only)
	AppendEvent(eventType, templateID, title, details string) error
	GetRecentEvents(limit int) ([]EventRecord, error)
	CleanupEventsBefore(cutoff time.Time) (int, error)

	// Utils
	GetConfigPath() string
}
