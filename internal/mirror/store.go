// Package mirror is the local durable tier: a cache-first, non-validating
// mirror of the remote system of record. Reads are trusted when present and
// fresh; writes are synchronous and last-writer-wins. Staleness against the
// backend is accepted.
package mirror

import (
	"github.com/placebolab/coach/internal/models"
)

// Store mirrors the three remote aggregates plus locally-created assessments.
// Rows older than the retention window are treated as absent on load.
type Store interface {
	SavePractices([]models.Practice) error
	LoadPractices() ([]models.Practice, error)

	SaveSlots([]models.Slot) error
	LoadSlots() ([]models.Slot, error)

	SaveHistory([]models.HistoryEntry) error
	LoadHistory() ([]models.HistoryEntry, error)

	SaveAssessments([]models.Assessment) error
	LoadAssessments() ([]models.Assessment, error)

	// Clear drops every mirrored row. Used by logout-with-wipe ("delete all
	// data"), never by plain logout.
	Clear() error
	Close() error
}
