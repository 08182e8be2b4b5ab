package storage

import (
	"context"
	"errors"
	"time"

	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

// ErrRunNotFound is returned when a run identifier is unknown to the store.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID         string
	Query         string
	NextIndex     int
	TotalSections int
	UpdatedAt     time.Time
}

// RunStore persists generation state between pipeline runs so interrupted
// reports can resume from their last completed section.
type RunStore interface {
	// Save upserts the full state of a run.
	Save(ctx context.Context, state *report.GenerationState) error

	// Load retrieves a run's state. Returns ErrRunNotFound for unknown IDs.
	Load(ctx context.Context, runID string) (*report.GenerationState, error)

	// List returns the stored runs, most recently updated first.
	List(ctx context.Context) ([]RunSummary, error)

	// Delete removes a finished or abandoned run.
	Delete(ctx context.Context, runID string) error

	Close() error
}
