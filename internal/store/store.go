// Package store persists evaluation run history.
package store

import (
	"context"
	"time"

	"github.com/triage-labs/acr-eval/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Encoder      string          `json:"encoder,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for evaluation runs.
type Store interface {
	CreateRun(ctx context.Context, catalogPath, casesPath, encoder string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summaries []model.BatchSummary) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
