package repository

import (
	"context"
	"time"

	"shortform-video-orchestrator/internal/domain/model"
)

// JobAggregates is the raw output of CountByStatusAndType: counts plus an
// average wall-clock duration over completed/failed jobs that carry both
// startedAt and completedAt. Jobs missing startedAt are excluded.
type JobAggregates struct {
	Total              int
	ByStatus           map[model.JobStatus]int
	ByType             map[string]int
	AvgDurationSeconds float64
	DurationSamples    int
}

// JobRepository is the persistence contract for general job records. The
// lifecycle manager never bypasses it.
type JobRepository interface {
	// Insert persists a new job. A duplicate id yields domain.ErrAlreadyExists.
	Insert(ctx context.Context, tx Tx, job *model.Job) error
	// FindByID returns domain.ErrNotFound when absent.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	// Update replaces status/progress/result/error/metadata/updatedAt.
	// Absent id yields domain.ErrNotFound.
	Update(ctx context.Context, tx Tx, job *model.Job) error
	// Delete removes the record. Absent id yields domain.ErrNotFound.
	Delete(ctx context.Context, tx Tx, id string) error
	// Search returns jobs newest-created first, narrowed by filter.
	Search(ctx context.Context, tx Tx, f model.JobFilter) ([]*model.Job, error)
	// CountByStatusAndType aggregates the whole table.
	CountByStatusAndType(ctx context.Context, tx Tx) (*JobAggregates, error)
	// ListTerminalCreatedBefore returns terminal jobs older than cutoff.
	ListTerminalCreatedBefore(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Job, error)
	// ListProcessingCreatedBefore returns processing jobs created before
	// cutoff. Keyed on createdAt, not updatedAt: a job that keeps receiving
	// progress webhooks but never finishes must still surface.
	ListProcessingCreatedBefore(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Job, error)
}
