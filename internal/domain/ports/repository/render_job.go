package repository

import (
	"context"

	"shortform-video-orchestrator/internal/domain/model"
)

// RenderJobRepository stores the gateway's bookkeeping records, keyed by
// the external job id.
type RenderJobRepository interface {
	// Insert persists a new record. Duplicate id yields domain.ErrAlreadyExists.
	Insert(ctx context.Context, tx Tx, job *model.RenderJob) error
	// FindByID returns domain.ErrNotFound when absent.
	FindByID(ctx context.Context, tx Tx, jobID string) (*model.RenderJob, error)
	// Update replaces the mutable fields. Absent id yields domain.ErrNotFound.
	Update(ctx context.Context, tx Tx, job *model.RenderJob) error
	// MarkTerminalIfActive atomically applies a terminal status, output,
	// metadata/error and completedAt only when the current status is still
	// non-terminal. Returns false without error when the record was already
	// terminal, which makes webhook re-delivery a no-op.
	MarkTerminalIfActive(ctx context.Context, tx Tx, job *model.RenderJob) (bool, error)
	// List returns records newest first.
	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.RenderJob, error)
	// CountByStatus tallies all records per status.
	CountByStatus(ctx context.Context, tx Tx) (*model.QueueStats, error)
}
