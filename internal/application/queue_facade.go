package application

import (
	"context"
	"errors"
	"fmt"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/usecase"
)

// QueueFacade composes the job lifecycle and render gateway usecases into
// the queue-level operations the HTTP layer exposes. The queued render
// record always comes first so a submission failure still leaves an
// audit trail.
type QueueFacade struct {
	JobUC    JobUseCaseIface
	RenderUC RenderUseCaseIface
}

// NewQueueFacade constructs a facade from provided usecases. Either can be
// nil for partial wiring (but methods that use them will return errors).
func NewQueueFacade(jobUC JobUseCaseIface, renderUC RenderUseCaseIface) *QueueFacade {
	return &QueueFacade{JobUC: jobUC, RenderUC: renderUC}
}

// QueueVideoAssembly records the hand-off, submits it to the renderer and
// moves the owning tracking job (when one exists under the same id) into
// processing. A create failure short-circuits before any network call; a
// submit failure keeps the queued record and surfaces the gateway error.
func (q *QueueFacade) QueueVideoAssembly(ctx context.Context, req *model.RenderRequest) (*model.RenderJob, *model.RenderAck, error) {
	if q.RenderUC == nil {
		return nil, nil, fmt.Errorf("render usecase not available")
	}

	rj, err := q.RenderUC.CreateVideoJob(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("record render job: %w", err)
	}

	ack, err := q.RenderUC.Submit(ctx, req)
	if err != nil {
		return rj, nil, fmt.Errorf("submit render job: %w", err)
	}

	// Best-effort: the render queue also serves callers that never created
	// a tracking job, so a missing one is not an error.
	if q.JobUC != nil {
		processing := model.JobStatusProcessing
		if _, err := q.JobUC.UpdateJobStatus(ctx, req.JobID, usecase.UpdateJobInput{Status: &processing}); err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidTransition) {
			return rj, ack, fmt.Errorf("update tracking job: %w", err)
		}
	}

	return rj, ack, nil
}

func (q *QueueFacade) GetJobStatus(ctx context.Context, jobID string) (*model.RenderJob, error) {
	if q.RenderUC == nil {
		return nil, fmt.Errorf("render usecase not available")
	}
	return q.RenderUC.GetVideoJobStatus(ctx, jobID)
}

// CancelJob settles the render record and cancels the owning tracking job
// when it is still active. A terminal render record is rejected untouched.
func (q *QueueFacade) CancelJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	if q.RenderUC == nil {
		return nil, fmt.Errorf("render usecase not available")
	}
	rj, err := q.RenderUC.CancelVideoJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if q.JobUC != nil {
		if _, err := q.JobUC.CancelJob(ctx, jobID); err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidTransition) {
			return rj, fmt.Errorf("cancel tracking job: %w", err)
		}
	}
	return rj, nil
}

func (q *QueueFacade) GetJobHistory(ctx context.Context, limit, offset int) ([]*model.RenderJob, error) {
	if q.RenderUC == nil {
		return nil, fmt.Errorf("render usecase not available")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return q.RenderUC.ListVideoJobs(ctx, limit, offset)
}

func (q *QueueFacade) GetQueueStats(ctx context.Context) (*model.QueueStats, error) {
	if q.RenderUC == nil {
		return nil, fmt.Errorf("render usecase not available")
	}
	return q.RenderUC.GetQueueStats(ctx)
}
