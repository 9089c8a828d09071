package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/adapter"
	"shortform-video-orchestrator/internal/domain/ports/repository"
	"shortform-video-orchestrator/internal/infra/metrics"
)

// Compile-time check
var _ RenderUseCase = (*renderUC)(nil)

// RenderUseCase owns the gateway-side bookkeeping for hand-offs to the
// remote renderer: one RenderJob record per external job id, updated by
// signed webhooks until it reaches a terminal status.
type RenderUseCase interface {
	// CreateVideoJob records the hand-off locally with status queued. It
	// does not contact the renderer.
	CreateVideoJob(ctx context.Context, req *model.RenderRequest) (*model.RenderJob, error)
	// Submit sends the request to the renderer (bounded retry inside the
	// adapter) and returns its acknowledgement.
	Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error)
	GetVideoJobStatus(ctx context.Context, jobID string) (*model.RenderJob, error)
	// CancelVideoJob settles an active record as cancelled. A record that
	// already reached a terminal status is rejected with
	// ErrInvalidTransition and left untouched.
	CancelVideoJob(ctx context.Context, jobID string) (*model.RenderJob, error)
	ListVideoJobs(ctx context.Context, limit, offset int) ([]*model.RenderJob, error)
	GetQueueStats(ctx context.Context) (*model.QueueStats, error)
	// HandleProgressUpdate maps a progress webhook onto the record. A
	// record already terminal is left untouched: cancellation wins over
	// late progress.
	HandleProgressUpdate(ctx context.Context, p *model.RenderProgress) (*model.RenderJob, error)
	// HandleCompletion applies a terminal webhook. The returned bool is
	// false when the record was already terminal and nothing changed, so
	// re-delivered webhooks are acknowledged without side effects.
	HandleCompletion(ctx context.Context, c *model.RenderCompletion) (*model.RenderJob, bool, error)
	// VerifySignature delegates to the renderer adapter's shared-secret check.
	VerifySignature(body []byte, signature string) (bool, error)
}

type renderUC struct {
	renderJobs repository.RenderJobRepository
	renderer   adapter.RemoteRenderer
	now        func() time.Time
	log        *zerolog.Logger
}

func NewRenderUseCase(renderJobs repository.RenderJobRepository, renderer adapter.RemoteRenderer, logger *zerolog.Logger) *renderUC {
	return &renderUC{renderJobs: renderJobs, renderer: renderer, now: time.Now, log: logger}
}

func (u *renderUC) CreateVideoJob(ctx context.Context, req *model.RenderRequest) (*model.RenderJob, error) {
	if req == nil || req.JobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := u.now()
	rj := &model.RenderJob{
		JobID:     req.JobID,
		Status:    model.RenderJobStatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.renderJobs.Insert(ctx, nil, rj); err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", rj.JobID).Msg("render job recorded")
	return rj, nil
}

func (u *renderUC) Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error) {
	start := u.now()
	ack, err := u.renderer.Submit(ctx, req)
	metrics.ObserveRenderSubmit(time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", req.JobID).Str("remote_id", ack.RemoteID).Msg("render job submitted")
	return ack, nil
}

func (u *renderUC) GetVideoJobStatus(ctx context.Context, jobID string) (*model.RenderJob, error) {
	return u.renderJobs.FindByID(ctx, nil, jobID)
}

func (u *renderUC) CancelVideoJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	rj, err := u.renderJobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if rj.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}

	now := u.now()
	rj.Status = model.RenderJobStatusCancelled
	rj.UpdatedAt = now
	rj.CompletedAt = &now

	applied, err := u.renderJobs.MarkTerminalIfActive(ctx, nil, rj)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race to a completion webhook.
		return nil, domain.ErrInvalidTransition
	}
	metrics.IncRenderJobFinished(string(model.RenderJobStatusCancelled))
	u.log.Info().Str("job_id", jobID).Msg("render job cancelled")
	return rj, nil
}

func (u *renderUC) ListVideoJobs(ctx context.Context, limit, offset int) ([]*model.RenderJob, error) {
	return u.renderJobs.List(ctx, nil, limit, offset)
}

func (u *renderUC) GetQueueStats(ctx context.Context) (*model.QueueStats, error) {
	stats, err := u.renderJobs.CountByStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	metrics.SetQueueDepth(string(model.RenderJobStatusQueued), stats.Queued)
	metrics.SetQueueDepth(string(model.RenderJobStatusProcessing), stats.Processing)
	metrics.SetQueueDepth(string(model.RenderJobStatusCompleted), stats.Completed)
	metrics.SetQueueDepth(string(model.RenderJobStatusFailed), stats.Failed)
	metrics.SetQueueDepth(string(model.RenderJobStatusCancelled), stats.Cancelled)
	return stats, nil
}

func (u *renderUC) HandleProgressUpdate(ctx context.Context, p *model.RenderProgress) (*model.RenderJob, error) {
	if p == nil || p.JobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	rj, err := u.renderJobs.FindByID(ctx, nil, p.JobID)
	if err != nil {
		return nil, err
	}
	if rj.Status.IsTerminal() {
		return rj, nil
	}

	rj.Status = model.RenderJobStatusProcessing
	rj.Progress = scaleProgress(p.Progress)
	rj.CurrentStage = p.Stage
	rj.ProgressMessage = p.Message
	if rj.ProgressMessage == "" && p.TotalScenes > 0 {
		rj.ProgressMessage = fmt.Sprintf("scene %d of %d", p.CurrentScene, p.TotalScenes)
	}
	rj.UpdatedAt = u.now()

	if err := u.renderJobs.Update(ctx, nil, rj); err != nil {
		return nil, err
	}
	return rj, nil
}

func (u *renderUC) HandleCompletion(ctx context.Context, c *model.RenderCompletion) (*model.RenderJob, bool, error) {
	if c == nil || c.JobID == "" {
		return nil, false, domain.ErrInvalidArgument
	}
	var status model.RenderJobStatus
	switch c.Status {
	case "completed":
		status = model.RenderJobStatusCompleted
	case "failed":
		status = model.RenderJobStatusFailed
	default:
		return nil, false, domain.ErrInvalidArgument
	}

	now := u.now()
	terminal := &model.RenderJob{
		JobID:       c.JobID,
		Status:      status,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if status == model.RenderJobStatusCompleted {
		terminal.Progress = 100
		terminal.OutputURL = c.OutputURL
		terminal.Metadata = c.Metadata
	} else {
		errMsg := c.Error
		if errMsg == "" {
			errMsg = "render failed"
		}
		terminal.Error = &errMsg
	}

	applied, err := u.renderJobs.MarkTerminalIfActive(ctx, nil, terminal)
	if err != nil {
		return nil, false, err
	}
	// Read back the stored record: when the completion was a re-delivery
	// (or lost to cancellation) the caller still gets the settled state.
	rj, err := u.renderJobs.FindByID(ctx, nil, c.JobID)
	if err != nil {
		return nil, false, err
	}
	if applied {
		metrics.IncRenderJobFinished(string(status))
		u.log.Info().Str("job_id", c.JobID).Str("status", string(status)).Msg("render job finished")
	} else {
		u.log.Debug().Str("job_id", c.JobID).Str("status", string(rj.Status)).Msg("completion ignored: record already terminal")
	}
	return rj, applied, nil
}

func (u *renderUC) VerifySignature(body []byte, signature string) (bool, error) {
	return u.renderer.VerifySignature(body, signature)
}

// scaleProgress maps the renderer's native [0,1] fraction onto [0,100].
// Values above 1 are taken as percentages already.
func scaleProgress(p float64) int {
	if p <= 1.0 {
		p = p * 100
	}
	return clampProgress(int(math.Round(p)))
}
