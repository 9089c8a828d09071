package application

import (
	"context"

	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/usecase"
)

// ---- small interfaces to decouple the facade from concrete usecase structs ----
// These describe the minimal surface that the facade needs. Using interfaces
// enables tests to pass in light-weight mocks.
type JobUseCaseIface interface {
	CreateJob(ctx context.Context, in usecase.CreateJobInput) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, in usecase.UpdateJobInput) (*model.Job, error)
	CancelJob(ctx context.Context, jobID string) (*model.Job, error)
}

type RenderUseCaseIface interface {
	CreateVideoJob(ctx context.Context, req *model.RenderRequest) (*model.RenderJob, error)
	Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error)
	GetVideoJobStatus(ctx context.Context, jobID string) (*model.RenderJob, error)
	CancelVideoJob(ctx context.Context, jobID string) (*model.RenderJob, error)
	ListVideoJobs(ctx context.Context, limit, offset int) ([]*model.RenderJob, error)
	GetQueueStats(ctx context.Context) (*model.QueueStats, error)
}
