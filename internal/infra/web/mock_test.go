//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"shortform-video-orchestrator/internal/application"
	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/usecase"

	"github.com/rs/zerolog"
)

const testSignature = "valid-signature"

type mockJobUC struct {
	jobs map[string]*model.Job

	UpdateJobStatusFunc func(ctx context.Context, jobID string, in usecase.UpdateJobInput) (*model.Job, error)
	CleanupFunc         func(ctx context.Context, olderThanDays int) (int, error)
}

var _ usecase.JobUseCase = (*mockJobUC)(nil)

func newMockJobUC() *mockJobUC {
	return &mockJobUC{jobs: map[string]*model.Job{}}
}

func (m *mockJobUC) CreateJob(ctx context.Context, in usecase.CreateJobInput) (*model.Job, error) {
	if in.Type == "" {
		return nil, domain.ErrInvalidArgument
	}
	job := &model.Job{
		ID:        "job-" + in.Type,
		Type:      in.Type,
		Status:    model.JobStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *mockJobUC) UpdateJobStatus(ctx context.Context, jobID string, in usecase.UpdateJobInput) (*model.Job, error) {
	if m.UpdateJobStatusFunc != nil {
		return m.UpdateJobStatusFunc(ctx, jobID, in)
	}
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if in.Status != nil {
		if job.Status.IsTerminal() {
			return nil, domain.ErrInvalidTransition
		}
		job.Status = *in.Status
	}
	if in.Progress != nil {
		job.Progress = *in.Progress
	}
	return job, nil
}

func (m *mockJobUC) GetJobProgress(ctx context.Context, jobID string) (*model.Job, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *mockJobUC) CancelJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}
	job.Status = model.JobStatusCancelled
	return job, nil
}

func (m *mockJobUC) DeleteJob(ctx context.Context, jobID string) (bool, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !job.Status.IsTerminal() {
		return false, domain.ErrInvalidTransition
	}
	delete(m.jobs, jobID)
	return true, nil
}

func (m *mockJobUC) SearchJobs(ctx context.Context, f model.JobFilter) ([]*model.Job, error) {
	var out []*model.Job
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *mockJobUC) GetJobStatistics(ctx context.Context) (*model.JobStatistics, error) {
	return &model.JobStatistics{
		Total:    len(m.jobs),
		ByStatus: map[model.JobStatus]int{},
		ByType:   map[string]int{},
	}, nil
}

func (m *mockJobUC) CleanupOldJobs(ctx context.Context, olderThanDays int) (int, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, olderThanDays)
	}
	return 0, nil
}

func (m *mockJobUC) GetJobsRequiringAttention(ctx context.Context) ([]*model.Job, error) {
	return nil, nil
}

type mockRenderUC struct {
	records map[string]*model.RenderJob

	SubmitFunc func(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error)
}

var _ usecase.RenderUseCase = (*mockRenderUC)(nil)

func newMockRenderUC() *mockRenderUC {
	return &mockRenderUC{records: map[string]*model.RenderJob{}}
}

func (m *mockRenderUC) CreateVideoJob(ctx context.Context, req *model.RenderRequest) (*model.RenderJob, error) {
	if _, ok := m.records[req.JobID]; ok {
		return nil, domain.ErrAlreadyExists
	}
	rj := &model.RenderJob{JobID: req.JobID, Status: model.RenderJobStatusQueued}
	m.records[req.JobID] = rj
	return rj, nil
}

func (m *mockRenderUC) Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return &model.RenderAck{JobID: req.JobID, Status: "queued"}, nil
}

func (m *mockRenderUC) GetVideoJobStatus(ctx context.Context, jobID string) (*model.RenderJob, error) {
	rj, ok := m.records[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rj, nil
}

func (m *mockRenderUC) CancelVideoJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	rj, ok := m.records[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if rj.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}
	rj.Status = model.RenderJobStatusCancelled
	return rj, nil
}

func (m *mockRenderUC) ListVideoJobs(ctx context.Context, limit, offset int) ([]*model.RenderJob, error) {
	var out []*model.RenderJob
	for _, rj := range m.records {
		out = append(out, rj)
	}
	return out, nil
}

func (m *mockRenderUC) GetQueueStats(ctx context.Context) (*model.QueueStats, error) {
	stats := &model.QueueStats{}
	for range m.records {
		stats.Total++
	}
	return stats, nil
}

func (m *mockRenderUC) HandleProgressUpdate(ctx context.Context, p *model.RenderProgress) (*model.RenderJob, error) {
	rj, ok := m.records[p.JobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if rj.Status.IsTerminal() {
		return rj, nil
	}
	rj.Status = model.RenderJobStatusProcessing
	rj.Progress = scaleRenderProgress(p.Progress)
	rj.CurrentStage = p.Stage
	return rj, nil
}

func (m *mockRenderUC) HandleCompletion(ctx context.Context, c *model.RenderCompletion) (*model.RenderJob, bool, error) {
	rj, ok := m.records[c.JobID]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if rj.Status.IsTerminal() {
		return rj, false, nil
	}
	if c.Status == "completed" {
		rj.Status = model.RenderJobStatusCompleted
		rj.Progress = 100
		rj.OutputURL = c.OutputURL
	} else {
		rj.Status = model.RenderJobStatusFailed
	}
	return rj, true, nil
}

func (m *mockRenderUC) VerifySignature(body []byte, signature string) (bool, error) {
	return signature == testSignature, nil
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestServer(jobUC usecase.JobUseCase, renderUC usecase.RenderUseCase, adminSecret string) *Server {
	auth := NewAuthManager(adminSecret, false, "", 30*time.Minute)
	queue := application.NewQueueFacade(jobUC, renderUC)
	return NewServer(jobUC, renderUC, queue, nil, auth, 60, time.Minute, newTestLogger())
}

func decodeEnvelope(t interface{ Fatalf(string, ...interface{}) }, body []byte) envelope {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("invalid envelope: %v (%s)", err, body)
	}
	return env
}
