//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/adapter"
	"shortform-video-orchestrator/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Job

	insertErr error
	updateErr error
	deleteErr map[string]error // per-id delete failures
}

var _ repository.JobRepository = (*memJobRepo)(nil)

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job), deleteErr: make(map[string]error)}
}

// copyJob returns a detached copy so callers can't mutate the store
// without going through Update.
func copyJob(j *model.Job) *model.Job {
	cp := *j
	cp.Metadata.Steps = append([]model.JobStep(nil), j.Metadata.Steps...)
	return &cp
}

func (m *memJobRepo) Insert(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.store[job.ID] = copyJob(job)
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyJob(j), nil
}

func (m *memJobRepo) Update(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[job.ID]; !ok {
		return domain.ErrNotFound
	}
	m.store[job.ID] = copyJob(job)
	return nil
}

func (m *memJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memJobRepo) Search(ctx context.Context, tx repository.Tx, f model.JobFilter) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if f.Type != "" && j.Type != f.Type {
			continue
		}
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		if f.UserID != "" && j.Metadata.UserID != f.UserID {
			continue
		}
		out = append(out, copyJob(j))
	}
	return out, nil
}

func (m *memJobRepo) CountByStatusAndType(ctx context.Context, tx repository.Tx) (*repository.JobAggregates, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg := &repository.JobAggregates{
		ByStatus: make(map[model.JobStatus]int),
		ByType:   make(map[string]int),
	}
	var totalDur float64
	for _, j := range m.store {
		agg.Total++
		agg.ByStatus[j.Status]++
		agg.ByType[j.Type]++
		if j.Metadata.StartedAt != nil && j.Metadata.CompletedAt != nil {
			totalDur += j.Metadata.CompletedAt.Sub(*j.Metadata.StartedAt).Seconds()
			agg.DurationSamples++
		}
	}
	if agg.DurationSamples > 0 {
		agg.AvgDurationSeconds = totalDur / float64(agg.DurationSamples)
	}
	return agg, nil
}

func (m *memJobRepo) ListTerminalCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Status.IsTerminal() && j.CreatedAt.Before(cutoff) {
			out = append(out, copyJob(j))
		}
	}
	return out, nil
}

func (m *memJobRepo) ListProcessingCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Status == model.JobStatusProcessing && j.CreatedAt.Before(cutoff) {
			out = append(out, copyJob(j))
		}
	}
	return out, nil
}

// memRenderJobRepo mirrors the conditional terminal-write semantics of
// the real store.
type memRenderJobRepo struct {
	mu    sync.RWMutex
	store map[string]*model.RenderJob

	insertErr error
	updateErr error
}

var _ repository.RenderJobRepository = (*memRenderJobRepo)(nil)

func newMemRenderJobRepo() *memRenderJobRepo {
	return &memRenderJobRepo{store: make(map[string]*model.RenderJob)}
}

func copyRenderJob(rj *model.RenderJob) *model.RenderJob {
	cp := *rj
	return &cp
}

func (m *memRenderJobRepo) Insert(ctx context.Context, tx repository.Tx, rj *model.RenderJob) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[rj.JobID]; ok {
		return domain.ErrAlreadyExists
	}
	m.store[rj.JobID] = copyRenderJob(rj)
	return nil
}

func (m *memRenderJobRepo) FindByID(ctx context.Context, tx repository.Tx, jobID string) (*model.RenderJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rj, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRenderJob(rj), nil
}

func (m *memRenderJobRepo) Update(ctx context.Context, tx repository.Tx, rj *model.RenderJob) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[rj.JobID]; !ok {
		return domain.ErrNotFound
	}
	m.store[rj.JobID] = copyRenderJob(rj)
	return nil
}

func (m *memRenderJobRepo) MarkTerminalIfActive(ctx context.Context, tx repository.Tx, rj *model.RenderJob) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[rj.JobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if cur.Status.IsTerminal() {
		return false, nil
	}
	next := copyRenderJob(rj)
	next.CreatedAt = cur.CreatedAt
	next.CurrentStage = cur.CurrentStage
	m.store[rj.JobID] = next
	return true, nil
}

func (m *memRenderJobRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.RenderJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.RenderJob
	for _, rj := range m.store {
		out = append(out, copyRenderJob(rj))
	}
	return out, nil
}

func (m *memRenderJobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (*model.QueueStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &model.QueueStats{}
	for _, rj := range m.store {
		switch rj.Status {
		case model.RenderJobStatusQueued:
			stats.Queued++
		case model.RenderJobStatusProcessing:
			stats.Processing++
		case model.RenderJobStatusCompleted:
			stats.Completed++
		case model.RenderJobStatusFailed:
			stats.Failed++
		case model.RenderJobStatusCancelled:
			stats.Cancelled++
		}
		stats.Total++
	}
	return stats, nil
}

// mockRenderer lets tests script the adapter's behavior per call.
type mockRenderer struct {
	SubmitFunc          func(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error)
	VerifySignatureFunc func(body []byte, signature string) (bool, error)
}

var _ adapter.RemoteRenderer = (*mockRenderer)(nil)

func (m *mockRenderer) Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return &model.RenderAck{JobID: req.JobID, Status: "queued"}, nil
}

func (m *mockRenderer) VerifySignature(body []byte, signature string) (bool, error) {
	if m.VerifySignatureFunc != nil {
		return m.VerifySignatureFunc(body, signature)
	}
	return true, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
