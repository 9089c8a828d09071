package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/repository"
	"shortform-video-orchestrator/internal/infra/metrics"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// attentionWindow is how long a job may sit in processing before the
// stuck-job query surfaces it. Coarse on purpose: this is an operational
// alarm, not a correctness mechanism.
const attentionWindow = 2 * time.Hour

const defaultCleanupDays = 30

// CreateJobInput carries everything CreateJob needs. Steps are expanded
// into pending JobStep entries in order.
type CreateJobInput struct {
	Type              string
	Priority          model.JobPriority
	UserID            string
	EstimatedDuration int
	Steps             []string
}

// UpdateJobInput is the partial-update contract for UpdateJobStatus. Nil
// pointers mean "leave unchanged". CurrentStep selects a step by name;
// a name not present among the job's steps is silently skipped.
type UpdateJobInput struct {
	Status       *model.JobStatus
	Progress     *int
	Result       json.RawMessage
	Error        *string
	CurrentStep  string
	StepProgress *int
}

type JobUseCase interface {
	CreateJob(ctx context.Context, in CreateJobInput) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, in UpdateJobInput) (*model.Job, error)
	GetJobProgress(ctx context.Context, jobID string) (*model.Job, error)
	CancelJob(ctx context.Context, jobID string) (*model.Job, error)
	DeleteJob(ctx context.Context, jobID string) (bool, error)
	SearchJobs(ctx context.Context, f model.JobFilter) ([]*model.Job, error)
	GetJobStatistics(ctx context.Context) (*model.JobStatistics, error)
	CleanupOldJobs(ctx context.Context, olderThanDays int) (int, error)
	GetJobsRequiringAttention(ctx context.Context) ([]*model.Job, error)
}

type jobUC struct {
	jobs repository.JobRepository
	txm  repository.TransactionManager
	now  func() time.Time
	log  *zerolog.Logger
}

func NewJobUseCase(jobs repository.JobRepository, logger *zerolog.Logger) *jobUC {
	return &jobUC{jobs: jobs, now: time.Now, log: logger}
}

// WithTxManager enables transactional deletes. Without it the
// check-then-delete in DeleteJob runs as two statements.
func (u *jobUC) WithTxManager(txm repository.TransactionManager) *jobUC {
	u.txm = txm
	return u
}

func (u *jobUC) CreateJob(ctx context.Context, in CreateJobInput) (*model.Job, error) {
	if in.Type == "" {
		return nil, domain.ErrInvalidArgument
	}
	if in.Priority == "" {
		in.Priority = model.JobPriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	// Ambiguous step updates are rejected up front: step updates match by
	// name, so names must be unique within a job.
	seen := make(map[string]struct{}, len(in.Steps))
	for _, name := range in.Steps {
		if name == "" {
			return nil, domain.ErrInvalidArgument
		}
		if _, dup := seen[name]; dup {
			return nil, domain.ErrInvalidArgument
		}
		seen[name] = struct{}{}
	}

	now := u.now()
	job := &model.Job{
		ID:       uuid.NewString(),
		Type:     in.Type,
		Status:   model.JobStatusPending,
		Progress: 0,
		Metadata: model.JobMetadata{
			UserID:            in.UserID,
			Priority:          in.Priority,
			EstimatedDuration: in.EstimatedDuration,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, name := range in.Steps {
		job.Metadata.Steps = append(job.Metadata.Steps, model.JobStep{
			ID:       uuid.NewString(),
			Name:     name,
			Status:   model.StepStatusPending,
			Progress: 0,
		})
	}

	if err := u.jobs.Insert(ctx, nil, job); err != nil {
		return nil, err
	}
	metrics.IncJobCreated(job.Type)
	u.log.Info().Str("job_id", job.ID).Str("type", job.Type).Str("priority", string(in.Priority)).Msg("job created")
	return job, nil
}

func (u *jobUC) UpdateJobStatus(ctx context.Context, jobID string, in UpdateJobInput) (*model.Job, error) {
	job, err := u.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	// A settled job is immutable: late progress, results and step
	// updates are rejected the same way as status transitions.
	if job.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}

	now := u.now()

	if in.CurrentStep != "" {
		u.applyStepUpdate(job, in, now)
	}

	if in.Progress != nil {
		job.Progress = clampProgress(*in.Progress)
	}
	if in.Result != nil {
		job.Result = in.Result
	}
	if in.Error != nil {
		job.Error = in.Error
	}

	if in.Status != nil && *in.Status != job.Status {
		if job.Status == model.JobStatusPending && *in.Status == model.JobStatusProcessing && job.Metadata.StartedAt == nil {
			job.Metadata.StartedAt = &now
		}
		if (*in.Status).IsTerminal() && job.Metadata.CompletedAt == nil {
			job.Metadata.CompletedAt = &now
		}
		metrics.IncJobTransition(string(job.Status), string(*in.Status))
		job.Status = *in.Status
	}

	job.UpdatedAt = now
	if err := u.jobs.Update(ctx, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

// applyStepUpdate mutates the named step in place. A step completes
// exactly when its reported progress reaches 100; otherwise a pending
// step moves to processing.
func (u *jobUC) applyStepUpdate(job *model.Job, in UpdateJobInput, now time.Time) {
	step := job.StepByName(in.CurrentStep)
	if step == nil {
		// No step is fabricated for an unknown name.
		u.log.Debug().Str("job_id", job.ID).Str("step", in.CurrentStep).Msg("step update skipped: no such step")
		return
	}

	if in.StepProgress != nil {
		step.Progress = clampProgress(*in.StepProgress)
	}
	switch {
	case step.Progress >= 100:
		if step.Status != model.StepStatusCompleted {
			step.Status = model.StepStatusCompleted
			if step.CompletedAt == nil {
				step.CompletedAt = &now
			}
		}
	case step.Status == model.StepStatusPending:
		step.Status = model.StepStatusProcessing
		if step.StartedAt == nil {
			step.StartedAt = &now
		}
	}
}

func (u *jobUC) GetJobProgress(ctx context.Context, jobID string) (*model.Job, error) {
	return u.jobs.FindByID(ctx, nil, jobID)
}

func (u *jobUC) CancelJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := u.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}
	cancelled := model.JobStatusCancelled
	msg := "Job cancelled by user"
	return u.UpdateJobStatus(ctx, jobID, UpdateJobInput{Status: &cancelled, Error: &msg})
}

func (u *jobUC) DeleteJob(ctx context.Context, jobID string) (bool, error) {
	del := func(ctx context.Context, tx repository.Tx) error {
		job, err := u.jobs.FindByID(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if !job.Status.IsTerminal() {
			return domain.ErrInvalidTransition
		}
		return u.jobs.Delete(ctx, tx, jobID)
	}

	// The terminal check and the delete run in one transaction so a job
	// cannot be removed while a webhook is reviving it.
	var err error
	if u.txm != nil {
		err = u.txm.WithTx(ctx, pgx.TxOptions{}, del)
	} else {
		err = del(ctx, nil)
	}
	if err != nil {
		return false, err
	}
	u.log.Info().Str("job_id", jobID).Msg("job deleted")
	return true, nil
}

func (u *jobUC) SearchJobs(ctx context.Context, f model.JobFilter) ([]*model.Job, error) {
	return u.jobs.Search(ctx, nil, f)
}

func (u *jobUC) GetJobStatistics(ctx context.Context) (*model.JobStatistics, error) {
	agg, err := u.jobs.CountByStatusAndType(ctx, nil)
	if err != nil {
		return nil, err
	}

	stats := &model.JobStatistics{
		Total:              agg.Total,
		ByStatus:           make(map[model.JobStatus]int, len(model.AllJobStatuses)),
		ByType:             make(map[string]int, len(model.KnownJobTypes)),
		AvgDurationSeconds: agg.AvgDurationSeconds,
	}
	// Every known status and type is present even at zero, so dashboards
	// never have to special-case missing keys.
	for _, s := range model.AllJobStatuses {
		stats.ByStatus[s] = agg.ByStatus[s]
	}
	for _, t := range model.KnownJobTypes {
		stats.ByType[t] = agg.ByType[t]
	}
	for t, n := range agg.ByType {
		stats.ByType[t] = n
	}
	if agg.Total > 0 {
		stats.SuccessRate = float64(agg.ByStatus[model.JobStatusCompleted]) / float64(agg.Total)
	}
	return stats, nil
}

func (u *jobUC) CleanupOldJobs(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		olderThanDays = defaultCleanupDays
	}
	cutoff := u.now().AddDate(0, 0, -olderThanDays)

	old, err := u.jobs.ListTerminalCreatedBefore(ctx, nil, cutoff, 0)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, job := range old {
		if err := u.jobs.Delete(ctx, nil, job.ID); err != nil {
			u.log.Warn().Err(err).Str("job_id", job.ID).Msg("cleanup: delete failed")
			continue
		}
		deleted++
	}
	if deleted > 0 {
		metrics.AddJobsCleaned(deleted)
		u.log.Info().Int("deleted", deleted).Int("older_than_days", olderThanDays).Msg("cleanup finished")
	}
	return deleted, nil
}

func (u *jobUC) GetJobsRequiringAttention(ctx context.Context) ([]*model.Job, error) {
	cutoff := u.now().Add(-attentionWindow)
	return u.jobs.ListProcessingCreatedBefore(ctx, nil, cutoff, 0)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
