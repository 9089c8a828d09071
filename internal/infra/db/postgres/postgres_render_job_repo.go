package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/repository"
)

var _ repository.RenderJobRepository = (*renderJobRepo)(nil)

type renderJobRepo struct {
	pool *pgxpool.Pool
}

func NewRenderJobRepo(pool *pgxpool.Pool) *renderJobRepo {
	return &renderJobRepo{pool: pool}
}

const renderJobColumns = `job_id, status, progress, current_stage, progress_message, output_url, metadata, error, created_at, updated_at, completed_at`

func (r *renderJobRepo) Insert(ctx context.Context, tx repository.Tx, job *model.RenderJob) error {
	meta, err := marshalRenderMeta(job.Metadata)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO render_jobs (job_id, status, progress, current_stage, progress_message, output_url, metadata, error, created_at, updated_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.JobID, string(job.Status), job.Progress, job.CurrentStage, job.ProgressMessage,
		job.OutputURL, meta, job.Error, job.CreatedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *renderJobRepo) FindByID(ctx context.Context, tx repository.Tx, jobID string) (*model.RenderJob, error) {
	q := `SELECT ` + renderJobColumns + ` FROM render_jobs WHERE job_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, err
	}
	return scanRenderJob(row)
}

func (r *renderJobRepo) Update(ctx context.Context, tx repository.Tx, job *model.RenderJob) error {
	meta, err := marshalRenderMeta(job.Metadata)
	if err != nil {
		return err
	}
	const q = `
UPDATE render_jobs
   SET status = $2,
       progress = $3,
       current_stage = $4,
       progress_message = $5,
       output_url = $6,
       metadata = $7,
       error = $8,
       updated_at = $9,
       completed_at = $10
 WHERE job_id = $1;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		job.JobID, string(job.Status), job.Progress, job.CurrentStage, job.ProgressMessage,
		job.OutputURL, meta, job.Error, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkTerminalIfActive is the idempotence guard for webhook completion:
// the terminal fields land only when the record has not already settled.
func (r *renderJobRepo) MarkTerminalIfActive(ctx context.Context, tx repository.Tx, job *model.RenderJob) (bool, error) {
	meta, err := marshalRenderMeta(job.Metadata)
	if err != nil {
		return false, err
	}
	const q = `
UPDATE render_jobs
   SET status = $2,
       progress = $3,
       output_url = $4,
       metadata = $5,
       error = $6,
       updated_at = $7,
       completed_at = $8
 WHERE job_id = $1
   AND status NOT IN ('completed', 'failed', 'cancelled');`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		job.JobID, string(job.Status), job.Progress, job.OutputURL, meta, job.Error,
		job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *renderJobRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.RenderJob, error) {
	q := `SELECT ` + renderJobColumns + ` FROM render_jobs ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		args = append(args, limit)
		q += ` LIMIT $1`
	}
	if offset > 0 {
		args = append(args, offset)
		if limit > 0 {
			q += ` OFFSET $2`
		} else {
			q += ` OFFSET $1`
		}
	}
	rows, err := pickRows(ctx, r.pool, tx, q+`;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RenderJob
	for rows.Next() {
		rj, err := scanRenderJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rj)
	}
	return out, rows.Err()
}

func (r *renderJobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (*model.QueueStats, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM render_jobs GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &model.QueueStats{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, translateScanErr(err)
		}
		switch model.RenderJobStatus(status) {
		case model.RenderJobStatusQueued:
			stats.Queued = n
		case model.RenderJobStatusProcessing:
			stats.Processing = n
		case model.RenderJobStatusCompleted:
			stats.Completed = n
		case model.RenderJobStatusFailed:
			stats.Failed = n
		case model.RenderJobStatusCancelled:
			stats.Cancelled = n
		}
		stats.Total += n
	}
	return stats, rows.Err()
}

func scanRenderJob(row rowScanner) (*model.RenderJob, error) {
	var (
		rj     model.RenderJob
		status string
		meta   []byte
	)
	err := row.Scan(&rj.JobID, &status, &rj.Progress, &rj.CurrentStage, &rj.ProgressMessage,
		&rj.OutputURL, &meta, &rj.Error, &rj.CreatedAt, &rj.UpdatedAt, &rj.CompletedAt)
	if err != nil {
		return nil, translateScanErr(err)
	}
	rj.Status = model.RenderJobStatus(status)
	if len(meta) > 0 {
		rj.Metadata = &model.RenderMetadata{}
		if err := json.Unmarshal(meta, rj.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &rj, nil
}

func marshalRenderMeta(m *model.RenderMetadata) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
