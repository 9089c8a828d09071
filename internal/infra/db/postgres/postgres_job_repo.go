package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

// jobRepo persists jobs in a single table. Metadata (including steps) is a
// typed struct at the domain layer and a jsonb column here; serialization
// happens only at this boundary.
type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `id, type, status, progress, result, error, metadata, created_at, updated_at`

func (r *jobRepo) Insert(ctx context.Context, tx repository.Tx, job *model.Job) error {
	meta, err := json.Marshal(job.Metadata)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO jobs (id, type, status, progress, result, error, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.Type, string(job.Status), job.Progress,
		nullableRaw(job.Result), job.Error, meta, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) Update(ctx context.Context, tx repository.Tx, job *model.Job) error {
	meta, err := json.Marshal(job.Metadata)
	if err != nil {
		return err
	}
	const q = `
UPDATE jobs
   SET status = $2,
       progress = $3,
       result = $4,
       error = $5,
       metadata = $6,
       updated_at = $7
 WHERE id = $1;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		job.ID, string(job.Status), job.Progress, nullableRaw(job.Result), job.Error, meta, job.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM jobs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) Search(ctx context.Context, tx repository.Tx, f model.JobFilter) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Type != "" {
		q += ` AND type = ` + arg(f.Type)
	}
	if f.Status != "" {
		q += ` AND status = ` + arg(string(f.Status))
	}
	if f.UserID != "" {
		q += ` AND metadata->>'userId' = ` + arg(f.UserID)
	}
	if f.Priority != "" {
		q += ` AND metadata->>'priority' = ` + arg(string(f.Priority))
	}
	if f.CreatedAfter != nil {
		q += ` AND created_at > ` + arg(*f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q += ` AND created_at < ` + arg(*f.CreatedBefore)
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ` + arg(f.Limit)
	}
	if f.Offset > 0 {
		q += ` OFFSET ` + arg(f.Offset)
	}

	rows, err := pickRows(ctx, r.pool, tx, q+`;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *jobRepo) CountByStatusAndType(ctx context.Context, tx repository.Tx) (*repository.JobAggregates, error) {
	agg := &repository.JobAggregates{
		ByStatus: make(map[model.JobStatus]int),
		ByType:   make(map[string]int),
	}

	rows, err := pickRows(ctx, r.pool, tx, `SELECT status, type, COUNT(*) FROM jobs GROUP BY status, type;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status, typ string
		var n int
		if err := rows.Scan(&status, &typ, &n); err != nil {
			return nil, translateScanErr(err)
		}
		agg.ByStatus[model.JobStatus(status)] += n
		agg.ByType[typ] += n
		agg.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Jobs that never reported processing have no startedAt and are
	// excluded from the duration average.
	const durQ = `
SELECT COALESCE(AVG(EXTRACT(EPOCH FROM
         (metadata->>'completedAt')::timestamptz - (metadata->>'startedAt')::timestamptz)), 0),
       COUNT(*)
  FROM jobs
 WHERE status IN ('completed', 'failed')
   AND metadata->>'startedAt' IS NOT NULL
   AND metadata->>'completedAt' IS NOT NULL;`
	row, err := pickRow(ctx, r.pool, tx, durQ)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&agg.AvgDurationSeconds, &agg.DurationSamples); err != nil {
		return nil, translateScanErr(err)
	}
	return agg, nil
}

func (r *jobRepo) ListTerminalCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + `
  FROM jobs
 WHERE status IN ('completed', 'failed', 'cancelled')
   AND created_at < $1
 ORDER BY created_at ASC`
	return r.listByCutoff(ctx, tx, q, cutoff, limit)
}

func (r *jobRepo) ListProcessingCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + `
  FROM jobs
 WHERE status = 'processing'
   AND created_at < $1
 ORDER BY created_at ASC`
	return r.listByCutoff(ctx, tx, q, cutoff, limit)
}

func (r *jobRepo) listByCutoff(ctx context.Context, tx repository.Tx, q string, cutoff time.Time, limit int) ([]*model.Job, error) {
	args := []interface{}{cutoff}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := pickRows(ctx, r.pool, tx, q+`;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job    model.Job
		status string
		result []byte
		meta   []byte
	)
	err := row.Scan(&job.ID, &job.Type, &status, &job.Progress, &result, &job.Error, &meta, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, translateScanErr(err)
	}
	job.Status = model.JobStatus(status)
	if len(result) > 0 {
		job.Result = json.RawMessage(result)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &job.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &job, nil
}

// nullableRaw keeps empty results as SQL NULL instead of invalid jsonb.
func nullableRaw(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
