package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/repository"
	"shortform-video-orchestrator/internal/infra/metrics"
	red "shortform-video-orchestrator/internal/infra/redis"
)

var _ repository.JobRepository = (*jobRepoCacheDecorator)(nil)

// jobRepoCacheDecorator is a read-through TTL cache in front of the job
// store. The cache is a performance optimization only: every write
// invalidates, and the store below stays the system of record for status.
type jobRepoCacheDecorator struct {
	inner repository.JobRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewJobRepoCacheDecorator(inner repository.JobRepository, cache red.RedisClient, ttl time.Duration) repository.JobRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &jobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func jobCacheKey(id string) string { return fmt.Sprintf("job:id:%s", id) }

func (d *jobRepoCacheDecorator) Insert(ctx context.Context, tx repository.Tx, job *model.Job) error {
	_ = d.cache.Del(ctx, jobCacheKey(job.ID))
	return d.inner.Insert(ctx, tx, job)
}

func (d *jobRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	// Transactional reads must see the transaction's own view, never a
	// cached snapshot.
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}

	key := jobCacheKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var job model.Job
		if json.Unmarshal([]byte(val), &job) == nil {
			metrics.IncCacheRequest("job", "hit")
			return &job, nil
		}
	}

	metrics.IncCacheRequest("job", "miss")
	job, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(job); err == nil {
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return job, nil
}

func (d *jobRepoCacheDecorator) Update(ctx context.Context, tx repository.Tx, job *model.Job) error {
	_ = d.cache.Del(ctx, jobCacheKey(job.ID))
	return d.inner.Update(ctx, tx, job)
}

func (d *jobRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id string) error {
	_ = d.cache.Del(ctx, jobCacheKey(id))
	return d.inner.Delete(ctx, tx, id)
}

// List/aggregate queries bypass the cache.

func (d *jobRepoCacheDecorator) Search(ctx context.Context, tx repository.Tx, f model.JobFilter) ([]*model.Job, error) {
	return d.inner.Search(ctx, tx, f)
}

func (d *jobRepoCacheDecorator) CountByStatusAndType(ctx context.Context, tx repository.Tx) (*repository.JobAggregates, error) {
	return d.inner.CountByStatusAndType(ctx, tx)
}

func (d *jobRepoCacheDecorator) ListTerminalCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	return d.inner.ListTerminalCreatedBefore(ctx, tx, cutoff, limit)
}

func (d *jobRepoCacheDecorator) ListProcessingCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	return d.inner.ListProcessingCreatedBefore(ctx, tx, cutoff, limit)
}
