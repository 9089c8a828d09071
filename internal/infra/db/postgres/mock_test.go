//go:build !integration

package postgres

import (
	"context"
	"errors"
	"time"

	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/repository"
	red "shortform-video-orchestrator/internal/infra/redis"
)

var _ red.RedisClient = (*mockRedisClient)(nil)

type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", errors.New("cache miss")
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	return 1, nil
}

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if m.ExpireFunc != nil {
		return m.ExpireFunc(ctx, key, expiration)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }

var _ repository.JobRepository = (*mockInnerJobRepo)(nil)

type mockInnerJobRepo struct {
	InsertFunc   func(ctx context.Context, tx repository.Tx, job *model.Job) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Job, error)
	UpdateFunc   func(ctx context.Context, tx repository.Tx, job *model.Job) error
	DeleteFunc   func(ctx context.Context, tx repository.Tx, id string) error
}

func (m *mockInnerJobRepo) Insert(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, job)
	}
	return nil
}

func (m *mockInnerJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, nil
}

func (m *mockInnerJobRepo) Update(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, job)
	}
	return nil
}

func (m *mockInnerJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	return nil
}

func (m *mockInnerJobRepo) Search(ctx context.Context, tx repository.Tx, f model.JobFilter) ([]*model.Job, error) {
	return nil, nil
}

func (m *mockInnerJobRepo) CountByStatusAndType(ctx context.Context, tx repository.Tx) (*repository.JobAggregates, error) {
	return &repository.JobAggregates{}, nil
}

func (m *mockInnerJobRepo) ListTerminalCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	return nil, nil
}

func (m *mockInnerJobRepo) ListProcessingCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	return nil, nil
}
