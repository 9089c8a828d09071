//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/repository"
)

func TestJobRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	job := &model.Job{ID: "job-123", Type: model.JobTypeVideoGeneration, Status: model.JobStatusPending}
	jobJSON, _ := json.Marshal(job)

	t.Run("FindByID should return from cache on hit", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return string(jobJSON), nil // Simulate cache hit
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerJobRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
				innerRepoCalled = true // This should not be called
				return nil, nil
			},
		}

		decorator := NewJobRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)

		// Act
		result, err := decorator.FindByID(ctx, nil, "job-123")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerRepoCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if result == nil || result.ID != "job-123" {
			t.Error("did not return the correct job from cache")
		}
	})

	t.Run("FindByID should fall through and populate cache on miss", func(t *testing.T) {
		// Arrange
		var setKey string
		mockRedis := &mockRedisClient{
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				setKey = key
				return nil
			},
		}
		mockInnerRepo := &mockInnerJobRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
				return job, nil
			},
		}

		decorator := NewJobRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)

		// Act
		result, err := decorator.FindByID(ctx, nil, "job-123")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result == nil || result.ID != "job-123" {
			t.Error("did not return the job from the inner repository")
		}
		if setKey != "job:id:job-123" {
			t.Errorf("expected cache to be populated under job key, got %q", setKey)
		}
	})

	t.Run("Update should invalidate the cache", func(t *testing.T) {
		// Arrange
		var deletedKeys []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deletedKeys = append(deletedKeys, keys...)
				return nil
			},
		}
		mockInnerRepo := &mockInnerJobRepo{
			UpdateFunc: func(ctx context.Context, tx repository.Tx, job *model.Job) error {
				return nil
			},
		}

		decorator := NewJobRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)

		// Act
		err := decorator.Update(ctx, nil, job)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(deletedKeys) != 1 || deletedKeys[0] != "job:id:job-123" {
			t.Fatalf("expected the job key to be deleted, got %v", deletedKeys)
		}
	})

	t.Run("Delete should invalidate the cache even when the store fails", func(t *testing.T) {
		// Arrange
		var deletedKeys []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deletedKeys = append(deletedKeys, keys...)
				return nil
			},
		}
		mockInnerRepo := &mockInnerJobRepo{
			DeleteFunc: func(ctx context.Context, tx repository.Tx, id string) error {
				return context.DeadlineExceeded
			},
		}

		decorator := NewJobRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)

		// Act
		err := decorator.Delete(ctx, nil, "job-123")

		// Assert
		if err == nil {
			t.Fatal("expected store error to propagate")
		}
		if len(deletedKeys) != 1 {
			t.Fatalf("expected invalidation before store call, got %v", deletedKeys)
		}
	})
}
