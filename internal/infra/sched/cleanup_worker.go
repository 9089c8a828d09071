package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"shortform-video-orchestrator/internal/domain"
	red "shortform-video-orchestrator/internal/infra/redis"
	"shortform-video-orchestrator/internal/usecase"
)

const cleanupLockKey = "lock:sched:cleanup"

// CleanupWorker periodically removes terminal jobs older than the
// retention window. The sweep runs under a redis lock so that only one
// instance performs the deletes when several replicas are deployed.
type CleanupWorker struct {
	jobUC    usecase.JobUseCase
	locker   red.Locker
	interval time.Duration
	maxAge   int // days
	log      *zerolog.Logger
}

func NewCleanupWorker(jobUC usecase.JobUseCase, locker red.Locker, interval time.Duration, maxAgeDays int, logger *zerolog.Logger) *CleanupWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	l := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		jobUC:    jobUC,
		locker:   locker,
		interval: interval,
		maxAge:   maxAgeDays,
		log:      &l,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Int("max_age_days", w.maxAge).Msg("Starting cleanup worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CleanupWorker) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, cleanupLockKey, w.interval/2)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				w.log.Warn().Err(err).Msg("cleanup lock unavailable")
			}
			return
		}
		defer func() { _ = w.locker.Unlock(ctx, cleanupLockKey, token) }()
	}

	n, err := w.jobUC.CleanupOldJobs(ctx, w.maxAge)
	if err != nil {
		w.log.Error().Err(err).Msg("cleanup sweep failed")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("old jobs removed")
	}
}
