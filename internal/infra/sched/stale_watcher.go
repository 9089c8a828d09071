package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/infra/metrics"
	red "shortform-video-orchestrator/internal/infra/redis"
	"shortform-video-orchestrator/internal/usecase"
)

const staleLockKey = "lock:sched:stale-watcher"

// StaleWatcher periodically counts jobs that have been processing past
// the attention window and publishes the count as a gauge. It never
// mutates jobs: a render can legitimately run long, so flagging is an
// operator signal, not an automatic failure.
type StaleWatcher struct {
	jobUC    usecase.JobUseCase
	locker   red.Locker
	interval time.Duration
	log      *zerolog.Logger
}

func NewStaleWatcher(jobUC usecase.JobUseCase, locker red.Locker, interval time.Duration, logger *zerolog.Logger) *StaleWatcher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	l := logger.With().Str("component", "StaleWatcher").Logger()
	return &StaleWatcher{jobUC: jobUC, locker: locker, interval: interval, log: &l}
}

func (w *StaleWatcher) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting stale watcher")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale watcher")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *StaleWatcher) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, staleLockKey, w.interval/2)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				w.log.Warn().Err(err).Msg("stale-watcher lock unavailable")
			}
			return
		}
		defer func() { _ = w.locker.Unlock(ctx, staleLockKey, token) }()
	}

	stuck, err := w.jobUC.GetJobsRequiringAttention(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("stale sweep failed")
		return
	}

	metrics.SetJobsStuck(len(stuck))
	for _, j := range stuck {
		w.log.Warn().
			Str("job_id", j.ID).
			Str("type", j.Type).
			Time("created_at", j.CreatedAt).
			Msg("job processing past the attention window")
	}
}
