package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/infra/logging"
	"shortform-video-orchestrator/internal/infra/metrics"
	red "shortform-video-orchestrator/internal/infra/redis"
	"shortform-video-orchestrator/internal/usecase"
)

const signatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20 // 1 MiB

// readSignedBody authenticates the delivery before anything else: the raw
// body is read once and checked against the signature header. Nothing is
// parsed, rate-limited or stored for a request that fails this gate.
func (s *Server) readSignedBody(w http.ResponseWriter, r *http.Request, kind string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		metrics.IncWebhook(kind, "malformed")
		respondErr(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}

	ok, err := s.renderUC.VerifySignature(body, r.Header.Get(signatureHeader))
	if err != nil {
		metrics.IncWebhook(kind, "error")
		s.log.Error().Err(err).Msg("webhook signature check unavailable")
		respondErr(w, http.StatusInternalServerError, "signature verification unavailable")
		return nil, false
	}
	if !ok {
		metrics.IncWebhook(kind, "unauthorized")
		respondErr(w, http.StatusUnauthorized, "invalid signature")
		return nil, false
	}
	return body, true
}

// allowDelivery throttles per remote job id. The limiter is optional
// wiring; when redis is down the webhook is allowed through rather than
// dropped, the renderer's state is the priority.
func (s *Server) allowDelivery(ctx context.Context, jobID, kind string) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(ctx, red.WebhookKey(jobID, kind), s.webhookRateLimit, s.webhookRateWindow)
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Msg("webhook rate limiter unavailable")
		return true
	}
	return ok
}

func (s *Server) handleRenderProgress(w http.ResponseWriter, r *http.Request) {
	const kind = "progress"
	body, ok := s.readSignedBody(w, r, kind)
	if !ok {
		return
	}

	var p model.RenderProgress
	if err := json.Unmarshal(body, &p); err != nil || p.JobID == "" {
		metrics.IncWebhook(kind, "malformed")
		respondErr(w, http.StatusBadRequest, "invalid progress payload")
		return
	}

	if !s.allowDelivery(r.Context(), p.JobID, kind) {
		respondErr(w, http.StatusTooManyRequests, "too many deliveries")
		return
	}

	ctx := logging.WithJobID(r.Context(), p.JobID)
	rj, err := s.renderUC.HandleProgressUpdate(ctx, &p)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhook(kind, "error")
			respondErr(w, http.StatusNotFound, "unknown job")
			return
		}
		metrics.IncWebhook(kind, "error")
		respondDomainErr(w, err)
		return
	}

	// Mirror the renderer's progress onto the tracking job, when one
	// exists. The render stage maps onto the job-level render step.
	s.reconcileProgress(ctx, &p)

	metrics.IncWebhook(kind, "applied")
	respond(w, http.StatusOK, rj)
}

func (s *Server) handleRenderComplete(w http.ResponseWriter, r *http.Request) {
	const kind = "completion"
	body, ok := s.readSignedBody(w, r, kind)
	if !ok {
		return
	}

	var c model.RenderCompletion
	if err := json.Unmarshal(body, &c); err != nil || c.JobID == "" || (c.Status != "completed" && c.Status != "failed") {
		metrics.IncWebhook(kind, "malformed")
		respondErr(w, http.StatusBadRequest, "invalid completion payload")
		return
	}

	if !s.allowDelivery(r.Context(), c.JobID, kind) {
		respondErr(w, http.StatusTooManyRequests, "too many deliveries")
		return
	}

	ctx := logging.WithJobID(r.Context(), c.JobID)
	rj, applied, err := s.renderUC.HandleCompletion(ctx, &c)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhook(kind, "error")
			respondErr(w, http.StatusNotFound, "unknown job")
			return
		}
		metrics.IncWebhook(kind, "error")
		respondDomainErr(w, err)
		return
	}

	if applied {
		s.reconcileCompletion(ctx, &c)
		metrics.IncWebhook(kind, "applied")
	} else {
		// At-least-once delivery: a re-send of a settled result is
		// acknowledged so the renderer stops retrying.
		metrics.IncWebhook(kind, "duplicate")
	}
	respond(w, http.StatusOK, rj)
}

// reconcileProgress forwards render progress to the tracking job. Jobs
// the engine does not track, or jobs already settled, are skipped
// silently: cancellation wins over late webhooks.
func (s *Server) reconcileProgress(ctx context.Context, p *model.RenderProgress) {
	progress := scaleRenderProgress(p.Progress)
	processing := model.JobStatusProcessing
	_, err := s.jobUC.UpdateJobStatus(ctx, p.JobID, usecase.UpdateJobInput{
		Status:       &processing,
		Progress:     &progress,
		CurrentStep:  "render",
		StepProgress: &progress,
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidTransition) {
		s.log.Warn().Err(err).Str("job_id", p.JobID).Msg("tracking job progress reconciliation failed")
	}
}

func (s *Server) reconcileCompletion(ctx context.Context, c *model.RenderCompletion) {
	var in usecase.UpdateJobInput
	if c.Status == "completed" {
		completed := model.JobStatusCompleted
		hundred := 100
		result, _ := json.Marshal(map[string]interface{}{
			"outputUrl": c.OutputURL,
			"metadata":  c.Metadata,
		})
		in = usecase.UpdateJobInput{Status: &completed, Progress: &hundred, Result: result}
	} else {
		failed := model.JobStatusFailed
		errMsg := c.Error
		if errMsg == "" {
			errMsg = "render failed"
		}
		in = usecase.UpdateJobInput{Status: &failed, Error: &errMsg}
	}

	_, err := s.jobUC.UpdateJobStatus(ctx, c.JobID, in)
	if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidTransition) {
		s.log.Warn().Err(err).Str("job_id", c.JobID).Msg("tracking job completion reconciliation failed")
	}
}

func scaleRenderProgress(p float64) int {
	if p <= 1.0 {
		p = p * 100
	}
	n := int(p + 0.5)
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
