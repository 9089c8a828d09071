//go:build !integration

package web

import (
	"encoding/json"
	"net/http"
	"testing"

	"shortform-video-orchestrator/internal/domain/model"
)

func signedHeader() http.Header {
	h := http.Header{}
	h.Set(signatureHeader, testSignature)
	return h
}

func TestRenderWebhooks(t *testing.T) {
	t.Run("an unsigned delivery is rejected before parsing", func(t *testing.T) {
		s := newTestServer(newMockJobUC(), newMockRenderUC(), "secret")
		h := http.Header{}
		h.Set(signatureHeader, "forged")

		// The body is deliberately garbage: a 400 here would mean the
		// payload was inspected before the signature.
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/progress", []byte(`{not json`), h)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("a signed but malformed payload is a 400", func(t *testing.T) {
		s := newTestServer(newMockJobUC(), newMockRenderUC(), "secret")
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/progress", []byte(`{not json`), signedHeader())
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("progress for an unknown job is a 404", func(t *testing.T) {
		s := newTestServer(newMockJobUC(), newMockRenderUC(), "secret")
		body, _ := json.Marshal(map[string]interface{}{"job_id": "nope", "progress": 0.5})
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/progress", body, signedHeader())
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("fractional progress is scaled and mirrored onto the tracking job", func(t *testing.T) {
		jobUC := newMockJobUC()
		jobUC.jobs["job-1"] = &model.Job{ID: "job-1", Status: model.JobStatusProcessing}
		renderUC := newMockRenderUC()
		renderUC.records["job-1"] = &model.RenderJob{JobID: "job-1", Status: model.RenderJobStatusQueued}
		s := newTestServer(jobUC, renderUC, "secret")

		body, _ := json.Marshal(map[string]interface{}{
			"job_id":   "job-1",
			"stage":    "rendering",
			"progress": 0.5,
		})
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/progress", body, signedHeader())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := renderUC.records["job-1"].Progress; got != 50 {
			t.Errorf("expected render progress 50, got %d", got)
		}
		if got := jobUC.jobs["job-1"].Progress; got != 50 {
			t.Errorf("expected tracking job progress 50, got %d", got)
		}
	})

	t.Run("completion settles the record and the tracking job", func(t *testing.T) {
		jobUC := newMockJobUC()
		jobUC.jobs["job-1"] = &model.Job{ID: "job-1", Status: model.JobStatusProcessing}
		renderUC := newMockRenderUC()
		renderUC.records["job-1"] = &model.RenderJob{JobID: "job-1", Status: model.RenderJobStatusProcessing}
		s := newTestServer(jobUC, renderUC, "secret")

		body, _ := json.Marshal(map[string]interface{}{
			"job_id":     "job-1",
			"status":     "completed",
			"output_url": "https://cdn/final.mp4",
		})
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/complete", body, signedHeader())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := renderUC.records["job-1"].Status; got != model.RenderJobStatusCompleted {
			t.Errorf("expected completed record, got %s", got)
		}
		if got := jobUC.jobs["job-1"].Status; got != model.JobStatusCompleted {
			t.Errorf("expected completed tracking job, got %s", got)
		}
	})

	t.Run("a redelivered completion is acknowledged without reapplying", func(t *testing.T) {
		jobUC := newMockJobUC()
		renderUC := newMockRenderUC()
		renderUC.records["job-1"] = &model.RenderJob{JobID: "job-1", Status: model.RenderJobStatusProcessing}
		s := newTestServer(jobUC, renderUC, "secret")

		body, _ := json.Marshal(map[string]interface{}{
			"job_id":     "job-1",
			"status":     "completed",
			"output_url": "https://cdn/final.mp4",
		})
		for i := 0; i < 2; i++ {
			rec := doRequest(t, s, http.MethodPost, "/webhooks/render/complete", body, signedHeader())
			if rec.Code != http.StatusOK {
				t.Fatalf("delivery %d: expected 200, got %d", i+1, rec.Code)
			}
		}

		// A contradictory redelivery must not flip the settled result.
		body, _ = json.Marshal(map[string]interface{}{
			"job_id": "job-1",
			"status": "failed",
			"error":  "late failure report",
		})
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/complete", body, signedHeader())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := renderUC.records["job-1"].Status; got != model.RenderJobStatusCompleted {
			t.Errorf("redelivery flipped the record to %s", got)
		}
	})

	t.Run("a completion arriving after a cancel leaves the tracking job cancelled", func(t *testing.T) {
		jobUC := newMockJobUC()
		jobUC.jobs["job-1"] = &model.Job{ID: "job-1", Status: model.JobStatusCancelled}
		renderUC := newMockRenderUC()
		renderUC.records["job-1"] = &model.RenderJob{JobID: "job-1", Status: model.RenderJobStatusProcessing}
		s := newTestServer(jobUC, renderUC, "secret")

		body, _ := json.Marshal(map[string]interface{}{
			"job_id":     "job-1",
			"status":     "completed",
			"output_url": "https://cdn/final.mp4",
		})
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/complete", body, signedHeader())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := jobUC.jobs["job-1"].Status; got != model.JobStatusCancelled {
			t.Errorf("late webhook overrode a cancellation: %s", got)
		}
	})

	t.Run("completion with a made-up status is a 400", func(t *testing.T) {
		s := newTestServer(newMockJobUC(), newMockRenderUC(), "secret")
		body, _ := json.Marshal(map[string]interface{}{"job_id": "job-1", "status": "maybe"})
		rec := doRequest(t, s, http.MethodPost, "/webhooks/render/complete", body, signedHeader())
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("webhook health does not require a signature", func(t *testing.T) {
		s := newTestServer(newMockJobUC(), newMockRenderUC(), "secret")
		rec := doRequest(t, s, http.MethodGet, "/webhooks/render/health", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
