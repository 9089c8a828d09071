package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/usecase"
)

type jobCreateRequest struct {
	Type              string   `json:"type"`
	Priority          string   `json:"priority"`
	UserID            string   `json:"userId"`
	EstimatedDuration int      `json:"estimatedDuration"`
	Steps             []string `json:"steps"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.jobUC.CreateJob(r.Context(), usecase.CreateJobInput{
		Type:              req.Type,
		Priority:          model.JobPriority(req.Priority),
		UserID:            req.UserID,
		EstimatedDuration: req.EstimatedDuration,
		Steps:             req.Steps,
	})
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobUC.GetJobProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, job)
}

type jobUpdateRequest struct {
	Status       *string         `json:"status"`
	Progress     *int            `json:"progress"`
	Result       json.RawMessage `json:"result"`
	Error        *string         `json:"error"`
	CurrentStep  string          `json:"currentStep"`
	StepProgress *int            `json:"stepProgress"`
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	var req jobUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := usecase.UpdateJobInput{
		Progress:     req.Progress,
		Result:       req.Result,
		Error:        req.Error,
		CurrentStep:  req.CurrentStep,
		StepProgress: req.StepProgress,
	}
	if req.Status != nil {
		status := model.JobStatus(*req.Status)
		valid := false
		for _, st := range model.AllJobStatuses {
			if st == status {
				valid = true
				break
			}
		}
		if !valid {
			respondErr(w, http.StatusBadRequest, "unknown status")
			return
		}
		in.Status = &status
	}

	job, err := s.jobUC.UpdateJobStatus(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobUC.CancelJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.jobUC.DeleteJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleSearchJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f model.JobFilter

	f.Type = q.Get("type")
	f.Status = model.JobStatus(q.Get("status"))
	f.UserID = q.Get("userId")
	f.Priority = model.JobPriority(q.Get("priority"))
	if v := q.Get("createdAfter"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "createdAfter must be RFC3339")
			return
		}
		f.CreatedAfter = &t
	}
	if v := q.Get("createdBefore"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "createdBefore must be RFC3339")
			return
		}
		f.CreatedBefore = &t
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	jobs, err := s.jobUC.SearchJobs(r.Context(), f)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	respond(w, http.StatusOK, jobs)
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.jobUC.GetJobStatistics(r.Context())
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}

func (s *Server) handleJobsRequiringAttention(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobUC.GetJobsRequiringAttention(r.Context())
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	respond(w, http.StatusOK, jobs)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OlderThanDays int `json:"olderThanDays"`
	}
	// An empty body means default retention.
	_ = json.NewDecoder(r.Body).Decode(&req)

	deleted, err := s.jobUC.CleanupOldJobs(r.Context(), req.OlderThanDays)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// ----- queue routes -----

func (s *Server) handleQueueVideoAssembly(w http.ResponseWriter, r *http.Request) {
	var req model.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.JobID == "" || req.AudioFileURL == "" {
		respondErr(w, http.StatusBadRequest, "jobId and audioFileUrl are required")
		return
	}

	rj, ack, err := s.queue.QueueVideoAssembly(r.Context(), &req)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusAccepted, map[string]interface{}{"job": rj, "ack": ack})
}

func (s *Server) handleQueueJobStatus(w http.ResponseWriter, r *http.Request) {
	rj, err := s.queue.GetJobStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, rj)
}

func (s *Server) handleQueueCancel(w http.ResponseWriter, r *http.Request) {
	rj, err := s.queue.CancelJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, rj)
}

func (s *Server) handleQueueHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	jobs, err := s.queue.GetJobHistory(r.Context(), limit, offset)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.RenderJob{}
	}
	respond(w, http.StatusOK, jobs)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queue.GetQueueStats(r.Context())
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}
