package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"shortform-video-orchestrator/internal/application"
	red "shortform-video-orchestrator/internal/infra/redis"
	"shortform-video-orchestrator/internal/usecase"
)

type Server struct {
	jobUC    usecase.JobUseCase
	renderUC usecase.RenderUseCase
	queue    *application.QueueFacade
	limiter  *red.RateLimiter
	auth     *AuthManager

	webhookRateLimit  int
	webhookRateWindow time.Duration

	log *zerolog.Logger
}

func NewServer(
	jobUC usecase.JobUseCase,
	renderUC usecase.RenderUseCase,
	queue *application.QueueFacade,
	limiter *red.RateLimiter,
	auth *AuthManager,
	webhookRateLimit int,
	webhookRateWindow time.Duration,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		jobUC:             jobUC,
		renderUC:          renderUC,
		queue:             queue,
		limiter:           limiter,
		auth:              auth,
		webhookRateLimit:  webhookRateLimit,
		webhookRateWindow: webhookRateWindow,
		log:               logger,
	}
}

// Router assembles the full route tree. Admin-only routes sit behind the
// JWT guard; webhooks are unauthenticated but signature-checked inside
// their handlers.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(TraceID(s.log))
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Get("/", s.handleSearchJobs)
		r.Get("/{id}", s.handleGetJob)
		r.Patch("/{id}", s.handleUpdateJob)
		r.Post("/{id}/cancel", s.handleCancelJob)
		r.Delete("/{id}", s.handleDeleteJob)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Get("/stats/overview", s.handleJobStats)
			r.Get("/stats/attention", s.handleJobsRequiringAttention)
			r.Post("/cleanup", s.handleCleanup)
		})
	})

	r.Route("/api/v1/queue", func(r chi.Router) {
		r.Post("/video-assembly", s.handleQueueVideoAssembly)
		r.Get("/history", s.handleQueueHistory)
		r.Get("/stats", s.handleQueueStats)
		r.Get("/{id}/status", s.handleQueueJobStatus)
		r.Post("/{id}/cancel", s.handleQueueCancel)
	})

	r.Route("/webhooks/render", func(r chi.Router) {
		r.Post("/progress", s.handleRenderProgress)
		r.Post("/complete", s.handleRenderComplete)
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
