package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shortform-video-orchestrator/internal/domain"

	"github.com/oklog/ulid/v2"
)

// envelope is the uniform response shape for every API route.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"requestId"`
	Timestamp string      `json:"timestamp"`
}

func respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Data:      data,
		RequestID: ulid.Make().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func respondErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Error:     msg,
		RequestID: ulid.Make().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondDomainErr maps domain sentinels onto HTTP statuses. Anything
// unmapped is a 500 with a generic message so internals never leak.
func respondDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondErr(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidArgument):
		respondErr(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, domain.ErrInvalidTransition):
		respondErr(w, http.StatusConflict, "operation not valid for current job state")
	case errors.Is(err, domain.ErrUnauthorized):
		respondErr(w, http.StatusUnauthorized, "unauthorized")
	default:
		if re, ok := domain.IsRemoteError(err); ok {
			respondErr(w, http.StatusBadGateway, re.Error())
			return
		}
		respondErr(w, http.StatusInternalServerError, "internal error")
	}
}
