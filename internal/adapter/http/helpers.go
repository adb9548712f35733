package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/planloom/planloom/internal/domain"
	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/chat"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/domain/roadmap"
)

// validationErrs are domain sentinels that map to 400 Bad Request.
var validationErrs = []error{
	project.ErrDescriptionRequired,
	chat.ErrContentRequired,
	agent.ErrNameRequired,
	agent.ErrRoleRequired,
	execution.ErrTaskIDRequired,
	execution.ErrPhaseIDRequired,
	execution.ErrProjectIDRequired,
	execution.ErrFeedbackRequired,
	roadmap.ErrInvalidStatus,
}

// workflowErrs are workflow precondition sentinels that map to 409 Conflict:
// the request is well-formed but the execution is not in a state that
// admits it.
var workflowErrs = []error{
	execution.ErrInsufficientParticipants,
	execution.ErrNoDeliverable,
	execution.ErrNoActiveReview,
}

const maxRequestBodySize = 1 << 20 // 1 MB

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "resource was modified by another request")
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, msg)
	case matchesAny(err, validationErrs):
		writeError(w, http.StatusBadRequest, err.Error())
	case matchesAny(err, workflowErrs):
		writeError(w, http.StatusConflict, err.Error())
	case strings.Contains(err.Error(), "invalid input syntax"):
		writeError(w, http.StatusBadRequest, "invalid identifier format")
	case strings.Contains(err.Error(), "unique constraint") || strings.Contains(err.Error(), "SQLSTATE 23505"):
		writeError(w, http.StatusConflict, "resource already exists")
	default:
		slog.Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func matchesAny(err error, sentinels []error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
