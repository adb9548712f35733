package http

import (
	"net/http"

	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/review"
)

// StartExecution creates a task execution and generates the first
// deliverable. Round processing is kicked off asynchronously by the
// advance consumer, so the response returns as soon as version 1 exists.
func (h *Handlers) StartExecution(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[execution.StartRequest](w, r)
	if !ok {
		return
	}
	exec, err := h.Orchestrator.Start(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, exec)
}

// GetExecutionState returns the assembled read model of an execution:
// the execution row, discussion, deliverable history, and user review.
func (h *Handlers) GetExecutionState(w http.ResponseWriter, r *http.Request) {
	view, err := h.Orchestrator.GetExecutionState(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AdvanceExecution synchronously processes review rounds until the
// execution escalates to the user.
func (h *Handlers) AdvanceExecution(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.Orchestrator.ProcessRound(r.Context(), id); err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	view, err := h.Orchestrator.GetExecutionState(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SubmitFeedback records the human decision for an escalated execution.
func (h *Handlers) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[review.FeedbackRequest](w, r)
	if !ok {
		return
	}
	id := urlParam(r, "id")
	if err := h.Orchestrator.SubmitUserFeedback(r.Context(), id, req); err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	view, err := h.Orchestrator.GetExecutionState(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetExecutionByTask returns the execution attached to a task.
func (h *Handlers) GetExecutionByTask(w http.ResponseWriter, r *http.Request) {
	exec, err := h.Orchestrator.GetExecutionByTask(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "no execution for task")
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// ListPhaseExecutions returns all executions for a roadmap phase.
func (h *Handlers) ListPhaseExecutions(w http.ResponseWriter, r *http.Request) {
	execs, err := h.Orchestrator.ListExecutionsByPhase(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if execs == nil {
		execs = []execution.TaskExecution{}
	}
	writeJSON(w, http.StatusOK, execs)
}
