package http

import (
	"net/http"

	"github.com/planloom/planloom/internal/domain/roadmap"
)

// GetRoadmap returns the roadmap for a project with phases and tasks.
func (h *Handlers) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := h.Roadmaps.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// GenerateRoadmap produces and persists a roadmap from the discovery context.
func (h *Handlers) GenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := h.Roadmaps.Generate(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

type approveRoadmapRequest struct {
	ApprovedBy string `json:"approved_by"`
}

// ApproveRoadmap marks the roadmap approved and moves the project into
// execution.
func (h *Handlers) ApproveRoadmap(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[approveRoadmapRequest](w, r)
	if !ok {
		return
	}
	rm, err := h.Roadmaps.Approve(r.Context(), urlParam(r, "id"), req.ApprovedBy)
	if err != nil {
		writeDomainError(w, err, "roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

type updatePhaseStatusRequest struct {
	Status roadmap.WorkStatus `json:"status"`
}

// UpdatePhaseStatus moves a roadmap phase between work states. Opening a
// phase auto-starts its first unblocked pending task.
func (h *Handlers) UpdatePhaseStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[updatePhaseStatusRequest](w, r)
	if !ok {
		return
	}
	phase, err := h.Roadmaps.UpdatePhaseStatus(r.Context(), urlParam(r, "id"), urlParam(r, "phaseID"), req.Status)
	if err != nil {
		writeDomainError(w, err, "phase not found")
		return
	}
	writeJSON(w, http.StatusOK, phase)
}

// ListPhaseTasks returns the tasks of one roadmap phase.
func (h *Handlers) ListPhaseTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Roadmaps.ListTasks(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "phase not found")
		return
	}
	if tasks == nil {
		tasks = []roadmap.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}
