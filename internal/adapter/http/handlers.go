package http

import (
	"net/http"

	"github.com/planloom/planloom/internal/adapter/litellm"
	"github.com/planloom/planloom/internal/adapter/ws"
	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/port/messagequeue"
	"github.com/planloom/planloom/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Projects     *service.ProjectService
	Chat         *service.ChatService
	Agents       *service.AgentService
	Roadmaps     *service.RoadmapService
	Orchestrator *service.OrchestratorService
	LiteLLM      *litellm.Client
	Queue        messagequeue.Queue
	Hub          *ws.Hub
}

// HandleHealth reports liveness plus downstream connectivity.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "ok",
	}
	if h.Queue != nil {
		status["nats"] = h.Queue.IsConnected()
	}
	if h.LiteLLM != nil {
		healthy, _ := h.LiteLLM.Health(r.Context())
		status["litellm"] = healthy
	}
	writeJSON(w, http.StatusOK, status)
}

// ListProjects returns all projects.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProject returns one project by ID.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Projects.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProject creates a new project in discovery.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.CreateRequest](w, r)
	if !ok {
		return
	}
	p, err := h.Projects.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProjectContext replaces the discovery context of a project.
func (h *Handlers) UpdateProjectContext(w http.ResponseWriter, r *http.Request) {
	pc, ok := readJSON[project.Context](w, r)
	if !ok {
		return
	}
	id := urlParam(r, "id")
	if err := h.Projects.UpdateContext(r.Context(), id, pc); err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	p, err := h.Projects.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject removes a project and everything hanging off it.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Projects.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
