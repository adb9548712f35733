package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.HandleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Projects
		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{id}", h.GetProject)
		r.Put("/projects/{id}/context", h.UpdateProjectContext)
		r.Delete("/projects/{id}", h.DeleteProject)

		// Discovery chat (nested under projects)
		r.Get("/projects/{id}/chat", h.ListChatMessages)
		r.Post("/projects/{id}/chat", h.SendChatMessage)

		// Roadmaps (nested under projects)
		r.Get("/projects/{id}/roadmap", h.GetRoadmap)
		r.Post("/projects/{id}/roadmap", h.GenerateRoadmap)
		r.Post("/projects/{id}/roadmap/approve", h.ApproveRoadmap)
		r.Patch("/projects/{id}/phases/{phaseID}", h.UpdatePhaseStatus)

		// Phases
		r.Get("/phases/{id}/tasks", h.ListPhaseTasks)
		r.Get("/phases/{id}/executions", h.ListPhaseExecutions)

		// Agents
		r.Get("/agents", h.ListAgents)
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents/{id}", h.GetAgent)
		r.Put("/agents/{id}", h.UpdateAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)

		// Task executions
		r.Post("/executions", h.StartExecution)
		r.Get("/executions/{id}", h.GetExecutionState)
		r.Post("/executions/{id}/advance", h.AdvanceExecution)
		r.Post("/executions/{id}/feedback", h.SubmitFeedback)
		r.Get("/tasks/{id}/execution", h.GetExecutionByTask)

		// LLM gateway
		r.Get("/llm/models", h.ListModels)
	})

	// WebSocket endpoint for real-time events.
	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}
}
