package http

import (
	"net/http"
)

// ListModels proxies the model catalog from the LLM gateway.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.LiteLLM == nil {
		writeError(w, http.StatusServiceUnavailable, "llm gateway not configured")
		return
	}
	models, err := h.LiteLLM.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "llm gateway unavailable")
		return
	}
	writeJSON(w, http.StatusOK, models)
}
