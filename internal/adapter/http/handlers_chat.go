package http

import (
	"net/http"

	"github.com/planloom/planloom/internal/domain/chat"
)

// ListChatMessages returns the discovery conversation for a project.
func (h *Handlers) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	history, err := h.Chat.History(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	if history == nil {
		history = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, history)
}

// SendChatMessage stores the user message and returns the assistant reply.
func (h *Handlers) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[chat.SendRequest](w, r)
	if !ok {
		return
	}
	reply, err := h.Chat.Send(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}
