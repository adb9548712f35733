package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// ExecutionEvent is broadcast on task execution lifecycle changes.
type ExecutionEvent struct {
	ExecutionID string `json:"execution_id"`
	TaskID      string `json:"task_id"`
	ProjectID   string `json:"project_id"`
	Status      string `json:"status"`
	Round       int    `json:"round"`
}

// DiscussionMessageEvent is broadcast when a message is appended to a
// discussion thread.
type DiscussionMessageEvent struct {
	ExecutionID string `json:"execution_id"`
	ThreadID    string `json:"thread_id"`
	MessageID   string `json:"message_id"`
	AgentName   string `json:"agent_name"`
	Round       int    `json:"round"`
	Type        string `json:"message_type"`
}

// DeliverableEvent is broadcast when a new deliverable version is created.
type DeliverableEvent struct {
	ExecutionID string `json:"execution_id"`
	Version     int    `json:"version"`
	CreatedBy   string `json:"created_by"`
}

// RoadmapGeneratedEvent is broadcast when a roadmap has been generated
// for a project.
type RoadmapGeneratedEvent struct {
	ProjectID string `json:"project_id"`
	RoadmapID string `json:"roadmap_id"`
	Phases    int    `json:"phases"`
}

// ChatMessageEvent is broadcast when a discovery chat message is stored.
type ChatMessageEvent struct {
	ProjectID string `json:"project_id"`
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
