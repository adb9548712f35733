// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Event type constants for websocket events.
const (
	EventExecutionStarted   = "execution.started"
	EventExecutionRound     = "execution.round"
	EventExecutionEscalated = "execution.escalated"
	EventExecutionCompleted = "execution.completed"
	EventDiscussionMessage  = "discussion.message"
	EventDeliverableCreated = "deliverable.created"
	EventChatMessage        = "chat.message"
	EventRoadmapGenerated   = "roadmap.generated"
)
