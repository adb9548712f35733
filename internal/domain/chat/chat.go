// Package chat defines discovery chat messages between the user and the PM persona.
package chat

import (
	"errors"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single message in a project's discovery chat.
type Message struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendRequest is the request body for sending a chat message.
type SendRequest struct {
	Content string `json:"content"`
}

// ErrContentRequired is returned when a chat message has no content.
var ErrContentRequired = errors.New("message content is required")

// Validate checks the send request for correctness.
func (r *SendRequest) Validate() error {
	if r.Content == "" {
		return ErrContentRequired
	}
	return nil
}

// UserTurns counts the user messages in a history, used to enforce the
// discovery conversation turn cap.
func UserTurns(history []Message) int {
	n := 0
	for _, m := range history {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}
