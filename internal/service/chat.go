package service

import (
	"context"
	"log/slog"

	"github.com/planloom/planloom/internal/adapter/ws"
	"github.com/planloom/planloom/internal/config"
	"github.com/planloom/planloom/internal/domain/chat"
	"github.com/planloom/planloom/internal/port/broadcast"
	"github.com/planloom/planloom/internal/port/database"
	"github.com/planloom/planloom/internal/port/generation"
)

// ChatService runs the discovery conversation between the user and the
// product-manager persona. The conversation is capped at a configured
// number of user turns; at the cap the assistant hands off to roadmap
// generation instead of asking more questions.
type ChatService struct {
	store database.Store
	gen   generation.Generator
	hub   broadcast.Broadcaster
	cfg   config.Chat
}

// NewChatService creates a new ChatService.
func NewChatService(store database.Store, gen generation.Generator, hub broadcast.Broadcaster, cfg config.Chat) *ChatService {
	return &ChatService{store: store, gen: gen, hub: hub, cfg: cfg}
}

// History returns the full discovery conversation for a project.
func (s *ChatService) History(ctx context.Context, projectID string) ([]chat.Message, error) {
	return s.store.ListChatMessages(ctx, projectID)
}

// Send stores the user message, generates the assistant reply, stores it,
// and returns it.
func (s *ChatService) Send(ctx context.Context, projectID string, req chat.SendRequest) (*chat.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	proj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.store.CreateChatMessage(ctx, projectID, chat.RoleUser, req.Content)
	if err != nil {
		return nil, err
	}
	s.broadcastMessage(ctx, userMsg)

	history, err := s.store.ListChatMessages(ctx, projectID)
	if err != nil {
		return nil, err
	}

	forceAction := chat.UserTurns(history) >= s.cfg.MaxTurns
	reply, err := s.gen.DiscoveryReply(ctx, proj, history, forceAction)
	if err != nil {
		return nil, err
	}

	assistantMsg, err := s.store.CreateChatMessage(ctx, projectID, chat.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}
	s.broadcastMessage(ctx, assistantMsg)

	if forceAction {
		slog.Info("discovery turn cap reached", "project_id", projectID, "turns", chat.UserTurns(history))
	}
	return assistantMsg, nil
}

func (s *ChatService) broadcastMessage(ctx context.Context, m *chat.Message) {
	s.hub.BroadcastEvent(ctx, broadcast.EventChatMessage, ws.ChatMessageEvent{
		ProjectID: m.ProjectID,
		MessageID: m.ID,
		Role:      string(m.Role),
	})
}
