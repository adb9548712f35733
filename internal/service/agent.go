package service

import (
	"context"
	"log/slog"

	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/port/database"
)

// AgentService handles agent persona management.
type AgentService struct {
	store database.Store
}

// NewAgentService creates a new AgentService.
func NewAgentService(store database.Store) *AgentService {
	return &AgentService{store: store}
}

// List returns all configured agents.
func (s *AgentService) List(ctx context.Context) ([]agent.Agent, error) {
	return s.store.ListAgents(ctx)
}

// Get returns an agent by ID.
func (s *AgentService) Get(ctx context.Context, id string) (*agent.Agent, error) {
	return s.store.GetAgent(ctx, id)
}

// Create validates and persists a new agent.
func (s *AgentService) Create(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a, err := s.store.CreateAgent(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Info("agent created", "agent_id", a.ID, "name", a.Name, "role", a.Role)
	return a, nil
}

// Update applies a partial update to an agent.
func (s *AgentService) Update(ctx context.Context, id string, req agent.UpdateRequest) (*agent.Agent, error) {
	return s.store.UpdateAgent(ctx, id, req)
}

// Delete removes an agent. Existing executions keep their identity
// snapshots in the discussion ledger.
func (s *AgentService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteAgent(ctx, id)
}
