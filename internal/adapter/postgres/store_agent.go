package postgres

import (
	"context"
	"fmt"

	"github.com/planloom/planloom/internal/domain/agent"
)

const agentColumns = `id, name, role, goal, backstory, tools, llm_provider, llm_model, allow_delegation, verbose, created_at, updated_at`

func scanAgent(row scannable) (agent.Agent, error) {
	var a agent.Agent
	err := row.Scan(&a.ID, &a.Name, &a.Role, &a.Goal, &a.Backstory, &a.Tools,
		&a.LLMProvider, &a.LLMModel, &a.AllowDelegation, &a.Verbose, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get agent %s", id)
	}
	return &a, nil
}

// GetAgentsByIDs returns agents in the order of the given IDs. Missing IDs
// are skipped rather than treated as an error; callers check the count.
func (s *Store) GetAgentsByIDs(ctx context.Context, ids []string) ([]agent.Agent, error) {
	if len(ids) == 0 {
		return []agent.Agent{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get agents by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]agent.Agent, len(ids))
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]agent.Agent, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

func (s *Store) CreateAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO agents (name, role, goal, backstory, tools, llm_provider, llm_model, allow_delegation, verbose)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+agentColumns,
		req.Name, req.Role, req.Goal, req.Backstory, pgTextArray(req.Tools),
		req.LLMProvider, req.LLMModel, req.AllowDelegation, req.Verbose)

	a, err := scanAgent(row)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return &a, nil
}

func (s *Store) UpdateAgent(ctx context.Context, id string, req agent.UpdateRequest) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE agents SET
			name = COALESCE($2, name),
			role = COALESCE($3, role),
			goal = COALESCE($4, goal),
			backstory = COALESCE($5, backstory),
			tools = COALESCE($6, tools),
			llm_provider = COALESCE($7, llm_provider),
			llm_model = COALESCE($8, llm_model),
			allow_delegation = COALESCE($9, allow_delegation),
			verbose = COALESCE($10, verbose),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+agentColumns,
		id, req.Name, req.Role, req.Goal, req.Backstory, req.Tools,
		req.LLMProvider, req.LLMModel, req.AllowDelegation, req.Verbose)

	a, err := scanAgent(row)
	if err != nil {
		return nil, notFoundWrap(err, "update agent %s", id)
	}
	return &a, nil
}

func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete agent %s", id)
}
