// Package agent defines the AI persona domain entity.
package agent

import (
	"errors"
	"time"
)

// Agent represents a configured AI persona that produces or reviews
// deliverables during task executions.
type Agent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Goal            string    `json:"goal"`
	Backstory       string    `json:"backstory"`
	Tools           []string  `json:"tools"`
	LLMProvider     string    `json:"llm_provider"`
	LLMModel        string    `json:"llm_model"`
	AllowDelegation bool      `json:"allow_delegation"`
	Verbose         bool      `json:"verbose"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new agent.
type CreateRequest struct {
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	Goal            string   `json:"goal"`
	Backstory       string   `json:"backstory"`
	Tools           []string `json:"tools"`
	LLMProvider     string   `json:"llm_provider"`
	LLMModel        string   `json:"llm_model"`
	AllowDelegation bool     `json:"allow_delegation"`
	Verbose         bool     `json:"verbose"`
}

// UpdateRequest holds the optional fields for updating an agent.
type UpdateRequest struct {
	Name            *string  `json:"name,omitempty"`
	Role            *string  `json:"role,omitempty"`
	Goal            *string  `json:"goal,omitempty"`
	Backstory       *string  `json:"backstory,omitempty"`
	Tools           []string `json:"tools,omitempty"`
	LLMProvider     *string  `json:"llm_provider,omitempty"`
	LLMModel        *string  `json:"llm_model,omitempty"`
	AllowDelegation *bool    `json:"allow_delegation,omitempty"`
	Verbose         *bool    `json:"verbose,omitempty"`
}

var (
	ErrNameRequired = errors.New("agent name is required")
	ErrRoleRequired = errors.New("agent role is required")
)

// Validate checks the create request for correctness.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if r.Role == "" {
		return ErrRoleRequired
	}
	return nil
}

// Panel is a resolved set of participants for one task execution:
// a single producer and an ordered reviewer panel.
type Panel struct {
	Producer  Agent
	Reviewers []Agent
}

// ReviewerIDs returns the reviewer IDs in panel order.
func (p Panel) ReviewerIDs() []string {
	ids := make([]string, len(p.Reviewers))
	for i, a := range p.Reviewers {
		ids[i] = a.ID
	}
	return ids
}
