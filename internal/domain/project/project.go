// Package project defines the Project domain entity and its discovery context.
package project

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of a project.
type Status string

const (
	StatusDiscovery Status = "discovery"
	StatusRoadmap   Status = "roadmap"
	StatusExecution Status = "execution"
	StatusCompleted Status = "completed"
)

// Context holds the requirements gathered during discovery chat.
type Context struct {
	TargetAudience        string   `json:"target_audience,omitempty"`
	ProblemStatement      string   `json:"problem_statement,omitempty"`
	ValueProposition      string   `json:"value_proposition,omitempty"`
	TechnicalRequirements []string `json:"technical_requirements,omitempty"`
	Constraints           []string `json:"constraints,omitempty"`
	Goals                 []string `json:"goals,omitempty"`
}

// Project represents a product-planning project.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Context     Context   `json:"context"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new project.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ErrDescriptionRequired is returned when a project is created without a description.
var ErrDescriptionRequired = errors.New("project description is required")

// Validate checks the create request for correctness.
func (r *CreateRequest) Validate() error {
	if r.Description == "" {
		return ErrDescriptionRequired
	}
	return nil
}
