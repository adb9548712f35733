// Package execution defines the task execution state machine types: the
// lifecycle of one producer/reviewer collaboration on a single task.
package execution

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of a task execution.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInProgress      Status = "in_progress"
	StatusUnderDiscussion Status = "under_discussion"
	// StatusAwaitingConsensus is a declared state between review collection
	// and the consensus decision. The current control flow evaluates
	// consensus synchronously and never parks an execution here.
	StatusAwaitingConsensus Status = "awaiting_consensus"
	StatusAwaitingUser      Status = "awaiting_user"
	StatusCompleted         Status = "completed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Sentinel errors for workflow preconditions. Surfaced to callers as-is;
// the orchestrator never retries them.
var (
	// ErrInsufficientParticipants: fewer than 2 distinct agents available
	// (1 producer + at least 1 reviewer).
	ErrInsufficientParticipants = errors.New("need at least 2 agents (1 producer + 1 reviewer)")
	// ErrNoDeliverable: a round was requested before any artifact exists.
	ErrNoDeliverable = errors.New("no deliverable to review")
	// ErrNoActiveReview: feedback submitted without a pending user review.
	ErrNoActiveReview = errors.New("no pending user review")
	// ErrFeedbackRequired: a rejection was submitted without feedback text.
	ErrFeedbackRequired = errors.New("feedback is required when not approving")
)

// TaskExecution is one attempt to complete a task through the
// producer/reviewer workflow.
type TaskExecution struct {
	ID                   string     `json:"id"`
	TaskID               string     `json:"task_id"`
	PhaseID              string     `json:"phase_id"`
	ProjectID            string     `json:"project_id"`
	Status               Status     `json:"status"`
	PrimaryAgentID       string     `json:"primary_agent_id"`
	ReviewerAgentIDs     []string   `json:"reviewer_agent_ids"`
	CurrentRound         int        `json:"current_round"`
	MaxRounds            int        `json:"max_rounds"`
	DiscussionThreadID   string     `json:"discussion_thread_id,omitempty"`
	CurrentDeliverableID string     `json:"current_deliverable_id,omitempty"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// StartRequest holds the identifiers needed to start a task execution.
type StartRequest struct {
	TaskID    string `json:"task_id"`
	PhaseID   string `json:"phase_id"`
	ProjectID string `json:"project_id"`
}

var (
	ErrTaskIDRequired    = errors.New("task_id is required")
	ErrPhaseIDRequired   = errors.New("phase_id is required")
	ErrProjectIDRequired = errors.New("project_id is required")
)

// Validate checks the start request for correctness.
func (r *StartRequest) Validate() error {
	if r.TaskID == "" {
		return ErrTaskIDRequired
	}
	if r.PhaseID == "" {
		return ErrPhaseIDRequired
	}
	if r.ProjectID == "" {
		return ErrProjectIDRequired
	}
	return nil
}
