// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/chat"
	"github.com/planloom/planloom/internal/domain/deliverable"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/domain/review"
	"github.com/planloom/planloom/internal/domain/roadmap"
)

// Store is the port interface for database operations.
//
// The discussion message and deliverable ledgers are append-only by design:
// no update or delete methods exist for them, so the review trail and the
// artifact history cannot be rewritten through this interface.
type Store interface {
	// Projects
	ListProjects(ctx context.Context) ([]project.Project, error)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	UpdateProjectStatus(ctx context.Context, id string, status project.Status) error
	UpdateProjectContext(ctx context.Context, id string, pc project.Context) error
	DeleteProject(ctx context.Context, id string) error

	// Discovery chat
	ListChatMessages(ctx context.Context, projectID string) ([]chat.Message, error)
	CreateChatMessage(ctx context.Context, projectID string, role chat.Role, content string) (*chat.Message, error)

	// Agents
	ListAgents(ctx context.Context) ([]agent.Agent, error)
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
	GetAgentsByIDs(ctx context.Context, ids []string) ([]agent.Agent, error)
	CreateAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error)
	UpdateAgent(ctx context.Context, id string, req agent.UpdateRequest) (*agent.Agent, error)
	DeleteAgent(ctx context.Context, id string) error

	// Roadmaps
	CreateRoadmap(ctx context.Context, r *roadmap.Roadmap) (*roadmap.Roadmap, error)
	GetRoadmapByProject(ctx context.Context, projectID string) (*roadmap.Roadmap, error)
	ApproveRoadmap(ctx context.Context, roadmapID, approvedBy string) error
	GetTask(ctx context.Context, id string) (*roadmap.Task, error)
	GetPhase(ctx context.Context, id string) (*roadmap.Phase, error)
	ListTasksByPhase(ctx context.Context, phaseID string) ([]roadmap.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status roadmap.WorkStatus) error
	UpdatePhaseStatus(ctx context.Context, id string, status roadmap.WorkStatus) error

	// Task executions
	CreateExecution(ctx context.Context, e *execution.TaskExecution) (*execution.TaskExecution, error)
	GetExecution(ctx context.Context, id string) (*execution.TaskExecution, error)
	GetExecutionByTask(ctx context.Context, taskID string) (*execution.TaskExecution, error)
	ListExecutionsByPhase(ctx context.Context, phaseID string) ([]execution.TaskExecution, error)
	UpdateExecutionStatus(ctx context.Context, id string, status execution.Status) error
	UpdateExecutionRound(ctx context.Context, id string, round int) error
	SetExecutionThread(ctx context.Context, id, threadID string) error
	SetExecutionDeliverable(ctx context.Context, id, deliverableID string) error
	CompleteExecution(ctx context.Context, id string) error

	// Discussion threads
	CreateThread(ctx context.Context, executionID string) (*discussion.Thread, error)
	GetThread(ctx context.Context, id string) (*discussion.Thread, error)
	UpdateThreadStatus(ctx context.Context, id string, status discussion.ThreadStatus) error

	// Discussion messages (append-only)
	AppendMessage(ctx context.Context, m *discussion.Message) (*discussion.Message, error)
	ListMessagesByThread(ctx context.Context, threadID string) ([]discussion.Message, error)
	ListMessagesByRound(ctx context.Context, threadID string, round int) ([]discussion.Message, error)

	// Deliverables (append-only, versioned)
	//
	// AppendDeliverable assigns version = max(version)+1 for the execution
	// atomically (1 for the first write) and returns the stored row.
	AppendDeliverable(ctx context.Context, d *deliverable.Deliverable) (*deliverable.Deliverable, error)
	GetDeliverable(ctx context.Context, id string) (*deliverable.Deliverable, error)
	ListDeliverablesByExecution(ctx context.Context, executionID string) ([]deliverable.Deliverable, error)
	GetLatestDeliverable(ctx context.Context, executionID string) (*deliverable.Deliverable, error)

	// User reviews
	//
	// OpenUserReview creates the review row for an execution, or resets an
	// existing one back to pending for a new escalation cycle.
	OpenUserReview(ctx context.Context, executionID string) (*review.UserReview, error)
	GetUserReviewByExecution(ctx context.Context, executionID string) (*review.UserReview, error)
	ApproveUserReview(ctx context.Context, id string) error
	SubmitUserReviewFeedback(ctx context.Context, id, feedback string) error
}
