// Package generation defines the content generation port used by the
// task orchestrator and the roadmap and chat services.
package generation

import (
	"context"

	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/chat"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/domain/roadmap"
)

// TaskContext carries the task being executed and its surrounding project
// context into every generation call.
type TaskContext struct {
	TaskTitle       string
	TaskDescription string
	PhaseName       string
	ProjectName     string
	ProjectContext  project.Context
}

// ReviewResult is a reviewer's verdict on a deliverable version.
type ReviewResult struct {
	Content  string
	Approved bool
}

// ResponseResult is a producer's reply to the open concerns of a round.
// NeedsRevision signals that the producer intends to publish a new
// deliverable version; RevisionSummary describes the planned changes.
type ResponseResult struct {
	Content         string
	NeedsRevision   bool
	RevisionSummary string
}

// Generator produces deliverables, reviews, responses and revisions.
type Generator interface {
	// InitialDeliverable produces version 1 content for a task.
	InitialDeliverable(ctx context.Context, producer agent.Agent, tc TaskContext) (string, error)

	// Review produces a reviewer's assessment of the given deliverable,
	// seeded with the prior discussion history.
	Review(ctx context.Context, reviewer agent.Agent, tc TaskContext, deliverableContent string, prior []discussion.Message) (*ReviewResult, error)

	// ProducerResponse produces the producer's reply to concerns raised in
	// the current round.
	ProducerResponse(ctx context.Context, producer agent.Agent, tc TaskContext, deliverableContent string, concerns []discussion.Message) (*ResponseResult, error)

	// Revision produces a new deliverable version incorporating the
	// concerns and the producer's revision plan.
	Revision(ctx context.Context, producer agent.Agent, tc TaskContext, deliverableContent string, concerns []discussion.Message, plan string) (string, error)

	// DiscoveryReply produces the next product-manager turn of a project
	// discovery conversation.
	DiscoveryReply(ctx context.Context, proj *project.Project, history []chat.Message, forceAction bool) (string, error)

	// Roadmap produces a structured roadmap proposal for a project.
	Roadmap(ctx context.Context, proj *project.Project) (*roadmap.Generated, error)
}
