// Package llmgen implements the generation.Generator port on top of the
// LiteLLM chat completion API.
package llmgen

import (
	"context"
	"fmt"

	"github.com/planloom/planloom/internal/adapter/litellm"
	"github.com/planloom/planloom/internal/config"
	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/port/generation"
)

// Generator turns orchestrator generation requests into LiteLLM chat
// completions. Every call is bounded by the configured generation timeout,
// and failures propagate to the caller unaltered so the orchestrator can
// fail the execution instead of advancing on placeholder content.
type Generator struct {
	client *litellm.Client
	cfg    config.Orchestrator
	chat   config.Chat
}

// New creates a Generator backed by the given LiteLLM client.
func New(client *litellm.Client, cfg config.Orchestrator, chat config.Chat) *Generator {
	return &Generator{client: client, cfg: cfg, chat: chat}
}

func (g *Generator) complete(ctx context.Context, model, system, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.GenerationTimeout)
	defer cancel()

	return g.client.ChatCompletion(ctx, litellm.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []litellm.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
}

// InitialDeliverable produces the first deliverable version for a task.
func (g *Generator) InitialDeliverable(ctx context.Context, producer agent.Agent, tc generation.TaskContext) (string, error) {
	content, err := g.complete(ctx,
		g.cfg.DeliverableModel,
		"You are a helpful AI agent working on a project task. Create high-quality, detailed deliverables.",
		initialDeliverablePrompt(producer, tc),
		g.cfg.MaxTokens,
	)
	if err != nil {
		return "", fmt.Errorf("generate initial deliverable: %w", err)
	}
	return content, nil
}

// Review produces a reviewer's assessment of a deliverable. The verdict is
// parsed from the trailing marker of the generated text.
func (g *Generator) Review(ctx context.Context, reviewer agent.Agent, tc generation.TaskContext, deliverableContent string, prior []discussion.Message) (*generation.ReviewResult, error) {
	content, err := g.complete(ctx,
		g.cfg.DeliverableModel,
		"You are a thorough reviewer providing constructive feedback on project deliverables.",
		reviewPrompt(reviewer, tc, deliverableContent, prior),
		g.cfg.MaxTokens/2,
	)
	if err != nil {
		return nil, fmt.Errorf("generate review: %w", err)
	}

	return &generation.ReviewResult{
		Content:  content,
		Approved: parseApproval(content),
	}, nil
}

// ProducerResponse produces the producer's reply to the concerns of a round.
func (g *Generator) ProducerResponse(ctx context.Context, producer agent.Agent, tc generation.TaskContext, deliverableContent string, concerns []discussion.Message) (*generation.ResponseResult, error) {
	content, err := g.complete(ctx,
		g.cfg.DeliverableModel,
		"You are responding to feedback on your work. Be professional and collaborative.",
		producerResponsePrompt(producer, tc, deliverableContent, concerns),
		g.cfg.MaxTokens/2,
	)
	if err != nil {
		return nil, fmt.Errorf("generate producer response: %w", err)
	}

	needsRevision := parseRevisionNeeded(content)
	result := &generation.ResponseResult{
		Content:       content,
		NeedsRevision: needsRevision,
	}
	if needsRevision {
		result.RevisionSummary = revisionSummary(content)
	}
	return result, nil
}

// Revision produces a new deliverable version addressing the concerns.
func (g *Generator) Revision(ctx context.Context, producer agent.Agent, tc generation.TaskContext, deliverableContent string, concerns []discussion.Message, plan string) (string, error) {
	content, err := g.complete(ctx,
		g.cfg.DeliverableModel,
		"You are revising your deliverable based on review feedback. Produce the complete updated deliverable, not a diff.",
		revisionPrompt(producer, tc, deliverableContent, concerns, plan),
		g.cfg.MaxTokens,
	)
	if err != nil {
		return "", fmt.Errorf("generate revision: %w", err)
	}
	return content, nil
}
