package llmgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/planloom/planloom/internal/adapter/litellm"
	"github.com/planloom/planloom/internal/domain/chat"
	"github.com/planloom/planloom/internal/domain/project"
)

const discoverySystemPrompt = `You are an experienced product manager running a short discovery conversation about a new project.

Guidelines:
1. Infer the obvious. If the user says "personal finance app", do not ask if it is B2B. Tailor questions to what is genuinely unclear.
2. Ask 3-5 targeted questions total. Keep each response focused on a single question.
3. Know when to stop: once you understand what they are building, who it is for, and what problems it solves, you have enough.
4. Be enthusiastic and supportive. Keep responses concise. Use markdown for emphasis.

The goal is to gather just enough context to generate a great project roadmap, not to interrogate the user.`

const discoveryActionReply = "Perfect! I have a solid understanding of your project. Let me create a comprehensive roadmap that will guide the development from concept to launch.\n\nReady to see your roadmap?"

// DiscoveryReply produces the next product-manager turn of a discovery
// conversation. When forceAction is set the turn budget is exhausted and a
// fixed hand-off reply is returned without calling the model.
func (g *Generator) DiscoveryReply(ctx context.Context, proj *project.Project, history []chat.Message, forceAction bool) (string, error) {
	if forceAction {
		return discoveryActionReply, nil
	}

	msgs := make([]litellm.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, litellm.ChatMessage{
		Role:    "system",
		Content: discoverySystemPrompt + "\n\nProject: " + proj.Title + "\n" + projectContextBlock(proj),
	})
	for _, m := range history {
		msgs = append(msgs, litellm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.GenerationTimeout)
	defer cancel()

	content, err := g.client.ChatCompletion(ctx, litellm.ChatCompletionRequest{
		Model:     g.chat.Model,
		Messages:  msgs,
		MaxTokens: g.cfg.MaxTokens / 2,
	})
	if err != nil {
		return "", fmt.Errorf("generate discovery reply: %w", err)
	}
	return content, nil
}

func projectContextBlock(proj *project.Project) string {
	var b strings.Builder
	if proj.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", proj.Description)
	}
	pc := proj.Context
	if pc.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", pc.TargetAudience)
	}
	if pc.ProblemStatement != "" {
		fmt.Fprintf(&b, "Problem: %s\n", pc.ProblemStatement)
	}
	if len(pc.Goals) > 0 {
		fmt.Fprintf(&b, "Goals: %s\n", strings.Join(pc.Goals, ", "))
	}
	return b.String()
}
