package llmgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planloom/planloom/internal/adapter/litellm"
	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/domain/roadmap"
)

const roadmapSystemPrompt = "You are an expert project manager creating detailed, actionable roadmaps. Generate comprehensive roadmaps tailored to the specific project context. Respond with JSON only, no prose before or after."

const roadmapSchema = `{
  "phases": [
    {
      "name": "research",
      "title": "string",
      "description": "string",
      "objective": "string",
      "deliverables": ["string"],
      "tasks": [
        {
          "title": "string",
          "description": "string",
          "assignedAgent": "string",
          "agentRole": "string",
          "dependencies": ["string"],
          "deliverables": ["string"],
          "priority": "high|medium|low"
        }
      ]
    }
  ],
  "summary": "Brief summary of the roadmap"
}`

// Roadmap asks the model for a six-phase roadmap proposal and decodes the
// JSON reply into the typed generation contract. The decoded roadmap is
// validated before it is returned; invalid model output is an error, never
// a partially persisted roadmap.
func (g *Generator) Roadmap(ctx context.Context, proj *project.Project) (*roadmap.Generated, error) {
	prompt := fmt.Sprintf(`Based on this project, generate a comprehensive project roadmap.

Project: %s
%s
Generate a detailed roadmap with 6 phases: Research, Strategy, Design, Architecture, Development, and Launch.
Use the lowercase phase names research, strategy, design, architecture, development, launch.
Each phase should have 2-4 concrete tasks.

Return the roadmap in JSON format matching this structure:
%s`, proj.Title, projectContextBlock(proj), roadmapSchema)

	ctx, cancel := context.WithTimeout(ctx, g.cfg.GenerationTimeout)
	defer cancel()

	content, err := g.client.ChatCompletion(ctx, litellm.ChatCompletionRequest{
		Model:     g.cfg.DeliverableModel,
		MaxTokens: g.cfg.MaxTokens * 2,
		Messages: []litellm.ChatMessage{
			{Role: "system", Content: roadmapSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate roadmap: %w", err)
	}

	var generated roadmap.Generated
	if err := json.Unmarshal([]byte(extractJSON(content)), &generated); err != nil {
		return nil, fmt.Errorf("decode roadmap JSON: %w", err)
	}
	if err := generated.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generated roadmap: %w", err)
	}
	return &generated, nil
}

// extractJSON strips markdown code fences the model sometimes wraps around
// JSON output.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
