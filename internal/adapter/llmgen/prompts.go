package llmgen

import (
	"fmt"
	"strings"

	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/port/generation"
)

// Verdict markers expected at the end of generated reviews and responses.
const (
	markerApproved      = "APPROVED"
	markerNeedsRevision = "NEEDS_REVISION"
	markerRevisionYes   = "REVISION_NEEDED"
	markerRevisionNo    = "NO_REVISION"
)

func taskHeader(tc generation.TaskContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Project:** %s\n", tc.ProjectName)
	fmt.Fprintf(&b, "**Phase:** %s\n", tc.PhaseName)
	fmt.Fprintf(&b, "**Task:** %s\n", tc.TaskTitle)
	fmt.Fprintf(&b, "**Description:** %s\n", tc.TaskDescription)
	if tc.ProjectContext.TargetAudience != "" {
		fmt.Fprintf(&b, "**Target audience:** %s\n", tc.ProjectContext.TargetAudience)
	}
	if tc.ProjectContext.ProblemStatement != "" {
		fmt.Fprintf(&b, "**Problem:** %s\n", tc.ProjectContext.ProblemStatement)
	}
	return b.String()
}

func agentIdentity(a agent.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s.\n\n", a.Name, a.Role)
	if a.Goal != "" {
		fmt.Fprintf(&b, "Your goal: %s\n", a.Goal)
	}
	if a.Backstory != "" {
		fmt.Fprintf(&b, "Your backstory: %s\n", a.Backstory)
	}
	return b.String()
}

func concernsBlock(concerns []discussion.Message) string {
	if len(concerns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range concerns {
		fmt.Fprintf(&b, "**%s (%s)**:\n%s\n\n", m.AgentName, m.AgentRole, m.Content)
	}
	return b.String()
}

func initialDeliverablePrompt(producer agent.Agent, tc generation.TaskContext) string {
	return agentIdentity(producer) + `
You have been assigned to complete the following task:

` + taskHeader(tc) + `
Create a comprehensive deliverable for this task. Be specific, detailed, and actionable.
Format your response in markdown with clear sections.`
}

func reviewPrompt(reviewer agent.Agent, tc generation.TaskContext, deliverableContent string, prior []discussion.Message) string {
	discussionContext := ""
	if len(prior) > 0 {
		discussionContext = "\nPrevious discussion:\n\n" + concernsBlock(prior)
	}
	return agentIdentity(reviewer) + `
You are reviewing the following deliverable for this task:

` + taskHeader(tc) + `
Deliverable:

` + deliverableContent + `
` + discussionContext + `
Provide a thorough review with:
1. What works well
2. Specific concerns or suggestions for improvement
3. Whether you approve this deliverable or request changes

End your review with either:
- "` + markerApproved + `" if this deliverable meets quality standards
- "` + markerNeedsRevision + `" if changes are required

Be constructive, specific, and focus on helping improve the deliverable.`
}

func producerResponsePrompt(producer agent.Agent, tc generation.TaskContext, deliverableContent string, concerns []discussion.Message) string {
	return agentIdentity(producer) + `
You created this deliverable:

` + deliverableContent + `

The review team provided this feedback:

` + concernsBlock(concerns) + `
Respond to the feedback:
1. Acknowledge valid points
2. Explain your approach where needed
3. Determine if you need to create a revised version

End your response with either:
- "` + markerRevisionYes + `" if you will create an updated deliverable
- "` + markerRevisionNo + `" if concerns can be addressed without changing the deliverable

If revision is needed, briefly summarize what you'll change.`
}

func revisionPrompt(producer agent.Agent, tc generation.TaskContext, deliverableContent string, concerns []discussion.Message, plan string) string {
	b := agentIdentity(producer) + `
Your current deliverable:

` + deliverableContent + `

Reviewer feedback to address:

` + concernsBlock(concerns)
	if plan != "" {
		b += "\nYour revision plan:\n" + plan + "\n"
	}
	return b + `
Create a revised version of the deliverable that addresses the feedback.
Return the complete updated deliverable in markdown. Do not include commentary
about the changes, only the deliverable itself.`
}

// parseApproval reads the reviewer's verdict markers. NEEDS_REVISION wins
// when both markers appear, since APPROVED is a substring of phrases like
// "cannot be APPROVED until".
func parseApproval(content string) bool {
	if strings.Contains(content, markerNeedsRevision) {
		return false
	}
	return strings.Contains(content, markerApproved)
}

// parseRevisionNeeded reads the producer's revision markers. NO_REVISION
// wins only when REVISION_NEEDED is absent.
func parseRevisionNeeded(content string) bool {
	return strings.Contains(content, markerRevisionYes)
}

// revisionSummary extracts a short description of the planned changes from
// the producer's response, falling back to a generic summary.
func revisionSummary(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == markerRevisionYes {
			continue
		}
		lower := strings.ToLower(line)
		for _, verb := range []string{"will create", "will make", "will update", "will revise", "will change", "i'll"} {
			if strings.Contains(lower, verb) {
				return line
			}
		}
	}
	return "Addressing reviewer feedback"
}
