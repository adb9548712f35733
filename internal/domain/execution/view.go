package execution

import (
	"github.com/planloom/planloom/internal/domain/deliverable"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/review"
)

// DiscussionState is the read-model of a thread: all messages, a per-round
// grouping, and the highest round tag seen (0 when the thread is empty).
type DiscussionState struct {
	Thread          discussion.Thread            `json:"thread"`
	Messages        []discussion.Message         `json:"messages"`
	MessagesByRound map[int][]discussion.Message `json:"messages_by_round"`
	CurrentRound    int                          `json:"current_round"`
}

// View is the full read-model of an execution assembled for callers:
// the execution row, its discussion, every deliverable version in order,
// and the user review if one exists. Pure read, no side effects.
type View struct {
	Execution    TaskExecution             `json:"execution"`
	Discussion   *DiscussionState          `json:"discussion,omitempty"`
	Deliverables []deliverable.Deliverable `json:"deliverables"`
	UserReview   *review.UserReview        `json:"user_review,omitempty"`
}

// NewDiscussionState builds the read-model for a thread's messages.
func NewDiscussionState(thread discussion.Thread, msgs []discussion.Message) *DiscussionState {
	return &DiscussionState{
		Thread:          thread,
		Messages:        msgs,
		MessagesByRound: discussion.GroupByRound(msgs),
		CurrentRound:    discussion.MaxRound(msgs),
	}
}
