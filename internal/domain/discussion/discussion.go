// Package discussion defines the append-only review discussion ledger:
// one thread per task execution, messages tagged by round.
package discussion

import "time"

// ThreadStatus represents the lifecycle state of a discussion thread.
type ThreadStatus string

const (
	ThreadActive           ThreadStatus = "active"
	ThreadConsensusReached ThreadStatus = "consensus_reached"
	ThreadAwaitingUser     ThreadStatus = "awaiting_user"
	ThreadClosed           ThreadStatus = "closed"
)

// MessageType classifies a discussion message.
type MessageType string

const (
	TypeInitialReview MessageType = "initial_review"
	TypeResponse      MessageType = "response"
	TypeRevision      MessageType = "revision"
	TypeQuestion      MessageType = "question"
	TypeApproval      MessageType = "approval"
	TypeConcern       MessageType = "concern"
	TypeUserFeedback  MessageType = "user_feedback"
)

// ApprovalStatus is the verdict carried by review-type messages.
type ApprovalStatus string

const (
	Approved    ApprovalStatus = "approved"
	HasConcerns ApprovalStatus = "has_concerns"
	Pending     ApprovalStatus = "pending"
)

// Thread is the discussion container owned by a single task execution.
// Only the orchestrator mutates its status; participants append messages.
type Thread struct {
	ID          string       `json:"id"`
	ExecutionID string       `json:"execution_id"`
	Status      ThreadStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Message is one entry in a thread. Messages are append-only: the store
// exposes no update or delete operation, keeping the review trail
// tamper-evident. Participant identity is snapshotted at write time.
// Listings are totally ordered by (round, seq); Seq is assigned by the
// store at insertion.
type Message struct {
	ID                 string         `json:"id"`
	ThreadID           string         `json:"thread_id"`
	AgentID            string         `json:"agent_id"`
	AgentName          string         `json:"agent_name"`
	AgentRole          string         `json:"agent_role"`
	Round              int            `json:"round"`
	Seq                int64          `json:"seq"`
	Type               MessageType    `json:"message_type"`
	Content            string         `json:"content"`
	DeliverableVersion int            `json:"deliverable_version,omitempty"`
	Approval           ApprovalStatus `json:"approval_status,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// IsReview reports whether the message carries a reviewer verdict.
func (m Message) IsReview() bool {
	return m.Type == TypeInitialReview || m.Type == TypeApproval
}
