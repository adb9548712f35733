// Package review defines the human review gate for escalated task executions.
package review

import "time"

// Status represents the lifecycle state of a user review.
type Status string

const (
	StatusPending          Status = "pending"
	StatusApproved         Status = "approved"
	StatusFeedbackProvided Status = "feedback_provided"
)

// UserReview records the human decision for one escalation cycle. Each
// execution keeps a single row that is reset to pending when the workflow
// escalates again after feedback.
type UserReview struct {
	ID           string     `json:"id"`
	ExecutionID  string     `json:"execution_id"`
	Status       Status     `json:"status"`
	UserFeedback string     `json:"user_feedback,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
}

// FeedbackRequest is the request body for submitting a user decision.
type FeedbackRequest struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}
