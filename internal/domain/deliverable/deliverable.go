// Package deliverable defines the versioned artifact ledger for task executions.
package deliverable

import "time"

// Deliverable is one immutable version of a task execution's artifact.
// Versions for an execution form a gapless sequence starting at 1; the
// store allocates the next version atomically on append.
type Deliverable struct {
	ID          string    `json:"id"`
	ExecutionID string    `json:"execution_id"`
	Version     int       `json:"version"`
	Content     string    `json:"content"`
	CreatedBy   string    `json:"created_by"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
