package messagequeue

// ExecutionStartedPayload is the schema for executions.started messages.
type ExecutionStartedPayload struct {
	ExecutionID string `json:"execution_id"`
	TaskID      string `json:"task_id"`
	PhaseID     string `json:"phase_id"`
	ProjectID   string `json:"project_id"`
	ProducerID  string `json:"producer_id"`
	Reviewers   int    `json:"reviewers"`
}

// ExecutionRoundPayload is the schema for executions.round messages.
type ExecutionRoundPayload struct {
	ExecutionID        string `json:"execution_id"`
	Round              int    `json:"round"`
	DeliverableVersion int    `json:"deliverable_version"`
	Consensus          bool   `json:"consensus"`
}

// ExecutionEscalatedPayload is the schema for executions.escalated messages.
type ExecutionEscalatedPayload struct {
	ExecutionID        string `json:"execution_id"`
	Round              int    `json:"round"`
	DeliverableVersion int    `json:"deliverable_version"`
	Reason             string `json:"reason"`
}

// ExecutionCompletedPayload is the schema for executions.completed messages.
type ExecutionCompletedPayload struct {
	ExecutionID        string `json:"execution_id"`
	TaskID             string `json:"task_id"`
	DeliverableVersion int    `json:"deliverable_version"`
	Rounds             int    `json:"rounds"`
}

// ExecutionAdvancePayload is the schema for executions.advance messages.
type ExecutionAdvancePayload struct {
	ExecutionID string `json:"execution_id"`
}

// RoadmapGeneratedPayload is the schema for roadmaps.generated messages.
type RoadmapGeneratedPayload struct {
	RoadmapID string `json:"roadmap_id"`
	ProjectID string `json:"project_id"`
	Phases    int    `json:"phases"`
	Tasks     int    `json:"tasks"`
}
