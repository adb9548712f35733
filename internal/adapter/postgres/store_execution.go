package postgres

import (
	"context"
	"fmt"

	"github.com/planloom/planloom/internal/domain/deliverable"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/review"
)

const executionColumns = `id, task_id, phase_id, project_id, status, primary_agent_id, reviewer_agent_ids,
	current_round, max_rounds, discussion_thread_id, current_deliverable_id, started_at, completed_at`

func scanExecution(row scannable) (execution.TaskExecution, error) {
	var e execution.TaskExecution
	var threadID, deliverableID *string
	err := row.Scan(&e.ID, &e.TaskID, &e.PhaseID, &e.ProjectID, &e.Status,
		&e.PrimaryAgentID, &e.ReviewerAgentIDs, &e.CurrentRound, &e.MaxRounds,
		&threadID, &deliverableID, &e.StartedAt, &e.CompletedAt)
	if err != nil {
		return execution.TaskExecution{}, err
	}
	if threadID != nil {
		e.DiscussionThreadID = *threadID
	}
	if deliverableID != nil {
		e.CurrentDeliverableID = *deliverableID
	}
	return e, nil
}

// --- Task executions ---

func (s *Store) CreateExecution(ctx context.Context, e *execution.TaskExecution) (*execution.TaskExecution, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO task_executions (task_id, phase_id, project_id, status, primary_agent_id, reviewer_agent_ids, current_round, max_rounds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+executionColumns,
		e.TaskID, e.PhaseID, e.ProjectID, e.Status, e.PrimaryAgentID,
		pgTextArray(e.ReviewerAgentIDs), e.CurrentRound, e.MaxRounds)

	created, err := scanExecution(row)
	if err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	return &created, nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*execution.TaskExecution, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM task_executions WHERE id = $1`, id)
	e, err := scanExecution(row)
	if err != nil {
		return nil, notFoundWrap(err, "get execution %s", id)
	}
	return &e, nil
}

// GetExecutionByTask returns the most recent execution for a task.
func (s *Store) GetExecutionByTask(ctx context.Context, taskID string) (*execution.TaskExecution, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM task_executions
		 WHERE task_id = $1 ORDER BY started_at DESC LIMIT 1`, taskID)
	e, err := scanExecution(row)
	if err != nil {
		return nil, notFoundWrap(err, "get execution for task %s", taskID)
	}
	return &e, nil
}

func (s *Store) ListExecutionsByPhase(ctx context.Context, phaseID string) ([]execution.TaskExecution, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+executionColumns+` FROM task_executions
		 WHERE phase_id = $1 ORDER BY started_at ASC`, phaseID)
	if err != nil {
		return nil, fmt.Errorf("list executions for phase %s: %w", phaseID, err)
	}
	defer rows.Close()

	var execs []execution.TaskExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	return orEmpty(execs), rows.Err()
}

func (s *Store) UpdateExecutionStatus(ctx context.Context, id string, status execution.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_executions SET status = $2 WHERE id = $1`, id, status)
	return execExpectOne(tag, err, "update execution status %s", id)
}

func (s *Store) UpdateExecutionRound(ctx context.Context, id string, round int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_executions SET current_round = $2 WHERE id = $1`, id, round)
	return execExpectOne(tag, err, "update execution round %s", id)
}

func (s *Store) SetExecutionThread(ctx context.Context, id, threadID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_executions SET discussion_thread_id = $2 WHERE id = $1`, id, threadID)
	return execExpectOne(tag, err, "set execution thread %s", id)
}

func (s *Store) SetExecutionDeliverable(ctx context.Context, id, deliverableID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_executions SET current_deliverable_id = $2 WHERE id = $1`, id, deliverableID)
	return execExpectOne(tag, err, "set execution deliverable %s", id)
}

func (s *Store) CompleteExecution(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_executions SET status = $2, completed_at = now() WHERE id = $1`,
		id, execution.StatusCompleted)
	return execExpectOne(tag, err, "complete execution %s", id)
}

// --- Discussion threads ---

func (s *Store) CreateThread(ctx context.Context, executionID string) (*discussion.Thread, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO discussion_threads (execution_id)
		 VALUES ($1)
		 RETURNING id, execution_id, status, created_at`, executionID)

	var t discussion.Thread
	if err := row.Scan(&t.ID, &t.ExecutionID, &t.Status, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return &t, nil
}

func (s *Store) GetThread(ctx context.Context, id string) (*discussion.Thread, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, execution_id, status, created_at FROM discussion_threads WHERE id = $1`, id)

	var t discussion.Thread
	if err := row.Scan(&t.ID, &t.ExecutionID, &t.Status, &t.CreatedAt); err != nil {
		return nil, notFoundWrap(err, "get thread %s", id)
	}
	return &t, nil
}

func (s *Store) UpdateThreadStatus(ctx context.Context, id string, status discussion.ThreadStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE discussion_threads SET status = $2 WHERE id = $1`, id, status)
	return execExpectOne(tag, err, "update thread status %s", id)
}

// --- Discussion messages (append-only) ---

const messageColumns = `id, thread_id, seq, agent_id, agent_name, agent_role, round, message_type, content, deliverable_version, approval_status, created_at`

func scanMessage(row scannable) (discussion.Message, error) {
	var m discussion.Message
	err := row.Scan(&m.ID, &m.ThreadID, &m.Seq, &m.AgentID, &m.AgentName, &m.AgentRole,
		&m.Round, &m.Type, &m.Content, &m.DeliverableVersion, &m.Approval, &m.CreatedAt)
	return m, err
}

func (s *Store) AppendMessage(ctx context.Context, m *discussion.Message) (*discussion.Message, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO discussion_messages (thread_id, agent_id, agent_name, agent_role, round, message_type, content, deliverable_version, approval_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+messageColumns,
		m.ThreadID, m.AgentID, m.AgentName, m.AgentRole, m.Round, m.Type,
		m.Content, m.DeliverableVersion, m.Approval)

	stored, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &stored, nil
}

func (s *Store) ListMessagesByThread(ctx context.Context, threadID string) ([]discussion.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM discussion_messages
		 WHERE thread_id = $1 ORDER BY round ASC, seq ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var msgs []discussion.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return orEmpty(msgs), rows.Err()
}

func (s *Store) ListMessagesByRound(ctx context.Context, threadID string, round int) ([]discussion.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM discussion_messages
		 WHERE thread_id = $1 AND round = $2 ORDER BY seq ASC`, threadID, round)
	if err != nil {
		return nil, fmt.Errorf("list messages for thread %s round %d: %w", threadID, round, err)
	}
	defer rows.Close()

	var msgs []discussion.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return orEmpty(msgs), rows.Err()
}

// --- Deliverables (append-only, versioned) ---

const deliverableColumns = `id, execution_id, version, content, created_by, description, created_at`

func scanDeliverable(row scannable) (deliverable.Deliverable, error) {
	var d deliverable.Deliverable
	err := row.Scan(&d.ID, &d.ExecutionID, &d.Version, &d.Content, &d.CreatedBy, &d.Description, &d.CreatedAt)
	return d, err
}

// AppendDeliverable writes the next version for an execution. The version
// is allocated in the INSERT itself; the UNIQUE (execution_id, version)
// constraint rejects a lost-update race, which surfaces as an error rather
// than a silently reused version.
func (s *Store) AppendDeliverable(ctx context.Context, d *deliverable.Deliverable) (*deliverable.Deliverable, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO deliverables (execution_id, version, content, created_by, description)
		 SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4
		 FROM deliverables WHERE execution_id = $1
		 RETURNING `+deliverableColumns,
		d.ExecutionID, d.Content, d.CreatedBy, d.Description)

	stored, err := scanDeliverable(row)
	if err != nil {
		return nil, fmt.Errorf("append deliverable for execution %s: %w", d.ExecutionID, err)
	}
	return &stored, nil
}

func (s *Store) GetDeliverable(ctx context.Context, id string) (*deliverable.Deliverable, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+deliverableColumns+` FROM deliverables WHERE id = $1`, id)
	d, err := scanDeliverable(row)
	if err != nil {
		return nil, notFoundWrap(err, "get deliverable %s", id)
	}
	return &d, nil
}

func (s *Store) ListDeliverablesByExecution(ctx context.Context, executionID string) ([]deliverable.Deliverable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+deliverableColumns+` FROM deliverables
		 WHERE execution_id = $1 ORDER BY version ASC`, executionID)
	if err != nil {
		return nil, fmt.Errorf("list deliverables for execution %s: %w", executionID, err)
	}
	defer rows.Close()

	var dels []deliverable.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deliverable: %w", err)
		}
		dels = append(dels, d)
	}
	return orEmpty(dels), rows.Err()
}

func (s *Store) GetLatestDeliverable(ctx context.Context, executionID string) (*deliverable.Deliverable, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+deliverableColumns+` FROM deliverables
		 WHERE execution_id = $1 ORDER BY version DESC LIMIT 1`, executionID)
	d, err := scanDeliverable(row)
	if err != nil {
		return nil, notFoundWrap(err, "latest deliverable for execution %s", executionID)
	}
	return &d, nil
}

// --- User reviews ---

// OpenUserReview creates the review row for an execution, or resets the
// existing one back to pending for a new escalation cycle.
func (s *Store) OpenUserReview(ctx context.Context, executionID string) (*review.UserReview, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO user_reviews (execution_id)
		 VALUES ($1)
		 ON CONFLICT (execution_id) DO UPDATE
		 SET status = 'pending', user_feedback = '', reviewed_at = NULL
		 RETURNING id, execution_id, status, user_feedback, reviewed_at`, executionID)

	var r review.UserReview
	if err := row.Scan(&r.ID, &r.ExecutionID, &r.Status, &r.UserFeedback, &r.ReviewedAt); err != nil {
		return nil, fmt.Errorf("open user review for execution %s: %w", executionID, err)
	}
	return &r, nil
}

func (s *Store) GetUserReviewByExecution(ctx context.Context, executionID string) (*review.UserReview, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, execution_id, status, user_feedback, reviewed_at
		 FROM user_reviews WHERE execution_id = $1`, executionID)

	var r review.UserReview
	if err := row.Scan(&r.ID, &r.ExecutionID, &r.Status, &r.UserFeedback, &r.ReviewedAt); err != nil {
		return nil, notFoundWrap(err, "get user review for execution %s", executionID)
	}
	return &r, nil
}

func (s *Store) ApproveUserReview(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_reviews SET status = $2, reviewed_at = now() WHERE id = $1`,
		id, review.StatusApproved)
	return execExpectOne(tag, err, "approve user review %s", id)
}

func (s *Store) SubmitUserReviewFeedback(ctx context.Context, id, feedback string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_reviews SET status = $2, user_feedback = $3, reviewed_at = now() WHERE id = $1`,
		id, review.StatusFeedbackProvided, feedback)
	return execExpectOne(tag, err, "submit user review feedback %s", id)
}
