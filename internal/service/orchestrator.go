package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/planloom/planloom/internal/adapter/otel"
	"github.com/planloom/planloom/internal/adapter/ws"
	"github.com/planloom/planloom/internal/config"
	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/deliverable"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/roadmap"
	"github.com/planloom/planloom/internal/port/broadcast"
	"github.com/planloom/planloom/internal/port/cache"
	"github.com/planloom/planloom/internal/port/database"
	"github.com/planloom/planloom/internal/port/generation"
	"github.com/planloom/planloom/internal/port/messagequeue"
)

// OrchestratorService drives the producer/reviewer collaboration for task
// executions: bounded review rounds, consensus detection, and escalation
// to a human reviewer.
type OrchestratorService struct {
	store    database.Store
	gen      generation.Generator
	hub      broadcast.Broadcaster
	queue    messagequeue.Queue
	cache    cache.Cache
	metrics  *otel.Metrics
	cfg      config.Orchestrator
	cacheCfg config.Cache

	// locks serializes Start, ProcessRound and SubmitUserFeedback per
	// execution; distinct executions advance independently.
	locks *keyedMutex
}

// NewOrchestratorService creates an OrchestratorService with all dependencies.
func NewOrchestratorService(
	store database.Store,
	gen generation.Generator,
	hub broadcast.Broadcaster,
	queue messagequeue.Queue,
	viewCache cache.Cache,
	metrics *otel.Metrics,
	cfg config.Orchestrator,
	cacheCfg config.Cache,
) *OrchestratorService {
	return &OrchestratorService{
		store:    store,
		gen:      gen,
		hub:      hub,
		queue:    queue,
		cache:    viewCache,
		metrics:  metrics,
		cfg:      cfg,
		cacheCfg: cacheCfg,
		locks:    newKeyedMutex(),
	}
}

// Start creates a task execution: resolves the participant panel, creates
// the discussion thread, and generates deliverable version 1 attributed to
// the producer. The execution, thread and first deliverable are all durable
// before Start returns.
func (s *OrchestratorService) Start(ctx context.Context, req execution.StartRequest) (*execution.TaskExecution, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	panel, err := s.resolvePanel(ctx, task)
	if err != nil {
		return nil, err
	}

	exec, err := s.store.CreateExecution(ctx, &execution.TaskExecution{
		TaskID:           req.TaskID,
		PhaseID:          req.PhaseID,
		ProjectID:        req.ProjectID,
		Status:           execution.StatusPending,
		PrimaryAgentID:   panel.Producer.ID,
		ReviewerAgentIDs: panel.ReviewerIDs(),
		CurrentRound:     0,
		MaxRounds:        s.cfg.MaxRounds,
	})
	if err != nil {
		return nil, fmt.Errorf("start execution for task %s: %w", req.TaskID, err)
	}

	unlock := s.locks.Lock(exec.ID)
	defer unlock()

	ctx, span := otel.StartExecutionSpan(ctx, "execution.start", exec.ID, req.TaskID)
	defer span.End()

	if err := s.store.UpdateExecutionStatus(ctx, exec.ID, execution.StatusInProgress); err != nil {
		return nil, err
	}
	exec.Status = execution.StatusInProgress

	thread, err := s.store.CreateThread(ctx, exec.ID)
	if err != nil {
		return nil, fmt.Errorf("create thread for execution %s: %w", exec.ID, err)
	}
	if err := s.store.SetExecutionThread(ctx, exec.ID, thread.ID); err != nil {
		return nil, err
	}
	exec.DiscussionThreadID = thread.ID

	if err := s.store.UpdateTaskStatus(ctx, req.TaskID, roadmap.WorkInProgress); err != nil {
		slog.Warn("mark task in progress", "task_id", req.TaskID, "error", err)
	}

	tc, err := s.taskContext(ctx, task, req.PhaseID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	content, err := s.gen.InitialDeliverable(ctx, panel.Producer, tc)
	if err != nil {
		// The execution stays in_progress with no deliverable; the caller
		// may retry by starting round processing once generation succeeds.
		return nil, fmt.Errorf("execution %s: %w", exec.ID, err)
	}

	d, err := s.store.AppendDeliverable(ctx, &deliverable.Deliverable{
		ExecutionID: exec.ID,
		Content:     content,
		CreatedBy:   panel.Producer.ID,
		Description: "Initial deliverable",
	})
	if err != nil {
		return nil, fmt.Errorf("execution %s: %w", exec.ID, err)
	}
	if err := s.store.SetExecutionDeliverable(ctx, exec.ID, d.ID); err != nil {
		return nil, err
	}
	exec.CurrentDeliverableID = d.ID

	if s.metrics != nil {
		s.metrics.ExecutionsStarted.Add(ctx, 1)
	}
	s.invalidateView(ctx, exec.ID)

	s.publish(ctx, messagequeue.SubjectExecutionStarted, messagequeue.ExecutionStartedPayload{
		ExecutionID: exec.ID,
		TaskID:      exec.TaskID,
		PhaseID:     exec.PhaseID,
		ProjectID:   exec.ProjectID,
		ProducerID:  panel.Producer.ID,
		Reviewers:   len(panel.Reviewers),
	})
	s.hub.BroadcastEvent(ctx, broadcast.EventExecutionStarted, ws.ExecutionEvent{
		ExecutionID: exec.ID,
		TaskID:      exec.TaskID,
		ProjectID:   exec.ProjectID,
		Status:      string(exec.Status),
		Round:       exec.CurrentRound,
	})
	s.hub.BroadcastEvent(ctx, broadcast.EventDeliverableCreated, ws.DeliverableEvent{
		ExecutionID: exec.ID,
		Version:     d.Version,
		CreatedBy:   d.CreatedBy,
	})

	slog.Info("execution started",
		"execution_id", exec.ID, "task_id", exec.TaskID,
		"producer", panel.Producer.ID, "reviewers", len(panel.Reviewers))
	return exec, nil
}

// resolvePanel picks the producer and reviewer panel from the agent
// directory. The task's assigned agent (matched by name) produces; the
// remaining agents review, capped at the configured panel size.
func (s *OrchestratorService) resolvePanel(ctx context.Context, task *roadmap.Task) (*agent.Panel, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve participants: %w", err)
	}
	if len(agents) < 2 {
		return nil, execution.ErrInsufficientParticipants
	}

	producerIdx := 0
	if task.AssignedAgent != "" {
		for i, a := range agents {
			if a.Name == task.AssignedAgent {
				producerIdx = i
				break
			}
		}
	}

	panel := &agent.Panel{Producer: agents[producerIdx]}
	for i, a := range agents {
		if i == producerIdx {
			continue
		}
		panel.Reviewers = append(panel.Reviewers, a)
		if len(panel.Reviewers) == s.cfg.MaxReviewers {
			break
		}
	}
	return panel, nil
}

// taskContext assembles the task and project context passed to every
// generation call for an execution.
func (s *OrchestratorService) taskContext(ctx context.Context, task *roadmap.Task, phaseID, projectID string) (generation.TaskContext, error) {
	tc := generation.TaskContext{
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
	}

	proj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return tc, fmt.Errorf("load project %s: %w", projectID, err)
	}
	tc.ProjectName = proj.Title
	tc.ProjectContext = proj.Context

	phase, err := s.store.GetPhase(ctx, phaseID)
	if err != nil {
		return tc, fmt.Errorf("load phase %s: %w", phaseID, err)
	}
	tc.PhaseName = phase.Title
	return tc, nil
}

// publish marshals and publishes a queue payload, logging rather than
// failing the workflow when the broker is unavailable.
func (s *OrchestratorService) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish queue message", "subject", subject, "error", err)
	}
}

func (s *OrchestratorService) invalidateView(ctx context.Context, executionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, viewCacheKey(executionID)); err != nil {
		slog.Warn("invalidate execution view cache", "execution_id", executionID, "error", err)
	}
}

func viewCacheKey(executionID string) string {
	return "execview:" + executionID
}

// appendMessage stores one discussion message with the participant's
// identity snapshotted at write time.
func (s *OrchestratorService) appendMessage(ctx context.Context, threadID string, a agent.Agent, round int, msgType discussion.MessageType, content string, version int, approval discussion.ApprovalStatus) (*discussion.Message, error) {
	m, err := s.store.AppendMessage(ctx, &discussion.Message{
		ThreadID:           threadID,
		AgentID:            a.ID,
		AgentName:          a.Name,
		AgentRole:          a.Role,
		Round:              round,
		Type:               msgType,
		Content:            content,
		DeliverableVersion: version,
		Approval:           approval,
	})
	if err != nil {
		return nil, fmt.Errorf("append %s message: %w", msgType, err)
	}
	return m, nil
}
