package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/planloom/planloom/internal/adapter/ws"
	"github.com/planloom/planloom/internal/domain/deliverable"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/review"
	"github.com/planloom/planloom/internal/domain/roadmap"
	"github.com/planloom/planloom/internal/port/broadcast"
	"github.com/planloom/planloom/internal/port/messagequeue"
)

// SubmitUserFeedback records the human decision for an escalated execution.
// Approval completes the execution and closes the thread. Rejection
// requires feedback text, reopens the discussion at the current round, and
// schedules the next round via the queue; the round counter is never reset,
// so repeated rejections still converge on the round budget.
func (s *OrchestratorService) SubmitUserFeedback(ctx context.Context, executionID string, req review.FeedbackRequest) error {
	unlock := s.locks.Lock(executionID)
	defer unlock()

	exec, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return err
	}

	ur, err := s.store.GetUserReviewByExecution(ctx, executionID)
	if err != nil || ur.Status != review.StatusPending {
		return fmt.Errorf("execution %s: %w", executionID, execution.ErrNoActiveReview)
	}

	if req.Approved {
		return s.complete(ctx, exec, ur)
	}

	if req.Feedback == "" {
		return fmt.Errorf("execution %s: %w", executionID, execution.ErrFeedbackRequired)
	}

	if err := s.store.SubmitUserReviewFeedback(ctx, ur.ID, req.Feedback); err != nil {
		return err
	}

	// The feedback lands in the ledger at the round that was current when
	// the execution escalated, not a new one.
	version := 0
	if latest, err := s.store.GetLatestDeliverable(ctx, exec.ID); err == nil {
		version = latest.Version
	}
	if _, err := s.store.AppendMessage(ctx, &discussion.Message{
		ThreadID:           exec.DiscussionThreadID,
		AgentID:            "user",
		AgentName:          "User",
		AgentRole:          "Product Owner",
		Round:              exec.CurrentRound,
		Type:               discussion.TypeUserFeedback,
		Content:            req.Feedback,
		DeliverableVersion: version,
	}); err != nil {
		return fmt.Errorf("append user feedback: %w", err)
	}

	if err := s.store.UpdateThreadStatus(ctx, exec.DiscussionThreadID, discussion.ThreadActive); err != nil {
		return err
	}
	if err := s.store.UpdateExecutionStatus(ctx, exec.ID, execution.StatusUnderDiscussion); err != nil {
		return err
	}

	s.invalidateView(ctx, exec.ID)
	s.publish(ctx, messagequeue.SubjectExecutionAdvance, messagequeue.ExecutionAdvancePayload{
		ExecutionID: exec.ID,
	})

	slog.Info("user feedback recorded, discussion reopened",
		"execution_id", exec.ID, "round", exec.CurrentRound)
	return nil
}

// complete finishes an approved execution and marks the owning task done.
func (s *OrchestratorService) complete(ctx context.Context, exec *execution.TaskExecution, ur *review.UserReview) error {
	if err := s.store.ApproveUserReview(ctx, ur.ID); err != nil {
		return err
	}
	if err := s.store.CompleteExecution(ctx, exec.ID); err != nil {
		return err
	}
	exec.Status = execution.StatusCompleted
	if err := s.store.UpdateThreadStatus(ctx, exec.DiscussionThreadID, discussion.ThreadClosed); err != nil {
		return err
	}
	if err := s.store.UpdateTaskStatus(ctx, exec.TaskID, roadmap.WorkCompleted); err != nil {
		slog.Warn("mark task completed", "task_id", exec.TaskID, "error", err)
	}

	version := 0
	if latest, err := s.store.GetLatestDeliverable(ctx, exec.ID); err == nil {
		version = latest.Version
	}

	if s.metrics != nil {
		s.metrics.ExecutionsCompleted.Add(ctx, 1)
		s.metrics.RoundsToConsensus.Record(ctx, int64(exec.CurrentRound))
	}
	s.invalidateView(ctx, exec.ID)
	s.publish(ctx, messagequeue.SubjectExecutionCompleted, messagequeue.ExecutionCompletedPayload{
		ExecutionID:        exec.ID,
		TaskID:             exec.TaskID,
		DeliverableVersion: version,
		Rounds:             exec.CurrentRound,
	})
	s.hub.BroadcastEvent(ctx, broadcast.EventExecutionCompleted, ws.ExecutionEvent{
		ExecutionID: exec.ID,
		TaskID:      exec.TaskID,
		ProjectID:   exec.ProjectID,
		Status:      string(execution.StatusCompleted),
		Round:       exec.CurrentRound,
	})

	slog.Info("execution completed", "execution_id", exec.ID, "rounds", exec.CurrentRound)
	return nil
}

// GetExecutionState assembles the full read model for an execution. The
// assembled view is cached; any mutation on the execution invalidates it.
func (s *OrchestratorService) GetExecutionState(ctx context.Context, executionID string) (*execution.View, error) {
	if s.cache != nil {
		if data, ok, _ := s.cache.Get(ctx, viewCacheKey(executionID)); ok {
			var v execution.View
			if err := json.Unmarshal(data, &v); err == nil {
				return &v, nil
			}
		}
	}

	exec, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	view := &execution.View{Execution: *exec}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if exec.DiscussionThreadID == "" {
			return nil
		}
		thread, err := s.store.GetThread(gctx, exec.DiscussionThreadID)
		if err != nil {
			return err
		}
		msgs, err := s.store.ListMessagesByThread(gctx, thread.ID)
		if err != nil {
			return err
		}
		view.Discussion = execution.NewDiscussionState(*thread, msgs)
		return nil
	})

	g.Go(func() error {
		dels, err := s.store.ListDeliverablesByExecution(gctx, executionID)
		if err != nil {
			return err
		}
		if dels == nil {
			dels = []deliverable.Deliverable{}
		}
		view.Deliverables = dels
		return nil
	})

	g.Go(func() error {
		ur, err := s.store.GetUserReviewByExecution(gctx, executionID)
		if err != nil {
			// An execution that never escalated has no review row.
			return nil
		}
		view.UserReview = ur
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble execution view %s: %w", executionID, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(view); err == nil {
			ttl := s.cacheCfg.ViewTTL
			if ttl <= 0 {
				ttl = 10 * time.Second
			}
			_ = s.cache.Set(ctx, viewCacheKey(executionID), data, ttl)
		}
	}
	return view, nil
}

// GetExecutionByTask returns the most recent execution for a task.
func (s *OrchestratorService) GetExecutionByTask(ctx context.Context, taskID string) (*execution.TaskExecution, error) {
	return s.store.GetExecutionByTask(ctx, taskID)
}

// ListExecutionsByPhase returns all executions for a phase.
func (s *OrchestratorService) ListExecutionsByPhase(ctx context.Context, phaseID string) ([]execution.TaskExecution, error) {
	return s.store.ListExecutionsByPhase(ctx, phaseID)
}
