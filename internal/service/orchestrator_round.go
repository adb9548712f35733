package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/planloom/planloom/internal/adapter/otel"
	"github.com/planloom/planloom/internal/adapter/ws"
	"github.com/planloom/planloom/internal/domain"
	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/deliverable"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/port/broadcast"
	"github.com/planloom/planloom/internal/port/messagequeue"
)

// ProcessRound advances an execution through review rounds until consensus
// is reached, the round budget runs out, or a generation call fails. Round
// advancement is an explicit loop bounded by the execution's maxRounds,
// re-checked on every iteration, so termination is guaranteed regardless of
// reviewer behavior.
//
// On a generation failure the execution is left in under_discussion with
// everything already persisted (reviews, responses, revisions) intact, and
// the error propagates for a caller-driven retry.
func (s *OrchestratorService) ProcessRound(ctx context.Context, executionID string) error {
	unlock := s.locks.Lock(executionID)
	defer unlock()

	exec, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return err
	}
	if exec.Status.IsTerminal() {
		return fmt.Errorf("execution %s is %s: no further rounds", executionID, exec.Status)
	}

	ctx, span := otel.StartExecutionSpan(ctx, "execution.process_rounds", exec.ID, exec.TaskID)
	defer span.End()

	for {
		if exec.CurrentRound >= exec.MaxRounds {
			// Round budget exhausted: escalate regardless of reviewer
			// opinions. This is the forced-consensus safety valve.
			return s.escalate(ctx, exec, false)
		}

		consensus, err := s.runRound(ctx, exec)
		if err != nil {
			return fmt.Errorf("execution %s round %d: %w", exec.ID, exec.CurrentRound, err)
		}
		if consensus {
			return s.escalate(ctx, exec, true)
		}
	}
}

// runRound executes one review round: collect reviewer verdicts, evaluate
// consensus, and if consensus fails let the producer respond and possibly
// revise. Returns whether this round reached consensus.
func (s *OrchestratorService) runRound(ctx context.Context, exec *execution.TaskExecution) (bool, error) {
	round := exec.CurrentRound + 1
	if err := s.store.UpdateExecutionRound(ctx, exec.ID, round); err != nil {
		return false, err
	}
	exec.CurrentRound = round
	if exec.Status != execution.StatusUnderDiscussion {
		if err := s.store.UpdateExecutionStatus(ctx, exec.ID, execution.StatusUnderDiscussion); err != nil {
			return false, err
		}
		exec.Status = execution.StatusUnderDiscussion
	}

	ctx, span := otel.StartRoundSpan(ctx, exec.ID, round)
	defer span.End()

	panel, err := s.loadPanel(ctx, exec)
	if err != nil {
		return false, err
	}

	latest, err := s.store.GetLatestDeliverable(ctx, exec.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, execution.ErrNoDeliverable
		}
		return false, fmt.Errorf("load latest deliverable for execution %s: %w", exec.ID, err)
	}

	task, err := s.store.GetTask(ctx, exec.TaskID)
	if err != nil {
		return false, err
	}
	tc, err := s.taskContext(ctx, task, exec.PhaseID, exec.ProjectID)
	if err != nil {
		return false, err
	}

	prior, err := s.store.ListMessagesByThread(ctx, exec.DiscussionThreadID)
	if err != nil {
		return false, err
	}

	// Collect reviewer verdicts sequentially; the per-execution lock is
	// held across each generation call.
	var reviews []discussion.Message
	for _, reviewer := range panel.Reviewers {
		start := time.Now()
		result, err := s.gen.Review(ctx, reviewer, tc, latest.Content, prior)
		s.recordGeneration(ctx, start)
		if err != nil {
			return false, err
		}

		approval := discussion.HasConcerns
		if result.Approved {
			approval = discussion.Approved
		}
		m, err := s.appendMessage(ctx, exec.DiscussionThreadID, reviewer, round,
			discussion.TypeInitialReview, result.Content, latest.Version, approval)
		if err != nil {
			return false, err
		}
		reviews = append(reviews, *m)
		s.broadcastMessage(ctx, exec, m)
	}

	if s.metrics != nil {
		s.metrics.RoundsProcessed.Add(ctx, 1)
	}
	s.invalidateView(ctx, exec.ID)
	s.publish(ctx, messagequeue.SubjectExecutionRound, messagequeue.ExecutionRoundPayload{
		ExecutionID:        exec.ID,
		Round:              round,
		DeliverableVersion: latest.Version,
		Consensus:          discussion.Consensus(reviews),
	})
	s.hub.BroadcastEvent(ctx, broadcast.EventExecutionRound, ws.ExecutionEvent{
		ExecutionID: exec.ID,
		TaskID:      exec.TaskID,
		ProjectID:   exec.ProjectID,
		Status:      string(exec.Status),
		Round:       round,
	})

	if discussion.Consensus(reviews) {
		return true, nil
	}

	// No consensus: the producer answers the concerns and may revise.
	concerns := concernsOf(reviews)
	start := time.Now()
	response, err := s.gen.ProducerResponse(ctx, panel.Producer, tc, latest.Content, concerns)
	s.recordGeneration(ctx, start)
	if err != nil {
		return false, err
	}
	if _, err := s.appendMessage(ctx, exec.DiscussionThreadID, panel.Producer, round,
		discussion.TypeResponse, response.Content, latest.Version, ""); err != nil {
		return false, err
	}

	if response.NeedsRevision {
		start = time.Now()
		revised, err := s.gen.Revision(ctx, panel.Producer, tc, latest.Content, concerns, response.RevisionSummary)
		s.recordGeneration(ctx, start)
		if err != nil {
			return false, err
		}

		d, err := s.store.AppendDeliverable(ctx, &deliverable.Deliverable{
			ExecutionID: exec.ID,
			Content:     revised,
			CreatedBy:   panel.Producer.ID,
			Description: response.RevisionSummary,
		})
		if err != nil {
			return false, err
		}
		if err := s.store.SetExecutionDeliverable(ctx, exec.ID, d.ID); err != nil {
			return false, err
		}
		exec.CurrentDeliverableID = d.ID

		if _, err := s.appendMessage(ctx, exec.DiscussionThreadID, panel.Producer, round,
			discussion.TypeRevision, response.RevisionSummary, d.Version, ""); err != nil {
			return false, err
		}
		s.hub.BroadcastEvent(ctx, broadcast.EventDeliverableCreated, ws.DeliverableEvent{
			ExecutionID: exec.ID,
			Version:     d.Version,
			CreatedBy:   d.CreatedBy,
		})
	}

	s.invalidateView(ctx, exec.ID)
	slog.Info("round complete without consensus",
		"execution_id", exec.ID, "round", round, "revised", response.NeedsRevision)
	return false, nil
}

// escalate hands the execution to the user: the execution parks in
// awaiting_user with a pending review. consensus distinguishes unanimous
// approval from a forced escalation by budget exhaustion.
func (s *OrchestratorService) escalate(ctx context.Context, exec *execution.TaskExecution, consensus bool) error {
	threadStatus := discussion.ThreadAwaitingUser
	reason := "round budget exhausted"
	if consensus {
		threadStatus = discussion.ThreadConsensusReached
		reason = "reviewer consensus"
	}

	if err := s.store.UpdateExecutionStatus(ctx, exec.ID, execution.StatusAwaitingUser); err != nil {
		return err
	}
	exec.Status = execution.StatusAwaitingUser
	if err := s.store.UpdateThreadStatus(ctx, exec.DiscussionThreadID, threadStatus); err != nil {
		return err
	}
	if _, err := s.store.OpenUserReview(ctx, exec.ID); err != nil {
		return err
	}

	version := 0
	if latest, err := s.store.GetLatestDeliverable(ctx, exec.ID); err == nil {
		version = latest.Version
	}

	if s.metrics != nil {
		s.metrics.Escalations.Add(ctx, 1)
	}
	s.invalidateView(ctx, exec.ID)
	s.publish(ctx, messagequeue.SubjectExecutionEscalated, messagequeue.ExecutionEscalatedPayload{
		ExecutionID:        exec.ID,
		Round:              exec.CurrentRound,
		DeliverableVersion: version,
		Reason:             reason,
	})
	s.hub.BroadcastEvent(ctx, broadcast.EventExecutionEscalated, ws.ExecutionEvent{
		ExecutionID: exec.ID,
		TaskID:      exec.TaskID,
		ProjectID:   exec.ProjectID,
		Status:      string(exec.Status),
		Round:       exec.CurrentRound,
	})

	slog.Info("execution escalated to user",
		"execution_id", exec.ID, "round", exec.CurrentRound, "reason", reason)
	return nil
}

// loadPanel rebuilds the participant panel from the IDs frozen on the
// execution row at start time.
func (s *OrchestratorService) loadPanel(ctx context.Context, exec *execution.TaskExecution) (*agent.Panel, error) {
	producer, err := s.store.GetAgent(ctx, exec.PrimaryAgentID)
	if err != nil {
		return nil, fmt.Errorf("load producer %s: %w", exec.PrimaryAgentID, err)
	}
	reviewers, err := s.store.GetAgentsByIDs(ctx, exec.ReviewerAgentIDs)
	if err != nil {
		return nil, fmt.Errorf("load reviewers: %w", err)
	}
	return &agent.Panel{Producer: *producer, Reviewers: reviewers}, nil
}

func (s *OrchestratorService) recordGeneration(ctx context.Context, start time.Time) {
	if s.metrics != nil {
		s.metrics.GenerationLatency.Record(ctx, time.Since(start).Seconds())
	}
}

func (s *OrchestratorService) broadcastMessage(ctx context.Context, exec *execution.TaskExecution, m *discussion.Message) {
	s.hub.BroadcastEvent(ctx, broadcast.EventDiscussionMessage, ws.DiscussionMessageEvent{
		ExecutionID: exec.ID,
		ThreadID:    m.ThreadID,
		MessageID:   m.ID,
		AgentName:   m.AgentName,
		Round:       m.Round,
		Type:        string(m.Type),
	})
}

// concernsOf filters the reviews that withheld approval.
func concernsOf(reviews []discussion.Message) []discussion.Message {
	var concerns []discussion.Message
	for _, m := range reviews {
		if m.Approval != discussion.Approved {
			concerns = append(concerns, m)
		}
	}
	return concerns
}
