package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/planloom/planloom/internal/adapter/ws"
	"github.com/planloom/planloom/internal/domain"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/domain/roadmap"
	"github.com/planloom/planloom/internal/port/broadcast"
	"github.com/planloom/planloom/internal/port/database"
	"github.com/planloom/planloom/internal/port/generation"
	"github.com/planloom/planloom/internal/port/messagequeue"
)

// executionStarter is the slice of the orchestrator the roadmap service
// uses to auto-start work when a phase opens.
type executionStarter interface {
	Start(ctx context.Context, req execution.StartRequest) (*execution.TaskExecution, error)
}

// RoadmapService generates, reads, and approves project roadmaps. A
// roadmap is produced once per project from the discovery conversation
// and holds the six fixed phases with their tasks.
type RoadmapService struct {
	store   database.Store
	gen     generation.Generator
	hub     broadcast.Broadcaster
	queue   messagequeue.Queue
	starter executionStarter
}

// NewRoadmapService creates a new RoadmapService.
func NewRoadmapService(store database.Store, gen generation.Generator, hub broadcast.Broadcaster, queue messagequeue.Queue, starter executionStarter) *RoadmapService {
	return &RoadmapService{store: store, gen: gen, hub: hub, queue: queue, starter: starter}
}

// Get returns the roadmap for a project with all phases and tasks loaded.
func (s *RoadmapService) Get(ctx context.Context, projectID string) (*roadmap.Roadmap, error) {
	return s.store.GetRoadmapByProject(ctx, projectID)
}

// ListTasks returns the tasks of one roadmap phase.
func (s *RoadmapService) ListTasks(ctx context.Context, phaseID string) ([]roadmap.Task, error) {
	return s.store.ListTasksByPhase(ctx, phaseID)
}

// Generate asks the model for a roadmap, persists it, and moves the
// project into the roadmap stage.
func (s *RoadmapService) Generate(ctx context.Context, projectID string) (*roadmap.Roadmap, error) {
	proj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	gen, err := s.gen.Roadmap(ctx, proj)
	if err != nil {
		return nil, fmt.Errorf("generate roadmap for project %s: %w", projectID, err)
	}

	rm := assembleRoadmap(projectID, gen)
	created, err := s.store.CreateRoadmap(ctx, rm)
	if err != nil {
		return nil, fmt.Errorf("persist roadmap for project %s: %w", projectID, err)
	}

	if err := s.store.UpdateProjectStatus(ctx, projectID, project.StatusRoadmap); err != nil {
		slog.Warn("update project status", "project_id", projectID, "error", err)
	}

	taskCount := 0
	for _, p := range created.Phases {
		taskCount += len(p.Tasks)
	}
	slog.Info("roadmap generated", "project_id", projectID, "roadmap_id", created.ID,
		"phases", len(created.Phases), "tasks", taskCount)

	s.publish(ctx, messagequeue.SubjectRoadmapGenerated, messagequeue.RoadmapGeneratedPayload{
		RoadmapID: created.ID,
		ProjectID: projectID,
		Phases:    len(created.Phases),
		Tasks:     taskCount,
	})
	s.hub.BroadcastEvent(ctx, broadcast.EventRoadmapGenerated, ws.RoadmapGeneratedEvent{
		ProjectID: projectID,
		RoadmapID: created.ID,
		Phases:    len(created.Phases),
	})
	return created, nil
}

// Approve marks the roadmap as approved and moves the project into the
// execution stage.
func (s *RoadmapService) Approve(ctx context.Context, projectID, approvedBy string) (*roadmap.Roadmap, error) {
	rm, err := s.store.GetRoadmapByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ApproveRoadmap(ctx, rm.ID, approvedBy); err != nil {
		return nil, fmt.Errorf("approve roadmap %s: %w", rm.ID, err)
	}
	if err := s.store.UpdateProjectStatus(ctx, projectID, project.StatusExecution); err != nil {
		slog.Warn("update project status", "project_id", projectID, "error", err)
	}
	slog.Info("roadmap approved", "project_id", projectID, "roadmap_id", rm.ID, "approved_by", approvedBy)
	return s.store.GetRoadmapByProject(ctx, projectID)
}

// UpdatePhaseStatus moves a roadmap phase between work states. Opening a
// phase to in_progress auto-starts its first pending task with no
// dependencies, so approved work flows into execution without a manual
// start per task.
func (s *RoadmapService) UpdatePhaseStatus(ctx context.Context, projectID, phaseID string, status roadmap.WorkStatus) (*roadmap.Phase, error) {
	if !status.Valid() {
		return nil, roadmap.ErrInvalidStatus
	}
	rm, err := s.store.GetRoadmapByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var phase *roadmap.Phase
	for i := range rm.Phases {
		if rm.Phases[i].ID == phaseID {
			phase = &rm.Phases[i]
			break
		}
	}
	if phase == nil {
		return nil, fmt.Errorf("phase %s in project %s: %w", phaseID, projectID, domain.ErrNotFound)
	}

	if err := s.store.UpdatePhaseStatus(ctx, phaseID, status); err != nil {
		return nil, fmt.Errorf("update phase status %s: %w", phaseID, err)
	}
	phase.Status = status
	slog.Info("phase status updated", "project_id", projectID, "phase_id", phaseID, "status", status)

	if status == roadmap.WorkInProgress {
		s.autoStartFirstTask(ctx, projectID, phase)
	}
	return phase, nil
}

// autoStartFirstTask starts the first pending task in the phase that has
// no dependencies and queues its first discussion round. A phase with no
// startable task, or a start failure, leaves the phase open for a manual
// start; the status change itself is already committed.
func (s *RoadmapService) autoStartFirstTask(ctx context.Context, projectID string, phase *roadmap.Phase) {
	tasks, err := s.store.ListTasksByPhase(ctx, phase.ID)
	if err != nil {
		slog.Warn("list phase tasks", "phase_id", phase.ID, "error", err)
		return
	}
	for _, t := range tasks {
		if t.Status != roadmap.WorkPending || len(t.Dependencies) > 0 {
			continue
		}
		exec, err := s.starter.Start(ctx, execution.StartRequest{
			TaskID:    t.ID,
			PhaseID:   phase.ID,
			ProjectID: projectID,
		})
		if err != nil {
			slog.Warn("auto-start phase task", "phase_id", phase.ID, "task_id", t.ID, "error", err)
			return
		}
		slog.Info("auto-started first phase task",
			"phase_id", phase.ID, "task_id", t.ID, "execution_id", exec.ID)
		s.publish(ctx, messagequeue.SubjectExecutionAdvance, messagequeue.ExecutionAdvancePayload{
			ExecutionID: exec.ID,
		})
		return
	}
	slog.Info("no startable task in phase", "phase_id", phase.ID)
}

// assembleRoadmap converts the model's generated roadmap into persistable
// domain records. Phases are positioned by the fixed roadmap order, not
// by the order the model emitted them.
func assembleRoadmap(projectID string, gen *roadmap.Generated) *roadmap.Roadmap {
	position := make(map[roadmap.PhaseName]int, len(roadmap.PhaseOrder))
	for i, name := range roadmap.PhaseOrder {
		position[name] = i
	}

	rm := &roadmap.Roadmap{
		ProjectID: projectID,
		Summary:   gen.Summary,
	}
	for _, gp := range gen.Phases {
		phase := roadmap.Phase{
			Name:         gp.Name,
			Title:        gp.Title,
			Description:  gp.Description,
			Objective:    gp.Objective,
			Status:       roadmap.WorkPending,
			Deliverables: gp.Deliverables,
			Position:     position[gp.Name],
		}
		for i, gt := range gp.Tasks {
			phase.Tasks = append(phase.Tasks, roadmap.Task{
				Title:         gt.Title,
				Description:   gt.Description,
				Status:        roadmap.WorkPending,
				AssignedAgent: gt.AssignedAgent,
				AgentRole:     gt.AgentRole,
				Dependencies:  gt.Dependencies,
				Deliverables:  gt.Deliverables,
				Priority:      gt.Priority,
				Position:      i,
			})
		}
		rm.Phases = append(rm.Phases, phase)
	}
	return rm
}

func (s *RoadmapService) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish queue message", "subject", subject, "error", err)
	}
}
