// Package roadmap contains the domain models for project roadmaps,
// their phases, and the tasks inside each phase.
package roadmap

import (
	"errors"
	"fmt"
	"time"
)

// PhaseName identifies one of the six fixed roadmap phase slots.
type PhaseName string

const (
	PhaseResearch     PhaseName = "research"
	PhaseStrategy     PhaseName = "strategy"
	PhaseDesign       PhaseName = "design"
	PhaseArchitecture PhaseName = "architecture"
	PhaseDevelopment  PhaseName = "development"
	PhaseLaunch       PhaseName = "launch"
)

// PhaseOrder lists the fixed phase slots in roadmap order.
var PhaseOrder = []PhaseName{
	PhaseResearch, PhaseStrategy, PhaseDesign,
	PhaseArchitecture, PhaseDevelopment, PhaseLaunch,
}

// WorkStatus represents the state of a phase or task.
type WorkStatus string

const (
	WorkPending    WorkStatus = "pending"
	WorkInProgress WorkStatus = "in_progress"
	WorkCompleted  WorkStatus = "completed"
)

// ErrInvalidStatus is returned when a status transition names an unknown
// work status.
var ErrInvalidStatus = errors.New("invalid status")

// Valid reports whether s is a known work status.
func (s WorkStatus) Valid() bool {
	switch s {
	case WorkPending, WorkInProgress, WorkCompleted:
		return true
	}
	return false
}

// Priority ranks a task within its phase.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Roadmap is the top-level plan linked 1:1 with a project.
type Roadmap struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Summary     string     `json:"summary"`
	GeneratedAt time.Time  `json:"generated_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approved_by,omitempty"`
	Phases      []Phase    `json:"phases,omitempty"`
}

// Phase groups tasks within a roadmap.
type Phase struct {
	ID           string     `json:"id"`
	RoadmapID    string     `json:"roadmap_id"`
	Name         PhaseName  `json:"name"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Objective    string     `json:"objective"`
	Status       WorkStatus `json:"status"`
	Dependencies []string   `json:"dependencies"`
	Deliverables []string   `json:"deliverables"`
	Position     int        `json:"position"`
	Tasks        []Task     `json:"tasks,omitempty"`
}

// Task is a single unit of work inside a phase. Task executions (the
// producer/reviewer workflow) reference tasks by ID.
type Task struct {
	ID            string     `json:"id"`
	PhaseID       string     `json:"phase_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        WorkStatus `json:"status"`
	AssignedAgent string     `json:"assigned_agent,omitempty"`
	AgentRole     string     `json:"agent_role,omitempty"`
	Dependencies  []string   `json:"dependencies"`
	Deliverables  []string   `json:"deliverables"`
	Priority      Priority   `json:"priority"`
	Position      int        `json:"position"`
}

// --- LLM generation contract ---
//
// The roadmap generator asks the model for JSON matching these types and
// decodes it into typed records before anything is persisted.

// Generated is the top-level JSON contract returned by the roadmap model.
type Generated struct {
	Phases  []GeneratedPhase `json:"phases"`
	Summary string           `json:"summary"`
}

// GeneratedPhase is one phase slot in the model's roadmap output.
type GeneratedPhase struct {
	Name         PhaseName       `json:"name"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Objective    string          `json:"objective"`
	Deliverables []string        `json:"deliverables"`
	Tasks        []GeneratedTask `json:"tasks"`
}

// GeneratedTask is one task in the model's roadmap output.
type GeneratedTask struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AssignedAgent string   `json:"assignedAgent"`
	AgentRole     string   `json:"agentRole"`
	Dependencies  []string `json:"dependencies"`
	Deliverables  []string `json:"deliverables"`
	Priority      Priority `json:"priority"`
}

// Validate checks the generated roadmap for structural correctness:
// known phase names, non-empty titles, and valid task priorities.
func (g *Generated) Validate() error {
	if len(g.Phases) == 0 {
		return fmt.Errorf("generated roadmap has no phases")
	}
	known := make(map[PhaseName]bool, len(PhaseOrder))
	for _, n := range PhaseOrder {
		known[n] = true
	}
	for i, p := range g.Phases {
		if !known[p.Name] {
			return fmt.Errorf("phase %d: unknown phase name %q", i, p.Name)
		}
		if p.Title == "" {
			return fmt.Errorf("phase %d (%s): title is required", i, p.Name)
		}
		for j, t := range p.Tasks {
			if t.Title == "" {
				return fmt.Errorf("phase %s task %d: title is required", p.Name, j)
			}
			switch t.Priority {
			case PriorityHigh, PriorityMedium, PriorityLow:
			default:
				return fmt.Errorf("phase %s task %q: invalid priority %q", p.Name, t.Title, t.Priority)
			}
		}
	}
	return nil
}
