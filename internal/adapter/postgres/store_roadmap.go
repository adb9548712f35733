package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/planloom/planloom/internal/domain/roadmap"
)

// CreateRoadmap inserts a roadmap with its phases and tasks in a single
// transaction. The input carries nested phases and tasks; generated IDs
// are filled in on the returned value.
func (s *Store) CreateRoadmap(ctx context.Context, r *roadmap.Roadmap) (*roadmap.Roadmap, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin create roadmap: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO roadmaps (project_id, summary)
		 VALUES ($1, $2)
		 RETURNING id, generated_at`,
		r.ProjectID, r.Summary).Scan(&r.ID, &r.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("insert roadmap: %w", err)
	}

	for i := range r.Phases {
		p := &r.Phases[i]
		p.RoadmapID = r.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO roadmap_phases (roadmap_id, name, title, description, objective, status, dependencies, deliverables, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			r.ID, p.Name, p.Title, p.Description, p.Objective, p.Status,
			pgTextArray(p.Dependencies), pgTextArray(p.Deliverables), p.Position).Scan(&p.ID)
		if err != nil {
			return nil, fmt.Errorf("insert phase %s: %w", p.Name, err)
		}

		for j := range p.Tasks {
			t := &p.Tasks[j]
			t.PhaseID = p.ID
			err = tx.QueryRow(ctx,
				`INSERT INTO roadmap_tasks (phase_id, title, description, status, assigned_agent, agent_role, dependencies, deliverables, priority, position)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				 RETURNING id`,
				p.ID, t.Title, t.Description, t.Status, t.AssignedAgent, t.AgentRole,
				pgTextArray(t.Dependencies), pgTextArray(t.Deliverables), t.Priority, t.Position).Scan(&t.ID)
			if err != nil {
				return nil, fmt.Errorf("insert task %q: %w", t.Title, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create roadmap: %w", err)
	}
	return r, nil
}

// GetRoadmapByProject loads a project's roadmap with phases and tasks.
func (s *Store) GetRoadmapByProject(ctx context.Context, projectID string) (*roadmap.Roadmap, error) {
	r := &roadmap.Roadmap{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, summary, generated_at, approved_at, approved_by
		 FROM roadmaps WHERE project_id = $1`, projectID).
		Scan(&r.ID, &r.ProjectID, &r.Summary, &r.GeneratedAt, &r.ApprovedAt, &r.ApprovedBy)
	if err != nil {
		return nil, notFoundWrap(err, "get roadmap for project %s", projectID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, roadmap_id, name, title, description, objective, status, dependencies, deliverables, position
		 FROM roadmap_phases WHERE roadmap_id = $1 ORDER BY position ASC`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p roadmap.Phase
		if err := rows.Scan(&p.ID, &p.RoadmapID, &p.Name, &p.Title, &p.Description,
			&p.Objective, &p.Status, &p.Dependencies, &p.Deliverables, &p.Position); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		r.Phases = append(r.Phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range r.Phases {
		tasks, err := s.ListTasksByPhase(ctx, r.Phases[i].ID)
		if err != nil {
			return nil, err
		}
		r.Phases[i].Tasks = tasks
	}
	return r, nil
}

func (s *Store) ApproveRoadmap(ctx context.Context, roadmapID, approvedBy string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE roadmaps SET approved_at = now(), approved_by = $2 WHERE id = $1`,
		roadmapID, approvedBy)
	return execExpectOne(tag, err, "approve roadmap %s", roadmapID)
}

func (s *Store) GetPhase(ctx context.Context, id string) (*roadmap.Phase, error) {
	var p roadmap.Phase
	err := s.pool.QueryRow(ctx,
		`SELECT id, roadmap_id, name, title, description, objective, status, dependencies, deliverables, position
		 FROM roadmap_phases WHERE id = $1`, id).
		Scan(&p.ID, &p.RoadmapID, &p.Name, &p.Title, &p.Description,
			&p.Objective, &p.Status, &p.Dependencies, &p.Deliverables, &p.Position)
	if err != nil {
		return nil, notFoundWrap(err, "get phase %s", id)
	}
	return &p, nil
}

func scanTask(row scannable) (roadmap.Task, error) {
	var t roadmap.Task
	err := row.Scan(&t.ID, &t.PhaseID, &t.Title, &t.Description, &t.Status,
		&t.AssignedAgent, &t.AgentRole, &t.Dependencies, &t.Deliverables, &t.Priority, &t.Position)
	return t, err
}

const taskColumns = `id, phase_id, title, description, status, assigned_agent, agent_role, dependencies, deliverables, priority, position`

func (s *Store) GetTask(ctx context.Context, id string) (*roadmap.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM roadmap_tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return &t, nil
}

func (s *Store) ListTasksByPhase(ctx context.Context, phaseID string) ([]roadmap.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM roadmap_tasks WHERE phase_id = $1 ORDER BY position ASC`, phaseID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for phase %s: %w", phaseID, err)
	}
	defer rows.Close()

	var tasks []roadmap.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return orEmpty(tasks), rows.Err()
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status roadmap.WorkStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE roadmap_tasks SET status = $2 WHERE id = $1`, id, status)
	return execExpectOne(tag, err, "update task status %s", id)
}

func (s *Store) UpdatePhaseStatus(ctx context.Context, id string, status roadmap.WorkStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE roadmap_phases SET status = $2 WHERE id = $1`, id, status)
	return execExpectOne(tag, err, "update phase status %s", id)
}
