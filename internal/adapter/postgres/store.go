package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planloom/planloom/internal/domain/chat"
	"github.com/planloom/planloom/internal/domain/project"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Projects ---

func scanProject(row scannable) (project.Project, error) {
	var p project.Project
	var contextJSON []byte
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &contextJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return project.Project{}, err
	}
	if err := json.Unmarshal(contextJSON, &p.Context); err != nil {
		return project.Project{}, fmt.Errorf("unmarshal project context: %w", err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, status, context, created_at, updated_at
		 FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, description, status, context, created_at, updated_at
		 FROM projects WHERE id = $1`, id)

	p, err := scanProject(row)
	if err != nil {
		return nil, notFoundWrap(err, "get project %s", id)
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO projects (title, description)
		 VALUES ($1, $2)
		 RETURNING id, title, description, status, context, created_at, updated_at`,
		req.Title, req.Description)

	p, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdateProjectStatus(ctx context.Context, id string, status project.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	return execExpectOne(tag, err, "update project status %s", id)
}

func (s *Store) UpdateProjectContext(ctx context.Context, id string, pc project.Context) error {
	contextJSON, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshal project context: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET context = $2, updated_at = now() WHERE id = $1`,
		id, contextJSON)
	return execExpectOne(tag, err, "update project context %s", id)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete project %s", id)
}

// --- Discovery chat ---

func (s *Store) ListChatMessages(ctx context.Context, projectID string) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, role, content, created_at
		 FROM chat_messages WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return orEmpty(msgs), rows.Err()
}

func (s *Store) CreateChatMessage(ctx context.Context, projectID string, role chat.Role, content string) (*chat.Message, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (project_id, role, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, project_id, role, content, created_at`,
		projectID, role, content)

	var m chat.Message
	if err := row.Scan(&m.ID, &m.ProjectID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("create chat message: %w", err)
	}
	return &m, nil
}
