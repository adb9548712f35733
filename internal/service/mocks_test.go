package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/planloom/planloom/internal/domain"
	"github.com/planloom/planloom/internal/domain/agent"
	"github.com/planloom/planloom/internal/domain/chat"
	"github.com/planloom/planloom/internal/domain/deliverable"
	"github.com/planloom/planloom/internal/domain/discussion"
	"github.com/planloom/planloom/internal/domain/execution"
	"github.com/planloom/planloom/internal/domain/project"
	"github.com/planloom/planloom/internal/domain/review"
	"github.com/planloom/planloom/internal/domain/roadmap"
	"github.com/planloom/planloom/internal/port/generation"
	"github.com/planloom/planloom/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store for service tests.
type mockStore struct {
	mu sync.Mutex

	seq          int
	projects     map[string]*project.Project
	chatMessages []chat.Message
	agents       []agent.Agent
	roadmaps     map[string]*roadmap.Roadmap
	phases       map[string]*roadmap.Phase
	tasks        map[string]*roadmap.Task
	executions   map[string]*execution.TaskExecution
	threads      map[string]*discussion.Thread
	messages     []discussion.Message
	deliverables []deliverable.Deliverable
	userReviews  map[string]*review.UserReview // keyed by execution ID

	latestDeliverableErr error // injected failure for GetLatestDeliverable
}

func newMockStore() *mockStore {
	return &mockStore{
		projects:    make(map[string]*project.Project),
		roadmaps:    make(map[string]*roadmap.Roadmap),
		phases:      make(map[string]*roadmap.Phase),
		tasks:       make(map[string]*roadmap.Task),
		executions:  make(map[string]*execution.TaskExecution),
		threads:     make(map[string]*discussion.Thread),
		userReviews: make(map[string]*review.UserReview),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *mockStore) ListProjects(ctx context.Context) ([]project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []project.Project
	for _, p := range s.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (s *mockStore) GetProject(ctx context.Context, id string) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *mockStore) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &project.Project{
		ID:          s.nextID("proj"),
		Title:       req.Title,
		Description: req.Description,
		Status:      project.StatusDiscovery,
		CreatedAt:   time.Now(),
	}
	s.projects[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *mockStore) UpdateProjectStatus(ctx context.Context, id string, status project.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	return nil
}

func (s *mockStore) UpdateProjectContext(ctx context.Context, id string, pc project.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Context = pc
	return nil
}

func (s *mockStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *mockStore) ListChatMessages(ctx context.Context, projectID string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Message
	for _, m := range s.chatMessages {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mockStore) CreateChatMessage(ctx context.Context, projectID string, role chat.Role, content string) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := chat.Message{
		ID:        s.nextID("chat"),
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.chatMessages = append(s.chatMessages, m)
	cp := m
	return &cp, nil
}

func (s *mockStore) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agent.Agent(nil), s.agents...), nil
}

func (s *mockStore) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.agents {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockStore) GetAgentsByIDs(ctx context.Context, ids []string) ([]agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []agent.Agent
	for _, id := range ids {
		for _, a := range s.agents {
			if a.ID == id {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (s *mockStore) CreateAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := agent.Agent{
		ID:   s.nextID("agent"),
		Name: req.Name,
		Role: req.Role,
		Goal: req.Goal,
	}
	s.agents = append(s.agents, a)
	cp := a
	return &cp, nil
}

func (s *mockStore) UpdateAgent(ctx context.Context, id string, req agent.UpdateRequest) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.agents {
		if a.ID == id {
			if req.Name != nil {
				s.agents[i].Name = *req.Name
			}
			if req.Role != nil {
				s.agents[i].Role = *req.Role
			}
			cp := s.agents[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockStore) DeleteAgent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.agents {
		if a.ID == id {
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *mockStore) CreateRoadmap(ctx context.Context, r *roadmap.Roadmap) (*roadmap.Roadmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextID("rm")
	r.GeneratedAt = time.Now()
	for i := range r.Phases {
		r.Phases[i].ID = s.nextID("phase")
		r.Phases[i].RoadmapID = r.ID
		ph := r.Phases[i]
		s.phases[ph.ID] = &ph
		for j := range r.Phases[i].Tasks {
			r.Phases[i].Tasks[j].ID = s.nextID("task")
			r.Phases[i].Tasks[j].PhaseID = r.Phases[i].ID
			t := r.Phases[i].Tasks[j]
			s.tasks[t.ID] = &t
		}
	}
	s.roadmaps[r.ProjectID] = r
	return r, nil
}

func (s *mockStore) GetRoadmapByProject(ctx context.Context, projectID string) (*roadmap.Roadmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roadmaps[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (s *mockStore) ApproveRoadmap(ctx context.Context, roadmapID, approvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roadmaps {
		if r.ID == roadmapID {
			now := time.Now()
			r.ApprovedAt = &now
			r.ApprovedBy = approvedBy
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *mockStore) GetTask(ctx context.Context, id string) (*roadmap.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *mockStore) GetPhase(ctx context.Context, id string) (*roadmap.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *mockStore) ListTasksByPhase(ctx context.Context, phaseID string) ([]roadmap.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []roadmap.Task
	for _, t := range s.tasks {
		if t.PhaseID == phaseID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *mockStore) UpdateTaskStatus(ctx context.Context, id string, status roadmap.WorkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	return nil
}

func (s *mockStore) UpdatePhaseStatus(ctx context.Context, id string, status roadmap.WorkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phases[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	return nil
}

func (s *mockStore) CreateExecution(ctx context.Context, e *execution.TaskExecution) (*execution.TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	cp.ID = s.nextID("exec")
	cp.StartedAt = time.Now()
	s.executions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *mockStore) GetExecution(ctx context.Context, id string) (*execution.TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *mockStore) GetExecutionByTask(ctx context.Context, taskID string) (*execution.TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.executions {
		if e.TaskID == taskID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockStore) ListExecutionsByPhase(ctx context.Context, phaseID string) ([]execution.TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []execution.TaskExecution
	for _, e := range s.executions {
		if e.PhaseID == phaseID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *mockStore) UpdateExecutionStatus(ctx context.Context, id string, status execution.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	return nil
}

func (s *mockStore) UpdateExecutionRound(ctx context.Context, id string, round int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.CurrentRound = round
	return nil
}

func (s *mockStore) SetExecutionThread(ctx context.Context, id, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.DiscussionThreadID = threadID
	return nil
}

func (s *mockStore) SetExecutionDeliverable(ctx context.Context, id, deliverableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.CurrentDeliverableID = deliverableID
	return nil
}

func (s *mockStore) CompleteExecution(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	e.Status = execution.StatusCompleted
	e.CompletedAt = &now
	return nil
}

func (s *mockStore) CreateThread(ctx context.Context, executionID string) (*discussion.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &discussion.Thread{
		ID:          s.nextID("thread"),
		ExecutionID: executionID,
		Status:      discussion.ThreadActive,
		CreatedAt:   time.Now(),
	}
	s.threads[t.ID] = t
	cp := *t
	return &cp, nil
}

func (s *mockStore) GetThread(ctx context.Context, id string) (*discussion.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *mockStore) UpdateThreadStatus(ctx context.Context, id string, status discussion.ThreadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	return nil
}

func (s *mockStore) AppendMessage(ctx context.Context, m *discussion.Message) (*discussion.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.ID = s.nextID("msg")
	cp.Seq = int64(len(s.messages) + 1)
	cp.CreatedAt = time.Now()
	s.messages = append(s.messages, cp)
	out := cp
	return &out, nil
}

func (s *mockStore) ListMessagesByThread(ctx context.Context, threadID string) ([]discussion.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []discussion.Message
	for _, m := range s.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mockStore) ListMessagesByRound(ctx context.Context, threadID string, round int) ([]discussion.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []discussion.Message
	for _, m := range s.messages {
		if m.ThreadID == threadID && m.Round == round {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mockStore) AppendDeliverable(ctx context.Context, d *deliverable.Deliverable) (*deliverable.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, existing := range s.deliverables {
		if existing.ExecutionID == d.ExecutionID && existing.Version > max {
			max = existing.Version
		}
	}
	cp := *d
	cp.ID = s.nextID("del")
	cp.Version = max + 1
	cp.CreatedAt = time.Now()
	s.deliverables = append(s.deliverables, cp)
	out := cp
	return &out, nil
}

func (s *mockStore) GetDeliverable(ctx context.Context, id string) (*deliverable.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliverables {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockStore) ListDeliverablesByExecution(ctx context.Context, executionID string) ([]deliverable.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []deliverable.Deliverable
	for _, d := range s.deliverables {
		if d.ExecutionID == executionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *mockStore) GetLatestDeliverable(ctx context.Context, executionID string) (*deliverable.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestDeliverableErr != nil {
		return nil, s.latestDeliverableErr
	}
	var latest *deliverable.Deliverable
	for i, d := range s.deliverables {
		if d.ExecutionID == executionID && (latest == nil || d.Version > latest.Version) {
			latest = &s.deliverables[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *mockStore) OpenUserReview(ctx context.Context, executionID string) (*review.UserReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ur, ok := s.userReviews[executionID]; ok {
		ur.Status = review.StatusPending
		ur.UserFeedback = ""
		ur.ReviewedAt = nil
		cp := *ur
		return &cp, nil
	}
	ur := &review.UserReview{
		ID:          s.nextID("ur"),
		ExecutionID: executionID,
		Status:      review.StatusPending,
	}
	s.userReviews[executionID] = ur
	cp := *ur
	return &cp, nil
}

func (s *mockStore) GetUserReviewByExecution(ctx context.Context, executionID string) (*review.UserReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ur, ok := s.userReviews[executionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ur
	return &cp, nil
}

func (s *mockStore) ApproveUserReview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ur := range s.userReviews {
		if ur.ID == id {
			now := time.Now()
			ur.Status = review.StatusApproved
			ur.ReviewedAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *mockStore) SubmitUserReviewFeedback(ctx context.Context, id, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ur := range s.userReviews {
		if ur.ID == id {
			now := time.Now()
			ur.Status = review.StatusFeedbackProvided
			ur.UserFeedback = feedback
			ur.ReviewedAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}

// mockGenerator scripts generation results. Review verdicts are consumed
// from reviewVerdicts in call order; once the script runs out, reviewers
// approve.
type mockGenerator struct {
	mu             sync.Mutex
	reviewVerdicts []bool
	reviewCalls    int
	revisionCalls  int
	initialErr     error
	reviewErr      error
	discoveryReply string
	roadmapResult  *roadmap.Generated
	roadmapErr     error
}

func (g *mockGenerator) InitialDeliverable(ctx context.Context, producer agent.Agent, tc generation.TaskContext) (string, error) {
	if g.initialErr != nil {
		return "", g.initialErr
	}
	return "draft v1 for " + tc.TaskTitle, nil
}

func (g *mockGenerator) Review(ctx context.Context, reviewer agent.Agent, tc generation.TaskContext, deliverableContent string, prior []discussion.Message) (*generation.ReviewResult, error) {
	if g.reviewErr != nil {
		return nil, g.reviewErr
	}
	g.mu.Lock()
	approved := true
	if g.reviewCalls < len(g.reviewVerdicts) {
		approved = g.reviewVerdicts[g.reviewCalls]
	}
	g.reviewCalls++
	g.mu.Unlock()
	if approved {
		return &generation.ReviewResult{Content: "looks good", Approved: true}, nil
	}
	return &generation.ReviewResult{Content: "needs work on scope", Approved: false}, nil
}

func (g *mockGenerator) ProducerResponse(ctx context.Context, producer agent.Agent, tc generation.TaskContext, deliverableContent string, concerns []discussion.Message) (*generation.ResponseResult, error) {
	return &generation.ResponseResult{
		Content:         "I will address the scope concern",
		NeedsRevision:   true,
		RevisionSummary: "Tighten the scope section",
	}, nil
}

func (g *mockGenerator) Revision(ctx context.Context, producer agent.Agent, tc generation.TaskContext, deliverableContent string, concerns []discussion.Message, plan string) (string, error) {
	g.mu.Lock()
	g.revisionCalls++
	n := g.revisionCalls
	g.mu.Unlock()
	return fmt.Sprintf("revised draft %d", n), nil
}

func (g *mockGenerator) DiscoveryReply(ctx context.Context, proj *project.Project, history []chat.Message, forceAction bool) (string, error) {
	if forceAction {
		return "Let's generate the roadmap.", nil
	}
	if g.discoveryReply != "" {
		return g.discoveryReply, nil
	}
	return "Tell me more about your users.", nil
}

func (g *mockGenerator) Roadmap(ctx context.Context, proj *project.Project) (*roadmap.Generated, error) {
	if g.roadmapErr != nil {
		return nil, g.roadmapErr
	}
	return g.roadmapResult, nil
}

// mockStarter records auto-start requests issued when a phase opens.
type mockStarter struct {
	mu       sync.Mutex
	requests []execution.StartRequest
	err      error
}

func (m *mockStarter) Start(ctx context.Context, req execution.StartRequest) (*execution.TaskExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	return &execution.TaskExecution{
		ID:        fmt.Sprintf("exec-%d", len(m.requests)),
		TaskID:    req.TaskID,
		PhaseID:   req.PhaseID,
		ProjectID: req.ProjectID,
		Status:    execution.StatusInProgress,
	}, nil
}

// mockQueue records published messages.
type mockQueue struct {
	mu        sync.Mutex
	published []publishedMsg
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (q *mockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, m := range q.published {
		out = append(out, m.subject)
	}
	return out
}

// mockHub records broadcast events.
type mockHub struct {
	mu     sync.Mutex
	events []string
}

func (h *mockHub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType)
}
