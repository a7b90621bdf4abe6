package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

// memStore is an in-memory WorkItemStore with the same version semantics as
// the Postgres store. getHook, when set, runs after every successful read.
type memStore struct {
	mu        sync.Mutex
	problems  map[uuid.UUID]models.Problem
	diaries   map[uuid.UUID]models.Diary
	accepts   map[uuid.UUID]models.Acceptance
	actions   []models.StatusAction
	approvals map[uuid.UUID][]models.ApprovalRecord

	getHook func()
	saveErr error
	listErr error
}

func newMemStore() *memStore {
	return &memStore{
		problems:  map[uuid.UUID]models.Problem{},
		diaries:   map[uuid.UUID]models.Diary{},
		accepts:   map[uuid.UUID]models.Acceptance{},
		approvals: map[uuid.UUID][]models.ApprovalRecord{},
	}
}

func (m *memStore) afterGet() {
	if m.getHook != nil {
		m.getHook()
	}
}

func (m *memStore) CreateProblem(_ context.Context, req models.CreateProblemRequest, createdBy uuid.UUID) (*models.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := models.Problem{
		ID: uuid.New(), ProjectID: req.ProjectID, Title: req.Title, Status: models.ProblemOpen,
		Priority: "medium", CreatedBy: createdBy, Version: 1,
	}
	m.problems[p.ID] = p

	return &p, nil
}

func (m *memStore) CreateDiary(_ context.Context, req models.CreateDiaryRequest, createdBy uuid.UUID) (*models.Diary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := models.Diary{
		ID: uuid.New(), ProjectID: req.ProjectID, EntryDate: req.EntryDate, Notes: req.Notes,
		Status: models.DiaryDraft, CreatedBy: createdBy, Version: 1,
	}
	m.diaries[d.ID] = d

	return &d, nil
}

func (m *memStore) CreateAcceptance(_ context.Context, req models.CreateAcceptanceRequest, createdBy uuid.UUID) (*models.Acceptance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := models.Acceptance{
		ID: uuid.New(), ProjectID: req.ProjectID, Title: req.Title, Status: models.AcceptancePending,
		CreatedBy: createdBy, Version: 1,
	}
	m.accepts[a.ID] = a

	return &a, nil
}

func (m *memStore) GetProblem(_ context.Context, id uuid.UUID) (*models.Problem, error) {
	m.mu.Lock()
	p, ok := m.problems[id]
	m.mu.Unlock()

	if !ok || p.DeletedAt != nil {
		return nil, models.ErrNotFound
	}

	m.afterGet()

	return &p, nil
}

func (m *memStore) GetDiary(_ context.Context, id uuid.UUID) (*models.Diary, error) {
	m.mu.Lock()
	d, ok := m.diaries[id]
	m.mu.Unlock()

	if !ok || d.DeletedAt != nil {
		return nil, models.ErrNotFound
	}

	m.afterGet()

	return &d, nil
}

func (m *memStore) GetAcceptance(_ context.Context, id uuid.UUID) (*models.Acceptance, error) {
	m.mu.Lock()
	a, ok := m.accepts[id]
	m.mu.Unlock()

	if !ok || a.DeletedAt != nil {
		return nil, models.ErrNotFound
	}

	m.afterGet()

	return &a, nil
}

func (m *memStore) ListProblems(context.Context, models.WorkItemQuery) (models.Page[models.Problem], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Problem, 0, len(m.problems))
	for _, p := range m.problems {
		out = append(out, p)
	}

	return models.NewPage(out, len(out), 0, 0), m.listErr
}

func (m *memStore) ListDiaries(context.Context, models.WorkItemQuery) (models.Page[models.Diary], error) {
	return models.EmptyPage[models.Diary](0, 0), m.listErr
}

func (m *memStore) ListAcceptances(context.Context, models.WorkItemQuery) (models.Page[models.Acceptance], error) {
	return models.EmptyPage[models.Acceptance](0, 0), m.listErr
}

// guard applies the compare-and-swap rule shared by every save.
func guard(current int, expected *int) error {
	if expected != nil && *expected != current {
		return models.ErrVersionConflict
	}

	return nil
}

func (m *memStore) SaveProblem(_ context.Context, p *models.Problem, action *models.StatusAction, expected *int) (*models.Problem, *models.StatusAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, nil, m.saveErr
	}

	cur, ok := m.problems[p.ID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}

	if err := guard(cur.Version, expected); err != nil {
		return nil, nil, err
	}

	saved := *p
	saved.Version = cur.Version + 1
	m.problems[p.ID] = saved

	rec := m.appendAction(action)

	return &saved, &rec, nil
}

func (m *memStore) SaveDiary(_ context.Context, d *models.Diary, action *models.StatusAction, expected *int) (*models.Diary, *models.StatusAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, nil, m.saveErr
	}

	cur, ok := m.diaries[d.ID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}

	if err := guard(cur.Version, expected); err != nil {
		return nil, nil, err
	}

	saved := *d
	saved.Version = cur.Version + 1
	m.diaries[d.ID] = saved

	rec := m.appendAction(action)

	return &saved, &rec, nil
}

func (m *memStore) SaveAcceptanceStart(_ context.Context, a *models.Acceptance, action *models.StatusAction, expected *int) (*models.Acceptance, *models.StatusAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.accepts[a.ID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}

	if cur.Status != models.AcceptancePending {
		return nil, nil, models.ErrVersionConflict
	}

	if err := guard(cur.Version, expected); err != nil {
		return nil, nil, err
	}

	saved := *a
	saved.Version = cur.Version + 1
	m.accepts[a.ID] = saved

	rec := m.appendAction(action)

	return &saved, &rec, nil
}

func (m *memStore) SaveAcceptanceDecision(_ context.Context, a *models.Acceptance, approval *models.ApprovalRecord, expected *int) (*models.Acceptance, *models.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.accepts[a.ID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}

	if cur.Status != models.AcceptanceInProgress {
		return nil, nil, models.ErrVersionConflict
	}

	if err := guard(cur.Version, expected); err != nil {
		return nil, nil, err
	}

	saved := *a
	saved.Version = cur.Version + 1
	m.accepts[a.ID] = saved

	rec := *approval
	rec.ID = int64(len(m.approvals[a.ID]) + 1)
	rec.ApprovalOrder = len(m.approvals[a.ID]) + 1
	m.approvals[a.ID] = append(m.approvals[a.ID], rec)

	return &saved, &rec, nil
}

func (m *memStore) appendAction(a *models.StatusAction) models.StatusAction {
	rec := *a
	rec.ID = int64(len(m.actions) + 1)
	m.actions = append(m.actions, rec)

	return rec
}

func (m *memStore) ListActions(_ context.Context, kind models.Kind, id uuid.UUID) ([]models.StatusAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.StatusAction

	for _, a := range m.actions {
		if a.Kind == kind && a.ItemID == id {
			out = append(out, a)
		}
	}

	return out, nil
}

func (m *memStore) ListApprovals(_ context.Context, id uuid.UUID) ([]models.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.ApprovalRecord(nil), m.approvals[id]...), nil
}

func (m *memStore) SoftDelete(_ context.Context, kind models.Kind, id uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if kind != models.KindProblem {
		return uuid.Nil, errors.New("memStore only deletes problems")
	}

	p, ok := m.problems[id]
	if !ok || p.DeletedAt != nil {
		return uuid.Nil, models.ErrNotFound
	}

	now := p.UpdatedAt
	p.DeletedAt = &now
	m.problems[id] = p

	return p.ProjectID, nil
}

// mockAuditAppender records audit appends.
type mockAuditAppender struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry

	err   error
	query func(ctx context.Context, q models.AuditQuery) (models.Page[models.AuditLogEntry], error)
}

func (m *mockAuditAppender) Append(_ context.Context, e *models.AuditLogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}

	m.entries = append(m.entries, *e)

	return int64(len(m.entries)), nil
}

func (m *mockAuditAppender) Query(ctx context.Context, q models.AuditQuery) (models.Page[models.AuditLogEntry], error) {
	return m.query(ctx, q)
}

func (m *mockAuditAppender) getEntries() []models.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]models.AuditLogEntry, len(m.entries))
	copy(cp, m.entries)

	return cp
}

// mockActivityLogger records activity appends.
type mockActivityLogger struct {
	mu     sync.Mutex
	events []models.ActivityLogRequest
	actors []*uuid.UUID

	err   error
	query func(ctx context.Context, q models.ActivityQuery) (models.Page[models.ActivityEvent], error)
}

func (m *mockActivityLogger) Log(_ context.Context, req *models.ActivityLogRequest, actorID *uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}

	m.events = append(m.events, *req)
	m.actors = append(m.actors, actorID)

	return int64(len(m.events)), nil
}

func (m *mockActivityLogger) Query(ctx context.Context, q models.ActivityQuery) (models.Page[models.ActivityEvent], error) {
	return m.query(ctx, q)
}

func (m *mockActivityLogger) getEvents() []models.ActivityLogRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]models.ActivityLogRequest, len(m.events))
	copy(cp, m.events)

	return cp
}

// mockAuditEnqueuer records enqueued jobs without running a worker.
type mockAuditEnqueuer struct {
	mu   sync.Mutex
	jobs []*AuditJob
}

func (m *mockAuditEnqueuer) Enqueue(job *AuditJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

func (m *mockAuditEnqueuer) getJobs() []*AuditJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*AuditJob(nil), m.jobs...)
}

// mockStatsReader returns configured rows.
type mockStatsReader struct {
	statsWindow func(ctx context.Context, f models.StatsFilter, w models.Window, rowCap int) ([]models.StatRecord, bool, error)
}

func (m *mockStatsReader) StatsWindow(ctx context.Context, f models.StatsFilter, w models.Window, rowCap int) ([]models.StatRecord, bool, error) {
	return m.statsWindow(ctx, f, w, rowCap)
}
