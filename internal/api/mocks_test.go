package api_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

var errNotConfigured = errors.New("mock not configured")

// mockWorkItems implements domain.WorkItemService. Unset functions fail.
type mockWorkItems struct {
	createProblemFn func(ctx context.Context, actor *models.Principal, req models.CreateProblemRequest) (*models.Problem, error)
	getProblemFn    func(ctx context.Context, id uuid.UUID) (*models.Problem, error)
	listProblemsFn  func(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Problem], error)
	problemStatusFn func(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.ProblemStatusRequest) (*models.Problem, error)

	createDiaryFn func(ctx context.Context, actor *models.Principal, req models.CreateDiaryRequest) (*models.Diary, error)
	diaryStatusFn func(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DiaryStatusRequest) (*models.Diary, error)

	startFn  func(ctx context.Context, actor *models.Principal, id uuid.UUID, comment *string, expectedVersion *int) (*models.Acceptance, error)
	decideFn func(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DecisionRequest) (*models.Acceptance, *models.ApprovalRecord, error)

	actionsFn func(ctx context.Context, kind models.Kind, id uuid.UUID) ([]models.StatusAction, error)
	deleteFn  func(ctx context.Context, actor *models.Principal, kind models.Kind, id uuid.UUID) error
}

func (m *mockWorkItems) CreateProblem(ctx context.Context, actor *models.Principal, req models.CreateProblemRequest) (*models.Problem, error) {
	if m.createProblemFn == nil {
		return nil, errNotConfigured
	}

	return m.createProblemFn(ctx, actor, req)
}

func (m *mockWorkItems) GetProblem(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	if m.getProblemFn == nil {
		return nil, errNotConfigured
	}

	return m.getProblemFn(ctx, id)
}

func (m *mockWorkItems) ListProblems(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Problem], error) {
	if m.listProblemsFn == nil {
		return models.Page[models.Problem]{}, errNotConfigured
	}

	return m.listProblemsFn(ctx, q)
}

func (m *mockWorkItems) ChangeProblemStatus(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.ProblemStatusRequest) (*models.Problem, error) {
	if m.problemStatusFn == nil {
		return nil, errNotConfigured
	}

	return m.problemStatusFn(ctx, actor, id, req)
}

func (m *mockWorkItems) CreateDiary(ctx context.Context, actor *models.Principal, req models.CreateDiaryRequest) (*models.Diary, error) {
	if m.createDiaryFn == nil {
		return nil, errNotConfigured
	}

	return m.createDiaryFn(ctx, actor, req)
}

func (m *mockWorkItems) GetDiary(context.Context, uuid.UUID) (*models.Diary, error) {
	return nil, errNotConfigured
}

func (m *mockWorkItems) ListDiaries(context.Context, models.WorkItemQuery) (models.Page[models.Diary], error) {
	return models.Page[models.Diary]{}, errNotConfigured
}

func (m *mockWorkItems) ChangeDiaryStatus(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DiaryStatusRequest) (*models.Diary, error) {
	if m.diaryStatusFn == nil {
		return nil, errNotConfigured
	}

	return m.diaryStatusFn(ctx, actor, id, req)
}

func (m *mockWorkItems) CreateAcceptance(context.Context, *models.Principal, models.CreateAcceptanceRequest) (*models.Acceptance, error) {
	return nil, errNotConfigured
}

func (m *mockWorkItems) GetAcceptance(context.Context, uuid.UUID) (*models.Acceptance, error) {
	return nil, errNotConfigured
}

func (m *mockWorkItems) ListAcceptances(context.Context, models.WorkItemQuery) (models.Page[models.Acceptance], error) {
	return models.Page[models.Acceptance]{}, errNotConfigured
}

func (m *mockWorkItems) StartAcceptance(ctx context.Context, actor *models.Principal, id uuid.UUID, comment *string, expectedVersion *int) (*models.Acceptance, error) {
	if m.startFn == nil {
		return nil, errNotConfigured
	}

	return m.startFn(ctx, actor, id, comment, expectedVersion)
}

func (m *mockWorkItems) DecideAcceptance(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DecisionRequest) (*models.Acceptance, *models.ApprovalRecord, error) {
	if m.decideFn == nil {
		return nil, nil, errNotConfigured
	}

	return m.decideFn(ctx, actor, id, req)
}

func (m *mockWorkItems) ListApprovals(context.Context, uuid.UUID) ([]models.ApprovalRecord, error) {
	return nil, errNotConfigured
}

func (m *mockWorkItems) ListActions(ctx context.Context, kind models.Kind, id uuid.UUID) ([]models.StatusAction, error) {
	if m.actionsFn == nil {
		return nil, errNotConfigured
	}

	return m.actionsFn(ctx, kind, id)
}

func (m *mockWorkItems) DeleteWorkItem(ctx context.Context, actor *models.Principal, kind models.Kind, id uuid.UUID) error {
	if m.deleteFn == nil {
		return errNotConfigured
	}

	return m.deleteFn(ctx, actor, kind, id)
}

// mockAudit implements domain.AuditService.
type mockAudit struct {
	mu       sync.Mutex
	appended []models.AuditAppendRequest
	appendFn func(ctx context.Context, actor *models.Principal, req models.AuditAppendRequest) (int64, error)
	batchFn  func(ctx context.Context, actor *models.Principal, reqs []models.AuditAppendRequest) []models.AppendResult
	queryFn  func(ctx context.Context, q models.AuditQuery) models.Page[models.AuditLogEntry]
}

func (m *mockAudit) Append(ctx context.Context, actor *models.Principal, req models.AuditAppendRequest) (int64, error) {
	m.mu.Lock()
	m.appended = append(m.appended, req)
	m.mu.Unlock()

	return m.appendFn(ctx, actor, req)
}

func (m *mockAudit) AppendBatch(ctx context.Context, actor *models.Principal, reqs []models.AuditAppendRequest) []models.AppendResult {
	return m.batchFn(ctx, actor, reqs)
}

func (m *mockAudit) Query(ctx context.Context, q models.AuditQuery) models.Page[models.AuditLogEntry] {
	return m.queryFn(ctx, q)
}

// mockActivity implements domain.ActivityService.
type mockActivity struct {
	logFn      func(ctx context.Context, actor *models.Principal, req models.ActivityLogRequest) (int64, error)
	entityFn   func(ctx context.Context, entityType, entityID string, limit, offset int) models.Page[models.ActivityEvent]
	actorFn    func(ctx context.Context, actorID uuid.UUID, limit, offset int) models.Page[models.ActivityEvent]
	projectFn  func(ctx context.Context, q models.ActivityQuery) models.Page[models.ActivityEvent]
	timelineFn func(ctx context.Context, q models.ActivityQuery) []models.TimelineGroup
}

func (m *mockActivity) Log(ctx context.Context, actor *models.Principal, req models.ActivityLogRequest) (int64, error) {
	return m.logFn(ctx, actor, req)
}

func (m *mockActivity) GetEntityHistory(ctx context.Context, entityType, entityID string, limit, offset int) models.Page[models.ActivityEvent] {
	return m.entityFn(ctx, entityType, entityID, limit, offset)
}

func (m *mockActivity) GetActorHistory(ctx context.Context, actorID uuid.UUID, limit, offset int) models.Page[models.ActivityEvent] {
	return m.actorFn(ctx, actorID, limit, offset)
}

func (m *mockActivity) GetByProject(ctx context.Context, q models.ActivityQuery) models.Page[models.ActivityEvent] {
	return m.projectFn(ctx, q)
}

func (m *mockActivity) Timeline(ctx context.Context, q models.ActivityQuery) []models.TimelineGroup {
	return m.timelineFn(ctx, q)
}

// mockStats implements domain.StatsService.
type mockStats struct {
	aggregateFn func(ctx context.Context, source models.StatsSource, f models.StatsFilter, w models.Window) models.Stats
}

func (m *mockStats) Aggregate(ctx context.Context, source models.StatsSource, f models.StatsFilter, w models.Window) models.Stats {
	return m.aggregateFn(ctx, source, f, w)
}

// mockHealth implements api.HealthChecker.
type mockHealth struct {
	err error
}

func (m *mockHealth) HealthCheck(context.Context) error {
	return m.err
}

// mockPrincipals implements middleware.PrincipalLookup.
type mockPrincipals struct {
	keys map[string]*models.Principal
}

func (m *mockPrincipals) LookupPrincipal(_ context.Context, apiKey string) (*models.Principal, error) {
	if p, ok := m.keys[apiKey]; ok {
		return p, nil
	}

	return nil, models.ErrNotFound
}
