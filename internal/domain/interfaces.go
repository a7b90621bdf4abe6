// Package domain defines the canonical service interfaces shared across API
// layers (REST, websocket). Consumers should depend on these interfaces
// rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

// ProblemService defines problem operations.
type ProblemService interface {
	CreateProblem(ctx context.Context, actor *models.Principal, req models.CreateProblemRequest) (*models.Problem, error)
	GetProblem(ctx context.Context, id uuid.UUID) (*models.Problem, error)
	ListProblems(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Problem], error)
	ChangeProblemStatus(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.ProblemStatusRequest) (*models.Problem, error)
}

// DiaryService defines site diary operations.
type DiaryService interface {
	CreateDiary(ctx context.Context, actor *models.Principal, req models.CreateDiaryRequest) (*models.Diary, error)
	GetDiary(ctx context.Context, id uuid.UUID) (*models.Diary, error)
	ListDiaries(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Diary], error)
	ChangeDiaryStatus(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DiaryStatusRequest) (*models.Diary, error)
}

// AcceptanceService defines acceptance inspection operations.
type AcceptanceService interface {
	CreateAcceptance(ctx context.Context, actor *models.Principal, req models.CreateAcceptanceRequest) (*models.Acceptance, error)
	GetAcceptance(ctx context.Context, id uuid.UUID) (*models.Acceptance, error)
	ListAcceptances(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Acceptance], error)
	StartAcceptance(ctx context.Context, actor *models.Principal, id uuid.UUID, comment *string, expectedVersion *int) (*models.Acceptance, error)
	DecideAcceptance(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DecisionRequest) (*models.Acceptance, *models.ApprovalRecord, error)
	ListApprovals(ctx context.Context, id uuid.UUID) ([]models.ApprovalRecord, error)
}

// WorkItemService combines the per-kind services with the operations they
// share.
type WorkItemService interface {
	ProblemService
	DiaryService
	AcceptanceService
	ListActions(ctx context.Context, kind models.Kind, id uuid.UUID) ([]models.StatusAction, error)
	DeleteWorkItem(ctx context.Context, actor *models.Principal, kind models.Kind, id uuid.UUID) error
}

// AuditService defines audit log operations.
type AuditService interface {
	Append(ctx context.Context, actor *models.Principal, req models.AuditAppendRequest) (int64, error)
	AppendBatch(ctx context.Context, actor *models.Principal, reqs []models.AuditAppendRequest) []models.AppendResult
	Query(ctx context.Context, q models.AuditQuery) models.Page[models.AuditLogEntry]
}

// ActivityService defines activity timeline operations.
type ActivityService interface {
	Log(ctx context.Context, actor *models.Principal, req models.ActivityLogRequest) (int64, error)
	GetEntityHistory(ctx context.Context, entityType, entityID string, limit, offset int) models.Page[models.ActivityEvent]
	GetActorHistory(ctx context.Context, actorID uuid.UUID, limit, offset int) models.Page[models.ActivityEvent]
	GetByProject(ctx context.Context, q models.ActivityQuery) models.Page[models.ActivityEvent]
	Timeline(ctx context.Context, q models.ActivityQuery) []models.TimelineGroup
}

// StatsService defines on-demand aggregation over the history logs.
type StatsService interface {
	Aggregate(ctx context.Context, source models.StatsSource, f models.StatsFilter, w models.Window) models.Stats
}

// PrincipalResolver resolves API keys to principals.
type PrincipalResolver interface {
	LookupPrincipal(ctx context.Context, apiKey string) (*models.Principal, error)
}
