package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

// Wire types shared with the server.
type (
	Problem          = models.Problem
	Diary            = models.Diary
	Acceptance       = models.Acceptance
	ApprovalRecord   = models.ApprovalRecord
	StatusAction     = models.StatusAction
	ProblemStatus    = models.ProblemStatus
	DiaryStatus      = models.DiaryStatus
	AcceptanceStatus = models.AcceptanceStatus
	Decision         = models.Decision

	CreateProblemRequest    = models.CreateProblemRequest
	CreateDiaryRequest      = models.CreateDiaryRequest
	CreateAcceptanceRequest = models.CreateAcceptanceRequest
	ProblemStatusRequest    = models.ProblemStatusRequest
	DiaryStatusRequest      = models.DiaryStatusRequest
	DecisionRequest         = models.DecisionRequest

	AuditEntry         = models.AuditLogEntry
	AuditAppendRequest = models.AuditAppendRequest
	AppendResult       = models.AppendResult

	ActivityEvent      = models.ActivityEvent
	ActivityLogRequest = models.ActivityLogRequest
	TimelineGroup      = models.TimelineGroup

	AuditAction      = models.AuditAction
	Severity         = models.Severity
	ActivityMetadata = models.ActivityMetadata
	ActorCount       = models.ActorCount
	Stats            = models.Stats
)

// Page is one page of results with pagination metadata.
type Page[T any] = models.Page[T]

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Subscribers   int     `json:"realtime_subscribers"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadinessResponse is returned by the readiness endpoint.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ListOptions holds the filters shared by every list endpoint.
type ListOptions struct {
	ProjectID      *uuid.UUID
	ActorID        *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	Search         string
	OrderBy        string
	OrderDirection string
	Limit          int
	Offset         int
}

// WorkItemListOptions filters problem, diary or acceptance lists.
type WorkItemListOptions struct {
	ListOptions
	Statuses       []string
	CreatedBy      *uuid.UUID
	IncludeDeleted bool
}

// AuditQueryOptions filters audit log queries.
type AuditQueryOptions struct {
	ListOptions
	EntityTypes []string
	EntityID    string
	Actions     []string
	Severities  []string
}

// ActivityQueryOptions filters activity queries.
type ActivityQueryOptions struct {
	ListOptions
	EntityTypes   []string
	EntityID      string
	ActivityTypes []string
	Tags          []string
}

// StatsOptions scopes an aggregation. Days is ignored when StartDate or
// EndDate is set.
type StatsOptions struct {
	ProjectID   *uuid.UUID
	ActorID     *uuid.UUID
	EntityTypes []string
	Days        int
	StartDate   *time.Time
	EndDate     *time.Time
}
