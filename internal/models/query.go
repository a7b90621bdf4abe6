package models

import (
	"time"

	"github.com/google/uuid"
)

// Default and maximum page sizes for list queries.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// SortDirection orders list results by the chosen column.
type SortDirection string

// Sort directions.
const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

// AuditQuery holds filters for the audit log. Zero values mean "no filter".
type AuditQuery struct {
	ProjectID      *uuid.UUID
	EntityTypes    []string
	EntityID       string
	Actions        []string
	ActorID        *uuid.UUID
	Severities     []string
	StartDate      *time.Time
	EndDate        *time.Time
	Search         string
	OrderBy        string
	OrderDirection SortDirection
	Limit          int
	Offset         int
}

// ActivityQuery holds filters for the activity timeline.
type ActivityQuery struct {
	ProjectID      *uuid.UUID
	EntityTypes    []string
	EntityID       string
	ActivityTypes  []string
	ActorID        *uuid.UUID
	Tags           []string
	StartDate      *time.Time
	EndDate        *time.Time
	Search         string
	OrderBy        string
	OrderDirection SortDirection
	Limit          int
	Offset         int
}

// WorkItemQuery holds filters for listing work items of one kind.
type WorkItemQuery struct {
	ProjectID      *uuid.UUID
	Statuses       []string
	CreatedBy      *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	Search         string
	IncludeDeleted bool
	OrderBy        string
	OrderDirection SortDirection
	Limit          int
	Offset         int
}

// Page is one page of a filtered query. Total counts every matching record
// regardless of Limit and Offset.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// NewPage derives page numbering from limit, offset and the total count.
func NewPage[T any](data []T, total, limit, offset int) Page[T] {
	if data == nil {
		data = []T{}
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}

	totalPages := (total + limit - 1) / limit

	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       offset/limit + 1,
		PageSize:   limit,
		TotalPages: totalPages,
		HasMore:    offset+len(data) < total,
	}
}

// EmptyPage is the safe default returned when a listing fails.
func EmptyPage[T any](limit, offset int) Page[T] {
	return NewPage[T](nil, 0, limit, offset)
}

// ClampPagination normalises limit and offset into accepted bounds.
func ClampPagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
