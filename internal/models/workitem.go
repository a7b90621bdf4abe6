// Package models defines data types for work items, audit records and the
// project activity timeline.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Problem is a defect or site issue tracked through to verification.
type Problem struct {
	ID          uuid.UUID     `json:"id"`
	ProjectID   uuid.UUID     `json:"project_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	Priority    string        `json:"priority,omitempty"`
	Status      ProblemStatus `json:"status"`
	AssigneeID  *uuid.UUID    `json:"assignee_id,omitempty"`
	RootCause   *string       `json:"root_cause,omitempty"`
	Resolution  *string       `json:"resolution,omitempty"`
	Prevention  *string       `json:"prevention,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	ClosedAt    *time.Time    `json:"closed_at,omitempty"`
	VerifiedAt  *time.Time    `json:"verified_at,omitempty"`
	VerifiedBy  *uuid.UUID    `json:"verified_by,omitempty"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
	Version     int           `json:"version"`
}

// Diary is a daily site diary entry that goes through review.
type Diary struct {
	ID          uuid.UUID   `json:"id"`
	ProjectID   uuid.UUID   `json:"project_id"`
	EntryDate   time.Time   `json:"entry_date"`
	Weather     string      `json:"weather,omitempty"`
	Workforce   int         `json:"workforce"`
	Notes       string      `json:"notes"`
	Status      DiaryStatus `json:"status"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
	ApprovedBy  *uuid.UUID  `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time  `json:"approved_at,omitempty"`
	RejectedBy  *uuid.UUID  `json:"rejected_by,omitempty"`
	RejectedAt  *time.Time  `json:"rejected_at,omitempty"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
	Version     int         `json:"version"`
}

// Acceptance is an inspection whose outcome is settled by approver decisions.
type Acceptance struct {
	ID          uuid.UUID        `json:"id"`
	ProjectID   uuid.UUID        `json:"project_id"`
	Title       string           `json:"title"`
	Scope       string           `json:"scope,omitempty"`
	Status      AcceptanceStatus `json:"status"`
	Conditions  *string          `json:"conditions,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
	DecidedBy   *uuid.UUID       `json:"decided_by,omitempty"`
	CreatedBy   uuid.UUID        `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
	Version     int              `json:"version"`
}

// StatusAction is the per-transition record written alongside every
// accepted Problem or Diary status move.
type StatusAction struct {
	ID         int64     `json:"id"`
	Kind       Kind      `json:"kind"`
	ItemID     uuid.UUID `json:"item_id"`
	ProjectID  uuid.UUID `json:"project_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    uuid.UUID `json:"actor_id"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApprovalRecord is one ordered decision in an Acceptance review chain.
type ApprovalRecord struct {
	ID            int64     `json:"id"`
	AcceptanceID  uuid.UUID `json:"acceptance_id"`
	ApproverID    uuid.UUID `json:"approver_id"`
	Decision      Decision  `json:"decision"`
	Comments      *string   `json:"comments,omitempty"`
	ApprovalOrder int       `json:"approval_order"`
	CreatedAt     time.Time `json:"created_at"`
}
