package models

import (
	"time"

	"github.com/google/uuid"
)

// Field length limits shared by request validation.
const (
	maxTitleLen = 500
	maxTextLen  = 20000
)

// CreateProblemRequest is the payload for opening a new Problem.
type CreateProblemRequest struct {
	ProjectID   uuid.UUID  `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
}

// Validate checks required fields and limits.
func (r *CreateProblemRequest) Validate() error {
	if r.ProjectID == uuid.Nil {
		return ErrMissingField("project_id")
	}

	if r.Title == "" {
		return ErrMissingField("title")
	}

	if len(r.Title) > maxTitleLen {
		return ErrFieldTooLong("title", maxTitleLen)
	}

	if len(r.Description) > maxTextLen {
		return ErrFieldTooLong("description", maxTextLen)
	}

	switch r.Priority {
	case "", "low", "medium", "high", "urgent":
	default:
		return ErrInvalidValue("priority", r.Priority)
	}

	return nil
}

// CreateDiaryRequest is the payload for drafting a site diary entry.
type CreateDiaryRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	EntryDate time.Time `json:"entry_date"`
	Weather   string    `json:"weather,omitempty"`
	Workforce int       `json:"workforce"`
	Notes     string    `json:"notes"`
}

// Validate checks required fields and limits.
func (r *CreateDiaryRequest) Validate() error {
	if r.ProjectID == uuid.Nil {
		return ErrMissingField("project_id")
	}

	if r.EntryDate.IsZero() {
		return ErrMissingField("entry_date")
	}

	if r.Workforce < 0 {
		return ErrInvalidValue("workforce", "negative")
	}

	if len(r.Notes) > maxTextLen {
		return ErrFieldTooLong("notes", maxTextLen)
	}

	return nil
}

// CreateAcceptanceRequest is the payload for scheduling an acceptance inspection.
type CreateAcceptanceRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	Title     string    `json:"title"`
	Scope     string    `json:"scope,omitempty"`
}

// Validate checks required fields and limits.
func (r *CreateAcceptanceRequest) Validate() error {
	if r.ProjectID == uuid.Nil {
		return ErrMissingField("project_id")
	}

	if r.Title == "" {
		return ErrMissingField("title")
	}

	if len(r.Title) > maxTitleLen {
		return ErrFieldTooLong("title", maxTitleLen)
	}

	return nil
}

// ProblemStatusRequest asks for a Problem status move. Resolution fields are
// only consulted when the target is resolved.
type ProblemStatusRequest struct {
	To              ProblemStatus `json:"to"`
	RootCause       *string       `json:"root_cause,omitempty"`
	Resolution      *string       `json:"resolution,omitempty"`
	Prevention      *string       `json:"prevention,omitempty"`
	Comment         *string       `json:"comment,omitempty"`
	ExpectedVersion *int          `json:"expected_version,omitempty"`
}

// Validate checks the target status and text limits.
func (r *ProblemStatusRequest) Validate() error {
	if !r.To.Valid() {
		return ErrInvalidValue("status", string(r.To))
	}

	for name, v := range map[string]*string{
		"root_cause": r.RootCause, "resolution": r.Resolution, "prevention": r.Prevention, "comment": r.Comment,
	} {
		if v != nil && len(*v) > maxTextLen {
			return ErrFieldTooLong(name, maxTextLen)
		}
	}

	return nil
}

// DiaryStatusRequest asks for a Diary status move.
type DiaryStatusRequest struct {
	To              DiaryStatus `json:"to"`
	Reason          *string     `json:"reason,omitempty"`
	Comment         *string     `json:"comment,omitempty"`
	ExpectedVersion *int        `json:"expected_version,omitempty"`
}

// Validate checks the target status and text limits.
func (r *DiaryStatusRequest) Validate() error {
	if !r.To.Valid() {
		return ErrInvalidValue("status", string(r.To))
	}

	if r.Reason != nil && len(*r.Reason) > maxTextLen {
		return ErrFieldTooLong("reason", maxTextLen)
	}

	return nil
}

// DecisionRequest records an approver's decision on an Acceptance.
type DecisionRequest struct {
	Decision        Decision `json:"decision"`
	Comments        *string  `json:"comments,omitempty"`
	Conditions      *string  `json:"conditions,omitempty"`
	ExpectedVersion *int     `json:"expected_version,omitempty"`
}

// Validate checks the decision value. Conditions are required for a
// conditional pass.
func (r *DecisionRequest) Validate() error {
	if !r.Decision.Valid() {
		return ErrInvalidValue("decision", string(r.Decision))
	}

	if r.Decision == DecisionConditional && (r.Conditions == nil || *r.Conditions == "") {
		return ErrMissingField("conditions")
	}

	if r.Comments != nil && len(*r.Comments) > maxTextLen {
		return ErrFieldTooLong("comments", maxTextLen)
	}

	return nil
}
