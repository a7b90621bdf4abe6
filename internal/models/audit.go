package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is an immutable compliance record of one mutation.
type AuditLogEntry struct {
	ID         int64           `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     AuditAction     `json:"action"`
	EntityName string          `json:"entity_name,omitempty"`
	ProjectID  *uuid.UUID      `json:"project_id,omitempty"`
	OldValue   json.RawMessage `json:"old_value,omitempty"`
	NewValue   json.RawMessage `json:"new_value,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	ActorName  *string         `json:"actor_name,omitempty"`
	Severity   Severity        `json:"severity"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditAppendRequest is the log_audit payload. The actor is never taken from
// the request; it is resolved from the authenticated principal.
type AuditAppendRequest struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     AuditAction     `json:"action"`
	EntityName string          `json:"entity_name,omitempty"`
	ProjectID  *uuid.UUID      `json:"project_id,omitempty"`
	OldValue   json.RawMessage `json:"old_value,omitempty"`
	NewValue   json.RawMessage `json:"new_value,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Severity   Severity        `json:"severity,omitempty"`
}

// Validate checks required fields and defaults severity to info.
func (r *AuditAppendRequest) Validate() error {
	if r.EntityType == "" {
		return ErrMissingField("entity_type")
	}

	if len(r.EntityType) > 100 {
		return ErrFieldTooLong("entity_type", 100)
	}

	if r.EntityID == "" {
		return ErrMissingField("entity_id")
	}

	if len(r.EntityID) > 255 {
		return ErrFieldTooLong("entity_id", 255)
	}

	if !r.Action.Valid() {
		return ErrInvalidValue("action", string(r.Action))
	}

	if r.Severity == "" {
		r.Severity = SeverityInfo
	}

	if !r.Severity.Valid() {
		return ErrInvalidValue("severity", string(r.Severity))
	}

	if len(r.EntityName) > maxTitleLen {
		return ErrFieldTooLong("entity_name", maxTitleLen)
	}

	return nil
}

// Entry builds the record to persist, stamped with the acting principal.
func (r *AuditAppendRequest) Entry(actor *Principal) AuditLogEntry {
	e := AuditLogEntry{
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Action:     r.Action,
		EntityName: r.EntityName,
		ProjectID:  r.ProjectID,
		OldValue:   r.OldValue,
		NewValue:   r.NewValue,
		Metadata:   r.Metadata,
		Severity:   r.Severity,
	}

	if actor != nil {
		id, name := actor.ID, actor.Name
		e.ActorID = &id
		e.ActorName = &name
	}

	return e
}

// AppendResult reports the outcome of one entry in a batch append.
type AppendResult struct {
	Index int    `json:"index"`
	ID    int64  `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the entry was stored.
func (r AppendResult) OK() bool {
	return r.Error == ""
}
