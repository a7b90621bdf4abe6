package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/worktrail/worktrail/internal/models"
)

const problemColumns = `id, project_id, title, description, location, priority, status,
	assignee_id, root_cause, resolution, prevention, resolved_at, closed_at,
	verified_at, verified_by, created_by, created_at, updated_at, deleted_at, version`

const diaryColumns = `id, project_id, entry_date, weather, workforce, notes, status,
	submitted_at, approved_by, approved_at, rejected_by, rejected_at,
	created_by, created_at, updated_at, deleted_at, version`

const acceptanceColumns = `id, project_id, title, scope, status, conditions,
	started_at, decided_at, decided_by, created_by, created_at, updated_at,
	deleted_at, version`

const actionColumns = `id, kind, item_id, project_id, from_status, to_status, actor_id, comment, created_at`

const approvalColumns = `id, acceptance_id, approver_id, decision, comments, approval_order, created_at`

const auditColumns = `id, entity_type, entity_id, action, entity_name, project_id,
	old_value, new_value, metadata, actor_id, actor_name, severity, created_at`

// activityColumns is qualified because activity reads join principals.
const activityColumns = `a.id, a.project_id, a.entity_type, a.entity_id, a.activity_type,
	a.metadata, a.old_value, a.new_value, a.actor_id, a.created_at,
	p.id, p.name, p.avatar_url`

func scanProblem(scan func(dest ...any) error) (*models.Problem, error) {
	var p models.Problem

	err := scan(
		&p.ID, &p.ProjectID, &p.Title, &p.Description, &p.Location, &p.Priority, &p.Status,
		&p.AssigneeID, &p.RootCause, &p.Resolution, &p.Prevention, &p.ResolvedAt, &p.ClosedAt,
		&p.VerifiedAt, &p.VerifiedBy, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt, &p.Version,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func scanDiary(scan func(dest ...any) error) (*models.Diary, error) {
	var d models.Diary

	err := scan(
		&d.ID, &d.ProjectID, &d.EntryDate, &d.Weather, &d.Workforce, &d.Notes, &d.Status,
		&d.SubmittedAt, &d.ApprovedBy, &d.ApprovedAt, &d.RejectedBy, &d.RejectedAt,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt, &d.Version,
	)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

func scanAcceptance(scan func(dest ...any) error) (*models.Acceptance, error) {
	var a models.Acceptance

	err := scan(
		&a.ID, &a.ProjectID, &a.Title, &a.Scope, &a.Status, &a.Conditions,
		&a.StartedAt, &a.DecidedAt, &a.DecidedBy, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.DeletedAt, &a.Version,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func scanAction(scan func(dest ...any) error) (*models.StatusAction, error) {
	var a models.StatusAction

	err := scan(&a.ID, &a.Kind, &a.ItemID, &a.ProjectID, &a.FromStatus, &a.ToStatus, &a.ActorID, &a.Comment, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func scanApproval(scan func(dest ...any) error) (*models.ApprovalRecord, error) {
	var r models.ApprovalRecord

	err := scan(&r.ID, &r.AcceptanceID, &r.ApproverID, &r.Decision, &r.Comments, &r.ApprovalOrder, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

func scanAudit(scan func(dest ...any) error) (*models.AuditLogEntry, error) {
	var e models.AuditLogEntry
	var oldValue, newValue, meta []byte

	err := scan(
		&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.EntityName, &e.ProjectID,
		&oldValue, &newValue, &meta, &e.ActorID, &e.ActorName, &e.Severity, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.OldValue = rawJSON(oldValue)
	e.NewValue = rawJSON(newValue)

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling audit metadata: %w", err)
		}
	}

	return &e, nil
}

func scanActivity(scan func(dest ...any) error) (*models.ActivityEvent, error) {
	var e models.ActivityEvent
	var oldValue, newValue, meta []byte
	var actor struct {
		ID        *uuid.UUID
		Name      *string
		AvatarURL *string
	}

	err := scan(
		&e.ID, &e.ProjectID, &e.EntityType, &e.EntityID, &e.ActivityType,
		&meta, &oldValue, &newValue, &e.ActorID, &e.CreatedAt,
		&actor.ID, &actor.Name, &actor.AvatarURL,
	)
	if err != nil {
		return nil, err
	}

	e.OldValue = rawJSON(oldValue)
	e.NewValue = rawJSON(newValue)

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling activity metadata: %w", err)
		}
	}

	if actor.ID != nil && actor.Name != nil {
		e.Actor = &models.ActorDescriptor{ID: *actor.ID, Name: *actor.Name, AvatarURL: actor.AvatarURL}
	}

	return &e, nil
}

// collect scans all rows with fn.
func collect[T any](rows pgx.Rows, fn func(func(dest ...any) error) (*T, error), what string) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0, 16)

	for rows.Next() {
		v, err := fn(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", what, err)
		}

		out = append(out, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", what, err)
	}

	return out, nil
}

// rawJSON returns nil for SQL NULL so omitempty drops the field.
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}

	return json.RawMessage(b)
}

// nullJSON converts an empty raw message to SQL NULL.
func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}

	return []byte(b)
}
