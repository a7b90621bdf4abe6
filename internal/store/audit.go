package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/worktrail/worktrail/internal/models"
)

// AuditStore provides data access for the append-only audit_logs table.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

var auditOrder = map[string]string{
	"created_at":  "created_at",
	"action":      "action",
	"entity_type": "entity_type",
	"severity":    "severity",
}

// Append inserts one audit entry and returns its id. It is never retried so
// a timeout cannot produce a duplicate record.
func (s *AuditStore) Append(ctx context.Context, e *models.AuditLogEntry) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("marshalling audit metadata: %w", err)
	}

	severity := e.Severity
	if severity == "" {
		severity = models.SeverityInfo
	}

	var id int64

	err = s.Pool.QueryRow(ctx, `INSERT INTO audit_logs
		(entity_type, entity_id, action, entity_name, project_id, old_value, new_value,
		 metadata, actor_id, actor_name, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		e.EntityType, e.EntityID, e.Action, e.EntityName, e.ProjectID,
		nullJSON(e.OldValue), nullJSON(e.NewValue), metaJSON, e.ActorID, e.ActorName, severity,
	).Scan(&id)
	if err != nil {
		return 0, classify(fmt.Errorf("inserting audit entry: %w", err))
	}

	return id, nil
}

// buildAuditFilter builds the WHERE clause for an AuditQuery.
func buildAuditFilter(q models.AuditQuery) *filter {
	f := &filter{}

	if q.ProjectID != nil {
		f.eq("project_id", *q.ProjectID)
	}

	f.anyOf("entity_type", q.EntityTypes)

	if q.EntityID != "" {
		f.eq("entity_id", q.EntityID)
	}

	f.anyOf("action", q.Actions)

	if q.ActorID != nil {
		f.eq("actor_id", *q.ActorID)
	}

	f.anyOf("severity", q.Severities)
	f.between("created_at", q.StartDate, q.EndDate)
	f.search(q.Search, "entity_name", "entity_id", "actor_name")

	return f
}

// Query returns one page of matching entries. Total is counted in the same
// read transaction as the page.
func (s *AuditStore) Query(ctx context.Context, q models.AuditQuery) (models.Page[models.AuditLogEntry], error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	limit, offset := clampLimit(q.Limit, q.Offset)
	f := buildAuditFilter(q)
	order := orderClause(q.OrderBy, q.OrderDirection, auditOrder, "created_at", "id")

	var page models.Page[models.AuditLogEntry]

	err := s.withRetry(ctx, func() error {
		tx, err := s.beginReadTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx) //nolint:errcheck // read-only.

		var total int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs "+f.where(), f.args...).Scan(&total); err != nil {
			return fmt.Errorf("counting audit entries: %w", err)
		}

		query := fmt.Sprintf("SELECT %s FROM audit_logs %s %s LIMIT $%d OFFSET $%d",
			auditColumns, f.where(), order, f.next(), f.next()+1)

		rows, err := tx.Query(ctx, query, append(f.args, limit, offset)...)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		entries, err := collect(rows, scanAudit, "audit")
		if err != nil {
			return err
		}

		page = models.NewPage(entries, total, limit, offset)

		return nil
	})
	if err != nil {
		return models.EmptyPage[models.AuditLogEntry](limit, offset), err
	}

	return page, nil
}

// StatsWindow returns up to rowCap of the newest records in the window,
// projected for aggregation. truncated reports that more rows matched.
func (s *AuditStore) StatsWindow(
	ctx context.Context, sf models.StatsFilter, w models.Window, rowCap int,
) ([]models.StatRecord, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	f := &filter{}
	if sf.ProjectID != nil {
		f.eq("project_id", *sf.ProjectID)
	}

	f.anyOf("entity_type", sf.EntityTypes)

	if sf.ActorID != nil {
		f.eq("actor_id", *sf.ActorID)
	}

	f.between("created_at", timePtr(w.Start), timePtr(w.End))

	query := fmt.Sprintf(`SELECT action, entity_type, severity, actor_id, COALESCE(actor_name, ''), created_at
		FROM audit_logs %s ORDER BY created_at DESC, id DESC LIMIT $%d`, f.where(), f.next())

	return statsRows(ctx, &s.Base, query, append(f.args, rowCap+1), rowCap)
}
