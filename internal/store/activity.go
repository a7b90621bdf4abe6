package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

// ActivityStore provides data access for the append-only activity_events
// table. Reads join principals to attach the actor profile.
type ActivityStore struct {
	Base
}

// NewActivityStore creates an ActivityStore.
func NewActivityStore(base Base) *ActivityStore {
	return &ActivityStore{Base: base}
}

var activityOrder = map[string]string{
	"created_at":    "a.created_at",
	"activity_type": "a.activity_type",
	"entity_type":   "a.entity_type",
}

const activityFrom = "activity_events a LEFT JOIN principals p ON p.id = a.actor_id"

// Log inserts one activity event and returns its id. Metadata tags are also
// stored in the tags column so they can be filtered with an index.
func (s *ActivityStore) Log(ctx context.Context, req *models.ActivityLogRequest, actorID *uuid.UUID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	metaJSON, err := json.Marshal(req.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshalling activity metadata: %w", err)
	}

	tags := req.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}

	var id int64

	err = s.Pool.QueryRow(ctx, `INSERT INTO activity_events
		(project_id, entity_type, entity_id, activity_type, metadata, tags,
		 old_value, new_value, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		req.ProjectID, req.EntityType, req.EntityID, req.ActivityType, metaJSON, tags,
		nullJSON(req.OldValue), nullJSON(req.NewValue), actorID,
	).Scan(&id)
	if err != nil {
		return 0, classify(fmt.Errorf("inserting activity event: %w", err))
	}

	return id, nil
}

func buildActivityFilter(q models.ActivityQuery) *filter {
	f := &filter{}

	if q.ProjectID != nil {
		f.eq("a.project_id", *q.ProjectID)
	}

	f.anyOf("a.entity_type", q.EntityTypes)

	if q.EntityID != "" {
		f.eq("a.entity_id", q.EntityID)
	}

	f.anyOf("a.activity_type", q.ActivityTypes)

	if q.ActorID != nil {
		f.eq("a.actor_id", *q.ActorID)
	}

	f.contains("a.tags", q.Tags)
	f.between("a.created_at", q.StartDate, q.EndDate)
	f.search(q.Search, "a.metadata->>'entity_name'", "a.metadata->>'description'", "a.entity_id")

	return f
}

// Query returns one page of matching events with their actor profiles.
func (s *ActivityStore) Query(ctx context.Context, q models.ActivityQuery) (models.Page[models.ActivityEvent], error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	limit, offset := clampLimit(q.Limit, q.Offset)
	f := buildActivityFilter(q)
	order := orderClause(q.OrderBy, q.OrderDirection, activityOrder, "a.created_at", "a.id")

	var page models.Page[models.ActivityEvent]

	err := s.withRetry(ctx, func() error {
		tx, err := s.beginReadTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx) //nolint:errcheck // read-only.

		var total int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM activity_events a "+f.where(), f.args...).Scan(&total); err != nil {
			return fmt.Errorf("counting activity events: %w", err)
		}

		query := fmt.Sprintf("SELECT %s FROM %s %s %s LIMIT $%d OFFSET $%d",
			activityColumns, activityFrom, f.where(), order, f.next(), f.next()+1)

		rows, err := tx.Query(ctx, query, append(f.args, limit, offset)...)
		if err != nil {
			return fmt.Errorf("querying activity: %w", err)
		}

		events, err := collect(rows, scanActivity, "activity")
		if err != nil {
			return err
		}

		page = models.NewPage(events, total, limit, offset)

		return nil
	})
	if err != nil {
		return models.EmptyPage[models.ActivityEvent](limit, offset), err
	}

	return page, nil
}

// StatsWindow returns up to rowCap of the newest events in the window.
// Activity has no severity, so every record counts as info.
func (s *ActivityStore) StatsWindow(
	ctx context.Context, sf models.StatsFilter, w models.Window, rowCap int,
) ([]models.StatRecord, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	f := &filter{}
	if sf.ProjectID != nil {
		f.eq("a.project_id", *sf.ProjectID)
	}

	f.anyOf("a.entity_type", sf.EntityTypes)

	if sf.ActorID != nil {
		f.eq("a.actor_id", *sf.ActorID)
	}

	f.between("a.created_at", timePtr(w.Start), timePtr(w.End))

	query := fmt.Sprintf(`SELECT a.activity_type, a.entity_type, 'info', a.actor_id,
		COALESCE(p.name, a.metadata->>'actor_name', ''), a.created_at
		FROM %s %s ORDER BY a.created_at DESC, a.id DESC LIMIT $%d`, activityFrom, f.where(), f.next())

	return statsRows(ctx, &s.Base, query, append(f.args, rowCap+1), rowCap)
}
