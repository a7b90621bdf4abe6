package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/metrics"
	"github.com/worktrail/worktrail/internal/models"
)

// ActivityStore is the data-access interface ActivityService depends on.
type ActivityStore interface {
	ActivityLogger
	Query(ctx context.Context, q models.ActivityQuery) (models.Page[models.ActivityEvent], error)
}

// Compile-time check: *ActivityService must satisfy domain.ActivityService.
var _ domain.ActivityService = (*ActivityService)(nil)

// ActivityService writes and reads the project activity timeline.
type ActivityService struct {
	store        ActivityStore
	log          *logrus.Logger
	queryTimeout time.Duration
}

// NewActivityService creates an ActivityService.
func NewActivityService(store ActivityStore, log *logrus.Logger, queryTimeout time.Duration) *ActivityService {
	return &ActivityService{store: store, log: log, queryTimeout: queryTimeout}
}

// Log validates and stores an activity event for the authenticated principal.
func (s *ActivityService) Log(ctx context.Context, actor *models.Principal, req models.ActivityLogRequest) (int64, error) {
	if actor == nil {
		return 0, models.ErrNoPrincipal
	}

	if err := req.Validate(); err != nil {
		return 0, err
	}

	if req.Metadata.ActorName == "" {
		req.Metadata.ActorName = actor.Name
	}

	actorID := actor.ID

	id, err := s.store.Log(ctx, &req, &actorID)
	if err != nil {
		metrics.LogAppendFailures.WithLabelValues("activity").Inc()
		return 0, err
	}

	return id, nil
}

// GetEntityHistory returns the events of one entity, newest first.
func (s *ActivityService) GetEntityHistory(ctx context.Context, entityType, entityID string, limit, offset int) models.Page[models.ActivityEvent] {
	return s.query(ctx, models.ActivityQuery{
		EntityTypes: []string{entityType},
		EntityID:    entityID,
		Limit:       limit,
		Offset:      offset,
	})
}

// GetActorHistory returns the events performed by one actor, newest first.
func (s *ActivityService) GetActorHistory(ctx context.Context, actorID uuid.UUID, limit, offset int) models.Page[models.ActivityEvent] {
	return s.query(ctx, models.ActivityQuery{ActorID: &actorID, Limit: limit, Offset: offset})
}

// GetByProject returns a filtered page of a project's events.
func (s *ActivityService) GetByProject(ctx context.Context, q models.ActivityQuery) models.Page[models.ActivityEvent] {
	return s.query(ctx, q)
}

// Timeline returns one page of events grouped by calendar day.
func (s *ActivityService) Timeline(ctx context.Context, q models.ActivityQuery) []models.TimelineGroup {
	q.OrderBy, q.OrderDirection = "created_at", models.SortDesc

	return GroupByDate(s.query(ctx, q).Data)
}

// query runs q under the query timeout. Failures yield an empty page.
func (s *ActivityService) query(ctx context.Context, q models.ActivityQuery) models.Page[models.ActivityEvent] {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	page, err := s.store.Query(ctx, q)
	if err != nil {
		s.log.WithError(err).WithField("entity_id", q.EntityID).Error("activity.query_failed")

		limit, offset := models.ClampPagination(q.Limit, q.Offset)

		return models.EmptyPage[models.ActivityEvent](limit, offset)
	}

	return page
}

// GroupByDate buckets events by their UTC calendar day. Groups appear in
// order of first occurrence and events keep their input order, so a
// newest-first input yields newest-first groups. The input is not modified.
func GroupByDate(events []models.ActivityEvent) []models.TimelineGroup {
	groups := make([]models.TimelineGroup, 0)
	index := make(map[string]int)

	for _, ev := range events {
		day := ev.CreatedAt.UTC().Format(time.DateOnly)

		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, models.TimelineGroup{Date: day})
		}

		groups[i].Events = append(groups[i].Events, ev)
	}

	return groups
}
