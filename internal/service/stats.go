package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/metrics"
	"github.com/worktrail/worktrail/internal/models"
	"github.com/worktrail/worktrail/internal/telemetry"
)

// DefaultStatsRowCap is the number of newest rows an aggregation reads.
const DefaultStatsRowCap = 10000

// topActorLimit is the length of the top-actors ranking.
const topActorLimit = 10

// StatsWindowReader returns the newest rows of a window, up to rowCap.
type StatsWindowReader interface {
	StatsWindow(ctx context.Context, f models.StatsFilter, w models.Window, rowCap int) ([]models.StatRecord, bool, error)
}

// Compile-time check: *StatsService must satisfy domain.StatsService.
var _ domain.StatsService = (*StatsService)(nil)

// StatsService recomputes summary counts from the history logs on demand.
// Counts are exact up to the row cap; past it they cover only the newest
// rows and Stats.Truncated is set.
type StatsService struct {
	sources      map[models.StatsSource]StatsWindowReader
	rowCap       int
	queryTimeout time.Duration
	tracer       trace.Tracer
	log          *logrus.Logger
}

// NewStatsService creates a StatsService over the audit and activity logs.
func NewStatsService(audit, activity StatsWindowReader, rowCap int, queryTimeout time.Duration, log *logrus.Logger) *StatsService {
	if rowCap <= 0 {
		rowCap = DefaultStatsRowCap
	}

	return &StatsService{
		sources: map[models.StatsSource]StatsWindowReader{
			models.StatsAudit:    audit,
			models.StatsActivity: activity,
		},
		rowCap:       rowCap,
		queryTimeout: queryTimeout,
		tracer:       telemetry.Tracer(),
		log:          log,
	}
}

// Aggregate reduces the records matching f inside w. It never fails: an
// unknown source, a read error or a timeout yields zero stats.
func (s *StatsService) Aggregate(ctx context.Context, source models.StatsSource, f models.StatsFilter, w models.Window) models.Stats {
	ctx, span := s.tracer.Start(ctx, "stats.aggregate", trace.WithAttributes(attribute.String("source", string(source))))
	defer span.End()

	reader, ok := s.sources[source]
	if !ok || reader == nil {
		return models.EmptyStats()
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, truncated, err := reader.StatsWindow(ctx, f, w, s.rowCap)
	if err != nil {
		span.RecordError(err)
		s.log.WithError(err).WithField("source", source).Error("stats.aggregate_failed")

		return models.EmptyStats()
	}

	stats := Reduce(rows)
	stats.Truncated = truncated

	if truncated {
		metrics.StatsTruncated.WithLabelValues(string(source)).Inc()
		s.log.WithFields(logrus.Fields{"source": source, "row_cap": s.rowCap}).Warn("stats.truncated")
	}

	span.SetAttributes(attribute.Int("rows", len(rows)), attribute.Bool("truncated", truncated))

	return stats
}

// Reduce counts records by action, entity type, severity and UTC day and
// ranks the most active actors. Ties rank by name, then id.
func Reduce(rows []models.StatRecord) models.Stats {
	stats := models.EmptyStats()
	stats.Total = len(rows)

	actors := make(map[uuid.UUID]*models.ActorCount)

	for _, r := range rows {
		stats.ByAction[r.Action]++
		stats.ByEntityType[r.EntityType]++

		severity := r.Severity
		if severity == "" {
			severity = string(models.SeverityInfo)
		}

		stats.BySeverity[severity]++
		stats.ByDate[r.CreatedAt.UTC().Format(time.DateOnly)]++

		if r.ActorID == nil {
			continue
		}

		ac, ok := actors[*r.ActorID]
		if !ok {
			ac = &models.ActorCount{ActorID: *r.ActorID}
			actors[*r.ActorID] = ac
		}

		ac.Count++

		if ac.Name == "" {
			ac.Name = r.ActorName
		}
	}

	ranked := make([]models.ActorCount, 0, len(actors))
	for _, ac := range actors {
		ranked = append(ranked, *ac)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}

		if ranked[i].Name != ranked[j].Name {
			return ranked[i].Name < ranked[j].Name
		}

		return ranked[i].ActorID.String() < ranked[j].ActorID.String()
	})

	if len(ranked) > topActorLimit {
		ranked = ranked[:topActorLimit]
	}

	stats.TopActors = ranked

	return stats
}
