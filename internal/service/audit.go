package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/metrics"
	"github.com/worktrail/worktrail/internal/models"
)

// AuditStore is the data-access interface AuditService depends on.
type AuditStore interface {
	AuditAppender
	Query(ctx context.Context, q models.AuditQuery) (models.Page[models.AuditLogEntry], error)
}

// Compile-time check: *AuditService must satisfy domain.AuditService.
var _ domain.AuditService = (*AuditService)(nil)

// batchConcurrency bounds the in-flight appends of one AppendBatch call.
const batchConcurrency = 8

// AuditService writes and reads the append-only audit log.
type AuditService struct {
	store        AuditStore
	log          *logrus.Logger
	queryTimeout time.Duration
}

// NewAuditService creates an AuditService. Queries run under queryTimeout.
func NewAuditService(store AuditStore, log *logrus.Logger, queryTimeout time.Duration) *AuditService {
	return &AuditService{store: store, log: log, queryTimeout: queryTimeout}
}

// Append validates req and stores it with the actor taken from the
// authenticated principal.
func (s *AuditService) Append(ctx context.Context, actor *models.Principal, req models.AuditAppendRequest) (int64, error) {
	if actor == nil {
		return 0, models.ErrNoPrincipal
	}

	if err := req.Validate(); err != nil {
		return 0, err
	}

	entry := req.Entry(actor)

	id, err := s.store.Append(ctx, &entry)
	if err != nil {
		metrics.LogAppendFailures.WithLabelValues("audit").Inc()
		return 0, err
	}

	return id, nil
}

// AppendBatch appends every entry independently and concurrently. Results
// are reported per input index; one failure never affects the others, and
// the stored order across the batch is unspecified.
func (s *AuditService) AppendBatch(ctx context.Context, actor *models.Principal, reqs []models.AuditAppendRequest) []models.AppendResult {
	results := make([]models.AppendResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i := range reqs {
		results[i].Index = i

		g.Go(func() error {
			id, err := s.Append(gctx, actor, reqs[i])
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}

			results[i].ID = id

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers report through results.

	failed := 0

	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	if failed > 0 {
		s.log.WithFields(logrus.Fields{"total": len(reqs), "failed": failed}).Warn("audit.batch_partial")
	}

	return results
}

// Query returns a page of matching entries. Failures and timeouts are
// logged and yield an empty page.
func (s *AuditService) Query(ctx context.Context, q models.AuditQuery) models.Page[models.AuditLogEntry] {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	page, err := s.store.Query(ctx, q)
	if err != nil {
		s.log.WithError(err).Error("audit.query_failed")

		limit, offset := models.ClampPagination(q.Limit, q.Offset)

		return models.EmptyPage[models.AuditLogEntry](limit, offset)
	}

	return page
}

// withQueryTimeout bounds a listing or aggregation call. Zero means no bound.
func withQueryTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
