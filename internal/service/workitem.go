// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/lifecycle"
	"github.com/worktrail/worktrail/internal/metrics"
	"github.com/worktrail/worktrail/internal/models"
	"github.com/worktrail/worktrail/internal/telemetry"
)

// WorkItemStore is the data-access interface WorkItemService depends on.
type WorkItemStore interface {
	CreateProblem(ctx context.Context, req models.CreateProblemRequest, createdBy uuid.UUID) (*models.Problem, error)
	CreateDiary(ctx context.Context, req models.CreateDiaryRequest, createdBy uuid.UUID) (*models.Diary, error)
	CreateAcceptance(ctx context.Context, req models.CreateAcceptanceRequest, createdBy uuid.UUID) (*models.Acceptance, error)
	GetProblem(ctx context.Context, id uuid.UUID) (*models.Problem, error)
	GetDiary(ctx context.Context, id uuid.UUID) (*models.Diary, error)
	GetAcceptance(ctx context.Context, id uuid.UUID) (*models.Acceptance, error)
	ListProblems(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Problem], error)
	ListDiaries(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Diary], error)
	ListAcceptances(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Acceptance], error)
	SaveProblem(ctx context.Context, p *models.Problem, action *models.StatusAction, expectedVersion *int) (*models.Problem, *models.StatusAction, error)
	SaveDiary(ctx context.Context, d *models.Diary, action *models.StatusAction, expectedVersion *int) (*models.Diary, *models.StatusAction, error)
	SaveAcceptanceStart(ctx context.Context, a *models.Acceptance, action *models.StatusAction, expectedVersion *int) (*models.Acceptance, *models.StatusAction, error)
	SaveAcceptanceDecision(ctx context.Context, a *models.Acceptance, approval *models.ApprovalRecord, expectedVersion *int) (*models.Acceptance, *models.ApprovalRecord, error)
	ListActions(ctx context.Context, kind models.Kind, id uuid.UUID) ([]models.StatusAction, error)
	ListApprovals(ctx context.Context, acceptanceID uuid.UUID) ([]models.ApprovalRecord, error)
	SoftDelete(ctx context.Context, kind models.Kind, id uuid.UUID) (uuid.UUID, error)
}

// Compile-time check: *WorkItemService must satisfy domain.WorkItemService.
var _ domain.WorkItemService = (*WorkItemService)(nil)

// WorkItemOptions configures a WorkItemService.
type WorkItemOptions struct {
	// CAS makes every transition conditional on the version that was read.
	// Without it the last writer wins unless the request names a version.
	CAS bool
	Now func() time.Time
}

// WorkItemService runs lifecycle transitions against the store and records
// their history.
type WorkItemService struct {
	store       WorkItemStore
	engine      *lifecycle.Engine
	history     *historyRecorder
	auditWorker AuditEnqueuer
	cas         bool
	tracer      trace.Tracer
	log         *logrus.Logger
}

// NewWorkItemService creates a WorkItemService.
func NewWorkItemService(
	store WorkItemStore, audit AuditAppender, activity ActivityLogger, auditWorker AuditEnqueuer,
	log *logrus.Logger, opts WorkItemOptions,
) *WorkItemService {
	return &WorkItemService{
		store:       store,
		engine:      lifecycle.NewEngine(opts.Now),
		history:     &historyRecorder{audit: audit, activity: activity, log: log},
		auditWorker: auditWorker,
		cas:         opts.CAS,
		tracer:      telemetry.Tracer(),
		log:         log,
	}
}

// CreateProblem opens a problem.
func (s *WorkItemService) CreateProblem(ctx context.Context, actor *models.Principal, req models.CreateProblemRequest) (*models.Problem, error) {
	if actor == nil {
		return nil, models.ErrNoPrincipal
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.store.CreateProblem(ctx, req, actor.ID)
	if err != nil {
		return nil, err
	}

	s.recordCreate(ctx, actor, problemSubject(p), string(p.Status))

	return p, nil
}

// CreateDiary drafts a diary entry.
func (s *WorkItemService) CreateDiary(ctx context.Context, actor *models.Principal, req models.CreateDiaryRequest) (*models.Diary, error) {
	if actor == nil {
		return nil, models.ErrNoPrincipal
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	d, err := s.store.CreateDiary(ctx, req, actor.ID)
	if err != nil {
		return nil, err
	}

	s.recordCreate(ctx, actor, diarySubject(d), string(d.Status))

	return d, nil
}

// CreateAcceptance schedules an acceptance inspection.
func (s *WorkItemService) CreateAcceptance(ctx context.Context, actor *models.Principal, req models.CreateAcceptanceRequest) (*models.Acceptance, error) {
	if actor == nil {
		return nil, models.ErrNoPrincipal
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	a, err := s.store.CreateAcceptance(ctx, req, actor.ID)
	if err != nil {
		return nil, err
	}

	s.recordCreate(ctx, actor, acceptanceSubject(a), string(a.Status))

	return a, nil
}

// GetProblem returns a single problem (pass-through).
func (s *WorkItemService) GetProblem(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	return s.store.GetProblem(ctx, id)
}

// GetDiary returns a single diary (pass-through).
func (s *WorkItemService) GetDiary(ctx context.Context, id uuid.UUID) (*models.Diary, error) {
	return s.store.GetDiary(ctx, id)
}

// GetAcceptance returns a single acceptance (pass-through).
func (s *WorkItemService) GetAcceptance(ctx context.Context, id uuid.UUID) (*models.Acceptance, error) {
	return s.store.GetAcceptance(ctx, id)
}

// ListProblems returns a filtered page of problems (pass-through).
func (s *WorkItemService) ListProblems(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Problem], error) {
	return s.store.ListProblems(ctx, q)
}

// ListDiaries returns a filtered page of diaries (pass-through).
func (s *WorkItemService) ListDiaries(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Diary], error) {
	return s.store.ListDiaries(ctx, q)
}

// ListAcceptances returns a filtered page of acceptances (pass-through).
func (s *WorkItemService) ListAcceptances(ctx context.Context, q models.WorkItemQuery) (models.Page[models.Acceptance], error) {
	return s.store.ListAcceptances(ctx, q)
}

// ListActions returns the transition history of one item.
func (s *WorkItemService) ListActions(ctx context.Context, kind models.Kind, id uuid.UUID) ([]models.StatusAction, error) {
	if !kind.Valid() {
		return nil, models.ErrInvalidValue("kind", string(kind))
	}

	return s.store.ListActions(ctx, kind, id)
}

// ListApprovals returns an acceptance's approval chain in order.
func (s *WorkItemService) ListApprovals(ctx context.Context, id uuid.UUID) ([]models.ApprovalRecord, error) {
	return s.store.ListApprovals(ctx, id)
}

// ChangeProblemStatus validates and applies a problem status move. The read
// and the write are separate steps; unless CAS is on or the request carries
// an expected version, a concurrent writer's move is overwritten.
func (s *WorkItemService) ChangeProblemStatus(
	ctx context.Context, actor *models.Principal, id uuid.UUID, req models.ProblemStatusRequest,
) (*models.Problem, error) {
	if actor == nil {
		return nil, models.ErrNoPrincipal
	}

	ctx, span := s.startTransition(ctx, models.KindProblem, id, string(req.To))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, s.transitionDone(span, models.KindProblem, err)
	}

	current, err := s.store.GetProblem(ctx, id)
	if err != nil {
		return nil, s.transitionDone(span, models.KindProblem, err)
	}

	updated, fx, err := s.engine.ApplyProblem(*current, req, actor.ID)
	if err != nil {
		return nil, s.transitionDone(span, models.KindProblem, err)
	}

	saved, _, err := s.store.SaveProblem(ctx, &updated, fx.Action, s.expected(req.ExpectedVersion, current.Version))
	if err != nil {
		return nil, s.transitionDone(span, models.KindProblem, err)
	}

	s.transitionDone(span, models.KindProblem, nil) //nolint:errcheck // nil in, nil out.
	s.history.record(ctx, actor, problemSubject(saved), fromEffects(fx))
	s.logTransition(models.KindProblem, id, string(current.Status), string(saved.Status), actor)

	return saved, nil
}

// ChangeDiaryStatus validates and applies a diary status move.
func (s *WorkItemService) ChangeDiaryStatus(
	ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DiaryStatusRequest,
) (*models.Diary, error) {
	if actor == nil {
		return nil, models.ErrNoPrincipal
	}

	ctx, span := s.startTransition(ctx, models.KindDiary, id, string(req.To))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, s.transitionDone(span, models.KindDiary, err)
	}

	current, err := s.store.GetDiary(ctx, id)
	if err != nil {
		return nil, s.transitionDone(span, models.KindDiary, err)
	}

	updated, fx, err := s.engine.ApplyDiary(*current, req, actor.ID)
	if err != nil {
		return nil, s.transitionDone(span, models.KindDiary, err)
	}

	saved, _, err := s.store.SaveDiary(ctx, &updated, fx.Action, s.expected(req.ExpectedVersion, current.Version))
	if err != nil {
		return nil, s.transitionDone(span, models.KindDiary, err)
	}

	s.transitionDone(span, models.KindDiary, nil) //nolint:errcheck // nil in, nil out.
	s.history.record(ctx, actor, diarySubject(saved), fromEffects(fx))
	s.logTransition(models.KindDiary, id, string(current.Status), string(saved.Status), actor)

	return saved, nil
}

// StartAcceptance moves a pending inspection to in_progress.
func (s *WorkItemService) StartAcceptance(
	ctx context.Context, actor *models.Principal, id uuid.UUID, comment *string, expectedVersion *int,
) (*models.Acceptance, error) {
	if actor == nil {
		return nil, models.ErrNoPrincipal
	}

	ctx, span := s.startTransition(ctx, models.KindAcceptance, id, string(models.AcceptanceInProgress))
	defer span.End()

	current, err := s.store.GetAcceptance(ctx, id)
	if err != nil {
		return nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	updated, fx, err := s.engine.StartAcceptance(*current, actor.ID, comment)
	if err != nil {
		return nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	saved, _, err := s.store.SaveAcceptanceStart(ctx, &updated, fx.Action, s.expected(expectedVersion, current.Version))
	if err != nil {
		return nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	s.transitionDone(span, models.KindAcceptance, nil) //nolint:errcheck // nil in, nil out.
	s.history.record(ctx, actor, acceptanceSubject(saved), fromEffects(fx))
	s.logTransition(models.KindAcceptance, id, string(current.Status), string(saved.Status), actor)

	return saved, nil
}

// DecideAcceptance records an approver decision. The status comes from the
// decision, and the approval is appended with the next order. The write only
// applies while the stored row is still in_progress, so of two concurrent
// deciders the second gets ErrVersionConflict.
func (s *WorkItemService) DecideAcceptance(
	ctx context.Context, actor *models.Principal, id uuid.UUID, req models.DecisionRequest,
) (*models.Acceptance, *models.ApprovalRecord, error) {
	if actor == nil {
		return nil, nil, models.ErrNoPrincipal
	}

	ctx, span := s.startTransition(ctx, models.KindAcceptance, id, string(req.Decision))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	current, err := s.store.GetAcceptance(ctx, id)
	if err != nil {
		return nil, nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	chain, err := s.store.ListApprovals(ctx, id)
	if err != nil {
		return nil, nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	updated, fx, err := s.engine.DecideAcceptance(*current, req, actor.ID, hasBindingDecision(chain))
	if err != nil {
		return nil, nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	saved, approval, err := s.store.SaveAcceptanceDecision(ctx, &updated, fx.Approval, s.expected(req.ExpectedVersion, current.Version))
	if err != nil {
		return nil, nil, s.transitionDone(span, models.KindAcceptance, err)
	}

	span.SetAttributes(attribute.Int("approval.order", approval.ApprovalOrder))
	s.transitionDone(span, models.KindAcceptance, nil) //nolint:errcheck // nil in, nil out.
	s.history.record(ctx, actor, acceptanceSubject(saved), fromEffects(fx))
	s.logTransition(models.KindAcceptance, id, string(current.Status), string(saved.Status), actor)

	return saved, approval, nil
}

// DeleteWorkItem soft-deletes an item. Its history stays in place.
func (s *WorkItemService) DeleteWorkItem(ctx context.Context, actor *models.Principal, kind models.Kind, id uuid.UUID) error {
	if actor == nil {
		return models.ErrNoPrincipal
	}

	if !kind.Valid() {
		return models.ErrInvalidValue("kind", string(kind))
	}

	projectID, err := s.store.SoftDelete(ctx, kind, id)
	if err != nil {
		return err
	}

	subj := subject{kind: kind, id: id, projectID: projectID}
	auditAsync(s.auditWorker, actor, subj, models.ActionDelete, models.SeverityWarning)
	s.history.recordActivity(ctx, actor, subj, string(kind)+"_deleted", string(kind)+" deleted")

	s.log.WithFields(logrus.Fields{
		"kind":     kind,
		"id":       id,
		"actor_id": actor.ID,
	}).Info("workitem.delete")

	return nil
}

// recordCreate queues the create audit entry and logs the activity event.
func (s *WorkItemService) recordCreate(ctx context.Context, actor *models.Principal, subj subject, status string) {
	auditAsync(s.auditWorker, actor, subj, models.ActionCreate, models.SeverityInfo)
	s.history.recordActivity(ctx, actor, subj, string(subj.kind)+"_created", subj.name+" created as "+status)
}

// expected returns the version a save must match, or nil for last-write-wins.
func (s *WorkItemService) expected(requested *int, read int) *int {
	if requested != nil {
		return requested
	}

	if s.cas {
		return &read
	}

	return nil
}

func (s *WorkItemService) startTransition(ctx context.Context, kind models.Kind, id uuid.UUID, to string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "workitem.transition", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("id", id.String()),
		attribute.String("to", to),
	))
}

// transitionDone counts the outcome, marks the span and returns err.
func (s *WorkItemService) transitionDone(span trace.Span, kind models.Kind, err error) error {
	result := transitionResult(err)
	metrics.TransitionsTotal.WithLabelValues(string(kind), result).Inc()
	span.SetAttributes(attribute.String("result", result))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}

	return err
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrInvalidTransition):
		return "rejected"
	case errors.Is(err, models.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func (s *WorkItemService) logTransition(kind models.Kind, id uuid.UUID, from, to string, actor *models.Principal) {
	s.log.WithFields(logrus.Fields{
		"kind":     kind,
		"id":       id,
		"from":     from,
		"to":       to,
		"actor_id": actor.ID,
	}).Info("workitem.transition")
}

func hasBindingDecision(chain []models.ApprovalRecord) bool {
	for _, r := range chain {
		if r.Decision.Binding() {
			return true
		}
	}

	return false
}

func problemSubject(p *models.Problem) subject {
	return subject{kind: models.KindProblem, id: p.ID, name: p.Title, projectID: p.ProjectID}
}

func diarySubject(d *models.Diary) subject {
	return subject{kind: models.KindDiary, id: d.ID, name: "Diary " + d.EntryDate.Format(time.DateOnly), projectID: d.ProjectID}
}

func acceptanceSubject(a *models.Acceptance) subject {
	return subject{kind: models.KindAcceptance, id: a.ID, name: a.Title, projectID: a.ProjectID}
}
