package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/models"
)

var testNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type workItemFixture struct {
	svc      *WorkItemService
	store    *memStore
	audit    *mockAuditAppender
	activity *mockActivityLogger
	queue    *mockAuditEnqueuer
	actor    *models.Principal
}

func newWorkItemFixture(cas bool) *workItemFixture {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	fx := &workItemFixture{
		store:    newMemStore(),
		audit:    &mockAuditAppender{},
		activity: &mockActivityLogger{},
		queue:    &mockAuditEnqueuer{},
		actor:    &models.Principal{ID: uuid.New(), Name: "Site Lead"},
	}

	fx.svc = NewWorkItemService(fx.store, fx.audit, fx.activity, fx.queue, log, WorkItemOptions{
		CAS: cas,
		Now: func() time.Time { return testNow },
	})

	return fx
}

func (fx *workItemFixture) openProblem(t *testing.T) *models.Problem {
	t.Helper()

	p, err := fx.svc.CreateProblem(context.Background(), fx.actor, models.CreateProblemRequest{
		ProjectID: uuid.New(), Title: "Cracked slab",
	})
	if err != nil {
		t.Fatalf("CreateProblem: %v", err)
	}

	return p
}

func strPtr(s string) *string { return &s }

func TestWorkItemService_CreateRecordsHistory(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)

	jobs := fx.queue.getJobs()
	if len(jobs) != 1 || jobs[0].Entry.Action != models.ActionCreate {
		t.Fatalf("audit jobs = %+v, want one create", jobs)
	}

	if jobs[0].Entry.ActorID == nil || *jobs[0].Entry.ActorID != fx.actor.ID {
		t.Errorf("audit actor = %v, want %s", jobs[0].Entry.ActorID, fx.actor.ID)
	}

	events := fx.activity.getEvents()
	if len(events) != 1 || events[0].ActivityType != "problem_created" || events[0].ProjectID != p.ProjectID {
		t.Errorf("activity = %+v", events)
	}
}

func TestWorkItemService_CreateRequiresPrincipal(t *testing.T) {
	fx := newWorkItemFixture(false)

	_, err := fx.svc.CreateProblem(context.Background(), nil, models.CreateProblemRequest{ProjectID: uuid.New(), Title: "x"})
	if !errors.Is(err, models.ErrNoPrincipal) {
		t.Errorf("err = %v, want ErrNoPrincipal", err)
	}
}

func TestWorkItemService_ResolveBeforeStartRejected(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)
	ctx := context.Background()

	_, err := fx.svc.ChangeProblemStatus(ctx, fx.actor, p.ID, models.ProblemStatusRequest{To: models.ProblemResolved})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	got, _ := fx.svc.GetProblem(ctx, p.ID)
	if got.Status != models.ProblemOpen {
		t.Errorf("status = %s, want open", got.Status)
	}

	actions, _ := fx.svc.ListActions(ctx, models.KindProblem, p.ID)
	if len(actions) != 0 {
		t.Errorf("rejected transition wrote %d actions", len(actions))
	}

	if n := len(fx.audit.getEntries()); n != 0 {
		t.Errorf("rejected transition wrote %d audit entries", n)
	}
}

func TestWorkItemService_ResolveFlow(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)
	ctx := context.Background()

	if _, err := fx.svc.ChangeProblemStatus(ctx, fx.actor, p.ID, models.ProblemStatusRequest{To: models.ProblemInProgress}); err != nil {
		t.Fatalf("start: %v", err)
	}

	got, err := fx.svc.ChangeProblemStatus(ctx, fx.actor, p.ID, models.ProblemStatusRequest{
		To: models.ProblemResolved, RootCause: strPtr("X"),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if got.ResolvedAt == nil || got.RootCause == nil || *got.RootCause != "X" {
		t.Errorf("resolved problem = %+v", got)
	}

	actions, _ := fx.svc.ListActions(ctx, models.KindProblem, p.ID)
	if len(actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(actions))
	}

	last := actions[1]
	if last.FromStatus != "in_progress" || last.ToStatus != "resolved" || last.ActorID != fx.actor.ID {
		t.Errorf("last action = %+v", last)
	}

	entries := fx.audit.getEntries()
	if len(entries) != 2 || entries[1].Action != models.ActionStatusChange {
		t.Errorf("audit entries = %+v", entries)
	}

	events := fx.activity.getEvents()
	if events[len(events)-1].ActivityType != "problem_resolved" {
		t.Errorf("last activity = %s", events[len(events)-1].ActivityType)
	}
}

func TestWorkItemService_DiaryApproveAudited(t *testing.T) {
	fx := newWorkItemFixture(false)
	ctx := context.Background()

	d, err := fx.svc.CreateDiary(ctx, fx.actor, models.CreateDiaryRequest{ProjectID: uuid.New(), EntryDate: testNow, Notes: "pour"})
	if err != nil {
		t.Fatalf("CreateDiary: %v", err)
	}

	if _, err := fx.svc.ChangeDiaryStatus(ctx, fx.actor, d.ID, models.DiaryStatusRequest{To: models.DiarySubmitted}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := fx.svc.ChangeDiaryStatus(ctx, fx.actor, d.ID, models.DiaryStatusRequest{To: models.DiaryApproved})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	if got.ApprovedBy == nil || *got.ApprovedBy != fx.actor.ID || got.ApprovedAt == nil {
		t.Errorf("approved diary = %+v", got)
	}

	entries := fx.audit.getEntries()
	if entries[len(entries)-1].Action != models.ActionApprove {
		t.Errorf("last audit action = %s, want approve", entries[len(entries)-1].Action)
	}
}

func TestWorkItemService_ConditionalDecision(t *testing.T) {
	fx := newWorkItemFixture(false)
	ctx := context.Background()

	a, err := fx.svc.CreateAcceptance(ctx, fx.actor, models.CreateAcceptanceRequest{ProjectID: uuid.New(), Title: "Facade"})
	if err != nil {
		t.Fatalf("CreateAcceptance: %v", err)
	}

	if _, err := fx.svc.StartAcceptance(ctx, fx.actor, a.ID, nil, nil); err != nil {
		t.Fatalf("StartAcceptance: %v", err)
	}

	got, approval, err := fx.svc.DecideAcceptance(ctx, fx.actor, a.ID, models.DecisionRequest{
		Decision: models.DecisionConditional, Conditions: strPtr("fix paint"),
	})
	if err != nil {
		t.Fatalf("DecideAcceptance: %v", err)
	}

	if got.Status != models.AcceptanceConditionallyPassed {
		t.Errorf("status = %s, want conditionally_passed", got.Status)
	}

	if approval.ApprovalOrder != 1 {
		t.Errorf("approval order = %d, want 1", approval.ApprovalOrder)
	}

	// A second decision after a binding one is refused.
	_, _, err = fx.svc.DecideAcceptance(ctx, fx.actor, a.ID, models.DecisionRequest{Decision: models.DecisionApprove})
	if !errors.Is(err, models.ErrDecisionNotAllowed) {
		t.Errorf("second decision err = %v, want ErrDecisionNotAllowed", err)
	}
}

func TestWorkItemService_DeferThenRestart(t *testing.T) {
	fx := newWorkItemFixture(false)
	ctx := context.Background()

	a, _ := fx.svc.CreateAcceptance(ctx, fx.actor, models.CreateAcceptanceRequest{ProjectID: uuid.New(), Title: "Roof"})

	if _, err := fx.svc.StartAcceptance(ctx, fx.actor, a.ID, nil, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	got, _, err := fx.svc.DecideAcceptance(ctx, fx.actor, a.ID, models.DecisionRequest{Decision: models.DecisionDefer})
	if err != nil {
		t.Fatalf("defer: %v", err)
	}

	if got.Status != models.AcceptancePending {
		t.Fatalf("status after defer = %s, want pending", got.Status)
	}

	if _, err := fx.svc.StartAcceptance(ctx, fx.actor, a.ID, nil, nil); err != nil {
		t.Fatalf("restart: %v", err)
	}

	_, approval, err := fx.svc.DecideAcceptance(ctx, fx.actor, a.ID, models.DecisionRequest{Decision: models.DecisionApprove})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	if approval.ApprovalOrder != 2 {
		t.Errorf("approval order = %d, want 2", approval.ApprovalOrder)
	}
}

func TestWorkItemService_ConcurrentDecisionsRecordOne(t *testing.T) {
	fx := newWorkItemFixture(false)
	ctx := context.Background()

	a, _ := fx.svc.CreateAcceptance(ctx, fx.actor, models.CreateAcceptanceRequest{ProjectID: uuid.New(), Title: "Lift shaft"})
	if _, err := fx.svc.StartAcceptance(ctx, fx.actor, a.ID, nil, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	var reads sync.WaitGroup
	reads.Add(2)

	fx.store.getHook = func() {
		reads.Done()
		reads.Wait()
	}

	decisions := []models.Decision{models.DecisionApprove, models.DecisionReject}
	errs := make([]error, len(decisions))

	var wg sync.WaitGroup

	for i, d := range decisions {
		wg.Add(1)

		go func() {
			defer wg.Done()
			_, _, errs[i] = fx.svc.DecideAcceptance(context.Background(), fx.actor, a.ID, models.DecisionRequest{Decision: d})
		}()
	}

	wg.Wait()
	fx.store.getHook = nil

	// The loser is refused at the write, or at the approval read when the
	// winner has already committed.
	refused := 0

	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, models.ErrVersionConflict), errors.Is(err, models.ErrDecisionNotAllowed):
			refused++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if refused != 1 {
		t.Errorf("refused = %d, want 1", refused)
	}

	chain, _ := fx.svc.ListApprovals(ctx, a.ID)
	if len(chain) != 1 || chain[0].ApprovalOrder != 1 {
		t.Errorf("approvals = %+v, want a single order-1 record", chain)
	}
}

// racePair runs two transitions from the same read state.
func racePair(t *testing.T, fx *workItemFixture, id uuid.UUID) []error {
	t.Helper()

	var reads sync.WaitGroup
	reads.Add(2)

	fx.store.getHook = func() {
		reads.Done()
		reads.Wait()
	}

	targets := []models.ProblemStatus{models.ProblemResolved, models.ProblemCancelled}
	errs := make([]error, len(targets))

	var wg sync.WaitGroup

	for i, to := range targets {
		wg.Add(1)

		go func() {
			defer wg.Done()
			_, errs[i] = fx.svc.ChangeProblemStatus(context.Background(), fx.actor, id, models.ProblemStatusRequest{To: to})
		}()
	}

	wg.Wait()
	fx.store.getHook = nil

	return errs
}

func TestWorkItemService_ConcurrentTransitionsLastWriteWins(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)
	ctx := context.Background()

	if _, err := fx.svc.ChangeProblemStatus(ctx, fx.actor, p.ID, models.ProblemStatusRequest{To: models.ProblemInProgress}); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i, err := range racePair(t, fx, p.ID) {
		if err != nil {
			t.Errorf("writer %d: %v", i, err)
		}
	}

	actions, _ := fx.svc.ListActions(ctx, models.KindProblem, p.ID)
	if len(actions) != 3 {
		t.Fatalf("actions = %d, want 3", len(actions))
	}

	for _, a := range actions[1:] {
		if a.FromStatus != "in_progress" {
			t.Errorf("racing action from = %s, want in_progress", a.FromStatus)
		}
	}

	got, _ := fx.svc.GetProblem(ctx, p.ID)
	if got.Status != models.ProblemStatus(actions[2].ToStatus) {
		t.Errorf("final status = %s, want last writer's %s", got.Status, actions[2].ToStatus)
	}
}

func TestWorkItemService_ConcurrentTransitionsWithCAS(t *testing.T) {
	fx := newWorkItemFixture(true)
	p := fx.openProblem(t)
	ctx := context.Background()

	if _, err := fx.svc.ChangeProblemStatus(ctx, fx.actor, p.ID, models.ProblemStatusRequest{To: models.ProblemInProgress}); err != nil {
		t.Fatalf("start: %v", err)
	}

	conflicts := 0

	for _, err := range racePair(t, fx, p.ID) {
		switch {
		case err == nil:
		case errors.Is(err, models.ErrVersionConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", conflicts)
	}
}

func TestWorkItemService_StaleExpectedVersion(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)

	stale := p.Version - 1

	_, err := fx.svc.ChangeProblemStatus(context.Background(), fx.actor, p.ID, models.ProblemStatusRequest{
		To: models.ProblemInProgress, ExpectedVersion: &stale,
	})
	if !errors.Is(err, models.ErrVersionConflict) {
		t.Errorf("err = %v, want ErrVersionConflict", err)
	}
}

func TestWorkItemService_HistoryFailureDoesNotFailTransition(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)

	fx.audit.err = errors.New("audit down")
	fx.activity.err = errors.New("activity down")

	got, err := fx.svc.ChangeProblemStatus(context.Background(), fx.actor, p.ID, models.ProblemStatusRequest{To: models.ProblemInProgress})
	if err != nil {
		t.Fatalf("transition failed with history down: %v", err)
	}

	if got.Status != models.ProblemInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
}

func TestWorkItemService_DeleteAuditsAsync(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)
	ctx := context.Background()

	if err := fx.svc.DeleteWorkItem(ctx, fx.actor, models.KindProblem, p.ID); err != nil {
		t.Fatalf("DeleteWorkItem: %v", err)
	}

	if _, err := fx.svc.GetProblem(ctx, p.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetProblem after delete err = %v, want ErrNotFound", err)
	}

	jobs := fx.queue.getJobs()
	if last := jobs[len(jobs)-1].Entry; last.Action != models.ActionDelete || last.Severity != models.SeverityWarning {
		t.Errorf("delete audit = %+v", last)
	}

	if err := fx.svc.DeleteWorkItem(ctx, fx.actor, "invoice", p.ID); !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown kind err = %v, want ErrValidation", err)
	}
}

func TestWorkItemService_DeleteRequiresActor(t *testing.T) {
	fx := newWorkItemFixture(false)
	p := fx.openProblem(t)
	ctx := context.Background()
	queued := len(fx.queue.getJobs())

	if err := fx.svc.DeleteWorkItem(ctx, nil, models.KindProblem, p.ID); !errors.Is(err, models.ErrNoPrincipal) {
		t.Fatalf("DeleteWorkItem(nil actor) err = %v, want ErrNoPrincipal", err)
	}

	if _, err := fx.svc.GetProblem(ctx, p.ID); err != nil {
		t.Errorf("problem should survive a rejected delete, got %v", err)
	}

	if got := len(fx.queue.getJobs()); got != queued {
		t.Errorf("audit jobs = %d, want %d", got, queued)
	}
}

func TestTransitionResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&models.TransitionError{Kind: models.KindProblem, From: "open", To: "closed"}, "rejected"},
		{models.ErrDecisionNotAllowed, "rejected"},
		{models.ErrVersionConflict, "conflict"},
		{models.ErrNotFound, "not_found"},
		{models.ErrMissingField("to"), "invalid"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		if got := transitionResult(tt.err); got != tt.want {
			t.Errorf("transitionResult(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
