package lifecycle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrail/worktrail/internal/lifecycle"
	"github.com/worktrail/worktrail/internal/models"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newEngine() *lifecycle.Engine {
	return lifecycle.NewEngine(func() time.Time { return fixedNow })
}

func strPtr(s string) *string { return &s }

func newProblem(status models.ProblemStatus) models.Problem {
	return models.Problem{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Title:     "Water ingress level 3",
		Status:    status,
		CreatedAt: fixedNow.Add(-24 * time.Hour),
		UpdatedAt: fixedNow.Add(-24 * time.Hour),
	}
}

func TestValidate_Soundness(t *testing.T) {
	kinds := []models.Kind{models.KindProblem, models.KindDiary, models.KindAcceptance}

	for _, kind := range kinds {
		statuses := lifecycle.Statuses(kind)
		require.NotEmpty(t, statuses)

		for _, from := range statuses {
			allowed := map[string]bool{}
			for _, to := range lifecycle.Allowed(kind, from) {
				allowed[to] = true
			}

			for _, to := range statuses {
				assert.Equal(t, allowed[to], lifecycle.Validate(kind, from, to), "%s %s -> %s", kind, from, to)
			}
		}
	}

	assert.False(t, lifecycle.Validate("invoice", "open", "closed"))
	assert.False(t, lifecycle.Validate(models.KindProblem, "bogus", "open"))
}

func TestApplyProblem_RejectsEveryPairOutsideTable(t *testing.T) {
	e := newEngine()
	actor := uuid.New()

	for _, from := range lifecycle.Statuses(models.KindProblem) {
		for _, to := range lifecycle.Statuses(models.KindProblem) {
			if lifecycle.Validate(models.KindProblem, from, to) {
				continue
			}

			p := newProblem(models.ProblemStatus(from))
			got, fx, err := e.ApplyProblem(p, models.ProblemStatusRequest{To: models.ProblemStatus(to)}, actor)

			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidTransition))
			assert.Equal(t, p, got, "%s -> %s must leave the problem unchanged", from, to)
			assert.Nil(t, fx.Action)
		}
	}
}

func TestApplyProblem_ResolveBeforeStartIsRejected(t *testing.T) {
	p := newProblem(models.ProblemOpen)

	got, _, err := newEngine().ApplyProblem(p, models.ProblemStatusRequest{To: models.ProblemResolved}, uuid.New())

	require.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, models.ProblemOpen, got.Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestApplyProblem_ResolveStampsFields(t *testing.T) {
	e := newEngine()
	actor := uuid.New()

	p, _, err := e.ApplyProblem(newProblem(models.ProblemOpen), models.ProblemStatusRequest{To: models.ProblemInProgress}, actor)
	require.NoError(t, err)

	p, fx, err := e.ApplyProblem(p, models.ProblemStatusRequest{
		To:         models.ProblemResolved,
		RootCause:  strPtr("X"),
		Resolution: strPtr("resealed joint"),
	}, actor)
	require.NoError(t, err)

	require.NotNil(t, p.ResolvedAt)
	assert.Equal(t, fixedNow, *p.ResolvedAt)
	assert.Equal(t, "X", *p.RootCause)
	assert.Equal(t, "resealed joint", *p.Resolution)
	assert.Nil(t, p.Prevention)

	require.NotNil(t, fx.Action)
	assert.Nil(t, fx.Approval)
	assert.Equal(t, "in_progress", fx.Action.FromStatus)
	assert.Equal(t, "resolved", fx.Action.ToStatus)
	assert.Equal(t, actor, fx.Action.ActorID)
	assert.Equal(t, models.ActionStatusChange, fx.AuditAction)
	assert.JSONEq(t, `{"status":"in_progress"}`, string(fx.OldValue))
	assert.JSONEq(t, `{"status":"resolved","root_cause":"X","resolution":"resealed joint"}`, string(fx.NewValue))
}

func TestApplyProblem_CloseVerifies(t *testing.T) {
	actor := uuid.New()

	p, _, err := newEngine().ApplyProblem(newProblem(models.ProblemResolved), models.ProblemStatusRequest{To: models.ProblemClosed}, actor)
	require.NoError(t, err)

	require.NotNil(t, p.ClosedAt)
	require.NotNil(t, p.VerifiedAt)
	require.NotNil(t, p.VerifiedBy)
	assert.Equal(t, actor, *p.VerifiedBy)
	assert.True(t, p.Status.IsTerminal())
}

func TestApplyProblem_ReopenClearsResolvedAt(t *testing.T) {
	p := newProblem(models.ProblemResolved)
	resolved := fixedNow.Add(-time.Hour)
	p.ResolvedAt = &resolved

	got, _, err := newEngine().ApplyProblem(p, models.ProblemStatusRequest{To: models.ProblemInProgress}, uuid.New())
	require.NoError(t, err)

	assert.Nil(t, got.ResolvedAt)
	require.NotNil(t, p.ResolvedAt, "input must not be mutated")
}

func TestApplyProblem_CancelIsWarning(t *testing.T) {
	_, fx, err := newEngine().ApplyProblem(newProblem(models.ProblemInProgress), models.ProblemStatusRequest{To: models.ProblemCancelled}, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, models.SeverityWarning, fx.Severity)
	assert.Equal(t, "problem_cancelled", fx.ActivityType)
}

func TestApplyDiary_SubmitAndApprove(t *testing.T) {
	e := newEngine()
	approver := uuid.New()
	d := models.Diary{ID: uuid.New(), ProjectID: uuid.New(), EntryDate: fixedNow, Status: models.DiaryDraft, Notes: "Pour complete"}

	d, fx, err := e.ApplyDiary(d, models.DiaryStatusRequest{To: models.DiarySubmitted}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.ActionSubmit, fx.AuditAction)
	require.NotNil(t, d.SubmittedAt)

	d, fx, err = e.ApplyDiary(d, models.DiaryStatusRequest{To: models.DiaryApproved}, approver)
	require.NoError(t, err)

	require.NotNil(t, d.ApprovedBy)
	require.NotNil(t, d.ApprovedAt)
	assert.Equal(t, approver, *d.ApprovedBy)
	assert.Equal(t, models.ActionApprove, fx.AuditAction)
	assert.Equal(t, "submitted", fx.Action.FromStatus)
}

func TestApplyDiary_RejectPrefixesReason(t *testing.T) {
	d := models.Diary{ID: uuid.New(), Status: models.DiarySubmitted, Notes: "Crane idle"}

	got, fx, err := newEngine().ApplyDiary(d, models.DiaryStatusRequest{To: models.DiaryRejected, Reason: strPtr("missing headcount")}, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "Rejection reason: missing headcount\n\nCrane idle", got.Notes)
	assert.Equal(t, models.ActionReject, fx.AuditAction)
	require.NotNil(t, got.RejectedAt)

	unchanged, _, err := newEngine().ApplyDiary(d, models.DiaryStatusRequest{To: models.DiaryRejected}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "Crane idle", unchanged.Notes)
}

func TestApplyDiary_RejectedCanReturnToDraft(t *testing.T) {
	d := models.Diary{ID: uuid.New(), Status: models.DiaryRejected, RejectedAt: &fixedNow}

	got, _, err := newEngine().ApplyDiary(d, models.DiaryStatusRequest{To: models.DiaryDraft}, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, models.DiaryDraft, got.Status)
	assert.Nil(t, got.RejectedAt)
}

func TestApplyDiary_ApprovedIsTerminal(t *testing.T) {
	d := models.Diary{ID: uuid.New(), Status: models.DiaryApproved}

	for _, to := range []models.DiaryStatus{models.DiaryDraft, models.DiarySubmitted, models.DiaryRejected} {
		_, _, err := newEngine().ApplyDiary(d, models.DiaryStatusRequest{To: to}, uuid.New())
		assert.ErrorIs(t, err, models.ErrInvalidTransition, to)
	}
}

func TestDecisionStatus_Total(t *testing.T) {
	seen := map[models.AcceptanceStatus]models.Decision{}

	for _, d := range models.Decisions {
		s, ok := lifecycle.DecisionStatus(d)
		require.True(t, ok, d)
		assert.True(t, s.Valid())

		prev, dup := seen[s]
		assert.False(t, dup, "%s and %s map to the same status", prev, d)
		seen[s] = d

		assert.True(t, lifecycle.Validate(models.KindAcceptance, string(models.AcceptanceInProgress), string(s)))
	}

	_, ok := lifecycle.DecisionStatus("maybe")
	assert.False(t, ok)
}

func TestDecideAcceptance_Conditional(t *testing.T) {
	e := newEngine()
	approver := uuid.New()
	a := models.Acceptance{ID: uuid.New(), Title: "Level 2 handover", Status: models.AcceptancePending}

	a, fx, err := e.StartAcceptance(a, uuid.New(), nil)
	require.NoError(t, err)
	require.NotNil(t, fx.Action)
	require.NotNil(t, a.StartedAt)

	a, fx, err = e.DecideAcceptance(a, models.DecisionRequest{
		Decision:   models.DecisionConditional,
		Conditions: strPtr("fix paint"),
	}, approver, false)
	require.NoError(t, err)

	assert.Equal(t, models.AcceptanceConditionallyPassed, a.Status)
	assert.Equal(t, "fix paint", *a.Conditions)
	require.NotNil(t, a.DecidedBy)
	assert.Equal(t, approver, *a.DecidedBy)

	require.NotNil(t, fx.Approval)
	assert.Nil(t, fx.Action)
	assert.Equal(t, approver, fx.Approval.ApproverID)
	assert.Equal(t, models.DecisionConditional, fx.Approval.Decision)
	assert.Zero(t, fx.Approval.ApprovalOrder)
}

func TestDecideAcceptance_NotAllowed(t *testing.T) {
	e := newEngine()

	tests := []struct {
		name         string
		status       models.AcceptanceStatus
		priorBinding bool
	}{
		{name: "pending", status: models.AcceptancePending},
		{name: "already passed", status: models.AcceptancePassed},
		{name: "prior binding decision", status: models.AcceptanceInProgress, priorBinding: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := models.Acceptance{ID: uuid.New(), Status: tc.status}

			got, fx, err := e.DecideAcceptance(a, models.DecisionRequest{Decision: models.DecisionApprove}, uuid.New(), tc.priorBinding)

			require.ErrorIs(t, err, models.ErrDecisionNotAllowed)
			assert.ErrorIs(t, err, models.ErrInvalidTransition)
			assert.Equal(t, a, got)
			assert.Nil(t, fx.Approval)
		})
	}
}

func TestDecideAcceptance_DeferReturnsToPending(t *testing.T) {
	a := models.Acceptance{ID: uuid.New(), Status: models.AcceptanceInProgress}

	got, fx, err := newEngine().DecideAcceptance(a, models.DecisionRequest{Decision: models.DecisionDefer}, uuid.New(), false)
	require.NoError(t, err)

	assert.Equal(t, models.AcceptancePending, got.Status)
	assert.Nil(t, got.DecidedAt)
	assert.Equal(t, models.ActionDecide, fx.AuditAction)
}

func TestStartAcceptance_OnlyFromPending(t *testing.T) {
	a := models.Acceptance{ID: uuid.New(), Status: models.AcceptanceFailed}

	_, _, err := newEngine().StartAcceptance(a, uuid.New(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}
