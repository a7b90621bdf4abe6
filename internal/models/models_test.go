package models_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

func ptr[T any](v T) *T { return &v }

func assertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func assertErrorContains(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}

	if !strings.Contains(err.Error(), want) {
		t.Errorf("expected error containing %q, got %q", want, err.Error())
	}
}

func TestCreateProblemRequest_Validate(t *testing.T) {
	project := uuid.New()

	tests := []struct {
		name    string
		req     models.CreateProblemRequest
		wantErr string
	}{
		{name: "valid", req: models.CreateProblemRequest{ProjectID: project, Title: "Crack in slab"}},
		{name: "valid priority", req: models.CreateProblemRequest{ProjectID: project, Title: "x", Priority: "urgent"}},
		{name: "missing project", req: models.CreateProblemRequest{Title: "x"}, wantErr: "project_id is required"},
		{name: "missing title", req: models.CreateProblemRequest{ProjectID: project}, wantErr: "title is required"},
		{name: "title too long", req: models.CreateProblemRequest{ProjectID: project, Title: strings.Repeat("x", 501)}, wantErr: "exceeds maximum length"},
		{name: "bad priority", req: models.CreateProblemRequest{ProjectID: project, Title: "x", Priority: "whenever"}, wantErr: "invalid priority"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestCreateDiaryRequest_Validate(t *testing.T) {
	project := uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     models.CreateDiaryRequest
		wantErr string
	}{
		{name: "valid", req: models.CreateDiaryRequest{ProjectID: project, EntryDate: day, Workforce: 12}},
		{name: "missing date", req: models.CreateDiaryRequest{ProjectID: project}, wantErr: "entry_date is required"},
		{name: "negative workforce", req: models.CreateDiaryRequest{ProjectID: project, EntryDate: day, Workforce: -1}, wantErr: "invalid workforce"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestDecisionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.DecisionRequest
		wantErr string
	}{
		{name: "approve", req: models.DecisionRequest{Decision: models.DecisionApprove}},
		{name: "defer", req: models.DecisionRequest{Decision: models.DecisionDefer}},
		{name: "conditional with conditions", req: models.DecisionRequest{Decision: models.DecisionConditional, Conditions: ptr("fix railing")}},
		{name: "conditional without conditions", req: models.DecisionRequest{Decision: models.DecisionConditional}, wantErr: "conditions is required"},
		{name: "unknown decision", req: models.DecisionRequest{Decision: "maybe"}, wantErr: "invalid decision"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestAuditAppendRequest_ValidateDefaultsSeverity(t *testing.T) {
	req := models.AuditAppendRequest{EntityType: "problem", EntityID: "p1", Action: models.ActionCreate}
	assertNoError(t, req.Validate())

	if req.Severity != models.SeverityInfo {
		t.Errorf("expected severity info, got %q", req.Severity)
	}

	bad := models.AuditAppendRequest{EntityType: "problem", EntityID: "p1", Action: "explode"}
	assertErrorContains(t, bad.Validate(), "invalid action")
}

func TestAuditAppendRequest_EntryUsesPrincipal(t *testing.T) {
	req := models.AuditAppendRequest{EntityType: "problem", EntityID: "p1", Action: models.ActionCreate}
	actor := &models.Principal{ID: uuid.New(), Name: "Site Lead"}

	e := req.Entry(actor)
	if e.ActorID == nil || *e.ActorID != actor.ID {
		t.Fatalf("expected actor id %s, got %v", actor.ID, e.ActorID)
	}

	if e.ActorName == nil || *e.ActorName != "Site Lead" {
		t.Errorf("expected actor name, got %v", e.ActorName)
	}

	anon := req.Entry(nil)
	if anon.ActorID != nil {
		t.Errorf("expected nil actor for system entry")
	}
}

func TestTransitionError_MatchesSentinel(t *testing.T) {
	var err error = &models.TransitionError{Kind: models.KindProblem, From: "closed", To: "open"}

	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Error("expected TransitionError to match ErrInvalidTransition")
	}

	if !errors.Is(models.ErrDecisionNotAllowed, models.ErrInvalidTransition) {
		t.Error("expected ErrDecisionNotAllowed to wrap ErrInvalidTransition")
	}

	if !strings.Contains(err.Error(), "closed -> open") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestDecision_Binding(t *testing.T) {
	for _, d := range models.Decisions {
		want := d != models.DecisionDefer
		if d.Binding() != want {
			t.Errorf("%s: Binding() = %v, want %v", d, d.Binding(), want)
		}
	}
}

func TestStatusLabels(t *testing.T) {
	if models.ProblemInProgress.Label() != "In progress" {
		t.Errorf("unexpected label %q", models.ProblemInProgress.Label())
	}

	if models.AcceptanceConditionallyPassed.Color() != "orange" {
		t.Errorf("unexpected colour %q", models.AcceptanceConditionallyPassed.Color())
	}

	if !models.ProblemCancelled.IsTerminal() || models.ProblemResolved.IsTerminal() {
		t.Error("unexpected terminal classification")
	}
}

func TestNewPage(t *testing.T) {
	p := models.NewPage([]int{1, 2, 3}, 10, 3, 3)

	if p.Page != 2 || p.TotalPages != 4 || p.PageSize != 3 {
		t.Errorf("unexpected page numbering %+v", p)
	}

	if !p.HasMore {
		t.Error("expected HasMore")
	}

	last := models.NewPage([]int{10}, 10, 3, 9)
	if last.HasMore {
		t.Error("expected no more results on last page")
	}

	empty := models.EmptyPage[int](0, 0)
	if empty.Data == nil || empty.Total != 0 || empty.PageSize != models.DefaultPageSize {
		t.Errorf("unexpected empty page %+v", empty)
	}
}

func TestClampPagination(t *testing.T) {
	l, o := models.ClampPagination(5000, -4)
	if l != models.MaxPageSize || o != 0 {
		t.Errorf("got limit=%d offset=%d", l, o)
	}
}

func TestValidationErrorsWrapSentinel(t *testing.T) {
	for _, err := range []error{
		models.ErrMissingField("title"),
		models.ErrFieldTooLong("title", 10),
		models.ErrInvalidValue("status", "x"),
	} {
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("%v does not wrap ErrValidation", err)
		}
	}

	if !strings.Contains(models.ErrMissingField("title").Error(), "title is required") {
		t.Error("missing field message lost its field name")
	}
}
