package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/models"
)

// Effects describes everything a successful transition must record. Exactly
// one of Action or Approval is set.
type Effects struct {
	Action       *models.StatusAction
	Approval     *models.ApprovalRecord
	AuditAction  models.AuditAction
	ActivityType string
	Severity     models.Severity
	Description  string
	OldValue     json.RawMessage
	NewValue     json.RawMessage
}

// Engine validates status moves and computes the derived field updates.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine. A nil clock uses time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}

	return &Engine{now: now}
}

// DecisionStatus maps a decision to the acceptance status it produces.
func DecisionStatus(d models.Decision) (models.AcceptanceStatus, bool) {
	switch d {
	case models.DecisionApprove:
		return models.AcceptancePassed, true
	case models.DecisionReject:
		return models.AcceptanceFailed, true
	case models.DecisionConditional:
		return models.AcceptanceConditionallyPassed, true
	case models.DecisionDefer:
		return models.AcceptancePending, true
	}

	return "", false
}

// ApplyProblem moves p to req.To. On error p is returned unchanged.
func (e *Engine) ApplyProblem(p models.Problem, req models.ProblemStatusRequest, actor uuid.UUID) (models.Problem, Effects, error) {
	from := p.Status
	if !Validate(models.KindProblem, string(from), string(req.To)) {
		return p, Effects{}, &models.TransitionError{Kind: models.KindProblem, From: string(from), To: string(req.To)}
	}

	now := e.now().UTC()
	out := p
	out.Status = req.To
	out.UpdatedAt = now

	changes := map[string]any{"status": req.To}

	switch req.To {
	case models.ProblemResolved:
		out.ResolvedAt = &now
		if req.RootCause != nil {
			out.RootCause = req.RootCause
			changes["root_cause"] = *req.RootCause
		}

		if req.Resolution != nil {
			out.Resolution = req.Resolution
			changes["resolution"] = *req.Resolution
		}

		if req.Prevention != nil {
			out.Prevention = req.Prevention
			changes["prevention"] = *req.Prevention
		}
	case models.ProblemClosed:
		out.ClosedAt = &now
		out.VerifiedAt = &now
		out.VerifiedBy = &actor
		changes["verified_by"] = actor
	case models.ProblemInProgress:
		if from == models.ProblemResolved {
			out.ResolvedAt = nil
		}
	case models.ProblemOpen, models.ProblemCancelled:
	}

	severity := models.SeverityInfo
	if req.To == models.ProblemCancelled {
		severity = models.SeverityWarning
	}

	fx := Effects{
		Action:       statusAction(models.KindProblem, p.ID, p.ProjectID, string(from), string(req.To), actor, req.Comment, now),
		AuditAction:  models.ActionStatusChange,
		ActivityType: "problem_" + string(req.To),
		Severity:     severity,
		Description:  fmt.Sprintf("%s moved from %s to %s", p.Title, from.Label(), req.To.Label()),
		OldValue:     snapshot(map[string]any{"status": from}),
		NewValue:     snapshot(changes),
	}

	return out, fx, nil
}

// ApplyDiary moves d to req.To. A rejection reason is prefixed to the notes.
func (e *Engine) ApplyDiary(d models.Diary, req models.DiaryStatusRequest, actor uuid.UUID) (models.Diary, Effects, error) {
	from := d.Status
	if !Validate(models.KindDiary, string(from), string(req.To)) {
		return d, Effects{}, &models.TransitionError{Kind: models.KindDiary, From: string(from), To: string(req.To)}
	}

	now := e.now().UTC()
	out := d
	out.Status = req.To
	out.UpdatedAt = now

	changes := map[string]any{"status": req.To}
	action := models.ActionStatusChange
	severity := models.SeverityInfo

	switch req.To {
	case models.DiarySubmitted:
		out.SubmittedAt = &now
		action = models.ActionSubmit
	case models.DiaryApproved:
		out.ApprovedBy = &actor
		out.ApprovedAt = &now
		changes["approved_by"] = actor
		action = models.ActionApprove
	case models.DiaryRejected:
		out.RejectedBy = &actor
		out.RejectedAt = &now
		if req.Reason != nil && *req.Reason != "" {
			out.Notes = "Rejection reason: " + *req.Reason + "\n\n" + d.Notes
			changes["reason"] = *req.Reason
		}

		changes["rejected_by"] = actor
		action = models.ActionReject
		severity = models.SeverityWarning
	case models.DiaryDraft:
		out.SubmittedAt = nil
		out.RejectedBy = nil
		out.RejectedAt = nil
	}

	fx := Effects{
		Action:       statusAction(models.KindDiary, d.ID, d.ProjectID, string(from), string(req.To), actor, req.Comment, now),
		AuditAction:  action,
		ActivityType: "diary_" + string(req.To),
		Severity:     severity,
		Description:  fmt.Sprintf("Diary for %s moved from %s to %s", d.EntryDate.Format(time.DateOnly), from.Label(), req.To.Label()),
		OldValue:     snapshot(map[string]any{"status": from}),
		NewValue:     snapshot(changes),
	}

	return out, fx, nil
}

// StartAcceptance opens a pending inspection for review.
func (e *Engine) StartAcceptance(a models.Acceptance, actor uuid.UUID, comment *string) (models.Acceptance, Effects, error) {
	from := a.Status
	if !Validate(models.KindAcceptance, string(from), string(models.AcceptanceInProgress)) {
		return a, Effects{}, &models.TransitionError{Kind: models.KindAcceptance, From: string(from), To: string(models.AcceptanceInProgress)}
	}

	now := e.now().UTC()
	out := a
	out.Status = models.AcceptanceInProgress
	out.StartedAt = &now
	out.UpdatedAt = now

	fx := Effects{
		Action:       statusAction(models.KindAcceptance, a.ID, a.ProjectID, string(from), string(out.Status), actor, comment, now),
		AuditAction:  models.ActionStatusChange,
		ActivityType: "acceptance_started",
		Severity:     models.SeverityInfo,
		Description:  fmt.Sprintf("%s inspection started", a.Title),
		OldValue:     snapshot(map[string]any{"status": from}),
		NewValue:     snapshot(map[string]any{"status": out.Status}),
	}

	return out, fx, nil
}

// DecideAcceptance applies an approver decision. It is accepted only while
// the inspection is in progress and no binding decision has been recorded.
// The returned Approval has no order; the store assigns it on insert.
func (e *Engine) DecideAcceptance(a models.Acceptance, req models.DecisionRequest, actor uuid.UUID, priorBinding bool) (models.Acceptance, Effects, error) {
	if a.Status != models.AcceptanceInProgress || priorBinding {
		return a, Effects{}, models.ErrDecisionNotAllowed
	}

	to, ok := DecisionStatus(req.Decision)
	if !ok {
		return a, Effects{}, models.ErrInvalidValue("decision", string(req.Decision))
	}

	now := e.now().UTC()
	out := a
	out.Status = to
	out.UpdatedAt = now

	changes := map[string]any{"status": to, "decision": req.Decision}

	if req.Decision.Binding() {
		out.DecidedAt = &now
		out.DecidedBy = &actor
	}

	if req.Decision == models.DecisionConditional && req.Conditions != nil {
		out.Conditions = req.Conditions
		changes["conditions"] = *req.Conditions
	}

	action := models.ActionDecide
	severity := models.SeverityInfo

	switch req.Decision {
	case models.DecisionApprove:
		action = models.ActionApprove
	case models.DecisionReject:
		action = models.ActionReject
		severity = models.SeverityWarning
	case models.DecisionConditional, models.DecisionDefer:
	}

	fx := Effects{
		Approval: &models.ApprovalRecord{
			AcceptanceID: a.ID,
			ApproverID:   actor,
			Decision:     req.Decision,
			Comments:     req.Comments,
			CreatedAt:    now,
		},
		AuditAction:  action,
		ActivityType: "acceptance_" + string(to),
		Severity:     severity,
		Description:  fmt.Sprintf("%s inspection marked %s", a.Title, to.Label()),
		OldValue:     snapshot(map[string]any{"status": a.Status}),
		NewValue:     snapshot(changes),
	}

	return out, fx, nil
}

func statusAction(kind models.Kind, item, project uuid.UUID, from, to string, actor uuid.UUID, comment *string, at time.Time) *models.StatusAction {
	return &models.StatusAction{
		Kind:       kind,
		ItemID:     item,
		ProjectID:  project,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor,
		Comment:    comment,
		CreatedAt:  at,
	}
}

func snapshot(v map[string]any) json.RawMessage {
	b, _ := json.Marshal(v) //nolint:errcheck // string and uuid values only.
	return b
}
