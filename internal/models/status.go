package models

// Kind identifies a work-item type with an enforced status lifecycle.
type Kind string

// Work-item kinds.
const (
	KindProblem    Kind = "problem"
	KindDiary      Kind = "diary"
	KindAcceptance Kind = "acceptance"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProblem, KindDiary, KindAcceptance:
		return true
	}

	return false
}

// Table returns the table that stores items of this kind.
func (k Kind) Table() string {
	switch k {
	case KindProblem:
		return "problems"
	case KindDiary:
		return "diaries"
	case KindAcceptance:
		return "acceptances"
	}

	return ""
}

// ProblemStatus is the lifecycle state of a Problem.
type ProblemStatus string

// Problem statuses.
const (
	ProblemOpen       ProblemStatus = "open"
	ProblemInProgress ProblemStatus = "in_progress"
	ProblemResolved   ProblemStatus = "resolved"
	ProblemClosed     ProblemStatus = "closed"
	ProblemCancelled  ProblemStatus = "cancelled"
)

// Valid reports whether s is a known problem status.
func (s ProblemStatus) Valid() bool {
	switch s {
	case ProblemOpen, ProblemInProgress, ProblemResolved, ProblemClosed, ProblemCancelled:
		return true
	}

	return false
}

// IsTerminal reports whether no further transitions leave s.
func (s ProblemStatus) IsTerminal() bool {
	switch s {
	case ProblemClosed, ProblemCancelled:
		return true
	case ProblemOpen, ProblemInProgress, ProblemResolved:
		return false
	}

	return false
}

// Label returns the display label for s.
func (s ProblemStatus) Label() string {
	switch s {
	case ProblemOpen:
		return "Open"
	case ProblemInProgress:
		return "In progress"
	case ProblemResolved:
		return "Resolved"
	case ProblemClosed:
		return "Closed"
	case ProblemCancelled:
		return "Cancelled"
	}

	return string(s)
}

// Color returns the display colour token for s.
func (s ProblemStatus) Color() string {
	switch s {
	case ProblemOpen:
		return "red"
	case ProblemInProgress:
		return "orange"
	case ProblemResolved:
		return "blue"
	case ProblemClosed:
		return "green"
	case ProblemCancelled:
		return "gray"
	}

	return "gray"
}

// DiaryStatus is the lifecycle state of a site Diary.
type DiaryStatus string

// Diary statuses.
const (
	DiaryDraft     DiaryStatus = "draft"
	DiarySubmitted DiaryStatus = "submitted"
	DiaryApproved  DiaryStatus = "approved"
	DiaryRejected  DiaryStatus = "rejected"
)

// Valid reports whether s is a known diary status.
func (s DiaryStatus) Valid() bool {
	switch s {
	case DiaryDraft, DiarySubmitted, DiaryApproved, DiaryRejected:
		return true
	}

	return false
}

// IsTerminal reports whether no further transitions leave s.
func (s DiaryStatus) IsTerminal() bool {
	switch s {
	case DiaryApproved:
		return true
	case DiaryDraft, DiarySubmitted, DiaryRejected:
		return false
	}

	return false
}

// Label returns the display label for s.
func (s DiaryStatus) Label() string {
	switch s {
	case DiaryDraft:
		return "Draft"
	case DiarySubmitted:
		return "Submitted"
	case DiaryApproved:
		return "Approved"
	case DiaryRejected:
		return "Rejected"
	}

	return string(s)
}

// Color returns the display colour token for s.
func (s DiaryStatus) Color() string {
	switch s {
	case DiaryDraft:
		return "gray"
	case DiarySubmitted:
		return "blue"
	case DiaryApproved:
		return "green"
	case DiaryRejected:
		return "red"
	}

	return "gray"
}

// AcceptanceStatus is the lifecycle state of an Acceptance inspection.
// Outcome statuses are derived from a Decision, never chosen directly.
type AcceptanceStatus string

// Acceptance statuses.
const (
	AcceptancePending             AcceptanceStatus = "pending"
	AcceptanceInProgress          AcceptanceStatus = "in_progress"
	AcceptancePassed              AcceptanceStatus = "passed"
	AcceptanceFailed              AcceptanceStatus = "failed"
	AcceptanceConditionallyPassed AcceptanceStatus = "conditionally_passed"
)

// Valid reports whether s is a known acceptance status.
func (s AcceptanceStatus) Valid() bool {
	switch s {
	case AcceptancePending, AcceptanceInProgress, AcceptancePassed, AcceptanceFailed, AcceptanceConditionallyPassed:
		return true
	}

	return false
}

// IsTerminal reports whether no further transitions leave s.
func (s AcceptanceStatus) IsTerminal() bool {
	switch s {
	case AcceptancePassed, AcceptanceFailed, AcceptanceConditionallyPassed:
		return true
	case AcceptancePending, AcceptanceInProgress:
		return false
	}

	return false
}

// Label returns the display label for s.
func (s AcceptanceStatus) Label() string {
	switch s {
	case AcceptancePending:
		return "Pending"
	case AcceptanceInProgress:
		return "In progress"
	case AcceptancePassed:
		return "Passed"
	case AcceptanceFailed:
		return "Failed"
	case AcceptanceConditionallyPassed:
		return "Conditionally passed"
	}

	return string(s)
}

// Color returns the display colour token for s.
func (s AcceptanceStatus) Color() string {
	switch s {
	case AcceptancePending:
		return "gray"
	case AcceptanceInProgress:
		return "blue"
	case AcceptancePassed:
		return "green"
	case AcceptanceFailed:
		return "red"
	case AcceptanceConditionallyPassed:
		return "orange"
	}

	return "gray"
}

// Decision is an approver's verdict on an Acceptance.
type Decision string

// Acceptance decisions.
const (
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionConditional Decision = "conditional"
	DecisionDefer       Decision = "defer"
)

// Decisions lists every decision value.
var Decisions = []Decision{DecisionApprove, DecisionReject, DecisionConditional, DecisionDefer}

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionConditional, DecisionDefer:
		return true
	}

	return false
}

// Binding reports whether d settles the inspection outcome. A deferral
// returns the acceptance to pending and leaves it open for a later decision.
func (d Decision) Binding() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionConditional:
		return true
	case DecisionDefer:
		return false
	}

	return false
}

// AuditAction classifies an audit log entry.
type AuditAction string

// Audit actions.
const (
	ActionCreate       AuditAction = "create"
	ActionUpdate       AuditAction = "update"
	ActionStatusChange AuditAction = "status_change"
	ActionSubmit       AuditAction = "submit"
	ActionApprove      AuditAction = "approve"
	ActionReject       AuditAction = "reject"
	ActionDecide       AuditAction = "decide"
	ActionDelete       AuditAction = "delete"
	ActionRestore      AuditAction = "restore"
)

// Valid reports whether a is a known audit action.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionStatusChange, ActionSubmit,
		ActionApprove, ActionReject, ActionDecide, ActionDelete, ActionRestore:
		return true
	}

	return false
}

// Severity grades an audit log entry.
type Severity string

// Severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}

	return false
}
