// Package lifecycle holds the per-kind transition graphs and the engine that
// applies a status move to a work item.
//
// Nothing here touches storage. Callers load the item, ask the Engine for
// the updated copy and its Effects, then persist both.
package lifecycle

import "github.com/worktrail/worktrail/internal/models"

var problemGraph = map[models.ProblemStatus][]models.ProblemStatus{
	models.ProblemOpen:       {models.ProblemInProgress, models.ProblemCancelled},
	models.ProblemInProgress: {models.ProblemResolved, models.ProblemCancelled},
	models.ProblemResolved:   {models.ProblemClosed, models.ProblemInProgress, models.ProblemCancelled},
	models.ProblemClosed:     nil,
	models.ProblemCancelled:  nil,
}

// rejected -> draft lets the author rework and resubmit a rejected entry.
var diaryGraph = map[models.DiaryStatus][]models.DiaryStatus{
	models.DiaryDraft:     {models.DiarySubmitted},
	models.DiarySubmitted: {models.DiaryApproved, models.DiaryRejected},
	models.DiaryApproved:  nil,
	models.DiaryRejected:  {models.DiaryDraft},
}

// Outcome edges out of in_progress are only taken through a Decision.
var acceptanceGraph = map[models.AcceptanceStatus][]models.AcceptanceStatus{
	models.AcceptancePending: {models.AcceptanceInProgress},
	models.AcceptanceInProgress: {
		models.AcceptancePassed, models.AcceptanceFailed,
		models.AcceptanceConditionallyPassed, models.AcceptancePending,
	},
	models.AcceptancePassed:              nil,
	models.AcceptanceFailed:              nil,
	models.AcceptanceConditionallyPassed: nil,
}

// Validate reports whether kind may move from one status to another.
// Unknown kinds and statuses are never valid.
func Validate(kind models.Kind, from, to string) bool {
	for _, s := range Allowed(kind, from) {
		if s == to {
			return true
		}
	}

	return false
}

// Allowed returns the statuses reachable in one step from the given status.
func Allowed(kind models.Kind, from string) []string {
	switch kind {
	case models.KindProblem:
		return toStrings(problemGraph[models.ProblemStatus(from)])
	case models.KindDiary:
		return toStrings(diaryGraph[models.DiaryStatus(from)])
	case models.KindAcceptance:
		return toStrings(acceptanceGraph[models.AcceptanceStatus(from)])
	}

	return nil
}

// Statuses lists every status defined for kind.
func Statuses(kind models.Kind) []string {
	var out []string

	switch kind {
	case models.KindProblem:
		for s := range problemGraph {
			out = append(out, string(s))
		}
	case models.KindDiary:
		for s := range diaryGraph {
			out = append(out, string(s))
		}
	case models.KindAcceptance:
		for s := range acceptanceGraph {
			out = append(out, string(s))
		}
	}

	return out
}

func toStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}

	return out
}
