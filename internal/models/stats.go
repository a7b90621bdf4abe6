package models

import (
	"time"

	"github.com/google/uuid"
)

// StatsSource selects which append-only log an aggregation reads.
type StatsSource string

// Aggregation sources.
const (
	StatsAudit    StatsSource = "audit"
	StatsActivity StatsSource = "activity"
)

// StatsFilter scopes an aggregation.
type StatsFilter struct {
	ProjectID   *uuid.UUID
	EntityTypes []string
	ActorID     *uuid.UUID
}

// Window is the half-open time range [Start, End) an aggregation covers.
// A zero Start or End leaves that side unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns a window covering the days before now.
func LastDays(now time.Time, days int) Window {
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

// StatRecord is the projection of one log row the reducer consumes.
// Action holds the audit action or the activity type.
type StatRecord struct {
	Action     string
	EntityType string
	Severity   string
	ActorID    *uuid.UUID
	ActorName  string
	CreatedAt  time.Time
}

// ActorCount is one entry of the top-actors ranking.
type ActorCount struct {
	ActorID uuid.UUID `json:"actor_id"`
	Name    string    `json:"name,omitempty"`
	Count   int       `json:"count"`
}

// Stats is the reduced summary of a window of log records. Truncated is set
// when the row cap was reached and the counts cover only the newest rows.
type Stats struct {
	Total        int            `json:"total"`
	ByAction     map[string]int `json:"by_action"`
	ByEntityType map[string]int `json:"by_entity_type"`
	BySeverity   map[string]int `json:"by_severity"`
	ByDate       map[string]int `json:"by_date"`
	TopActors    []ActorCount   `json:"top_actors"`
	Truncated    bool           `json:"truncated,omitempty"`
}

// EmptyStats returns zero counts with non-nil collections.
func EmptyStats() Stats {
	return Stats{
		ByAction:     map[string]int{},
		ByEntityType: map[string]int{},
		BySeverity:   map[string]int{},
		ByDate:       map[string]int{},
		TopActors:    []ActorCount{},
	}
}
