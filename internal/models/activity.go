package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RelatedEntity is a weak reference from an activity event to another entity.
type RelatedEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ActivityMetadata carries the display-oriented detail of an ActivityEvent.
type ActivityMetadata struct {
	EntityName      string          `json:"entity_name,omitempty"`
	ActorName       string          `json:"actor_name,omitempty"`
	Description     string          `json:"description,omitempty"`
	RelatedEntities []RelatedEntity `json:"related_entities,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
}

// ActorDescriptor is the lightweight actor profile joined onto history reads.
type ActorDescriptor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// ActivityEvent is an immutable, project-scoped timeline event.
type ActivityEvent struct {
	ID           int64            `json:"id"`
	ProjectID    uuid.UUID        `json:"project_id"`
	EntityType   string           `json:"entity_type"`
	EntityID     string           `json:"entity_id"`
	ActivityType string           `json:"activity_type"`
	Metadata     ActivityMetadata `json:"metadata"`
	OldValue     json.RawMessage  `json:"old_value,omitempty"`
	NewValue     json.RawMessage  `json:"new_value,omitempty"`
	ActorID      *uuid.UUID       `json:"actor_id,omitempty"`
	Actor        *ActorDescriptor `json:"actor,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ActivityLogRequest is the log_activity payload.
type ActivityLogRequest struct {
	ProjectID    uuid.UUID        `json:"project_id"`
	EntityType   string           `json:"entity_type"`
	EntityID     string           `json:"entity_id"`
	ActivityType string           `json:"activity_type"`
	Metadata     ActivityMetadata `json:"metadata"`
	OldValue     json.RawMessage  `json:"old_value,omitempty"`
	NewValue     json.RawMessage  `json:"new_value,omitempty"`
}

// Validate checks required fields.
func (r *ActivityLogRequest) Validate() error {
	if r.ProjectID == uuid.Nil {
		return ErrMissingField("project_id")
	}

	if r.EntityType == "" {
		return ErrMissingField("entity_type")
	}

	if r.EntityID == "" {
		return ErrMissingField("entity_id")
	}

	if r.ActivityType == "" {
		return ErrMissingField("activity_type")
	}

	if len(r.ActivityType) > 100 {
		return ErrFieldTooLong("activity_type", 100)
	}

	if len(r.Metadata.Tags) > 32 {
		return ErrFieldTooLong("metadata.tags", 32)
	}

	return nil
}

// TimelineGroup is one calendar day of activity, most recent first.
type TimelineGroup struct {
	Date   string          `json:"date"`
	Events []ActivityEvent `json:"events"`
}
