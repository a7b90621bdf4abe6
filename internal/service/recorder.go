package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/lifecycle"
	"github.com/worktrail/worktrail/internal/metrics"
	"github.com/worktrail/worktrail/internal/models"
)

// AuditAppender appends audit entries.
type AuditAppender interface {
	Append(ctx context.Context, e *models.AuditLogEntry) (int64, error)
}

// ActivityLogger appends activity events.
type ActivityLogger interface {
	Log(ctx context.Context, req *models.ActivityLogRequest, actorID *uuid.UUID) (int64, error)
}

// subject identifies the work item a history record describes.
type subject struct {
	kind      models.Kind
	id        uuid.UUID
	name      string
	projectID uuid.UUID
}

// historyRecord is the audit and activity content for one mutation.
type historyRecord struct {
	action       models.AuditAction
	activityType string
	severity     models.Severity
	description  string
	oldValue     json.RawMessage
	newValue     json.RawMessage
	tags         []string
}

func fromEffects(fx lifecycle.Effects) historyRecord {
	return historyRecord{
		action:       fx.AuditAction,
		activityType: fx.ActivityType,
		severity:     fx.Severity,
		description:  fx.Description,
		oldValue:     fx.OldValue,
		newValue:     fx.NewValue,
	}
}

// historyRecorder writes the audit entry and activity event that follow a
// stored mutation. The two appends are independent of each other and of the
// entity update: a failure is logged and counted, never returned.
type historyRecorder struct {
	audit    AuditAppender
	activity ActivityLogger
	log      *logrus.Logger
}

func (r *historyRecorder) record(ctx context.Context, actor *models.Principal, subj subject, rec historyRecord) {
	// The entity is already committed; a client disconnect must not skip its history.
	ctx = context.WithoutCancel(ctx)

	fields := logrus.Fields{
		"kind":      subj.kind,
		"entity_id": subj.id,
		"action":    rec.action,
	}

	projectID := subj.projectID
	entry := models.AuditLogEntry{
		EntityType: string(subj.kind),
		EntityID:   subj.id.String(),
		Action:     rec.action,
		EntityName: subj.name,
		ProjectID:  &projectID,
		OldValue:   rec.oldValue,
		NewValue:   rec.newValue,
		Severity:   rec.severity,
	}

	var actorID *uuid.UUID

	meta := models.ActivityMetadata{
		EntityName:  subj.name,
		Description: rec.description,
		Tags:        rec.tags,
	}

	if actor != nil {
		id, name := actor.ID, actor.Name
		entry.ActorID, entry.ActorName = &id, &name
		actorID = &id
		meta.ActorName = name
	}

	if _, err := r.audit.Append(ctx, &entry); err != nil {
		metrics.LogAppendFailures.WithLabelValues("audit").Inc()
		r.log.WithError(err).WithFields(fields).Warn("history.audit_append_failed")
	}

	if rec.activityType == "" {
		return
	}

	req := models.ActivityLogRequest{
		ProjectID:    subj.projectID,
		EntityType:   string(subj.kind),
		EntityID:     subj.id.String(),
		ActivityType: rec.activityType,
		Metadata:     meta,
		OldValue:     rec.oldValue,
		NewValue:     rec.newValue,
	}

	if _, err := r.activity.Log(ctx, &req, actorID); err != nil {
		metrics.LogAppendFailures.WithLabelValues("activity").Inc()
		r.log.WithError(err).WithFields(fields).Warn("history.activity_append_failed")
	}
}

// recordActivity logs an activity event with no accompanying audit entry.
func (r *historyRecorder) recordActivity(ctx context.Context, actor *models.Principal, subj subject, activityType, description string) {
	ctx = context.WithoutCancel(ctx)

	req := models.ActivityLogRequest{
		ProjectID:    subj.projectID,
		EntityType:   string(subj.kind),
		EntityID:     subj.id.String(),
		ActivityType: activityType,
		Metadata:     models.ActivityMetadata{EntityName: subj.name, Description: description},
	}

	var actorID *uuid.UUID

	if actor != nil {
		id := actor.ID
		actorID = &id
		req.Metadata.ActorName = actor.Name
	}

	if _, err := r.activity.Log(ctx, &req, actorID); err != nil {
		metrics.LogAppendFailures.WithLabelValues("activity").Inc()
		r.log.WithError(err).WithFields(logrus.Fields{
			"kind":          subj.kind,
			"entity_id":     subj.id,
			"activity_type": activityType,
		}).Warn("history.activity_append_failed")
	}
}
