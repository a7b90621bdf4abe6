package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/metrics"
	"github.com/worktrail/worktrail/internal/models"
)

// AuditJob is a single audit entry to be recorded off the request path.
type AuditJob struct {
	Entry models.AuditLogEntry
}

// AuditEnqueuer accepts fire-and-forget audit jobs.
type AuditEnqueuer interface {
	Enqueue(job *AuditJob)
}

// AuditWorker buffers audit entries and writes them via a single worker goroutine.
type AuditWorker struct {
	appender AuditAppender
	log      *logrus.Logger
	jobs     chan *AuditJob
}

// NewAuditWorker creates an AuditWorker with the given queue capacity.
func NewAuditWorker(appender AuditAppender, log *logrus.Logger, queueSize int) *AuditWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &AuditWorker{
		appender: appender,
		log:      log,
		jobs:     make(chan *AuditJob, queueSize),
	}
}

// Enqueue adds an audit job. Non-blocking; drops the job if the queue is full.
func (w *AuditWorker) Enqueue(job *AuditJob) {
	select {
	case w.jobs <- job:
		metrics.AuditQueueDepth.Set(float64(len(w.jobs)))
	default:
		metrics.LogAppendFailures.WithLabelValues("audit").Inc()
		w.log.WithFields(logrus.Fields{
			"action":    job.Entry.Action,
			"entity_id": job.Entry.EntityID,
		}).Warn("audit queue full, dropping entry")
	}
}

// Run processes audit jobs until the context is cancelled, then drains remaining jobs.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case job := <-w.jobs:
			w.process(job)
		}
	}
}

func (w *AuditWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		default:
			return
		}
	}
}

func (w *AuditWorker) process(job *AuditJob) {
	metrics.AuditQueueDepth.Set(float64(len(w.jobs)))

	if _, err := w.appender.Append(context.Background(), &job.Entry); err != nil {
		metrics.LogAppendFailures.WithLabelValues("audit").Inc()
		w.log.WithError(err).WithField("action", job.Entry.Action).Warn("audit record failed")
	}
}

// auditAsync enqueues an audit entry for a work item, stamped with actor.
func auditAsync(w AuditEnqueuer, actor *models.Principal, subj subject, action models.AuditAction, severity models.Severity) {
	if w == nil {
		return
	}

	projectID := subj.projectID
	entry := models.AuditLogEntry{
		EntityType: string(subj.kind),
		EntityID:   subj.id.String(),
		Action:     action,
		EntityName: subj.name,
		ProjectID:  &projectID,
		Severity:   severity,
	}

	if actor != nil {
		id, name := actor.ID, actor.Name
		entry.ActorID, entry.ActorName = &id, &name
	}

	w.Enqueue(&AuditJob{Entry: entry})
}
