// Package api provides the HTTP handlers and router of the worktrail service.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	db            HealthChecker
	applied       SchemaVersioner
	schemaVersion int64
	subs          SubscriberCounter
	log           *logrus.Logger
	version       string
	startTime     time.Time
}

// NewHealthHandler creates a HealthHandler. applied and subs may be nil.
func NewHealthHandler(
	db HealthChecker, applied SchemaVersioner, schemaVersion int,
	subs SubscriberCounter, log *logrus.Logger, version string,
) *HealthHandler {
	return &HealthHandler{
		db:            db,
		applied:       applied,
		schemaVersion: int64(schemaVersion),
		subs:          subs,
		log:           log,
		version:       version,
		startTime:     time.Now(),
	}
}

type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Subscribers   int     `json:"realtime_subscribers"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Liveness handles GET /api/v1/health. It always answers 200; the database
// field is informational.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.db == nil {
		resp.Database = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	}

	if h.subs != nil {
		resp.Subscribers = h.subs.SubscriberCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. The service is ready when the
// database answers and every embedded migration has been applied.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{"database": "ok", "schema": "ok"}
	ready := true

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.db == nil {
		checks["database"], checks["schema"] = "not_configured", "unknown"
		ready = false
	} else if err := h.db.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness.database_failed")
		checks["database"], checks["schema"] = "error", "unknown"
		ready = false
	} else if h.applied != nil {
		v, err := h.applied(ctx)

		switch {
		case err != nil:
			h.log.WithError(err).Error("readiness.schema_failed")
			checks["schema"] = "error"
			ready = false
		case v < h.schemaVersion:
			checks["schema"] = "behind: " + strconv.FormatInt(v, 10) + "/" + strconv.FormatInt(h.schemaVersion, 10)
			ready = false
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, readinessResponse{Status: status, Checks: checks})
}
