package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/models"
)

// maxBatchSize bounds POST /audit/batch.
const maxBatchSize = 500

// AuditHandler serves the audit log endpoints.
type AuditHandler struct {
	svc domain.AuditService
	log *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(svc domain.AuditService, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, log: log}
}

// Append handles POST /api/v1/audit.
func (h *AuditHandler) Append(c *gin.Context) {
	var req models.AuditAppendRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	id, err := h.svc.Append(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "audit.append")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// AppendBatch handles POST /api/v1/audit/batch. Entries succeed or fail
// independently; the response reports each by input index.
func (h *AuditHandler) AppendBatch(c *gin.Context) {
	var body struct {
		Entries []models.AuditAppendRequest `json:"entries"`
	}
	if !bindJSON(c, &body) {
		return
	}

	if len(body.Entries) > maxBatchSize {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "batch exceeds 500 entries")
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	results := h.svc.AppendBatch(c.Request.Context(), actor, body.Entries)

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "failed": failed})
}

// Query handles GET /api/v1/audit.
func (h *AuditHandler) Query(c *gin.Context) {
	p, ok := parseListParams(c)
	if !ok {
		return
	}

	q := models.AuditQuery{
		ProjectID:      p.ProjectID,
		EntityTypes:    queryList(c, "entity_type"),
		EntityID:       c.Query("entity_id"),
		Actions:        queryList(c, "action"),
		ActorID:        p.ActorID,
		Severities:     queryList(c, "severity"),
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		Search:         p.Search,
		OrderBy:        p.OrderBy,
		OrderDirection: p.OrderDirection,
		Limit:          p.Limit,
		Offset:         p.Offset,
	}

	c.JSON(http.StatusOK, h.svc.Query(c.Request.Context(), q))
}
