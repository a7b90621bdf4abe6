package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/models"
)

// ActivityHandler serves the activity timeline endpoints.
type ActivityHandler struct {
	svc domain.ActivityService
	log *logrus.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(svc domain.ActivityService, log *logrus.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, log: log}
}

// Log handles POST /api/v1/activity.
func (h *ActivityHandler) Log(c *gin.Context) {
	var req models.ActivityLogRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	id, err := h.svc.Log(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "activity.log")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func parseActivityQuery(c *gin.Context) (models.ActivityQuery, bool) {
	p, ok := parseListParams(c)
	if !ok {
		return models.ActivityQuery{}, false
	}

	return models.ActivityQuery{
		ProjectID:      p.ProjectID,
		EntityTypes:    queryList(c, "entity_type"),
		EntityID:       c.Query("entity_id"),
		ActivityTypes:  queryList(c, "activity_type"),
		ActorID:        p.ActorID,
		Tags:           queryList(c, "tag"),
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		Search:         p.Search,
		OrderBy:        p.OrderBy,
		OrderDirection: p.OrderDirection,
		Limit:          p.Limit,
		Offset:         p.Offset,
	}, true
}

// Query handles GET /api/v1/activity.
func (h *ActivityHandler) Query(c *gin.Context) {
	q, ok := parseActivityQuery(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.svc.GetByProject(c.Request.Context(), q))
}

// EntityHistory handles GET /api/v1/activity/entity/:type/:id.
func (h *ActivityHandler) EntityHistory(c *gin.Context) {
	entityType, entityID := c.Param("type"), c.Param("id")
	if len(entityType) > 100 || len(entityID) > 255 {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "entity reference too long")
		return
	}

	page := h.svc.GetEntityHistory(c.Request.Context(), entityType, entityID,
		parseLimit(c.Query("limit")), parseOffset(c.Query("offset")))

	c.JSON(http.StatusOK, page)
}

// ActorHistory handles GET /api/v1/activity/actor/:id.
func (h *ActivityHandler) ActorHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	page := h.svc.GetActorHistory(c.Request.Context(), id,
		parseLimit(c.Query("limit")), parseOffset(c.Query("offset")))

	c.JSON(http.StatusOK, page)
}

// Timeline handles GET /api/v1/activity/timeline.
func (h *ActivityHandler) Timeline(c *gin.Context) {
	q, ok := parseActivityQuery(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": h.svc.Timeline(c.Request.Context(), q)})
}
