package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/models"
)

const (
	defaultStatsDays = 30
	maxStatsDays     = 366
)

// StatsHandler serves the audit and activity aggregation endpoints.
type StatsHandler struct {
	svc domain.StatsService
	log *logrus.Logger
	now func() time.Time
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(svc domain.StatsService, log *logrus.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, log: log, now: time.Now}
}

// Audit handles GET /api/v1/stats/audit.
func (h *StatsHandler) Audit(c *gin.Context) {
	h.aggregate(c, models.StatsAudit)
}

// Activity handles GET /api/v1/stats/activity.
func (h *StatsHandler) Activity(c *gin.Context) {
	h.aggregate(c, models.StatsActivity)
}

// aggregate reads the filter and window. An explicit start_date/end_date
// wins over days, which counts back from now.
func (h *StatsHandler) aggregate(c *gin.Context, source models.StatsSource) {
	p, ok := parseListParams(c)
	if !ok {
		return
	}

	days := defaultStatsDays
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxStatsDays {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "days must be between 1 and 366")
			return
		}

		days = v
	}

	w := models.LastDays(h.now(), days)
	if p.StartDate != nil || p.EndDate != nil {
		w = models.Window{}

		if p.StartDate != nil {
			w.Start = *p.StartDate
		}

		if p.EndDate != nil {
			w.End = *p.EndDate
		}
	}

	f := models.StatsFilter{
		ProjectID:   p.ProjectID,
		EntityTypes: queryList(c, "entity_type"),
		ActorID:     p.ActorID,
	}

	c.JSON(http.StatusOK, h.svc.Aggregate(c.Request.Context(), source, f, w))
}
