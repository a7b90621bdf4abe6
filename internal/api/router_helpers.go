package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/middleware"
	"github.com/worktrail/worktrail/internal/models"
)

// maxPaginationOffset caps the offset accepted for paginated queries.
const maxPaginationOffset = 100000

// principal returns the authenticated principal, writing a 401 when absent.
func principal(c *gin.Context) *models.Principal {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return nil
	}

	return p
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}

	return id, true
}

// listParams holds the query parameters shared by every listing endpoint.
type listParams struct {
	ProjectID      *uuid.UUID
	ActorID        *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	Search         string
	OrderBy        string
	OrderDirection models.SortDirection
	Limit          int
	Offset         int
}

// parseListParams reads the common listing parameters, writing a 400 for a
// malformed id or timestamp. Out-of-range pagination is clamped.
func parseListParams(c *gin.Context) (listParams, bool) {
	var p listParams

	var ok bool

	if p.ProjectID, ok = queryUUID(c, "project_id"); !ok {
		return p, false
	}

	if p.ActorID, ok = queryUUID(c, "actor_id"); !ok {
		return p, false
	}

	if p.StartDate, ok = queryTime(c, "start_date"); !ok {
		return p, false
	}

	if p.EndDate, ok = queryTime(c, "end_date"); !ok {
		return p, false
	}

	p.Search = c.Query("search")
	p.OrderBy = c.Query("order_by")

	if strings.EqualFold(c.Query("order_direction"), string(models.SortAsc)) {
		p.OrderDirection = models.SortAsc
	} else {
		p.OrderDirection = models.SortDesc
	}

	p.Limit = parseLimit(c.Query("limit"))
	p.Offset = parseOffset(c.Query("offset"))

	return p, true
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, fmt.Sprintf("invalid %s", name))
		return nil, false
	}

	return &id, true
}

// queryTime accepts RFC 3339 timestamps or plain dates, read as UTC midnight.
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}

	respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, fmt.Sprintf("invalid %s, use RFC3339 or YYYY-MM-DD", name))

	return nil, false
}

// queryList reads a repeated or comma-separated query parameter.
func queryList(c *gin.Context, name string) []string {
	var out []string

	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

func parseLimit(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return models.DefaultPageSize
	}

	if v > models.MaxPageSize {
		return models.MaxPageSize
	}

	return v
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	if v > maxPaginationOffset {
		return maxPaginationOffset
	}

	return v
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}

		if rid := c.GetString(middleware.RequestIDKey); rid != "" {
			fields["request_id"] = rid
		}

		if p := middleware.PrincipalFrom(c); p != nil {
			fields["principal_id"] = p.ID
		}

		log.WithFields(fields).Info("http.request")
	}
}
