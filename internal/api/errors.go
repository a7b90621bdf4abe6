package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/httputil"
	"github.com/worktrail/worktrail/internal/lifecycle"
	"github.com/worktrail/worktrail/internal/metrics"
	"github.com/worktrail/worktrail/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeValidationError   = "validation_error"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeVersionConflict   = "version_conflict"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeUnavailable       = "unavailable"
	ErrCodeInternalError     = "internal_error"
)

// respondError writes a standardized JSON error response.
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a service error onto the HTTP taxonomy. Anything
// unrecognised is logged and reported as a 500 without detail.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, op string) {
	var te *models.TransitionError

	switch {
	case errors.As(err, &te):
		metrics.ErrorsTotal.WithLabelValues(ErrCodeInvalidTransition).Inc()
		httputil.RespondErrorDetails(c, http.StatusConflict, ErrCodeInvalidTransition, te.Error(), gin.H{
			"from":    te.From,
			"to":      te.To,
			"allowed": lifecycle.Allowed(te.Kind, te.From),
		})
	case errors.Is(err, models.ErrInvalidTransition):
		respondError(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, models.ErrVersionConflict):
		respondError(c, http.StatusConflict, ErrCodeVersionConflict, "record was modified concurrently")
	case errors.Is(err, models.ErrNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, models.ErrValidation):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, models.ErrNoPrincipal):
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	case errors.Is(err, models.ErrTransientIO):
		log.WithError(err).WithField("op", op).Warn("api.unavailable")
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "service temporarily unavailable")
	default:
		log.WithError(err).WithField("op", op).Error("api.internal_error")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
