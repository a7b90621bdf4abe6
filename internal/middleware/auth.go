package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/models"
	"github.com/worktrail/worktrail/internal/security"
)

// authTimingFloor is the minimum response time for a rejected credential so
// valid and invalid keys cannot be told apart by latency.
const authTimingFloor = 50 * time.Millisecond

// PrincipalKey is the gin context key holding the authenticated *models.Principal.
const PrincipalKey = "principal"

// PrincipalLookup resolves an API key to the principal it belongs to.
type PrincipalLookup interface {
	LookupPrincipal(ctx context.Context, apiKey string) (*models.Principal, error)
}

// truncateKey returns at most the first 4 characters of key followed by "...".
func truncateKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}

	return key
}

func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// AuthMiddleware authenticates requests by Bearer API key and stores the
// resolved principal under PrincipalKey. A nil lockout disables failure
// tracking.
func AuthMiddleware(lookup PrincipalLookup, log *logrus.Logger, lockout *security.KeyLockout) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		principal, err := lookup.LookupPrincipal(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, models.ErrTransientIO) {
				log.WithError(err).Error("auth.lookup_unavailable")
				respondError(c, http.StatusServiceUnavailable, "unavailable", "authentication temporarily unavailable")

				return
			}

			logAuthFailure(log, c, apiKey)

			if lockout != nil {
				lockout.Fail(apiKey)
			}

			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid api key")

			return
		}

		if lockout != nil {
			lockout.Succeed(apiKey)
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, or nil when the request
// did not pass AuthMiddleware.
func PrincipalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil
	}

	p, _ := v.(*models.Principal)

	return p
}

// ExtractBearerToken extracts the API key from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimPrefix(header, "Bearer ")
}

func logAuthFailure(log *logrus.Logger, c *gin.Context, apiKey string) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"request_id": c.GetString(RequestIDKey),
		"key_prefix": truncateKey(apiKey),
	}).Warn("auth.invalid_key")
}
