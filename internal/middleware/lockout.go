package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/worktrail/worktrail/internal/security"
)

// LockoutMiddleware rejects requests whose API key is locked out after
// repeated authentication failures.
func LockoutMiddleware(lockout *security.KeyLockout) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := ExtractBearerToken(c)
		if apiKey != "" && lockout.Blocked(apiKey) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")
			return
		}

		c.Next()
	}
}
