package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/worktrail/worktrail/internal/metrics"
)

// PrometheusMiddleware records HTTP request duration and count, labelled by
// route pattern so path parameters do not explode cardinality.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
