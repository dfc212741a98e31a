package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/metrics"
)

// Metrics records request counts and latency per matched route. Unmatched
// paths are folded into one label to keep cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
