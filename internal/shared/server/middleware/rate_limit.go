package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/metrics"
	"dochub-backend/internal/shared/ratelimit"
	"dochub-backend/internal/shared/server/respond"
)

// Rate limit stages. Address limiting runs before authentication so that
// token guessing is throttled; principal limiting runs after it.
const (
	StageAddress   = "address"
	StagePrincipal = "principal"
)

// KeyFunc derives the rate-limit key for a request. An empty key skips the check.
type KeyFunc func(*gin.Context) string

// ByAddress keys requests on the client address.
func ByAddress(c *gin.Context) string {
	ip := strings.TrimSpace(c.ClientIP())
	if ip == "" {
		ip = "unknown"
	}
	return "addr:" + ip
}

// ByPrincipal keys requests on the authenticated user id.
func ByPrincipal(c *gin.Context) string {
	id := strings.TrimSpace(UserIDFromContext(c))
	if id == "" {
		return ""
	}
	return "user:" + id
}

// RateLimit charges each request against limiter under keyFn(c). Rejected
// requests get 429 with Retry-After; every checked response carries the
// X-RateLimit-* headers.
func RateLimit(limiter ratelimit.Limiter, keyFn KeyFunc, stage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		d := limiter.Check(key)
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		if d.Allowed {
			c.Next()
			return
		}

		retryAfterSeconds := int(math.Ceil(d.RetryAfter.Seconds()))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		metrics.IncRateLimited(stage)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", gin.H{
			"retry_after_ms": int(d.RetryAfter / time.Millisecond),
			"stage":          stage,
		})
	}
}
