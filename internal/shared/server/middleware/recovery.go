package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/server/respond"
	"dochub-backend/internal/shared/telemetry"
)

// Recovery turns panics into a 500 internal_error response. Panics caused by
// a vanished client are logged but not answered.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			clientGone := isClientGone(rec)
			telemetry.Error("request.panic", map[string]any{
				"request_id":  RequestIDFromContext(c),
				"method":      c.Request.Method,
				"route":       c.FullPath(),
				"user_id":     UserIDFromContext(c),
				"error":       rec,
				"client_gone": clientGone,
				"stack":       string(debug.Stack()),
			})
			if clientGone || c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
			c.Abort()
		}()
		c.Next()
	}
}

func isClientGone(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	if errors.Is(err, http.ErrAbortHandler) {
		return true
	}
	var opErr *net.OpError
	var sysErr *os.SyscallError
	if errors.As(err, &opErr) && errors.As(opErr, &sysErr) {
		msg := strings.ToLower(sysErr.Error())
		return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
	}
	return false
}
