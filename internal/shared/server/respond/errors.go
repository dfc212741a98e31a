package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/telemetry"
)

// ErrorCodeKey holds the code of the error response, for request logging.
const ErrorCodeKey = "errorCode"

// ErrorBody is the object under "error" in every failure response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends {"error":{code,message,details}} and aborts the chain.
func Error(c *gin.Context, status int, code, message string, details any) {
	c.Set(ErrorCodeKey, code)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Internal logs err under op and sends a generic 500. The cause never
// reaches the client.
func Internal(c *gin.Context, op string, err error) {
	fields := map[string]any{
		"op":         op,
		"error":      err,
		"method":     c.Request.Method,
		"route":      c.FullPath(),
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.internal", fields)
	Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
}
