package respond

import (
	"github.com/gin-gonic/gin"

	"copper-backend/internal/shared/server/flash"
	"copper-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body. Flashes carries any messages queued
// for the page being redisplayed.
type ErrorResponse struct {
	Error   ErrorBody       `json:"error"`
	Flashes []flash.Message `json:"flashes"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID, ok := c.Get("userId"); ok {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Flashes: flash.Pop(c),
	})
}
