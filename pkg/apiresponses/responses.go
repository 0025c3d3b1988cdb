package apiresponses

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError represents a standardized error response.
// This ensures consistent error message formatting across all API endpoints.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondNotFound sends a 404 Not Found response.
// Use this when a requested resource does not exist.
func RespondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, APIError{
		Error: message,
		Code:  "NOT_FOUND",
	})
}

// RespondBadRequest sends a 400 Bad Request response.
// Use this for client errors like malformed JSON or invalid parameters.
func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

// RespondConflict sends a 409 Conflict response.
// Use this when the request conflicts with current state (e.g., a run
// already in progress).
func RespondConflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, APIError{
		Error: message,
		Code:  "CONFLICT",
	})
}

// RespondBadGateway sends a 502 Bad Gateway response.
// Use this when an upstream delivery channel failed.
func RespondBadGateway(c *gin.Context, message string) {
	if message == "" {
		message = "bad gateway"
	}
	c.JSON(http.StatusBadGateway, APIError{
		Error: message,
		Code:  "BAD_GATEWAY",
	})
}

// RespondInternalError sends a 500 Internal Server Error response.
// It logs the error with full details but returns a sanitized message to the client.
func RespondInternalError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw(fmt.Sprintf("Failed to %s", operation), "error", err)
	}
	c.JSON(http.StatusInternalServerError, APIError{
		Error: fmt.Sprintf("failed to %s", operation),
		Code:  "INTERNAL_ERROR",
	})
}

// RespondOK sends a 200 OK response with the given data.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}
