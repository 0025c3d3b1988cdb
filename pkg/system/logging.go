package system

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReqLoggerKey is the context key used to store request-scoped logger in gin context.
const ReqLoggerKey = "reqLogger"

// RequestLogger returns a middleware that attaches a request-scoped sugared
// logger to the gin context. Every request gets a generated request id so
// log lines from one request can be correlated.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLogger := log.With(
			"requestID", uuid.NewString(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.Set(ReqLoggerKey, reqLogger)
		c.Next()
	}
}

// GetReqLogger returns the request-scoped sugared logger from gin.Context if present,
// otherwise returns a fallback sugared logger derived from the provided zap.Logger.
func GetReqLogger(c *gin.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return fallback
	}
	if v, ok := c.Get(ReqLoggerKey); ok {
		if l, ok2 := v.(*zap.SugaredLogger); ok2 {
			return l
		}
	}
	return fallback
}
