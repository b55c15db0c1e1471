package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is echoed back to the caller for correlation
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
)

// WithRequestID assigns each request a UUID, honoring a caller-supplied
// X-Request-ID when present.
func WithRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestID returns the request's correlation ID, empty if unset
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
