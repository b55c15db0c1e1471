package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/config"
	"github.com/nextplace/prediction-engine/internal/logger"
)

// RateLimit returns a gin middleware limiting submission requests per caller
// IP, backed by the shared Redis store so the limit holds across instances.
// A limiter store failure fails open: ingestion availability wins over strict
// limiting.
func RateLimit(cfg config.RateLimitConfig, limiter adapter.RedisRateLimiter) gin.HandlerFunc {
	limit := redis_rate.PerMinute(cfg.RequestsPerMinute)

	return func(c *gin.Context) {
		if !cfg.Enabled || limiter == nil {
			c.Next()
			return
		}

		key := "ratelimit:submissions:" + c.ClientIP()
		result, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request",
				zap.Error(err),
				zap.String("client_ip", c.ClientIP()),
			)
			c.Next()
			return
		}

		if result.Allowed == 0 {
			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests",
				},
			})
			return
		}

		c.Next()
	}
}
