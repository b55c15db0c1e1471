package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/nextplace/prediction-engine/internal/api/middleware"
	"github.com/nextplace/prediction-engine/internal/config"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg config.AuthConfig, rateLimit gin.HandlerFunc) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Submission endpoints (validator IP allow-list inside the gate,
		// rate limited per caller IP)
		v1.POST("/predictions", rateLimit, handler.SubmitPredictions)
		v1.POST("/scores", rateLimit, handler.SubmitScores)

		// Property endpoints (public read access)
		v1.GET("/properties", handler.SearchProperties)
		v1.GET("/properties/:nextplace_id", handler.GetProperty)
		v1.GET("/properties/:nextplace_id/predictions", handler.GetPropertyPredictions)

		// Miner endpoints (public read access)
		v1.GET("/miners/:hot_key/scores", handler.GetMinerScores)

		// On-demand aggregation (requires operator authentication)
		v1.POST("/properties/:nextplace_id/stats/refresh", middleware.Auth(authCfg), handler.RefreshPropertyStats)
	}
}
