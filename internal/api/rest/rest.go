package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/pharmatrace/pt-indexer/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Batch projection endpoints (public read access)
		v1.GET("/batches", handler.ListBatches)
		v1.GET("/batches/search", handler.SearchBatches)
		v1.GET("/batches/:batch_id", handler.GetBatch)

		// Lineage endpoints (public read access)
		v1.GET("/batches/:batch_id/trace", handler.GetTrace)
		v1.GET("/batches/:batch_id/lineage", handler.GetLineage)
		v1.GET("/batches/:batch_id/distribution", handler.GetDistribution)
		v1.GET("/batches/:batch_id/alerts", handler.GetBatchAlerts)

		// Audit trail (public read access)
		v1.GET("/events", handler.ListEvents)

		// Dead-letter review (requires authentication)
		v1.GET("/deadletters", middleware.Auth(authCfg), handler.ListDeadLetters)

		// Forced synchronous processing of one transaction (requires authentication)
		v1.POST("/transactions/:tx_hash/process", middleware.Auth(authCfg), handler.ProcessTransaction)
	}
}
