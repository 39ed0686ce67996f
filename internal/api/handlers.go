package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tastevine/backend/internal/service"
)

// HealthCheck returns the health status of the API
func HealthCheck(store service.RecipeSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"status":  "healthy",
			"message": "Tastevine API is running",
			"version": "v1.0.0",
		}
		if store != nil {
			if n, err := store.Count(c.Request.Context()); err == nil {
				resp["recipes"] = n
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, assistant service.Responder, store service.RecipeSearcher, embedder service.QueryEmbedder) {
	// Health check endpoints
	router.GET("/health", HealthCheck(store))
	router.GET("/api/health", HealthCheck(store))

	api := router.Group("/api")
	NewChatHandler(assistant).RegisterRoutes(api)
	NewRecipeHandler(store, embedder).RegisterRoutes(api)
}
