package routes

import (
	"github.com/gin-gonic/gin"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/handlers"
)

// SetupFundRoutes sets up fund-related routes
func SetupFundRoutes(r *gin.Engine, eng *engine.Engine) {
	v1 := r.Group("/funds")
	{
		v1.POST("", handlers.CreateFund)
		v1.GET("", handlers.ListFunds)
		v1.GET("/:id", handlers.GetFund)
		v1.GET("/:id/metrics", handlers.GetFundMetrics(eng))
	}
}
