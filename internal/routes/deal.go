package routes

import (
	"github.com/gin-gonic/gin"

	"fundcontrol/internal/handlers"
)

// SetupDealRoutes sets up deal-related routes
func SetupDealRoutes(r *gin.Engine) {
	v1 := r.Group("/deals")
	{
		v1.POST("", handlers.CreateDeal)
		v1.GET("", handlers.ListDeals)
		v1.GET("/:id", handlers.GetDeal)
	}
}
