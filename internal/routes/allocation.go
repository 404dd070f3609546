package routes

import (
	"github.com/gin-gonic/gin"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/handlers"
)

// SetupAllocationRoutes sets up allocation-related routes
func SetupAllocationRoutes(r *gin.Engine, eng *engine.Engine) {
	v1 := r.Group("/allocations")
	{
		v1.POST("", handlers.CreateAllocation(eng))
		v1.GET("/:id", handlers.GetAllocation)
		v1.GET("/:id/capital-calls", handlers.ListAllocationCalls)
		v1.DELETE("/:id", handlers.DeleteAllocation(eng))
		v1.POST("/:id/write-off", handlers.WriteOffAllocation(eng))
		v1.POST("/merge", handlers.MergeDuplicateAllocations(eng))
	}
}
