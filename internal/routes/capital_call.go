package routes

import (
	"github.com/gin-gonic/gin"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/handlers"
)

// SetupCapitalCallRoutes sets up capital-call-related routes
func SetupCapitalCallRoutes(r *gin.Engine, eng *engine.Engine) {
	v1 := r.Group("/capital-calls")
	{
		v1.POST("", handlers.CreateCapitalCall(eng))
		v1.GET("/:id", handlers.GetCapitalCall)
		v1.POST("/:id/payments", handlers.RecordPayment(eng))
		v1.POST("/:id/cancel", handlers.CancelCapitalCall(eng))
		v1.POST("/:id/default", handlers.MarkCallDefaulted(eng))
	}
}
