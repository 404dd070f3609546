package routes

import (
	"github.com/gin-gonic/gin"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/handlers"
)

// SetupReconcileRoutes sets up repair-sweep routes
func SetupReconcileRoutes(r *gin.Engine, eng *engine.Engine) {
	v1 := r.Group("/reconcile")
	{
		v1.POST("", handlers.Reconcile(eng))
		v1.POST("/async", handlers.ReconcileAsync)
		v1.GET("/stream", handlers.ReconcileStream(eng))
	}

	v2 := r.Group("/repair-runs")
	{
		v2.GET("", handlers.ListRepairRuns)
		v2.GET("/:correlation_id/anomalies", handlers.ListRepairAnomalies)
	}
}
