package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/models"
	dbconfig "fundcontrol/pkg/config"
)

// ReconcileRequest selects the sweep scope: "all" or an allocation id.
type ReconcileRequest struct {
	Scope string `json:"scope" binding:"required"`
}

// Reconcile runs the repair sweep synchronously and returns the report
func Reconcile(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReconcileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		report, err := eng.Reconcile(req.Scope, "", nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// ReconcileAsync enqueues a sweep for the worker and returns the correlation
// id the caller can match the report queue against.
func ReconcileAsync(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	publisher, err := dbconfig.NewPublisher()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer publisher.Close()

	msg := engine.ReconcileRequest{
		Scope:         req.Scope,
		CorrelationID: uuid.NewString(),
	}
	if err := publisher.Publish(engine.ReconcileRequestQueue, msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

// ListRepairRuns returns past sweep executions, newest first
func ListRepairRuns(c *gin.Context) {
	var runs []models.RepairRun
	if err := dbconfig.DB.Order("created_at DESC").Limit(100).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// ListRepairAnomalies returns the anomalies flagged by one run
func ListRepairAnomalies(c *gin.Context) {
	correlationID := c.Param("correlation_id")

	var anomalies []models.RepairAnomaly
	if err := dbconfig.DB.Where("correlation_id = ?", correlationID).Find(&anomalies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, anomalies)
}
