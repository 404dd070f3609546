package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/models"
	dbconfig "fundcontrol/pkg/config"
)

// CreateCapitalCallRequest is the payload for issuing a capital call. Amount
// is either dollars or a percentage of the commitment, per amount_type.
type CreateCapitalCallRequest struct {
	AllocationID uint              `json:"allocation_id" binding:"required"`
	Amount       decimal.Decimal   `json:"amount" binding:"required"`
	AmountType   models.AmountType `json:"amount_type" binding:"required"`
	DueDate      *time.Time        `json:"due_date"`
}

// RecordPaymentRequest is the payload for crediting money against a call
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// CreateCapitalCall issues a call against a commitment
func CreateCapitalCall(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCapitalCallRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		call, err := eng.CreateCapitalCall(req.AllocationID, req.Amount, req.AmountType, req.DueDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, call)
	}
}

// GetCapitalCall returns one capital call with its payment ledger
func GetCapitalCall(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var call models.CapitalCall
	if err := dbconfig.DB.First(&call, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Capital call not found"})
		return
	}

	var payments []models.Payment
	if err := dbconfig.DB.Where("capital_call_id = ?", id).Order("created_at ASC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"capital_call": call, "payments": payments})
}

// RecordPayment credits a payment against a capital call
func RecordPayment(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
			return
		}

		var req RecordPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		call, err := eng.RecordPayment(uint(id), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, call)
	}
}

// CancelCapitalCall cancels a call with no payments
func CancelCapitalCall(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
			return
		}

		if err := eng.CancelCapitalCall(uint(id)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Capital call cancelled"})
	}
}

// MarkCallDefaulted sets the administrative defaulted sub-status
func MarkCallDefaulted(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
			return
		}

		call, err := eng.MarkCallDefaulted(uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, call)
	}
}
