package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/models"
	dbconfig "fundcontrol/pkg/config"
)

// CreateAllocationRequest is the payload for committing capital to a deal
type CreateAllocationRequest struct {
	FundID uint            `json:"fund_id" binding:"required"`
	DealID uint            `json:"deal_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// MergeDuplicatesRequest names the (fund, deal) pair to merge
type MergeDuplicatesRequest struct {
	FundID uint `json:"fund_id" binding:"required"`
	DealID uint `json:"deal_id" binding:"required"`
}

// CreateAllocation commits capital from a fund to a deal
func CreateAllocation(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAllocationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		alloc, err := eng.CreateAllocation(req.FundID, req.DealID, req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, alloc)
	}
}

// GetAllocation returns one allocation with its fund and deal
func GetAllocation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var alloc models.Allocation
	if err := dbconfig.DB.Preload("Fund").Preload("Deal").First(&alloc, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Allocation not found"})
		return
	}
	c.JSON(http.StatusOK, alloc)
}

// ListAllocationCalls returns an allocation's capital calls
func ListAllocationCalls(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var calls []models.CapitalCall
	if err := dbconfig.DB.Where("allocation_id = ?", id).Order("created_at ASC").Find(&calls).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, calls)
}

// DeleteAllocation deletes a commitment with no capital calls
func DeleteAllocation(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
			return
		}

		if err := eng.DeleteAllocation(uint(id)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Allocation deleted"})
	}
}

// WriteOffAllocation sets the terminal written-off status
func WriteOffAllocation(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
			return
		}

		alloc, err := eng.WriteOff(uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alloc)
	}
}

// MergeDuplicateAllocations collapses duplicate (fund, deal) allocations
func MergeDuplicateAllocations(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MergeDuplicatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		alloc, err := eng.MergeDuplicates(req.FundID, req.DealID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alloc)
	}
}
