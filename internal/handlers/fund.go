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

// CreateFundRequest is the payload for creating a fund
type CreateFundRequest struct {
	Name       string          `json:"name" binding:"required"`
	TargetSize decimal.Decimal `json:"target_size"`
	Vintage    int             `json:"vintage"`
}

// CreateFund creates a fund
func CreateFund(c *gin.Context) {
	var req CreateFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fund := models.Fund{
		Name:       req.Name,
		TargetSize: req.TargetSize,
		Vintage:    req.Vintage,
	}
	if err := dbconfig.DB.Create(&fund).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, fund)
}

// ListFunds returns all funds
func ListFunds(c *gin.Context) {
	var funds []models.Fund
	if err := dbconfig.DB.Find(&funds).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, funds)
}

// GetFund returns one fund with its cached aggregates
func GetFund(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var fund models.Fund
	if err := dbconfig.DB.First(&fund, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fund not found"})
		return
	}
	c.JSON(http.StatusOK, fund)
}

// GetFundMetrics computes the live rollup for one fund
func GetFundMetrics(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
			return
		}

		metrics, err := eng.FundMetrics(uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metrics)
	}
}
