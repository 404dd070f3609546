package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fundcontrol/internal/models"
	dbconfig "fundcontrol/pkg/config"
)

// CreateDealRequest is the payload for creating a deal
type CreateDealRequest struct {
	Name   string `json:"name" binding:"required"`
	Sector string `json:"sector"`
}

// CreateDeal creates a deal
func CreateDeal(c *gin.Context) {
	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal := models.Deal{
		Name:   req.Name,
		Sector: req.Sector,
	}
	if err := dbconfig.DB.Create(&deal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, deal)
}

// ListDeals returns all deals
func ListDeals(c *gin.Context) {
	var deals []models.Deal
	if err := dbconfig.DB.Find(&deals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, deals)
}

// GetDeal returns one deal
func GetDeal(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var deal models.Deal
	if err := dbconfig.DB.First(&deal, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
		return
	}
	c.JSON(http.StatusOK, deal)
}
