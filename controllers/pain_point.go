package controllers

import (
	"log"
	"net/http"
	"strconv"

	"vvg-world-api/config"
	"vvg-world-api/models"
	"vvg-world-api/services"
	"vvg-world-api/utils"

	"github.com/gin-gonic/gin"
)

var routingEngine *services.RoutingEngine

// InitRoutingEngine installs the engine used by the submission and admin
// handlers. Called once from route setup; tests install their own.
func InitRoutingEngine(engine *services.RoutingEngine) {
	routingEngine = engine
}

func getRoutingEngine() *services.RoutingEngine {
	if routingEngine == nil {
		routingEngine = services.NewRoutingEngine(config.DB, nil, nil)
	}
	return routingEngine
}

type CreatePainPointRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Department  *string `json:"department"`
	Location    *string `json:"location"`
}

// CreatePainPoint stores a new submission and runs one synchronous routing
// pass over it. Routing is a side effect of submission: its failures are
// logged and reported in the routing summary but never fail the request.
func CreatePainPoint(c *gin.Context) {
	var req CreatePainPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submittedBy := "anonymous"
	if email, ok := c.Get("email"); ok {
		submittedBy = email.(string)
	}

	painPoint := models.PainPoint{
		Title:       utils.SanitizeInput(req.Title),
		Description: utils.SanitizeInput(req.Description),
		Category:    utils.SanitizeInput(req.Category),
		SubmittedBy: submittedBy,
		Department:  req.Department,
		Location:    req.Location,
		Status:      "submitted",
	}

	if err := config.DB.Create(&painPoint).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pain point"})
		return
	}

	result := getRoutingEngine().ExecuteRouting(&painPoint)
	if !result.Success {
		log.Printf("Routing failed for pain point %d (pass %s)", painPoint.PainPointID, result.PassID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"pain_point": painPoint,
		"routing":    result,
	})
}

// GetPainPoints lists submissions with optional filters
func GetPainPoints(c *gin.Context) {
	var painPoints []models.PainPoint
	query := config.DB.Model(&models.PainPoint{})

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department = ?", department)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Order("created_at DESC").Find(&painPoints).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pain points"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pain_points": painPoints, "total": len(painPoints)})
}

// GetPainPoint returns one submission by id
func GetPainPoint(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pain point ID"})
		return
	}

	var painPoint models.PainPoint
	if err := config.DB.First(&painPoint, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pain point not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pain_point": painPoint})
}
