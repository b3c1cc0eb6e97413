package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"vvg-world-api/config"
	"vvg-world-api/models"
	"vvg-world-api/utils"

	"github.com/gin-gonic/gin"
)

type RoutingRuleRequest struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description"`
	Categories   []string `json:"category" binding:"required,min=1"`
	Departments  []string `json:"department" binding:"required,min=1"`
	Stakeholders []string `json:"stakeholders"`
	Priority     string   `json:"priority"`
	AutoRoute    *bool    `json:"auto_route"`
	IsActive     *bool    `json:"is_active"`
}

func (r *RoutingRuleRequest) validate() (string, bool) {
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(r.Priority) {
		return "Priority must be one of low, medium, high, critical", false
	}
	if bad, ok := utils.ValidateEmails(r.Stakeholders); !ok {
		return "Invalid stakeholder email: " + bad, false
	}
	return "", true
}

// GetRoutingRules lists all rules, active first, newest first within a group
func GetRoutingRules(c *gin.Context) {
	var rules []models.RoutingRule
	query := config.DB.Model(&models.RoutingRule{})

	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	if err := query.Order("is_active DESC, created_at DESC").Find(&rules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch routing rules"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules, "total": len(rules)})
}

// GetRoutingRule returns one rule by id
func GetRoutingRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	var rule models.RoutingRule
	if err := config.DB.First(&rule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Routing rule not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// CreateRoutingRule adds a new routing rule
func CreateRoutingRule(c *gin.Context) {
	var req RoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg, ok := req.validate(); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	autoRoute := true
	if req.AutoRoute != nil {
		autoRoute = *req.AutoRoute
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	rule := models.RoutingRule{
		Name:         utils.SanitizeInput(req.Name),
		Description:  utils.SanitizeInput(req.Description),
		Categories:   normalizeList(req.Categories),
		Departments:  normalizeList(req.Departments),
		Stakeholders: normalizeList(req.Stakeholders),
		Priority:     req.Priority,
		AutoRoute:    autoRoute,
		IsActive:     isActive,
	}

	if err := config.DB.Create(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create routing rule"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule, "message": "Routing rule created"})
}

// UpdateRoutingRule replaces an existing rule's fields
func UpdateRoutingRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	var rule models.RoutingRule
	if err := config.DB.First(&rule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Routing rule not found"})
		return
	}

	var req RoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg, ok := req.validate(); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	rule.Name = utils.SanitizeInput(req.Name)
	rule.Description = utils.SanitizeInput(req.Description)
	rule.Categories = normalizeList(req.Categories)
	rule.Departments = normalizeList(req.Departments)
	rule.Stakeholders = normalizeList(req.Stakeholders)
	rule.Priority = req.Priority
	if req.AutoRoute != nil {
		rule.AutoRoute = *req.AutoRoute
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := config.DB.Save(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update routing rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule, "message": "Routing rule updated"})
}

// ToggleRoutingRule flips the active flag (soft disable instead of delete)
func ToggleRoutingRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	var rule models.RoutingRule
	if err := config.DB.First(&rule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Routing rule not found"})
		return
	}

	rule.IsActive = !rule.IsActive
	if err := config.DB.Save(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle routing rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule, "message": "Routing rule toggled"})
}

// DeleteRoutingRule hard-deletes a rule and, by cascade, its log rows.
// Soft-disable via toggle is the normal path; delete is for cleanup.
func DeleteRoutingRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	var rule models.RoutingRule
	if err := config.DB.First(&rule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Routing rule not found"})
		return
	}

	// Explicit log cleanup keeps behavior identical on backends without FK
	// cascade enabled.
	if err := config.DB.Where("rule_id = ?", rule.RuleID).
		Delete(&models.RoutingRuleLog{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete routing logs"})
		return
	}
	if err := config.DB.Delete(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete routing rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Routing rule deleted"})
}

func normalizeList(values []string) models.StringList {
	out := make(models.StringList, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
