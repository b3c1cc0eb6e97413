package controllers

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"vvg-world-api/config"
	"vvg-world-api/models"
	"vvg-world-api/utils"

	"github.com/gin-gonic/gin"
)

// GetRoutingStats returns the aggregate routing summary for the trailing
// window (?days=, default 30).
func GetRoutingStats(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	stats, err := getRoutingEngine().GetRoutingStats(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load routing stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats, "days": days})
}

// GetRoutingLogs lists audit rows, newest first, with optional filters
func GetRoutingLogs(c *gin.Context) {
	query := config.DB.Model(&models.RoutingRuleLog{}).Preload("Rule")

	if ruleID := c.Query("rule_id"); ruleID != "" {
		query = query.Where("rule_id = ?", ruleID)
	}
	if painPointID := c.Query("pain_point_id"); painPointID != "" {
		query = query.Where("pain_point_id = ?", painPointID)
	}
	if success := c.Query("success"); success != "" {
		query = query.Where("success = ?", success == "true")
	}
	if passID := c.Query("pass_id"); passID != "" {
		query = query.Where("pass_id = ?", passID)
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count routing logs"})
		return
	}

	var logs []models.RoutingRuleLog
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch routing logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total, "limit": limit, "offset": offset})
}

type DigestRequest struct {
	Recipients []string `json:"recipients"`
	Days       int      `json:"days"`
}

// SendRoutingDigest mails the routing summary to the given recipients
// (falls back to DIGEST_RECIPIENTS from the environment).
func SendRoutingDigest(c *gin.Context) {
	// Body is optional; defaults come from the environment.
	var req DigestRequest
	_ = c.ShouldBindJSON(&req)

	recipients := req.Recipients
	if len(recipients) == 0 {
		recipients = digestRecipientsFromEnv()
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No digest recipients configured"})
		return
	}
	if bad, ok := utils.ValidateEmails(recipients); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient email: " + bad})
		return
	}

	days := req.Days
	if days <= 0 {
		days = 7
	}

	if err := getRoutingEngine().SendWeeklyDigest(recipients, days); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send digest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Digest sent", "recipients": recipients, "days": days})
}

func digestRecipientsFromEnv() []string {
	raw := os.Getenv("DIGEST_RECIPIENTS")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
