package services

import (
	"fmt"

	"vvg-world-api/models"
)

// CategoryCount is one entry of the top-categories breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// RoutingStats summarizes the audit log over a trailing window.
type RoutingStats struct {
	TotalRulesTriggered   int64           `json:"total_rules_triggered"`
	SuccessfulActions     int64           `json:"successful_actions"`
	FailedActions         int64           `json:"failed_actions"`
	AverageProcessingTime float64         `json:"average_processing_time_ms"`
	TopCategories         []CategoryCount `json:"top_categories"`
}

// GetRoutingStats aggregates routing_rule_logs rows created in the last
// `days` days (30 when days <= 0). Read-only; no business logic beyond the
// aggregation itself.
func (e *RoutingEngine) GetRoutingStats(days int) (*RoutingStats, error) {
	if days <= 0 {
		days = 30
	}
	since := e.now().AddDate(0, 0, -days)

	stats := &RoutingStats{TopCategories: []CategoryCount{}}

	base := e.db.Model(&models.RoutingRuleLog{}).Where("created_at >= ?", since)
	if err := base.Count(&stats.TotalRulesTriggered).Error; err != nil {
		return nil, fmt.Errorf("failed to count routing log rows: %w", err)
	}

	if err := e.db.Model(&models.RoutingRuleLog{}).
		Where("created_at >= ? AND success = ?", since, true).
		Count(&stats.SuccessfulActions).Error; err != nil {
		return nil, fmt.Errorf("failed to count successful actions: %w", err)
	}
	stats.FailedActions = stats.TotalRulesTriggered - stats.SuccessfulActions

	if stats.TotalRulesTriggered > 0 {
		if err := e.db.Model(&models.RoutingRuleLog{}).
			Where("created_at >= ?", since).
			Select("COALESCE(AVG(processing_time_ms), 0)").
			Scan(&stats.AverageProcessingTime).Error; err != nil {
			return nil, fmt.Errorf("failed to average processing time: %w", err)
		}
	}

	if err := e.db.Table("routing_rule_logs").
		Select("pain_points.category AS category, COUNT(*) AS count").
		Joins("JOIN pain_points ON pain_points.pain_point_id = routing_rule_logs.pain_point_id").
		Where("routing_rule_logs.created_at >= ?", since).
		Group("pain_points.category").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopCategories).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate top categories: %w", err)
	}

	return stats, nil
}

// SendWeeklyDigest aggregates the window and mails the digest to the given
// recipients through the engine's email handler transport.
func (e *RoutingEngine) SendWeeklyDigest(to []string, days int) error {
	if len(to) == 0 {
		return fmt.Errorf("digest has no recipients")
	}
	if days <= 0 {
		days = 7
	}

	stats, err := e.GetRoutingStats(days)
	if err != nil {
		return err
	}

	subject, html, text := RenderWeeklyDigest(stats, days)
	handler, ok := e.handlers[ActionEmail].(*emailActionHandler)
	if !ok {
		return fmt.Errorf("email transport unavailable")
	}
	if err := handler.mailer.Send(to, subject, html, text); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	return nil
}
