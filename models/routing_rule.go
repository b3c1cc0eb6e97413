package models

import "time"

// Priority levels used by routing rules and their planned actions.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// MatchAll is the wildcard value for rule categories and departments.
const MatchAll = "all"

// RoutingRule decides which stakeholders hear about a submitted pain point.
// Categories and departments are JSON arrays; either may contain the "all"
// wildcard. An inactive rule never matches; a matching rule with AutoRoute
// off (or no stakeholders) is review-only and produces no action.
type RoutingRule struct {
	RuleID       int        `gorm:"primaryKey;column:rule_id" json:"rule_id"`
	Name         string     `gorm:"column:name" json:"name"`
	Description  string     `gorm:"column:description" json:"description"`
	Categories   StringList `gorm:"column:category;type:json" json:"category"`
	Departments  StringList `gorm:"column:department;type:json" json:"department"`
	Stakeholders StringList `gorm:"column:stakeholders;type:json" json:"stakeholders"`
	Priority     string     `gorm:"column:priority;default:medium" json:"priority"`
	AutoRoute    bool       `gorm:"column:auto_route" json:"auto_route"`
	IsActive     bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (RoutingRule) TableName() string { return "routing_rules" }

// PriorityWeight orders priorities for matching (critical first).
func PriorityWeight(priority string) int {
	switch priority {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// ValidPriority reports whether p is one of the accepted priority levels.
func ValidPriority(p string) bool {
	return PriorityWeight(p) > 0
}
