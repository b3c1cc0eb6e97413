package models

import "time"

// RoutingRuleLog is one append-only audit row per attempted routing action.
// Rows are never updated; deleting a rule cascades to its log rows, which is
// an accepted loss of audit trail on hard delete. PassID groups the rows
// written by a single routing pass.
type RoutingRuleLog struct {
	LogID                int        `gorm:"primaryKey;column:log_id" json:"log_id"`
	RuleID               int        `gorm:"column:rule_id;index" json:"rule_id"`
	PainPointID          int        `gorm:"column:pain_point_id;index" json:"pain_point_id"`
	PassID               string     `gorm:"column:pass_id;type:varchar(36);index" json:"pass_id"`
	ActionTaken          string     `gorm:"column:action_taken" json:"action_taken"`
	StakeholdersNotified StringList `gorm:"column:stakeholders_notified;type:json" json:"stakeholders_notified"`
	PriorityAssigned     string     `gorm:"column:priority_assigned" json:"priority_assigned"`
	Success              bool       `gorm:"column:success" json:"success"`
	ErrorMessage         *string    `gorm:"column:error_message" json:"error_message,omitempty"`
	ProcessingTimeMs     int64      `gorm:"column:processing_time_ms" json:"processing_time_ms"`
	CreatedAt            time.Time  `gorm:"column:created_at" json:"created_at"`

	Rule *RoutingRule `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE" json:"rule,omitempty"`
}

func (RoutingRuleLog) TableName() string { return "routing_rule_logs" }
