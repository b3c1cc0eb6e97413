package models

import "time"

// PainPoint is an employee-submitted issue or idea. The routing engine
// only reads it; status transitions happen through the admin endpoints.
type PainPoint struct {
	PainPointID int       `gorm:"primaryKey;column:pain_point_id" json:"pain_point_id"`
	Title       string    `gorm:"column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Category    string    `gorm:"column:category" json:"category"`
	SubmittedBy string    `gorm:"column:submitted_by" json:"submitted_by"`
	Department  *string   `gorm:"column:department" json:"department,omitempty"`
	Location    *string   `gorm:"column:location" json:"location,omitempty"`
	Status      string    `gorm:"column:status;default:submitted" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PainPoint) TableName() string { return "pain_points" }
