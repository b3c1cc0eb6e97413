package models

import "time"

// Role names stored on users.role.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

type User struct {
	UserID      int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	Password    string     `gorm:"column:password" json:"-"`
	DisplayName string     `gorm:"column:display_name" json:"display_name"`
	Department  *string    `gorm:"column:department" json:"department,omitempty"`
	Role        string     `gorm:"column:role;default:employee" json:"role"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt   *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
