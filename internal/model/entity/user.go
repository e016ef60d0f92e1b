package entity

import (
	"time"
)

// 用户角色常量
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleTechnician = "technician"
	RoleStoreman   = "storeman"
	RoleAccountant = "accountant"
)

// User 用户
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Username     string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	Name         string     `json:"name" gorm:"size:64;not null"`
	Email        string     `json:"email" gorm:"size:128"`
	Phone        string     `json:"phone" gorm:"size:32"`
	Role         string     `json:"role" gorm:"size:16;not null;default:technician"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	NotifyURL    string     `json:"notify_url" gorm:"size:512"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
