package entity

import (
	"time"
)

// 客户状态常量
const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
)

// Customer 客户
type Customer struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	CustomerCode   string     `json:"customer_code" gorm:"size:50;not null;uniqueIndex"`
	Name           string     `json:"name" gorm:"size:128;not null"`
	ContactName    string     `json:"contact_name" gorm:"size:64"`
	Phone          string     `json:"phone" gorm:"size:32"`
	Email          string     `json:"email" gorm:"size:128"`
	Address        string     `json:"address" gorm:"type:text"`
	AutoCountDebtor string    `json:"autocount_debtor" gorm:"size:50"`
	CreditLimit    float64    `json:"credit_limit"`
	PaymentTerms   string     `json:"payment_terms" gorm:"size:50"`
	Status         string     `json:"status" gorm:"size:16;not null;default:active"`
	Notes          string     `json:"notes" gorm:"type:text"`
	CreatedBy      string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" gorm:"index"`
}

func (Customer) TableName() string {
	return "customers"
}
