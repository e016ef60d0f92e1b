package entity

import (
	"time"
)

// 小时表修正单状态常量
const (
	AmendmentStatusPending  = "pending"
	AmendmentStatusApproved = "approved"
	AmendmentStatusRejected = "rejected"
)

// ServiceIntervalHours 保养周期（小时）
const ServiceIntervalHours = 500

// Forklift 叉车资产
type Forklift struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:32"`
	FleetNo              string     `json:"fleet_no" gorm:"size:50;not null;uniqueIndex"`
	SerialNo             string     `json:"serial_no" gorm:"size:100"`
	Brand                string     `json:"brand" gorm:"size:64"`
	Model                string     `json:"model" gorm:"size:64"`
	CustomerID           string     `json:"customer_id" gorm:"size:32;index"`
	CurrentHourmeter     float64    `json:"current_hourmeter"`
	AvgDailyUsageHours   float64    `json:"avg_daily_usage_hours"`
	LastServiceHourmeter float64    `json:"last_service_hourmeter"`
	LastServiceAt        *time.Time `json:"last_service_at"`
	ServiceDue           bool       `json:"service_due" gorm:"not null;default:false"`
	Status               string     `json:"status" gorm:"size:16;not null;default:active"`
	Notes                string     `json:"notes" gorm:"type:text"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	DeletedAt            *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Customer *Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
}

func (Forklift) TableName() string {
	return "forklifts"
}

// HourmeterRecord 小时表读数记录
type HourmeterRecord struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	ForkliftID  string     `json:"forklift_id" gorm:"size:32;not null;index"`
	JobID       string     `json:"job_id" gorm:"size:32;index"`
	Reading     float64    `json:"reading" gorm:"not null"`
	CapturedAt  time.Time  `json:"captured_at" gorm:"not null"`
	ReceivedAt  time.Time  `json:"received_at" gorm:"not null"`
	RecordedBy  string     `json:"recorded_by" gorm:"size:32;not null"`
	Flagged     bool       `json:"flagged" gorm:"not null;default:false"`
	FlagReasons StringList `json:"flag_reasons" gorm:"type:jsonb"`
	Invalidated bool       `json:"invalidated" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at"`

	// 关联
	Forklift *Forklift `json:"forklift,omitempty" gorm:"foreignKey:ForkliftID"`
}

func (HourmeterRecord) TableName() string {
	return "hourmeter_records"
}

// HourmeterAmendment 小时表读数修正单
// 异常读数不阻塞工单流程，由指定审批角色提交修正读数和理由后清除异常标记
type HourmeterAmendment struct {
	ID               string     `json:"id" gorm:"primaryKey;size:32"`
	ForkliftID       string     `json:"forklift_id" gorm:"size:32;not null;index"`
	JobID            string     `json:"job_id" gorm:"size:32;not null;index"`
	RecordID         string     `json:"record_id" gorm:"size:32;not null"`
	OriginalReading  float64    `json:"original_reading" gorm:"not null"`
	CorrectedReading *float64   `json:"corrected_reading"`
	FlagReasons      StringList `json:"flag_reasons" gorm:"type:jsonb"`
	Status           string     `json:"status" gorm:"size:16;not null;default:pending"`
	Justification    string     `json:"justification" gorm:"type:text"`
	RequestedBy      string     `json:"requested_by" gorm:"size:32;not null"`
	ResolvedBy       string     `json:"resolved_by" gorm:"size:32"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (HourmeterAmendment) TableName() string {
	return "hourmeter_amendments"
}
