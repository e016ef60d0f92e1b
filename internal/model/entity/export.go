package entity

import (
	"time"
)

// AutoCount导出状态常量
const (
	ExportStatusPending   = "pending"
	ExportStatusExported  = "exported"
	ExportStatusFailed    = "failed"
	ExportStatusCancelled = "cancelled"
)

// AutoCountExportRecord 发票导出记录——每个已开票工单最多一条活动记录
type AutoCountExportRecord struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	JobID       string     `json:"job_id" gorm:"size:32;not null;index"`
	InvoiceNo   string     `json:"invoice_no" gorm:"size:50;not null"`
	DebtorCode  string     `json:"debtor_code" gorm:"size:50"`
	Amount      float64    `json:"amount" gorm:"not null"`
	Status      string     `json:"status" gorm:"size:16;not null;default:pending"`
	RetryCount  int        `json:"retry_count" gorm:"not null;default:0"`
	ExportError string     `json:"export_error" gorm:"type:text"`
	ExportedAt  *time.Time `json:"exported_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedBy   string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 关联
	Job *Job `json:"job,omitempty" gorm:"foreignKey:JobID"`
}

func (AutoCountExportRecord) TableName() string {
	return "autocount_export_records"
}

// Active 判断记录是否占用工单的活动导出名额
func (r *AutoCountExportRecord) Active() bool {
	return r.Status == ExportStatusPending || r.Status == ExportStatusExported
}
