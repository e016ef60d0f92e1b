package entity

import (
	"time"
)

// JobAuditLog 工单操作日志——由引擎的Audit副作用落库
type JobAuditLog struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	JobID      string    `json:"job_id" gorm:"size:32;not null;index"`
	Action     string    `json:"action" gorm:"size:32;not null"`
	FromStatus string    `json:"from_status" gorm:"size:32"`
	ToStatus   string    `json:"to_status" gorm:"size:32"`
	ActorID    string    `json:"actor_id" gorm:"size:32;not null"`
	ActorRole  string    `json:"actor_role" gorm:"size:16;not null"`
	Detail     JSONB     `json:"detail" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at"`
}

func (JobAuditLog) TableName() string {
	return "job_audit_logs"
}
