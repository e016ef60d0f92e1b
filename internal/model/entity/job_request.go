package entity

import (
	"time"
)

// 工单内请求类型常量
const (
	RequestTypeSparePart          = "spare_part"
	RequestTypeAssistance         = "assistance"
	RequestTypeSkillfulTechnician = "skillful_technician"
)

// 工单内请求状态常量
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// JobRequest 工单内请求——技师发起，管理员/主管处理
type JobRequest struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	JobID       string     `json:"job_id" gorm:"size:32;not null;index"`
	RequestType string     `json:"request_type" gorm:"size:32;not null"`
	Status      string     `json:"status" gorm:"size:16;not null;default:pending"`
	Description string     `json:"description" gorm:"type:text"`
	RequestedBy string     `json:"requested_by" gorm:"size:32;not null"`
	ResolvedBy  string     `json:"resolved_by" gorm:"size:32"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	ResolveNote string     `json:"resolve_note" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 关联
	Job *Job `json:"job,omitempty" gorm:"foreignKey:JobID"`
}

func (JobRequest) TableName() string {
	return "job_requests"
}
