package entity

import (
	"time"
)

// 工单类型常量
const (
	JobTypeService  = "service"
	JobTypeRepair   = "repair"
	JobTypeChecking = "checking"
	JobTypeSlotIn   = "slot_in"
	JobTypeCourier  = "courier"
)

// 工单状态常量
const (
	JobStatusNew                  = "new"
	JobStatusAssigned             = "assigned"
	JobStatusInProgress           = "in_progress"
	JobStatusIncompleteContinuing = "incomplete_continuing"
	JobStatusCompletedAwaitingAck = "completed_awaiting_ack"
	JobStatusDisputed             = "disputed"
	JobStatusAwaitingFinalization = "awaiting_finalization"
	JobStatusCompleted            = "completed"
	JobStatusCancelled            = "cancelled"
)

// 工单优先级常量
const (
	JobPriorityLow    = "low"
	JobPriorityNormal = "normal"
	JobPriorityHigh   = "high"
	JobPriorityUrgent = "urgent"
)

// 技师接单子状态常量
const (
	AcceptancePending  = "pending_acceptance"
	AcceptanceAccepted = "accepted"
	AcceptanceRejected = "rejected"
	AcceptanceExpired  = "expired"
)

// 检查项结果常量
const (
	CheckResultOK    = "ok"
	CheckResultNotOK = "not_ok"
	CheckResultUnset = "unset"
)

// 小时表异常原因常量
const (
	FlagLowerThanPrevious = "lower_than_previous"
	FlagExcessiveJump     = "excessive_jump"
	FlagPatternMismatch   = "pattern_mismatch"
	FlagTimestampMismatch = "timestamp_mismatch"
	FlagManual            = "manual_flag"
)

// 保养升级决定常量
const (
	UpgradeDecisionUpgrade = "upgrade"
	UpgradeDecisionDecline = "decline"
)

// SlotInDefaultSLAMinutes 插单工单默认响应SLA（分钟）
const SlotInDefaultSLAMinutes = 15

// Job 服务工单——核心聚合
type Job struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	JobCode    string `json:"job_code" gorm:"size:50;not null;uniqueIndex"`
	CustomerID string `json:"customer_id" gorm:"size:32;not null;index"`
	ForkliftID string `json:"forklift_id" gorm:"size:32;index"`
	JobType    string `json:"job_type" gorm:"size:16;not null"`
	Priority   string `json:"priority" gorm:"size:16;not null;default:normal"`
	Title      string `json:"title" gorm:"size:256;not null"`
	Description string `json:"description" gorm:"type:text"`

	// 生命周期
	Status          string     `json:"status" gorm:"size:32;not null;default:new;index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	AssignedAt      *time.Time `json:"assigned_at"`
	StartedAt       *time.Time `json:"started_at"`
	RepairStartTime *time.Time `json:"repair_start_time"`
	RepairEndTime   *time.Time `json:"repair_end_time"`
	CompletedAt     *time.Time `json:"completed_at"`

	// 技师接单
	AssignedTechnicianID       string     `json:"assigned_technician_id" gorm:"size:32;index"`
	AcceptanceState            string     `json:"acceptance_state" gorm:"size:32"`
	TechnicianAcceptedAt       *time.Time `json:"technician_accepted_at"`
	TechnicianRejectedAt       *time.Time `json:"technician_rejected_at"`
	TechnicianRejectReason     string     `json:"technician_reject_reason" gorm:"type:text"`
	TechnicianResponseDeadline *time.Time `json:"technician_response_deadline"`

	// SLA
	AcknowledgedAt        *time.Time `json:"acknowledged_at"`
	SLATargetMinutes      int        `json:"sla_target_minutes"`
	EscalationTriggeredAt *time.Time `json:"escalation_triggered_at"`

	// 小时表
	HourmeterReading            *float64   `json:"hourmeter_reading"`
	EndHourmeterReading         *float64   `json:"end_hourmeter_reading"`
	FirstHourmeterRecordedByID  string     `json:"first_hourmeter_recorded_by_id" gorm:"size:32"`
	HourmeterFlagged            bool       `json:"hourmeter_flagged" gorm:"not null;default:false"`
	HourmeterFlagReasons        StringList `json:"hourmeter_flag_reasons" gorm:"type:jsonb"`
	HourmeterInvalidated        bool       `json:"hourmeter_invalidated" gorm:"not null;default:false"`

	// 条件检查清单
	ChecklistTemplate       string       `json:"checklist_template" gorm:"size:32"`
	ConditionChecklist      ChecklistMap `json:"condition_checklist" gorm:"type:jsonb"`
	ChecklistOverridden     bool         `json:"checklist_overridden" gorm:"not null;default:false"`
	ChecklistOverrideReason string       `json:"checklist_override_reason" gorm:"type:text"`
	ChecklistOverrideBy     string       `json:"checklist_override_by" gorm:"size:32"`

	// 保养升级
	UpgradePrompted  bool       `json:"upgrade_prompted" gorm:"not null;default:false"`
	UpgradeDecision  string     `json:"upgrade_decision" gorm:"size:16"`
	UpgradeDecidedAt *time.Time `json:"upgrade_decided_at"`

	// 签名与证据
	TechnicianSignedAt *time.Time `json:"technician_signed_at"`
	CustomerSignedAt   *time.Time `json:"customer_signed_at"`
	AfterPhotoMediaID  string     `json:"after_photo_media_id" gorm:"size:64"`
	EvidenceMediaIDs   StringList `json:"evidence_media_ids" gorm:"type:jsonb"`

	// 延迟完成确认窗口
	AckWindowExpiresAt *time.Time `json:"ack_window_expires_at"`
	DisputedAt         *time.Time `json:"disputed_at"`
	DisputeReason      string     `json:"dispute_reason" gorm:"type:text"`

	// 双角色财务确认
	PartsConfirmedAt          *time.Time `json:"parts_confirmed_at"`
	PartsConfirmedByID        string     `json:"parts_confirmed_by_id" gorm:"size:32"`
	PartsConfirmedByName      string     `json:"parts_confirmed_by_name" gorm:"size:64"`
	PartsConfirmationNotes    string     `json:"parts_confirmation_notes" gorm:"type:text"`
	PartsConfirmationSkipped  bool       `json:"parts_confirmation_skipped" gorm:"not null;default:false"`
	JobConfirmedAt            *time.Time `json:"job_confirmed_at"`
	JobConfirmedByID          string     `json:"job_confirmed_by_id" gorm:"size:32"`
	JobConfirmedByName        string     `json:"job_confirmed_by_name" gorm:"size:64"`
	JobConfirmationNotes      string     `json:"job_confirmation_notes" gorm:"type:text"`

	// 财务
	LaborCost  float64    `json:"labor_cost"`
	InvoicedAt *time.Time `json:"invoiced_at"`

	// 暂停/取消
	ContinueReason string     `json:"continue_reason" gorm:"type:text"`
	CancelledAt    *time.Time `json:"cancelled_at"`
	CancelReason   string     `json:"cancel_reason" gorm:"type:text"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" gorm:"index"`
	DeletionReason string     `json:"deletion_reason" gorm:"type:text"`

	// 乐观锁版本号
	Version int `json:"version" gorm:"not null;default:0"`

	CreatedBy string `json:"created_by" gorm:"size:32;not null"`

	// 关联
	Customer     *Customer    `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Forklift     *Forklift    `json:"forklift,omitempty" gorm:"foreignKey:ForkliftID"`
	Technician   *User        `json:"technician,omitempty" gorm:"foreignKey:AssignedTechnicianID"`
	PartsUsed    []PartUsage  `json:"parts_used,omitempty" gorm:"foreignKey:JobID"`
	ExtraCharges []Charge     `json:"extra_charges,omitempty" gorm:"foreignKey:JobID"`
	Requests     []JobRequest `json:"requests,omitempty" gorm:"foreignKey:JobID"`
}

func (Job) TableName() string {
	return "jobs"
}

// PartUsage 工单用料
type PartUsage struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	JobID        string    `json:"job_id" gorm:"size:32;not null;index"`
	PartNo       string    `json:"part_no" gorm:"size:64;not null"`
	PartName     string    `json:"part_name" gorm:"size:128;not null"`
	Quantity     float64   `json:"quantity" gorm:"not null"`
	UnitPrice    float64   `json:"unit_price" gorm:"not null"`
	FromVanStock bool      `json:"from_van_stock" gorm:"not null;default:false"`
	AddedBy      string    `json:"added_by" gorm:"size:32;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (PartUsage) TableName() string {
	return "job_part_usages"
}

// Charge 工单附加费用
type Charge struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	JobID       string    `json:"job_id" gorm:"size:32;not null;index"`
	Description string    `json:"description" gorm:"size:256;not null"`
	Amount      float64   `json:"amount" gorm:"not null"`
	AddedBy     string    `json:"added_by" gorm:"size:32;not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Charge) TableName() string {
	return "job_charges"
}

// CurrentReading 工单当前有效读数，完成读数优先于起始读数
func (j *Job) CurrentReading() float64 {
	if j.EndHourmeterReading != nil {
		return *j.EndHourmeterReading
	}
	if j.HourmeterReading != nil {
		return *j.HourmeterReading
	}
	return 0
}

// PartsTotal 用料合计金额
func (j *Job) PartsTotal() float64 {
	var total float64
	for _, p := range j.PartsUsed {
		total += p.Quantity * p.UnitPrice
	}
	return total
}

// ChargesTotal 附加费用合计金额
func (j *Job) ChargesTotal() float64 {
	var total float64
	for _, c := range j.ExtraCharges {
		total += c.Amount
	}
	return total
}

// InvoiceTotal 发票合计金额
func (j *Job) InvoiceTotal() float64 {
	return j.PartsTotal() + j.ChargesTotal() + j.LaborCost
}
