package engine

import (
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// SlaStatus SLA派生状态——纯(snapshot, now)函数，无后台定时器，由宿主定期扫描
type SlaStatus struct {
	Applicable       bool          `json:"applicable"`
	PendingAck       bool          `json:"pending_ack"`
	Overdue          bool          `json:"overdue"`
	Deadline         time.Time     `json:"deadline"`
	RemainingMinutes float64       `json:"remaining_minutes"`
	Escalated        bool          `json:"escalated"`
	EscalatedAt      *time.Time    `json:"escalated_at,omitempty"`
	Elapsed          time.Duration `json:"-"`
}

// EvaluateSla 评估插单工单SLA状态——只读，不触发升级
func EvaluateSla(job *entity.Job, now time.Time) SlaStatus {
	status := SlaStatus{}
	if job.JobType != entity.JobTypeSlotIn {
		return status
	}
	target := job.SLATargetMinutes
	if target <= 0 {
		target = entity.SlotInDefaultSLAMinutes
	}

	status.Applicable = true
	status.PendingAck = job.AcknowledgedAt == nil
	status.Deadline = job.CreatedAt.Add(time.Duration(target) * time.Minute)
	status.Elapsed = now.Sub(job.CreatedAt)
	status.RemainingMinutes = status.Deadline.Sub(now).Minutes()
	status.Overdue = now.After(status.Deadline)
	status.Escalated = job.EscalationTriggeredAt != nil
	status.EscalatedAt = job.EscalationTriggeredAt
	return status
}

// AcceptanceView 技师响应期限派生状态
// 超时不隐式取消，只作为展示状态，由操作人决定后续动作
func AcceptanceView(job *entity.Job, now time.Time) string {
	if job.Status != entity.JobStatusAssigned {
		return job.AcceptanceState
	}
	if job.AcceptanceState == entity.AcceptancePending &&
		job.TechnicianResponseDeadline != nil &&
		now.After(*job.TechnicianResponseDeadline) {
		return entity.AcceptanceExpired
	}
	return job.AcceptanceState
}

// addBusinessDays 顺延指定个工作日（跳过周六日）
func addBusinessDays(from time.Time, days int) time.Time {
	t := from
	for added := 0; added < days; {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return t
}
