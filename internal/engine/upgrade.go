package engine

import (
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// UpgradeAdvice 保养升级建议
type UpgradeAdvice struct {
	ShouldPrompt bool    `json:"should_prompt"`
	OverdueHours float64 `json:"overdue_hours"`
	NextDueAt    float64 `json:"next_due_at"`
}

// AdviseUpgrade 判断小保养工单是否应提示升级为大保养——纯函数
// 逾期小时数 = 当前表读数 - (上次大保养表读数 + 保养周期)
func AdviseUpgrade(jobType string, currentHourmeter, lastServiceHourmeter float64) UpgradeAdvice {
	nextDue := lastServiceHourmeter + entity.ServiceIntervalHours
	advice := UpgradeAdvice{NextDueAt: nextDue}
	if jobType != entity.JobTypeService {
		return advice
	}
	overdue := currentHourmeter - nextDue
	if overdue > 0 {
		advice.ShouldPrompt = true
		advice.OverdueHours = overdue
	}
	return advice
}
