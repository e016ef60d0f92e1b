package engine

import (
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// ConfirmationState 开票前双角色确认状态
type ConfirmationState struct {
	PartsSatisfied bool     `json:"parts_satisfied"`
	PartsSkipped   bool     `json:"parts_skipped"`
	JobSatisfied   bool     `json:"job_satisfied"`
	Missing        []string `json:"missing,omitempty"`
}

// ReadyToFinalize 两道确认是否均已满足
func (s ConfirmationState) ReadyToFinalize() bool {
	return s.PartsSatisfied && s.JobSatisfied
}

// EvaluateConfirmation 评估确认门状态——用料为空时配件确认自动视作跳过
func EvaluateConfirmation(job *entity.Job) ConfirmationState {
	state := ConfirmationState{}

	if job.PartsConfirmedAt != nil || job.PartsConfirmationSkipped {
		state.PartsSatisfied = true
		state.PartsSkipped = job.PartsConfirmationSkipped
	} else if len(job.PartsUsed) == 0 {
		// 无用料，配件门自动满足
		state.PartsSatisfied = true
		state.PartsSkipped = true
	} else {
		state.Missing = append(state.Missing, "parts_confirmation")
	}

	if job.JobConfirmedAt != nil {
		state.JobSatisfied = true
	} else {
		state.Missing = append(state.Missing, "job_confirmation")
	}

	return state
}
