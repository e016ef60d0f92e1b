package engine

import (
	"fmt"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// Action 工单状态机动作
type Action string

const (
	ActionAssign           Action = "assign"
	ActionAccept           Action = "accept"
	ActionReject           Action = "reject"
	ActionStart            Action = "start"
	ActionRecordHourmeter  Action = "record_hourmeter"
	ActionContinueTomorrow Action = "continue_tomorrow"
	ActionResume           Action = "resume"
	ActionDeferComplete    Action = "defer_complete"
	ActionDispute          Action = "dispute"
	ActionAckExpire        Action = "ack_expire"
	ActionResolveDispute   Action = "resolve_dispute"
	ActionComplete         Action = "complete"
	ActionConfirmParts     Action = "confirm_parts"
	ActionConfirmJob       Action = "confirm_job"
	ActionFinalize         Action = "finalize"
	ActionCancel           Action = "cancel"
	ActionAcknowledge      Action = "acknowledge"
	ActionEscalate         Action = "escalate"

	// 状态机之外的宿主操作，仅用于拒绝标记
	ActionResolveAmendment Action = "resolve_amendment"
)

// 争议处理结果
const (
	DisputeOutcomeRework = "rework"
	DisputeOutcomeUphold = "uphold"
)

// Config 引擎配置
type Config struct {
	// AcceptanceWindow 技师响应窗口（插单工单）
	AcceptanceWindow time.Duration `mapstructure:"acceptance_window"`
	// AckWindowBusinessDays 延迟完成的客户确认窗口（工作日）
	AckWindowBusinessDays int `mapstructure:"ack_window_business_days"`
	// AllowChecklistOverride 是否允许高权限角色强制跳过必检项
	AllowChecklistOverride bool `mapstructure:"allow_checklist_override"`
	// MinReasonLength 强制跳过/修正理由最小长度
	MinReasonLength int `mapstructure:"min_reason_length"`
	Hourmeter       HourmeterConfig `mapstructure:"hourmeter"`
}

// DefaultConfig 默认引擎配置
func DefaultConfig() Config {
	return Config{
		AcceptanceWindow:       30 * time.Minute,
		AckWindowBusinessDays:  3,
		AllowChecklistOverride: false,
		MinReasonLength:        10,
		Hourmeter:              DefaultHourmeterConfig(),
	}
}

// ForkliftContext 资产侧校验上下文，由宿主随快照一起传入
type ForkliftContext struct {
	PreviousReading      *float64
	PreviousAt           *time.Time
	AvgDailyUsageHours   float64
	LastServiceHourmeter float64
}

// Payload 转换载荷——各动作取各自所需字段
type Payload struct {
	TechnicianID        string
	Reason              string
	Notes               string
	HourmeterReading    *float64
	HourmeterCapturedAt *time.Time
	EndHourmeterReading *float64
	ManualFlag          bool
	Forklift            *ForkliftContext
	Checklist           entity.ChecklistMap
	CheckAll            bool
	UpgradeDecision     string
	TechnicianSignature bool
	CustomerSignature   bool
	AfterPhotoMediaID   string
	EvidenceMediaIDs    []string
	OverrideChecklist   bool
	DisputeOutcome      string
}

// Engine 工单生命周期与合规引擎
// 纯函数式：不做IO，时钟可注入，对输入快照只读，返回变更后的副本
type Engine struct {
	cfg Config
	now func() time.Time
}

// New 创建引擎
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// WithClock 注入时钟，测试用
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Config 返回引擎配置
func (e *Engine) Config() Config {
	return e.cfg
}

// Now 当前引擎时钟
func (e *Engine) Now() time.Time {
	return e.now()
}

// allowedSources 各动作的合法起始状态
var allowedSources = map[Action][]string{
	ActionAssign:           {entity.JobStatusNew},
	ActionAccept:           {entity.JobStatusAssigned},
	ActionReject:           {entity.JobStatusAssigned},
	ActionStart:            {entity.JobStatusAssigned},
	ActionRecordHourmeter:  {entity.JobStatusInProgress},
	ActionContinueTomorrow: {entity.JobStatusInProgress},
	ActionResume:           {entity.JobStatusIncompleteContinuing},
	ActionDeferComplete:    {entity.JobStatusInProgress},
	ActionDispute:          {entity.JobStatusCompletedAwaitingAck},
	ActionAckExpire:        {entity.JobStatusCompletedAwaitingAck},
	ActionResolveDispute:   {entity.JobStatusDisputed},
	ActionComplete:         {entity.JobStatusInProgress},
	ActionConfirmParts:     {entity.JobStatusAwaitingFinalization, entity.JobStatusCompleted},
	ActionConfirmJob:       {entity.JobStatusAwaitingFinalization, entity.JobStatusCompleted},
	ActionFinalize:         {entity.JobStatusAwaitingFinalization, entity.JobStatusCompleted},
	ActionAcknowledge: {
		entity.JobStatusNew, entity.JobStatusAssigned, entity.JobStatusInProgress,
	},
	ActionEscalate: {
		entity.JobStatusNew, entity.JobStatusAssigned, entity.JobStatusInProgress,
	},
	ActionCancel: {
		entity.JobStatusNew, entity.JobStatusAssigned, entity.JobStatusInProgress,
		entity.JobStatusIncompleteContinuing, entity.JobStatusCompletedAwaitingAck,
		entity.JobStatusDisputed, entity.JobStatusAwaitingFinalization,
	},
}

// Apply 状态机唯一入口——(快照, 动作, 操作人, 载荷) → (新快照, 副作用列表) 或类型化拒绝
func (e *Engine) Apply(job *entity.Job, action Action, actor Actor, p Payload) (*entity.Job, []SideEffect, error) {
	sources, known := allowedSources[action]
	if !known {
		return nil, nil, validationError(action, "unknown action")
	}
	if !statusIn(job.Status, sources) {
		return nil, nil, invalidTransition(action, job.Status)
	}
	if !Allowed(actor.Role, action) {
		return nil, nil, unauthorized(action, fmt.Sprintf("role %s cannot perform %s", actor.Role, action))
	}

	next := cloneJob(job)
	now := e.now()

	var effects []SideEffect
	var err error
	switch action {
	case ActionAssign:
		effects, err = e.applyAssign(next, actor, p, now)
	case ActionAccept:
		effects, err = e.applyAccept(next, actor, now)
	case ActionReject:
		effects, err = e.applyReject(next, actor, p, now)
	case ActionStart:
		effects, err = e.applyStart(next, actor, p, now)
	case ActionRecordHourmeter:
		effects, err = e.applyRecordHourmeter(next, actor, p, now)
	case ActionContinueTomorrow:
		effects, err = e.applyContinueTomorrow(next, actor, p, now)
	case ActionResume:
		effects, err = e.applyResume(next, actor, now)
	case ActionDeferComplete:
		effects, err = e.applyDeferComplete(next, actor, p, now)
	case ActionDispute:
		effects, err = e.applyDispute(next, actor, p, now)
	case ActionAckExpire:
		effects, err = e.applyAckExpire(next, actor, now)
	case ActionResolveDispute:
		effects, err = e.applyResolveDispute(next, actor, p, now)
	case ActionComplete:
		effects, err = e.applyComplete(next, actor, p, now)
	case ActionConfirmParts:
		effects, err = e.applyConfirmParts(next, actor, p, now)
	case ActionConfirmJob:
		effects, err = e.applyConfirmJob(next, actor, p, now)
	case ActionFinalize:
		effects, err = e.applyFinalize(next, actor, now)
	case ActionCancel:
		effects, err = e.applyCancel(next, actor, p, now)
	case ActionAcknowledge:
		effects, err = e.applyAcknowledge(next, actor, now)
	case ActionEscalate:
		effects, err = e.applyEscalate(next, actor, now)
	}
	if err != nil {
		return nil, nil, err
	}

	next.UpdatedAt = now
	effects = append(effects, auditEffect(action, job.Status, next.Status, actor.ID, actor.Role, nil))
	return next, effects, nil
}

func (e *Engine) applyAssign(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if p.TechnicianID == "" {
		return nil, validationError(ActionAssign, "technician id is required")
	}

	job.Status = entity.JobStatusAssigned
	job.AssignedAt = &now
	job.AssignedTechnicianID = p.TechnicianID
	job.AcceptanceState = entity.AcceptancePending
	job.TechnicianAcceptedAt = nil
	job.TechnicianRejectedAt = nil
	job.TechnicianRejectReason = ""
	job.TechnicianResponseDeadline = nil
	if job.JobType == entity.JobTypeSlotIn {
		deadline := now.Add(e.cfg.AcceptanceWindow)
		job.TechnicianResponseDeadline = &deadline
	}

	return []SideEffect{
		notifyEffect(RecipientTechnician, fmt.Sprintf("工单 %s 已指派给你", job.JobCode), map[string]interface{}{
			"job_id":        job.ID,
			"technician_id": p.TechnicianID,
		}),
	}, nil
}

func (e *Engine) applyAccept(job *entity.Job, actor Actor, now time.Time) ([]SideEffect, error) {
	if actor.ID != job.AssignedTechnicianID {
		return nil, unauthorized(ActionAccept, "only the assigned technician may accept")
	}
	if job.TechnicianAcceptedAt != nil || job.TechnicianRejectedAt != nil {
		return nil, preconditionFailed(ActionAccept, job.Status, "acceptance already responded")
	}
	if job.TechnicianResponseDeadline != nil && now.After(*job.TechnicianResponseDeadline) {
		return nil, preconditionFailed(ActionAccept, job.Status, "response window expired")
	}

	job.AcceptanceState = entity.AcceptanceAccepted
	job.TechnicianAcceptedAt = &now
	return nil, nil
}

func (e *Engine) applyReject(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if actor.ID != job.AssignedTechnicianID {
		return nil, unauthorized(ActionReject, "only the assigned technician may reject")
	}
	if job.TechnicianAcceptedAt != nil || job.TechnicianRejectedAt != nil {
		return nil, preconditionFailed(ActionReject, job.Status, "acceptance already responded")
	}
	if p.Reason == "" {
		return nil, validationError(ActionReject, "rejection reason is required")
	}

	rejectedBy := job.AssignedTechnicianID

	// 退回待派单，清除指派信息
	job.Status = entity.JobStatusNew
	job.AssignedAt = nil
	job.AssignedTechnicianID = ""
	job.AcceptanceState = ""
	job.TechnicianRejectedAt = &now
	job.TechnicianRejectReason = p.Reason
	job.TechnicianResponseDeadline = nil

	return []SideEffect{
		notifyEffect(RecipientAdmin, fmt.Sprintf("技师拒接工单 %s：%s", job.JobCode, p.Reason), map[string]interface{}{
			"job_id":        job.ID,
			"technician_id": rejectedBy,
		}),
	}, nil
}

func (e *Engine) applyStart(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	accepted := job.TechnicianAcceptedAt != nil
	if !accepted && !isElevated(actor.Role) {
		return nil, preconditionFailed(ActionStart, job.Status, "job has not been accepted by the technician")
	}
	if actor.Role == entity.RoleTechnician && actor.ID != job.AssignedTechnicianID {
		return nil, unauthorized(ActionStart, "only the assigned technician may start")
	}

	var effects []SideEffect

	// 选定检查清单模板，快递单不检查车况
	if job.ChecklistTemplate == "" && requiresChecklist(job.JobType) {
		job.ChecklistTemplate = ChecklistTemplateMinor
		if job.JobType == entity.JobTypeService && job.UpgradeDecision == entity.UpgradeDecisionUpgrade {
			job.ChecklistTemplate = ChecklistTemplateFull
		}
	}

	// 保养升级建议
	if p.Forklift != nil {
		var current float64
		if p.HourmeterReading != nil {
			current = *p.HourmeterReading
		} else if p.Forklift.PreviousReading != nil {
			current = *p.Forklift.PreviousReading
		}
		advice := AdviseUpgrade(job.JobType, current, p.Forklift.LastServiceHourmeter)
		if advice.ShouldPrompt && job.ChecklistTemplate == ChecklistTemplateMinor {
			job.UpgradePrompted = true
			if p.UpgradeDecision != "" {
				if p.UpgradeDecision != entity.UpgradeDecisionUpgrade && p.UpgradeDecision != entity.UpgradeDecisionDecline {
					return nil, validationError(ActionStart, "invalid upgrade decision")
				}
				job.UpgradeDecision = p.UpgradeDecision
				job.UpgradeDecidedAt = &now
				if p.UpgradeDecision == entity.UpgradeDecisionUpgrade {
					job.ChecklistTemplate = ChecklistTemplateFull
				}
				effects = append(effects, notifyEffect(RecipientSupervisor,
					fmt.Sprintf("工单 %s 保养升级决定：%s（逾期 %.0f 小时）", job.JobCode, p.UpgradeDecision, advice.OverdueHours),
					map[string]interface{}{"job_id": job.ID, "overdue_hours": advice.OverdueHours}))
			}
		}
	}

	// 首次读表
	if p.HourmeterReading != nil {
		fx, err := e.recordReading(job, actor, p, now)
		if err != nil {
			return nil, err
		}
		effects = append(effects, fx...)
	}

	// 开工时检查清单只作提示，不阻塞
	if p.Checklist != nil {
		job.ConditionChecklist = mergeChecklist(job.ConditionChecklist, p.Checklist)
	}

	job.Status = entity.JobStatusInProgress
	job.StartedAt = &now
	job.RepairStartTime = &now
	return effects, nil
}

func (e *Engine) applyRecordHourmeter(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if p.HourmeterReading == nil {
		return nil, validationError(ActionRecordHourmeter, "hourmeter reading is required")
	}
	// 仅首次记录人或管理员/主管可以复录
	if job.FirstHourmeterRecordedByID != "" &&
		actor.ID != job.FirstHourmeterRecordedByID && !isElevated(actor.Role) {
		return nil, unauthorized(ActionRecordHourmeter, "only the first recorder or a supervisor may record again")
	}
	return e.recordReading(job, actor, p, now)
}

// recordReading 录入读数并执行小时表校验，异常只标记不阻塞
func (e *Engine) recordReading(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	capturedAt := now
	if p.HourmeterCapturedAt != nil {
		capturedAt = *p.HourmeterCapturedAt
	}

	in := HourmeterInput{
		NewReading: *p.HourmeterReading,
		CapturedAt: capturedAt,
		ReceivedAt: now,
		ManualFlag: p.ManualFlag,
	}
	if p.Forklift != nil {
		in.PreviousReading = p.Forklift.PreviousReading
		in.PreviousAt = p.Forklift.PreviousAt
		in.AvgDailyUsageHours = p.Forklift.AvgDailyUsageHours
	}
	result := EvaluateHourmeter(in, e.cfg.Hourmeter)

	job.HourmeterReading = p.HourmeterReading
	job.HourmeterInvalidated = false
	if job.FirstHourmeterRecordedByID == "" {
		job.FirstHourmeterRecordedByID = actor.ID
	}
	job.HourmeterFlagged = result.Flagged
	job.HourmeterFlagReasons = entity.StringList(result.Reasons)

	if !result.Flagged {
		return nil, nil
	}
	// 异常读数产生修正请求，路由给审批角色
	return []SideEffect{
		notifyEffect(RecipientSupervisor,
			fmt.Sprintf("工单 %s 小时表读数异常：%v", job.JobCode, result.Reasons),
			map[string]interface{}{
				"job_id":            job.ID,
				"reading":           *p.HourmeterReading,
				"flag_reasons":      result.Reasons,
				"amendment_request": true,
			}),
	}, nil
}

func (e *Engine) applyContinueTomorrow(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if p.Reason == "" {
		return nil, validationError(ActionContinueTomorrow, "continue reason is required")
	}
	job.Status = entity.JobStatusIncompleteContinuing
	job.ContinueReason = p.Reason
	return []SideEffect{
		notifyEffect(RecipientAdmin, fmt.Sprintf("工单 %s 今日未完成，明日继续：%s", job.JobCode, p.Reason),
			map[string]interface{}{"job_id": job.ID}),
	}, nil
}

func (e *Engine) applyResume(job *entity.Job, actor Actor, now time.Time) ([]SideEffect, error) {
	job.Status = entity.JobStatusInProgress
	return nil, nil
}

func (e *Engine) applyDeferComplete(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if p.TechnicianSignature {
		job.TechnicianSignedAt = &now
	}
	if job.TechnicianSignedAt == nil {
		return nil, preconditionFailed(ActionDeferComplete, job.Status, "technician signature is required")
	}
	if job.CustomerSignedAt != nil {
		return nil, preconditionFailed(ActionDeferComplete, job.Status, "customer signature present, use complete instead")
	}
	if p.Reason == "" {
		return nil, validationError(ActionDeferComplete, "defer reason is required")
	}
	if len(p.EvidenceMediaIDs) < 1 {
		return nil, preconditionFailed(ActionDeferComplete, job.Status, "at least one evidence photo is required")
	}
	if p.EndHourmeterReading != nil {
		job.EndHourmeterReading = p.EndHourmeterReading
	}

	expires := addBusinessDays(now, e.cfg.AckWindowBusinessDays)
	job.Status = entity.JobStatusCompletedAwaitingAck
	job.AckWindowExpiresAt = &expires
	job.EvidenceMediaIDs = entity.StringList(p.EvidenceMediaIDs)
	job.RepairEndTime = &now
	job.ContinueReason = ""

	return []SideEffect{
		notifyEffect(RecipientAdmin,
			fmt.Sprintf("工单 %s 延迟完成，待客户确认至 %s", job.JobCode, expires.Format("2006-01-02")),
			map[string]interface{}{"job_id": job.ID, "reason": p.Reason}),
	}, nil
}

func (e *Engine) applyDispute(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if job.AckWindowExpiresAt != nil && now.After(*job.AckWindowExpiresAt) {
		return nil, preconditionFailed(ActionDispute, job.Status, "acknowledgement window already expired")
	}
	if p.Reason == "" {
		return nil, validationError(ActionDispute, "dispute reason is required")
	}
	job.Status = entity.JobStatusDisputed
	job.DisputedAt = &now
	job.DisputeReason = p.Reason
	return []SideEffect{
		notifyEffect(RecipientSupervisor, fmt.Sprintf("工单 %s 客户提出异议：%s", job.JobCode, p.Reason),
			map[string]interface{}{"job_id": job.ID}),
	}, nil
}

func (e *Engine) applyAckExpire(job *entity.Job, actor Actor, now time.Time) ([]SideEffect, error) {
	if job.AckWindowExpiresAt == nil || now.Before(*job.AckWindowExpiresAt) {
		return nil, preconditionFailed(ActionAckExpire, job.Status, "acknowledgement window has not expired")
	}
	// 窗口期满无异议，自动转完成；开票仍需双确认后finalize
	job.Status = entity.JobStatusCompleted
	job.CompletedAt = &now
	return nil, nil
}

func (e *Engine) applyResolveDispute(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	switch p.DisputeOutcome {
	case DisputeOutcomeRework:
		job.Status = entity.JobStatusInProgress
		job.AckWindowExpiresAt = nil
	case DisputeOutcomeUphold:
		job.Status = entity.JobStatusAwaitingFinalization
		job.CompletedAt = &now
	default:
		return nil, validationError(ActionResolveDispute, "dispute outcome must be rework or uphold")
	}
	return nil, nil
}

func (e *Engine) applyComplete(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if actor.Role == entity.RoleTechnician && actor.ID != job.AssignedTechnicianID {
		return nil, unauthorized(ActionComplete, "only the assigned technician may complete")
	}

	if p.Checklist != nil {
		job.ConditionChecklist = mergeChecklist(job.ConditionChecklist, p.Checklist)
	}
	if p.CheckAll {
		job.ConditionChecklist = CheckAll(job.ConditionChecklist, MandatoryKeys(job.ChecklistTemplate))
	}
	if p.TechnicianSignature {
		job.TechnicianSignedAt = &now
	}
	if p.CustomerSignature {
		job.CustomerSignedAt = &now
	}
	if p.AfterPhotoMediaID != "" {
		job.AfterPhotoMediaID = p.AfterPhotoMediaID
	}
	if p.EndHourmeterReading != nil {
		job.EndHourmeterReading = p.EndHourmeterReading
	}

	if job.TechnicianSignedAt == nil {
		return nil, preconditionFailed(ActionComplete, job.Status, "technician signature is required")
	}
	if job.CustomerSignedAt == nil {
		return nil, preconditionFailed(ActionComplete, job.Status, "customer signature is required")
	}
	if requiresAfterPhoto(job.JobType) && job.AfterPhotoMediaID == "" {
		return nil, preconditionFailed(ActionComplete, job.Status, "after photo required")
	}
	if requiresHourmeter(job.JobType) && job.HourmeterReading == nil {
		return nil, preconditionFailed(ActionComplete, job.Status, "hourmeter reading required")
	}

	var effects []SideEffect

	result := EvaluateChecklist(job.ConditionChecklist, MandatoryKeys(job.ChecklistTemplate))
	if requiresChecklist(job.JobType) && !result.Complete() {
		if !p.OverrideChecklist {
			return nil, preconditionFailed(ActionComplete, job.Status,
				fmt.Sprintf("checklist incomplete: %d of %d mandatory items missing", len(result.MissingKeys), result.TotalMandatory))
		}
		// 强制跳过必检项：受策略开关控制，需高权限角色与足够长的理由，且留痕
		if !e.cfg.AllowChecklistOverride {
			return nil, preconditionFailed(ActionComplete, job.Status, "checklist override is disabled by policy")
		}
		if !isElevated(actor.Role) {
			return nil, unauthorized(ActionComplete, "checklist override requires supervisor or admin")
		}
		if len(p.Reason) < e.cfg.MinReasonLength {
			return nil, validationError(ActionComplete,
				fmt.Sprintf("override reason must be at least %d characters", e.cfg.MinReasonLength))
		}
		job.ChecklistOverridden = true
		job.ChecklistOverrideReason = p.Reason
		job.ChecklistOverrideBy = actor.ID
		effects = append(effects, notifyEffect(RecipientAdmin,
			fmt.Sprintf("工单 %s 强制跳过必检项完成：%s", job.JobCode, p.Reason),
			map[string]interface{}{"job_id": job.ID, "missing_keys": result.MissingKeys}))
	}

	job.Status = entity.JobStatusAwaitingFinalization
	job.CompletedAt = &now
	if job.RepairEndTime == nil {
		job.RepairEndTime = &now
	}

	effects = append(effects, notifyEffect(RecipientStoreman,
		fmt.Sprintf("工单 %s 已完工，待配件确认", job.JobCode),
		map[string]interface{}{"job_id": job.ID}))
	return effects, nil
}

func (e *Engine) applyConfirmParts(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if job.InvoicedAt != nil {
		return nil, invalidTransition(ActionConfirmParts, job.Status)
	}
	if job.PartsConfirmedAt != nil || job.PartsConfirmationSkipped {
		return nil, preconditionFailed(ActionConfirmParts, job.Status, "parts already confirmed")
	}

	if len(job.PartsUsed) == 0 {
		job.PartsConfirmationSkipped = true
	} else {
		job.PartsConfirmedAt = &now
	}
	job.PartsConfirmedByID = actor.ID
	job.PartsConfirmedByName = actor.Name
	job.PartsConfirmationNotes = p.Notes
	return nil, nil
}

func (e *Engine) applyConfirmJob(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if job.InvoicedAt != nil {
		return nil, invalidTransition(ActionConfirmJob, job.Status)
	}
	if job.JobConfirmedAt != nil {
		return nil, preconditionFailed(ActionConfirmJob, job.Status, "job already confirmed")
	}

	job.JobConfirmedAt = &now
	job.JobConfirmedByID = actor.ID
	job.JobConfirmedByName = actor.Name
	job.JobConfirmationNotes = p.Notes
	return nil, nil
}

func (e *Engine) applyFinalize(job *entity.Job, actor Actor, now time.Time) ([]SideEffect, error) {
	if job.InvoicedAt != nil {
		return nil, invalidTransition(ActionFinalize, job.Status)
	}
	state := EvaluateConfirmation(job)
	if !state.ReadyToFinalize() {
		return nil, preconditionFailed(ActionFinalize, job.Status,
			fmt.Sprintf("confirmation gates not satisfied: %v", state.Missing))
	}
	// 无用料时配件门自动视作跳过，落库留痕
	if state.PartsSkipped && !job.PartsConfirmationSkipped {
		job.PartsConfirmationSkipped = true
	}

	job.Status = entity.JobStatusCompleted
	job.InvoicedAt = &now
	if job.CompletedAt == nil {
		job.CompletedAt = &now
	}

	return []SideEffect{
		exportEffect(job.ID),
		notifyEffect(RecipientAccountant, fmt.Sprintf("工单 %s 已开票，待导出AutoCount", job.JobCode),
			map[string]interface{}{"job_id": job.ID, "amount": job.InvoiceTotal()}),
	}, nil
}

func (e *Engine) applyCancel(job *entity.Job, actor Actor, p Payload, now time.Time) ([]SideEffect, error) {
	if p.Reason == "" {
		return nil, validationError(ActionCancel, "cancellation reason is required")
	}

	job.Status = entity.JobStatusCancelled
	job.CancelledAt = &now
	job.CancelReason = p.Reason
	// 已录读数标记失效而非删除
	if job.HourmeterReading != nil {
		job.HourmeterInvalidated = true
	}

	return []SideEffect{
		notifyEffect(RecipientAdmin, fmt.Sprintf("工单 %s 已取消：%s", job.JobCode, p.Reason),
			map[string]interface{}{"job_id": job.ID}),
	}, nil
}

func (e *Engine) applyAcknowledge(job *entity.Job, actor Actor, now time.Time) ([]SideEffect, error) {
	if job.JobType != entity.JobTypeSlotIn {
		return nil, preconditionFailed(ActionAcknowledge, job.Status, "only slot-in jobs require acknowledgement")
	}
	if job.AcknowledgedAt != nil {
		return nil, preconditionFailed(ActionAcknowledge, job.Status, "job already acknowledged")
	}
	job.AcknowledgedAt = &now
	return nil, nil
}

func (e *Engine) applyEscalate(job *entity.Job, actor Actor, now time.Time) ([]SideEffect, error) {
	sla := EvaluateSla(job, now)
	if !sla.Applicable {
		return nil, preconditionFailed(ActionEscalate, job.Status, "job is not subject to SLA tracking")
	}
	// 单向标记：一经设置不再自动清除，需人工处理
	if sla.Escalated {
		return nil, preconditionFailed(ActionEscalate, job.Status, "escalation already triggered")
	}
	if !sla.Overdue || !sla.PendingAck {
		return nil, preconditionFailed(ActionEscalate, job.Status, "job is not overdue pending acknowledgement")
	}

	job.EscalationTriggeredAt = &now
	return []SideEffect{
		notifyEffect(RecipientAdmin,
			fmt.Sprintf("插单工单 %s 超时未响应，已升级（SLA %d 分钟）", job.JobCode, job.SLATargetMinutes),
			map[string]interface{}{"job_id": job.ID, "elapsed_minutes": sla.Elapsed.Minutes()}),
	}, nil
}

func requiresAfterPhoto(jobType string) bool {
	switch jobType {
	case entity.JobTypeService, entity.JobTypeRepair, entity.JobTypeSlotIn:
		return true
	}
	return false
}

func requiresChecklist(jobType string) bool {
	return jobType != entity.JobTypeCourier
}

func requiresHourmeter(jobType string) bool {
	switch jobType {
	case entity.JobTypeService, entity.JobTypeRepair, entity.JobTypeSlotIn, entity.JobTypeChecking:
		return true
	}
	return false
}

func statusIn(status string, set []string) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func mergeChecklist(base, overlay entity.ChecklistMap) entity.ChecklistMap {
	next := make(entity.ChecklistMap, len(base)+len(overlay))
	for k, v := range base {
		next[k] = v
	}
	for k, v := range overlay {
		next[k] = v
	}
	return next
}

// cloneJob 深拷贝快照——引擎绝不改写调用方传入的对象
func cloneJob(job *entity.Job) *entity.Job {
	next := *job
	if job.ConditionChecklist != nil {
		next.ConditionChecklist = make(entity.ChecklistMap, len(job.ConditionChecklist))
		for k, v := range job.ConditionChecklist {
			next.ConditionChecklist[k] = v
		}
	}
	if job.HourmeterFlagReasons != nil {
		next.HourmeterFlagReasons = append(entity.StringList(nil), job.HourmeterFlagReasons...)
	}
	if job.EvidenceMediaIDs != nil {
		next.EvidenceMediaIDs = append(entity.StringList(nil), job.EvidenceMediaIDs...)
	}
	if job.PartsUsed != nil {
		next.PartsUsed = append([]entity.PartUsage(nil), job.PartsUsed...)
	}
	if job.ExtraCharges != nil {
		next.ExtraCharges = append([]entity.Charge(nil), job.ExtraCharges...)
	}
	return &next
}
