package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/shared/notify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// jobLockTTL 工单分布式锁超时，覆盖一次完整的读-算-写
const jobLockTTL = 10 * time.Second

// JobService 工单服务——引擎宿主
// 负责加载快照、调用引擎、持久化新快照并执行副作用
type JobService struct {
	repos     *repository.Repositories
	eng       *engine.Engine
	rdb       *redis.Client
	notifier  *notify.NotifyClient
	exportSvc *ExportService
	logger    *zap.Logger
}

// NewJobService 创建工单服务
func NewJobService(repos *repository.Repositories, eng *engine.Engine, rdb *redis.Client,
	notifier *notify.NotifyClient, exportSvc *ExportService, logger *zap.Logger) *JobService {
	return &JobService{
		repos:     repos,
		eng:       eng,
		rdb:       rdb,
		notifier:  notifier,
		exportSvc: exportSvc,
		logger:    logger,
	}
}

// CreateJobInput 创建工单参数
type CreateJobInput struct {
	CustomerID       string  `json:"customer_id" binding:"required"`
	ForkliftID       string  `json:"forklift_id"`
	JobType          string  `json:"job_type" binding:"required,oneof=service repair checking slot_in courier"`
	Priority         string  `json:"priority"`
	Title            string  `json:"title" binding:"required"`
	Description      string  `json:"description"`
	SLATargetMinutes int     `json:"sla_target_minutes"`
	LaborCost        float64 `json:"labor_cost"`
}

// CreateJob 创建工单
func (s *JobService) CreateJob(ctx context.Context, input CreateJobInput, creator engine.Actor) (*entity.Job, error) {
	if _, err := s.repos.Customer.FindByID(ctx, input.CustomerID); err != nil {
		return nil, fmt.Errorf("customer not found: %w", err)
	}
	if input.ForkliftID != "" {
		if _, err := s.repos.Forklift.FindByID(ctx, input.ForkliftID); err != nil {
			return nil, fmt.Errorf("forklift not found: %w", err)
		}
	}
	// 除快递跑腿外，工单必须挂叉车
	if input.ForkliftID == "" && input.JobType != entity.JobTypeCourier {
		return nil, fmt.Errorf("forklift is required for job type %s", input.JobType)
	}

	code, err := s.repos.Job.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate job code: %w", err)
	}

	now := nowUTC()
	priority := input.Priority
	if priority == "" {
		priority = entity.JobPriorityNormal
	}
	sla := input.SLATargetMinutes
	if input.JobType == entity.JobTypeSlotIn && sla <= 0 {
		sla = entity.SlotInDefaultSLAMinutes
	}

	job := &entity.Job{
		ID:               uuid.New().String()[:32],
		JobCode:          code,
		CustomerID:       input.CustomerID,
		ForkliftID:       input.ForkliftID,
		JobType:          input.JobType,
		Priority:         priority,
		Title:            input.Title,
		Description:      input.Description,
		Status:           entity.JobStatusNew,
		SLATargetMinutes: sla,
		LaborCost:        input.LaborCost,
		CreatedBy:        creator.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.audit(ctx, job.ID, &entity.JobAuditLog{
		Action:    "create",
		ToStatus:  job.Status,
		ActorID:   creator.ID,
		ActorRole: creator.Role,
		Detail:    entity.JSONB{"job_code": job.JobCode, "job_type": job.JobType},
	})

	return job, nil
}

// GetJob 获取工单详情
func (s *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	return s.repos.Job.FindByID(ctx, id)
}

// ListJobs 工单分页查询
func (s *JobService) ListJobs(ctx context.Context, params repository.JobListParams) ([]entity.Job, int64, error) {
	return s.repos.Job.List(ctx, params)
}

// ApplyAction 执行一次生命周期转换
// 单写者保证：redis分布式锁串行化同一工单的并发请求，乐观锁版本号兜底
func (s *JobService) ApplyAction(ctx context.Context, jobID string, action engine.Action,
	actor engine.Actor, p engine.Payload) (*entity.Job, error) {

	lockKey := "lock:job:" + jobID
	ok, err := s.rdb.SetNX(ctx, lockKey, actor.ID, jobLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if !ok {
		return nil, engine.Conflict(action, "job is being modified by another request")
	}
	defer s.rdb.Del(ctx, lockKey)

	job, err := s.repos.Job.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// 需要小时表上下文的动作补充叉车快照
	if p.Forklift == nil && job.ForkliftID != "" && actionNeedsForklift(action) {
		fc, err := s.buildForkliftContext(ctx, job.ForkliftID)
		if err != nil {
			return nil, fmt.Errorf("load forklift context: %w", err)
		}
		p.Forklift = fc
	}

	expectedVersion := job.Version
	newJob, effects, err := s.eng.Apply(job, action, actor, p)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Job.UpdateCAS(ctx, newJob, expectedVersion); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, engine.Conflict(action, "job was modified concurrently, reload and retry")
		}
		return nil, fmt.Errorf("persist job: %w", err)
	}

	s.applyDomainFollowups(ctx, job, newJob, action, actor, p)
	s.dispatchEffects(ctx, newJob, effects)

	return newJob, nil
}

// actionNeedsForklift 判断动作是否需要小时表上下文
func actionNeedsForklift(action engine.Action) bool {
	switch action {
	case engine.ActionStart, engine.ActionRecordHourmeter, engine.ActionComplete, engine.ActionDeferComplete:
		return true
	}
	return false
}

// buildForkliftContext 组装引擎所需的叉车快照
func (s *JobService) buildForkliftContext(ctx context.Context, forkliftID string) (*engine.ForkliftContext, error) {
	forklift, err := s.repos.Forklift.FindByID(ctx, forkliftID)
	if err != nil {
		return nil, err
	}

	fc := &engine.ForkliftContext{
		AvgDailyUsageHours:   forklift.AvgDailyUsageHours,
		LastServiceHourmeter: forklift.LastServiceHourmeter,
	}

	latest, err := s.repos.Forklift.LatestValidReading(ctx, forkliftID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if latest != nil {
		fc.PreviousReading = &latest.Reading
		fc.PreviousAt = &latest.CapturedAt
	}

	return fc, nil
}

// applyDomainFollowups 转换成功后的领域级联动作
// 读数落库、取消作废读数、保养升级结果回写叉车档案
func (s *JobService) applyDomainFollowups(ctx context.Context, oldJob, newJob *entity.Job,
	action engine.Action, actor engine.Actor, p engine.Payload) {

	now := nowUTC()

	// 新读数落库并推进叉车当前表读数
	if p.HourmeterReading != nil && recordsReading(action) {
		capturedAt := now
		if p.HourmeterCapturedAt != nil {
			capturedAt = *p.HourmeterCapturedAt
		}
		s.persistReading(ctx, newJob, actor, *p.HourmeterReading, capturedAt, now,
			newJob.HourmeterFlagged, newJob.HourmeterFlagReasons)
	}
	if p.EndHourmeterReading != nil && (action == engine.ActionComplete || action == engine.ActionDeferComplete) {
		s.persistEndReading(ctx, newJob, actor, *p.EndHourmeterReading, now)
	}

	switch action {
	case engine.ActionCancel:
		// 取消工单：读数标记作废，不参与后续异常判定
		if err := s.repos.Forklift.InvalidateJobReadings(ctx, newJob.ID); err != nil {
			s.logger.Warn("invalidate job readings failed",
				zap.String("job_id", newJob.ID), zap.Error(err))
		}
	case engine.ActionFinalize:
		s.settleServiceOutcome(ctx, newJob, now)
	}
}

// recordsReading 判断动作是否携带新的起始读数
func recordsReading(action engine.Action) bool {
	switch action {
	case engine.ActionStart, engine.ActionRecordHourmeter:
		return true
	}
	return false
}

// persistEndReading 完工读数独立校验后落库，不沿用起始读数的标记
func (s *JobService) persistEndReading(ctx context.Context, job *entity.Job, actor engine.Actor,
	reading float64, now time.Time) {

	in := engine.HourmeterInput{
		NewReading: reading,
		CapturedAt: now,
		ReceivedAt: now,
	}
	if latest, err := s.repos.Forklift.LatestValidReading(ctx, job.ForkliftID); err == nil {
		in.PreviousReading = &latest.Reading
		in.PreviousAt = &latest.CapturedAt
	}
	if forklift, err := s.repos.Forklift.FindByID(ctx, job.ForkliftID); err == nil {
		in.AvgDailyUsageHours = forklift.AvgDailyUsageHours
	}

	result := engine.EvaluateHourmeter(in, s.eng.Config().Hourmeter)
	s.persistReading(ctx, job, actor, reading, now, now,
		result.Flagged, entity.StringList(result.Reasons))
}

// persistReading 持久化一条小时表读数记录
func (s *JobService) persistReading(ctx context.Context, job *entity.Job, actor engine.Actor,
	reading float64, capturedAt, receivedAt time.Time, flagged bool, flagReasons entity.StringList) {

	record := &entity.HourmeterRecord{
		ID:          uuid.New().String()[:32],
		ForkliftID:  job.ForkliftID,
		JobID:       job.ID,
		Reading:     reading,
		CapturedAt:  capturedAt,
		ReceivedAt:  receivedAt,
		RecordedBy:  actor.ID,
		Flagged:     flagged,
		FlagReasons: flagReasons,
		CreatedAt:   receivedAt,
	}
	if err := s.repos.Forklift.AddReading(ctx, record); err != nil {
		s.logger.Warn("persist hourmeter reading failed",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	// 异常读数生成修正单，等主管复核
	if flagged {
		amendment := &entity.HourmeterAmendment{
			ID:              uuid.New().String()[:32],
			ForkliftID:      job.ForkliftID,
			JobID:           job.ID,
			RecordID:        record.ID,
			OriginalReading: reading,
			FlagReasons:     flagReasons,
			Status:          entity.AmendmentStatusPending,
			RequestedBy:     actor.ID,
			CreatedAt:       receivedAt,
			UpdatedAt:       receivedAt,
		}
		if err := s.repos.Forklift.CreateAmendment(ctx, amendment); err != nil {
			s.logger.Warn("create hourmeter amendment failed",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// settleServiceOutcome 结账时回写保养结果
// 升级保养按完成读数重置500小时计数，拒绝升级保持到期标记
func (s *JobService) settleServiceOutcome(ctx context.Context, job *entity.Job, now time.Time) {
	if job.JobType != entity.JobTypeService || job.ForkliftID == "" {
		return
	}

	switch job.UpgradeDecision {
	case entity.UpgradeDecisionUpgrade:
		reading := job.CurrentReading()
		if err := s.repos.Forklift.MarkServiceDone(ctx, job.ForkliftID, reading, now); err != nil {
			s.logger.Warn("mark service done failed",
				zap.String("forklift_id", job.ForkliftID), zap.Error(err))
		}
	case entity.UpgradeDecisionDecline:
		if err := s.repos.Forklift.MarkServiceDue(ctx, job.ForkliftID); err != nil {
			s.logger.Warn("mark service due failed",
				zap.String("forklift_id", job.ForkliftID), zap.Error(err))
		}
	default:
		// 未触发升级提示的常规保养也重置计数
		if !job.UpgradePrompted {
			if err := s.repos.Forklift.MarkServiceDone(ctx, job.ForkliftID, job.CurrentReading(), now); err != nil {
				s.logger.Warn("mark service done failed",
					zap.String("forklift_id", job.ForkliftID), zap.Error(err))
			}
		}
	}
}

// dispatchEffects 执行引擎声明的副作用
// 审计必须落库，通知尽力而为，导出交给导出服务
func (s *JobService) dispatchEffects(ctx context.Context, job *entity.Job, effects []engine.SideEffect) {
	for _, fx := range effects {
		switch fx.Kind {
		case engine.EffectAudit:
			log := auditFromEffect(job.ID, fx)
			s.audit(ctx, job.ID, log)
		case engine.EffectNotify:
			s.sendNotify(ctx, job, fx)
		case engine.EffectExport:
			if _, err := s.exportSvc.CreateForJob(ctx, job, "system"); err != nil {
				s.logger.Warn("create export record failed",
					zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

// auditFromEffect 将审计副作用翻译成日志实体
func auditFromEffect(jobID string, fx engine.SideEffect) *entity.JobAuditLog {
	log := &entity.JobAuditLog{
		JobID:  jobID,
		Detail: entity.JSONB{},
	}
	for k, v := range fx.Meta {
		switch k {
		case "action":
			log.Action, _ = v.(string)
		case "from_status":
			log.FromStatus, _ = v.(string)
		case "to_status":
			log.ToStatus, _ = v.(string)
		case "actor_id":
			log.ActorID, _ = v.(string)
		case "actor_role":
			log.ActorRole, _ = v.(string)
		default:
			log.Detail[k] = v
		}
	}
	return log
}

// audit 落一条审计日志，失败只告警不回滚业务
func (s *JobService) audit(ctx context.Context, jobID string, log *entity.JobAuditLog) {
	log.ID = uuid.New().String()[:32]
	log.JobID = jobID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = nowUTC()
	}
	if err := s.repos.Audit.Create(ctx, log); err != nil {
		s.logger.Error("write audit log failed",
			zap.String("job_id", jobID), zap.String("action", log.Action), zap.Error(err))
	}
}

// sendNotify 按角色分发通知
// 个人配置了webhook地址则点对点推送，否则落到默认群地址
func (s *JobService) sendNotify(ctx context.Context, job *entity.Job, fx engine.SideEffect) {
	msg := notify.Message{
		Title:   fmt.Sprintf("工单 %s", job.JobCode),
		Body:    fx.Message,
		JobCode: job.JobCode,
		Meta:    map[string]string{"job_id": job.ID, "recipient": fx.Recipient},
	}

	url := ""
	if fx.Recipient == engine.RecipientTechnician && job.AssignedTechnicianID != "" {
		if tech, err := s.repos.User.FindByID(ctx, job.AssignedTechnicianID); err == nil {
			url = tech.NotifyURL
		}
	}

	if err := s.notifier.SendTo(ctx, url, msg); err != nil {
		s.logger.Warn("send notification failed",
			zap.String("job_id", job.ID), zap.String("recipient", fx.Recipient), zap.Error(err))
	}
}

// AddPart 登记用料
// 结账后不可再改动财务明细
func (s *JobService) AddPart(ctx context.Context, jobID string, usage *entity.PartUsage, actor engine.Actor) error {
	job, err := s.repos.Job.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.InvoicedAt != nil {
		return engine.Conflict(engine.ActionConfirmParts, "job already invoiced")
	}
	if usage.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	usage.ID = uuid.New().String()[:32]
	usage.JobID = jobID
	usage.AddedBy = actor.ID
	usage.CreatedAt = nowUTC()
	if err := s.repos.Job.AddPartUsage(ctx, usage); err != nil {
		return fmt.Errorf("add part usage: %w", err)
	}

	s.audit(ctx, jobID, &entity.JobAuditLog{
		Action:    "add_part",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Detail: entity.JSONB{
			"part_no": usage.PartNo, "quantity": usage.Quantity, "unit_price": usage.UnitPrice,
		},
	})
	return nil
}

// AddCharge 登记附加费用
func (s *JobService) AddCharge(ctx context.Context, jobID string, charge *entity.Charge, actor engine.Actor) error {
	job, err := s.repos.Job.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.InvoicedAt != nil {
		return engine.Conflict(engine.ActionConfirmJob, "job already invoiced")
	}
	if charge.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	charge.ID = uuid.New().String()[:32]
	charge.JobID = jobID
	charge.AddedBy = actor.ID
	charge.CreatedAt = nowUTC()
	if err := s.repos.Job.AddCharge(ctx, charge); err != nil {
		return fmt.Errorf("add charge: %w", err)
	}

	s.audit(ctx, jobID, &entity.JobAuditLog{
		Action:    "add_charge",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Detail:    entity.JSONB{"description": charge.Description, "amount": charge.Amount},
	})
	return nil
}

// DeleteJob 软删除工单
// 已结账工单是财务事实，不允许删除
func (s *JobService) DeleteJob(ctx context.Context, jobID, reason string, actor engine.Actor) error {
	job, err := s.repos.Job.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == entity.JobStatusCompleted || job.InvoicedAt != nil {
		return engine.Conflict(engine.ActionCancel, "completed job cannot be deleted")
	}
	if len(reason) == 0 {
		return fmt.Errorf("deletion reason is required")
	}

	if err := s.repos.Job.SoftDelete(ctx, jobID, reason); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}

	s.audit(ctx, jobID, &entity.JobAuditLog{
		Action:     "delete",
		FromStatus: job.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Detail:     entity.JSONB{"reason": reason},
	})
	return nil
}

// GetAuditTrail 工单审计轨迹
func (s *JobService) GetAuditTrail(ctx context.Context, jobID string) ([]entity.JobAuditLog, error) {
	return s.repos.Audit.ListByJob(ctx, jobID)
}

// SlaStatus 查询工单SLA视图
func (s *JobService) SlaStatus(ctx context.Context, jobID string) (*engine.SlaStatus, error) {
	job, err := s.repos.Job.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	status := engine.EvaluateSla(job, nowUTC())
	return &status, nil
}
