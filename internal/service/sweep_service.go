package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"go.uber.org/zap"
)

// systemActor 巡检任务以系统身份执行转换
var systemActor = engine.Actor{ID: "system", Name: "system", Role: engine.RoleSystem}

// SweepService 后台巡检服务
// 周期扫描逾期插单、确认窗口到期、接单超时和待导出发票
type SweepService struct {
	scheduler gocron.Scheduler
	jobSvc    *JobService
	exportSvc *ExportService
	repos     *repository.Repositories
	logger    *zap.Logger
}

// NewSweepService 创建巡检服务
func NewSweepService(jobSvc *JobService, exportSvc *ExportService,
	repos *repository.Repositories, logger *zap.Logger) *SweepService {
	return &SweepService{
		jobSvc:    jobSvc,
		exportSvc: exportSvc,
		repos:     repos,
		logger:    logger,
	}
}

// SweepIntervals 各巡检任务周期
type SweepIntervals struct {
	Escalation      time.Duration
	AckExpire       time.Duration
	Acceptance      time.Duration
	Export          time.Duration
	ExportBatchSize int
}

// Start 注册并启动巡检任务
func (s *SweepService) Start(intervals SweepIntervals) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	s.scheduler = scheduler

	tasks := []struct {
		name     string
		interval time.Duration
		fn       func()
	}{
		{"sla-escalation", intervals.Escalation, s.sweepEscalations},
		{"ack-window-expiry", intervals.AckExpire, s.sweepAckExpired},
		{"acceptance-expiry", intervals.Acceptance, s.sweepAcceptanceExpired},
		{"export-push", intervals.Export, func() { s.sweepExports(intervals.ExportBatchSize) }},
	}

	for _, t := range tasks {
		if t.interval <= 0 {
			continue
		}
		if _, err := s.scheduler.NewJob(
			gocron.DurationJob(t.interval),
			gocron.NewTask(t.fn),
			gocron.WithName(t.name),
		); err != nil {
			return fmt.Errorf("register sweep %s: %w", t.name, err)
		}
	}

	s.scheduler.Start()
	s.logger.Info("sweep scheduler started")
	return nil
}

// Stop 停止巡检任务
func (s *SweepService) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// sweepEscalations 扫描逾期未响应的插单工单并升级
// 每张工单只升级一次，由引擎保证
func (s *SweepService) sweepEscalations() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs, err := s.repos.Job.ListEscalationCandidates(ctx, nowUTC())
	if err != nil {
		s.logger.Error("list escalation candidates failed", zap.Error(err))
		return
	}

	for i := range jobs {
		job := &jobs[i]
		if _, err := s.jobSvc.ApplyAction(ctx, job.ID, engine.ActionEscalate, systemActor, engine.Payload{}); err != nil {
			// 并发下另一实例可能已处理，冲突不是故障
			if !isConflict(err) {
				s.logger.Warn("escalate job failed",
					zap.String("job_id", job.ID), zap.Error(err))
			}
			continue
		}
		s.logger.Info("slot-in job escalated",
			zap.String("job_id", job.ID), zap.String("job_code", job.JobCode))
	}
}

// sweepAckExpired 扫描确认窗口到期的延迟完成工单
func (s *SweepService) sweepAckExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs, err := s.repos.Job.ListAckWindowExpired(ctx, nowUTC())
	if err != nil {
		s.logger.Error("list ack-expired jobs failed", zap.Error(err))
		return
	}

	for i := range jobs {
		job := &jobs[i]
		if _, err := s.jobSvc.ApplyAction(ctx, job.ID, engine.ActionAckExpire, systemActor, engine.Payload{}); err != nil {
			if !isConflict(err) {
				s.logger.Warn("ack-expire job failed",
					zap.String("job_id", job.ID), zap.Error(err))
			}
			continue
		}
		s.logger.Info("ack window expired, job auto-resolved",
			zap.String("job_id", job.ID), zap.String("job_code", job.JobCode))
	}
}

// sweepAcceptanceExpired 扫描接单超时的工单，提醒管理员改派
// 接单超时不改库，过期态由读取端推导，这里只发通知
func (s *SweepService) sweepAcceptanceExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs, err := s.repos.Job.ListAcceptanceExpired(ctx, nowUTC())
	if err != nil {
		s.logger.Error("list acceptance-expired jobs failed", zap.Error(err))
		return
	}

	for i := range jobs {
		job := &jobs[i]
		s.jobSvc.sendNotify(ctx, job, engine.SideEffect{
			Kind:      engine.EffectNotify,
			Recipient: engine.RecipientAdmin,
			Message:   fmt.Sprintf("工单 %s 技师超时未接单，请改派", job.JobCode),
		})
	}
}

// sweepExports 推送待导出的发票
func (s *SweepService) sweepExports(batchSize int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if batchSize <= 0 {
		batchSize = 20
	}
	pushed := s.exportSvc.PushPending(ctx, batchSize)
	if pushed > 0 {
		s.logger.Info("export sweep finished", zap.Int("pushed", pushed))
	}
}

// isConflict 判断错误是否为并发冲突拒绝
func isConflict(err error) bool {
	rej, ok := err.(*engine.Rejection)
	return ok && rej.Kind == engine.RejectConflict
}
