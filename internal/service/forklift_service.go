package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/shared/notify"
	"go.uber.org/zap"
)

// ForkliftService 叉车资产服务
// 管理叉车档案、小时表读数历史和异常读数修正流程
type ForkliftService struct {
	repos    *repository.Repositories
	notifier *notify.NotifyClient
	logger   *zap.Logger
}

// NewForkliftService 创建叉车服务
func NewForkliftService(repos *repository.Repositories, notifier *notify.NotifyClient, logger *zap.Logger) *ForkliftService {
	return &ForkliftService{repos: repos, notifier: notifier, logger: logger}
}

// CreateForklift 登记叉车
func (s *ForkliftService) CreateForklift(ctx context.Context, forklift *entity.Forklift) error {
	if forklift.FleetNo == "" {
		return fmt.Errorf("fleet number is required")
	}
	if forklift.CustomerID != "" {
		if _, err := s.repos.Customer.FindByID(ctx, forklift.CustomerID); err != nil {
			return fmt.Errorf("customer not found: %w", err)
		}
	}

	now := nowUTC()
	forklift.ID = uuid.New().String()[:32]
	if forklift.Status == "" {
		forklift.Status = "active"
	}
	forklift.CreatedAt = now
	forklift.UpdatedAt = now
	return s.repos.Forklift.Create(ctx, forklift)
}

// GetForklift 叉车详情
func (s *ForkliftService) GetForklift(ctx context.Context, id string) (*entity.Forklift, error) {
	return s.repos.Forklift.FindByID(ctx, id)
}

// UpdateForklift 更新叉车档案
func (s *ForkliftService) UpdateForklift(ctx context.Context, forklift *entity.Forklift) error {
	forklift.UpdatedAt = nowUTC()
	return s.repos.Forklift.Update(ctx, forklift)
}

// ListForklifts 叉车列表
func (s *ForkliftService) ListForklifts(ctx context.Context, customerID string, serviceDueOnly bool) ([]entity.Forklift, error) {
	return s.repos.Forklift.List(ctx, customerID, serviceDueOnly)
}

// ListReadings 小时表读数历史
func (s *ForkliftService) ListReadings(ctx context.Context, forkliftID string, limit int) ([]entity.HourmeterRecord, error) {
	return s.repos.Forklift.ListReadings(ctx, forkliftID, limit)
}

// UpgradeAdvice 查询保养升级建议
func (s *ForkliftService) UpgradeAdvice(ctx context.Context, forkliftID string) (*engine.UpgradeAdvice, error) {
	forklift, err := s.repos.Forklift.FindByID(ctx, forkliftID)
	if err != nil {
		return nil, err
	}
	advice := engine.AdviseUpgrade(entity.JobTypeService, forklift.CurrentHourmeter, forklift.LastServiceHourmeter)
	return &advice, nil
}

// ListPendingAmendments 待复核的读数修正单
func (s *ForkliftService) ListPendingAmendments(ctx context.Context) ([]entity.HourmeterAmendment, error) {
	return s.repos.Forklift.ListPendingAmendments(ctx)
}

// ResolveAmendment 复核读数修正单
// 批准需给出修正读数和不短于最小长度的理由，批准后清除工单异常标记
func (s *ForkliftService) ResolveAmendment(ctx context.Context, amendmentID string, approve bool,
	correctedReading *float64, justification string, actor engine.Actor) (*entity.HourmeterAmendment, error) {

	if actor.Role != entity.RoleSupervisor && actor.Role != entity.RoleAdmin {
		return nil, engine.Unauthorized(engine.ActionResolveAmendment, "only supervisor or admin may resolve amendments")
	}

	amendment, err := s.repos.Forklift.FindAmendmentByID(ctx, amendmentID)
	if err != nil {
		return nil, err
	}
	if amendment.Status != entity.AmendmentStatusPending {
		return nil, engine.Conflict(engine.ActionResolveAmendment,
			fmt.Sprintf("amendment already %s", amendment.Status))
	}

	now := nowUTC()
	if approve {
		if correctedReading == nil {
			return nil, fmt.Errorf("corrected reading is required for approval")
		}
		if len(justification) < engine.AmendmentMinJustificationLen {
			return nil, fmt.Errorf("justification must be at least %d characters", engine.AmendmentMinJustificationLen)
		}
		amendment.Status = entity.AmendmentStatusApproved
		amendment.CorrectedReading = correctedReading
	} else {
		amendment.Status = entity.AmendmentStatusRejected
	}
	amendment.Justification = justification
	amendment.ResolvedBy = actor.ID
	amendment.ResolvedAt = &now
	amendment.UpdatedAt = now

	if err := s.repos.Forklift.UpdateAmendment(ctx, amendment); err != nil {
		return nil, fmt.Errorf("update amendment: %w", err)
	}

	if approve {
		s.applyCorrection(ctx, amendment, now)
	}
	s.notifyResolution(ctx, amendment)

	return amendment, nil
}

// notifyResolution 通知提交读数的技师复核结果
func (s *ForkliftService) notifyResolution(ctx context.Context, amendment *entity.HourmeterAmendment) {
	msg := notify.Message{
		Title: "读数修正单已复核",
		Body:  fmt.Sprintf("amendment %s resolved: %s", amendment.ID, amendment.Status),
		Meta:  map[string]string{"amendment_id": amendment.ID, "job_id": amendment.JobID},
	}

	url := ""
	if tech, err := s.repos.User.FindByID(ctx, amendment.RequestedBy); err == nil {
		url = tech.NotifyURL
	}
	if err := s.notifier.SendTo(ctx, url, msg); err != nil {
		s.logger.Warn("send amendment notification failed",
			zap.String("amendment_id", amendment.ID), zap.Error(err))
	}
}

// applyCorrection 批准后的级联：修正读数落库，清除工单异常标记
func (s *ForkliftService) applyCorrection(ctx context.Context, amendment *entity.HourmeterAmendment, now time.Time) {
	record := &entity.HourmeterRecord{
		ID:         uuid.New().String()[:32],
		ForkliftID: amendment.ForkliftID,
		JobID:      amendment.JobID,
		Reading:    *amendment.CorrectedReading,
		CapturedAt: now,
		ReceivedAt: now,
		RecordedBy: amendment.ResolvedBy,
		CreatedAt:  now,
	}
	if err := s.repos.Forklift.AddReading(ctx, record); err != nil {
		s.logger.Warn("persist corrected reading failed",
			zap.String("forklift_id", amendment.ForkliftID), zap.Error(err))
	}

	job, err := s.repos.Job.FindByID(ctx, amendment.JobID)
	if err != nil {
		s.logger.Warn("load job for amendment failed",
			zap.String("job_id", amendment.JobID), zap.Error(err))
		return
	}
	job.HourmeterFlagged = false
	job.HourmeterFlagReasons = nil
	job.UpdatedAt = now
	if err := s.repos.Job.UpdateCAS(ctx, job, job.Version); err != nil {
		s.logger.Warn("clear job hourmeter flag failed",
			zap.String("job_id", amendment.JobID), zap.Error(err))
	}
}
