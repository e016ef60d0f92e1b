package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"gorm.io/gorm"
)

// JobRepository 工单仓库
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository 创建工单仓库
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// FindByID 根据ID查找工单（含用料、费用、请求）
func (r *JobRepository) FindByID(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Forklift").
		Preload("Technician").
		Preload("PartsUsed").
		Preload("ExtraCharges").
		Preload("Requests").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&job).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &job, nil
}

// Create 创建工单
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// UpdateCAS 带版本校验更新工单——版本不匹配返回ErrVersionConflict
// 引擎转换产生的快照必须通过该入口落库，禁止盲写
func (r *JobRepository) UpdateCAS(ctx context.Context, job *entity.Job, expectedVersion int) error {
	job.Version = expectedVersion + 1
	result := r.db.WithContext(ctx).
		Model(&entity.Job{}).
		Where("id = ? AND version = ?", job.ID, expectedVersion).
		Select("*").
		Omit("PartsUsed", "ExtraCharges", "Requests", "Customer", "Forklift", "Technician", "created_at").
		Updates(job)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// JobListParams 工单列表查询参数
type JobListParams struct {
	Page         int
	PageSize     int
	Status       string
	JobType      string
	CustomerID   string
	ForkliftID   string
	TechnicianID string
	Flagged      *bool
}

// List 工单分页查询
func (r *JobRepository) List(ctx context.Context, params JobListParams) ([]entity.Job, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Job{}).Where("deleted_at IS NULL")

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.JobType != "" {
		query = query.Where("job_type = ?", params.JobType)
	}
	if params.CustomerID != "" {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.ForkliftID != "" {
		query = query.Where("forklift_id = ?", params.ForkliftID)
	}
	if params.TechnicianID != "" {
		query = query.Where("assigned_technician_id = ?", params.TechnicianID)
	}
	if params.Flagged != nil {
		query = query.Where("hourmeter_flagged = ?", *params.Flagged)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	var jobs []entity.Job
	err := query.
		Preload("Customer").
		Preload("Technician").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// SoftDelete 软删除工单——已完成工单不可删除，由服务层保证
func (r *JobRepository) SoftDelete(ctx context.Context, id, reason string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.Job{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at":      &now,
			"deletion_reason": reason,
		}).Error
}

// ListEscalationCandidates 查找超时未响应且未升级的插单工单，供定时扫描
func (r *JobRepository) ListEscalationCandidates(ctx context.Context, now time.Time) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Where("job_type = ?", entity.JobTypeSlotIn).
		Where("acknowledged_at IS NULL").
		Where("escalation_triggered_at IS NULL").
		Where("deleted_at IS NULL").
		Where("status IN ?", []string{entity.JobStatusNew, entity.JobStatusAssigned, entity.JobStatusInProgress}).
		Where("created_at + make_interval(mins => GREATEST(sla_target_minutes, ?)) < ?", entity.SlotInDefaultSLAMinutes, now).
		Find(&jobs).Error
	return jobs, err
}

// ListAckWindowExpired 查找确认窗口已过期的延迟完成工单
func (r *JobRepository) ListAckWindowExpired(ctx context.Context, now time.Time) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.JobStatusCompletedAwaitingAck).
		Where("ack_window_expires_at IS NOT NULL AND ack_window_expires_at < ?", now).
		Where("deleted_at IS NULL").
		Find(&jobs).Error
	return jobs, err
}

// ListAcceptanceExpired 查找技师响应超时的工单，只用于提醒展示，不改状态
func (r *JobRepository) ListAcceptanceExpired(ctx context.Context, now time.Time) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.JobStatusAssigned).
		Where("acceptance_state = ?", entity.AcceptancePending).
		Where("technician_response_deadline IS NOT NULL AND technician_response_deadline < ?", now).
		Where("deleted_at IS NULL").
		Find(&jobs).Error
	return jobs, err
}

// AddPartUsage 添加工单用料
func (r *JobRepository) AddPartUsage(ctx context.Context, usage *entity.PartUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

// AddCharge 添加附加费用
func (r *JobRepository) AddCharge(ctx context.Context, charge *entity.Charge) error {
	return r.db.WithContext(ctx).Create(charge).Error
}

// GenerateCode 生成工单编码
func (r *JobRepository) GenerateCode(ctx context.Context) (string, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw("SELECT nextval('job_code_seq')").Scan(&seq).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JOB-%s-%04d", time.Now().Format("20060102"), seq), nil
}
