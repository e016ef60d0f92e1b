package repository

import (
	"context"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"gorm.io/gorm"
)

// ForkliftRepository 叉车资产仓库
type ForkliftRepository struct {
	db *gorm.DB
}

// NewForkliftRepository 创建叉车资产仓库
func NewForkliftRepository(db *gorm.DB) *ForkliftRepository {
	return &ForkliftRepository{db: db}
}

// FindByID 根据ID查找叉车
func (r *ForkliftRepository) FindByID(ctx context.Context, id string) (*entity.Forklift, error) {
	var forklift entity.Forklift
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&forklift).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &forklift, nil
}

// Create 创建叉车
func (r *ForkliftRepository) Create(ctx context.Context, forklift *entity.Forklift) error {
	return r.db.WithContext(ctx).Create(forklift).Error
}

// Update 更新叉车
func (r *ForkliftRepository) Update(ctx context.Context, forklift *entity.Forklift) error {
	return r.db.WithContext(ctx).Save(forklift).Error
}

// List 叉车列表
func (r *ForkliftRepository) List(ctx context.Context, customerID string, serviceDueOnly bool) ([]entity.Forklift, error) {
	query := r.db.WithContext(ctx).Where("deleted_at IS NULL")
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if serviceDueOnly {
		query = query.Where("service_due = true")
	}
	var forklifts []entity.Forklift
	err := query.Order("fleet_no").Find(&forklifts).Error
	return forklifts, err
}

// LatestValidReading 最近一条未失效读数
func (r *ForkliftRepository) LatestValidReading(ctx context.Context, forkliftID string) (*entity.HourmeterRecord, error) {
	var record entity.HourmeterRecord
	err := r.db.WithContext(ctx).
		Where("forklift_id = ? AND invalidated = false", forkliftID).
		Order("captured_at DESC").
		First(&record).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &record, nil
}

// AddReading 追加读数记录并刷新叉车当前表读数
func (r *ForkliftRepository) AddReading(ctx context.Context, record *entity.HourmeterRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Forklift{}).
			Where("id = ?", record.ForkliftID).
			Update("current_hourmeter", record.Reading).Error
	})
}

// InvalidateJobReadings 将指定工单的读数全部标记失效（取消工单时调用）
func (r *ForkliftRepository) InvalidateJobReadings(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.HourmeterRecord{}).
		Where("job_id = ?", jobID).
		Update("invalidated", true).Error
}

// ListReadings 读数历史
func (r *ForkliftRepository) ListReadings(ctx context.Context, forkliftID string, limit int) ([]entity.HourmeterRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []entity.HourmeterRecord
	err := r.db.WithContext(ctx).
		Where("forklift_id = ?", forkliftID).
		Order("captured_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// MarkServiceDone 记录大保养完成，重置500小时计数
func (r *ForkliftRepository) MarkServiceDone(ctx context.Context, forkliftID string, hourmeter float64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Forklift{}).
		Where("id = ?", forkliftID).
		Updates(map[string]interface{}{
			"last_service_hourmeter": hourmeter,
			"last_service_at":        &at,
			"service_due":            false,
		}).Error
}

// MarkServiceDue 标记保养到期，车队页面可见
func (r *ForkliftRepository) MarkServiceDue(ctx context.Context, forkliftID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Forklift{}).
		Where("id = ?", forkliftID).
		Update("service_due", true).Error
}

// ============================================================
// 小时表修正单
// ============================================================

// CreateAmendment 创建修正单
func (r *ForkliftRepository) CreateAmendment(ctx context.Context, amendment *entity.HourmeterAmendment) error {
	return r.db.WithContext(ctx).Create(amendment).Error
}

// FindAmendmentByID 根据ID查找修正单
func (r *ForkliftRepository) FindAmendmentByID(ctx context.Context, id string) (*entity.HourmeterAmendment, error) {
	var amendment entity.HourmeterAmendment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&amendment).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &amendment, nil
}

// UpdateAmendment 更新修正单
func (r *ForkliftRepository) UpdateAmendment(ctx context.Context, amendment *entity.HourmeterAmendment) error {
	return r.db.WithContext(ctx).Save(amendment).Error
}

// ListPendingAmendments 待处理修正单列表
func (r *ForkliftRepository) ListPendingAmendments(ctx context.Context) ([]entity.HourmeterAmendment, error) {
	var amendments []entity.HourmeterAmendment
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.AmendmentStatusPending).
		Order("created_at").
		Find(&amendments).Error
	return amendments, err
}
