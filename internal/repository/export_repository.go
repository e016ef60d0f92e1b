package repository

import (
	"context"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"gorm.io/gorm"
)

// ExportRepository AutoCount导出记录仓库
type ExportRepository struct {
	db *gorm.DB
}

// NewExportRepository 创建导出记录仓库
func NewExportRepository(db *gorm.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// FindByID 根据ID查找导出记录
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*entity.AutoCountExportRecord, error) {
	var record entity.AutoCountExportRecord
	err := r.db.WithContext(ctx).Preload("Job").Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &record, nil
}

// Create 创建导出记录
func (r *ExportRepository) Create(ctx context.Context, record *entity.AutoCountExportRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update 更新导出记录
func (r *ExportRepository) Update(ctx context.Context, record *entity.AutoCountExportRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// ListByJob 工单的全部导出记录
func (r *ExportRepository) ListByJob(ctx context.Context, jobID string) ([]entity.AutoCountExportRecord, error) {
	var records []entity.AutoCountExportRecord
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at").
		Find(&records).Error
	return records, err
}

// ListPending 待推送的导出记录，供定时扫描
func (r *ExportRepository) ListPending(ctx context.Context, limit int) ([]entity.AutoCountExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []entity.AutoCountExportRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.ExportStatusPending).
		Order("created_at").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// List 导出记录分页查询
func (r *ExportRepository) List(ctx context.Context, page, pageSize int, status string) ([]entity.AutoCountExportRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.AutoCountExportRecord{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	var records []entity.AutoCountExportRecord
	err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&records).Error
	return records, total, err
}
