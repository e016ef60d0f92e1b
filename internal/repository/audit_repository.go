package repository

import (
	"context"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"gorm.io/gorm"
)

// AuditRepository 工单审计日志仓库
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建审计日志仓库
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create 写入一条审计记录
func (r *AuditRepository) Create(ctx context.Context, log *entity.JobAuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByJob 工单的审计轨迹，按时间正序
func (r *AuditRepository) ListByJob(ctx context.Context, jobID string) ([]entity.JobAuditLog, error) {
	var logs []entity.JobAuditLog
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at").
		Find(&logs).Error
	return logs, err
}
