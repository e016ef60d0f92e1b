package repository

import (
	"context"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"gorm.io/gorm"
)

// JobRequestRepository 工单内请求仓库
type JobRequestRepository struct {
	db *gorm.DB
}

// NewJobRequestRepository 创建工单内请求仓库
func NewJobRequestRepository(db *gorm.DB) *JobRequestRepository {
	return &JobRequestRepository{db: db}
}

// FindByID 根据ID查找请求
func (r *JobRequestRepository) FindByID(ctx context.Context, id string) (*entity.JobRequest, error) {
	var request entity.JobRequest
	err := r.db.WithContext(ctx).Preload("Job").Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &request, nil
}

// Create 创建请求
func (r *JobRequestRepository) Create(ctx context.Context, request *entity.JobRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// Update 更新请求
func (r *JobRequestRepository) Update(ctx context.Context, request *entity.JobRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

// ListByJob 工单的请求列表
func (r *JobRequestRepository) ListByJob(ctx context.Context, jobID string) ([]entity.JobRequest, error) {
	var requests []entity.JobRequest
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at").
		Find(&requests).Error
	return requests, err
}

// ListPending 待处理请求列表
func (r *JobRequestRepository) ListPending(ctx context.Context) ([]entity.JobRequest, error) {
	var requests []entity.JobRequest
	err := r.db.WithContext(ctx).
		Preload("Job").
		Where("status = ?", entity.RequestStatusPending).
		Order("created_at").
		Find(&requests).Error
	return requests, err
}
