package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/shared/notify"
)

// JobRequestService 工单内请求服务
// 技师在现场发起备件/协助/技术支援请求，管理员或主管裁决
type JobRequestService struct {
	repos    *repository.Repositories
	notifier *notify.NotifyClient
}

// NewJobRequestService 创建工单内请求服务
func NewJobRequestService(repos *repository.Repositories, notifier *notify.NotifyClient) *JobRequestService {
	return &JobRequestService{repos: repos, notifier: notifier}
}

// CreateRequest 发起请求
// 只有进行中的工单可以发起，发起人必须是该工单技师
func (s *JobRequestService) CreateRequest(ctx context.Context, jobID, requestType, description string,
	actor engine.Actor) (*entity.JobRequest, error) {

	switch requestType {
	case entity.RequestTypeSparePart, entity.RequestTypeAssistance, entity.RequestTypeSkillfulTechnician:
	default:
		return nil, fmt.Errorf("unknown request type: %s", requestType)
	}

	job, err := s.repos.Job.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != entity.JobStatusInProgress && job.Status != entity.JobStatusIncompleteContinuing {
		return nil, engine.Conflict(engine.ActionStart, "requests can only be raised on an active job")
	}
	if actor.Role == entity.RoleTechnician && job.AssignedTechnicianID != actor.ID {
		return nil, fmt.Errorf("only the assigned technician may raise requests")
	}

	now := nowUTC()
	request := &entity.JobRequest{
		ID:          uuid.New().String()[:32],
		JobID:       jobID,
		RequestType: requestType,
		Status:      entity.RequestStatusPending,
		Description: description,
		RequestedBy: actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.JobRequest.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// 通知主管尽力而为
	_ = s.notifier.Send(ctx, notify.Message{
		Title:   fmt.Sprintf("工单 %s 新请求", job.JobCode),
		Body:    fmt.Sprintf("技师发起%s请求: %s", requestType, description),
		JobCode: job.JobCode,
	})

	return request, nil
}

// ResolveRequest 裁决请求
func (s *JobRequestService) ResolveRequest(ctx context.Context, requestID string, approve bool,
	note string, actor engine.Actor) (*entity.JobRequest, error) {

	if actor.Role != entity.RoleAdmin && actor.Role != entity.RoleSupervisor {
		return nil, fmt.Errorf("only admin or supervisor may resolve requests")
	}

	request, err := s.repos.JobRequest.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != entity.RequestStatusPending {
		return nil, engine.Conflict(engine.ActionStart,
			fmt.Sprintf("request already %s", request.Status))
	}

	now := nowUTC()
	if approve {
		request.Status = entity.RequestStatusApproved
	} else {
		request.Status = entity.RequestStatusRejected
	}
	request.ResolvedBy = actor.ID
	request.ResolvedAt = &now
	request.ResolveNote = note
	request.UpdatedAt = now

	if err := s.repos.JobRequest.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	return request, nil
}

// ListByJob 工单的请求列表
func (s *JobRequestService) ListByJob(ctx context.Context, jobID string) ([]entity.JobRequest, error) {
	return s.repos.JobRequest.ListByJob(ctx, jobID)
}

// ListPending 待处理请求
func (s *JobRequestService) ListPending(ctx context.Context) ([]entity.JobRequest, error) {
	return s.repos.JobRequest.ListPending(ctx)
}
