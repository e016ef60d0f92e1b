package service

import (
	"context"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/config"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/shared/autocount"
	"github.com/ph0en1x29/FT-sub003/internal/shared/notify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Auth     *AuthService
	User     *UserService
	Customer *CustomerService
	Forklift *ForkliftService
	Job      *JobService
	Request  *JobRequestService
	Export   *ExportService
	Sweep    *SweepService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	// 生命周期引擎参数来自配置，零值回落到默认值
	engCfg := engine.DefaultConfig()
	if cfg.Engine.AcceptanceWindow > 0 {
		engCfg.AcceptanceWindow = cfg.Engine.AcceptanceWindow
	}
	if cfg.Engine.AckWindowBusinessDays > 0 {
		engCfg.AckWindowBusinessDays = cfg.Engine.AckWindowBusinessDays
	}
	engCfg.AllowChecklistOverride = cfg.Engine.AllowChecklistOverride
	if cfg.Engine.MinReasonLength > 0 {
		engCfg.MinReasonLength = cfg.Engine.MinReasonLength
	}
	if cfg.Engine.MaxHourlyRate > 0 {
		engCfg.Hourmeter.MaxHourlyRate = cfg.Engine.MaxHourlyRate
	}
	if cfg.Engine.PatternDeviationMultiple > 0 {
		engCfg.Hourmeter.PatternDeviationMultiple = cfg.Engine.PatternDeviationMultiple
	}
	if cfg.Engine.TimestampTolerance > 0 {
		engCfg.Hourmeter.TimestampTolerance = cfg.Engine.TimestampTolerance
	}
	eng := engine.New(engCfg)

	notifyClient := notify.NewClient(cfg.Notify.WebhookURL)
	acClient := autocount.NewClient(cfg.AutoCount.BaseURL, cfg.AutoCount.APIKey)

	exportSvc := NewExportService(repos, acClient, cfg.AutoCount.ExportDir, logger)
	jobSvc := NewJobService(repos, eng, rdb, notifyClient, exportSvc, logger)

	return &Services{
		Auth:     NewAuthService(repos.User, rdb, cfg),
		User:     NewUserService(repos.User),
		Customer: NewCustomerService(repos.Customer),
		Forklift: NewForkliftService(repos, notifyClient, logger),
		Job:      jobSvc,
		Request:  NewJobRequestService(repos, notifyClient),
		Export:   exportSvc,
		Sweep:    NewSweepService(jobSvc, exportSvc, repos, logger),
	}
}

// UserService 用户服务
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// GetUser 根据ID获取用户
func (s *UserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

// ListUsers 用户列表，可按角色过滤
func (s *UserService) ListUsers(ctx context.Context, role string) ([]entity.User, error) {
	return s.repo.List(ctx, role)
}

// nowUTC 统一取UTC时间，避免各服务各自取本地时间
func nowUTC() time.Time {
	return time.Now().UTC()
}
