package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
)

// CustomerService 客户服务
type CustomerService struct {
	repo *repository.CustomerRepository
}

// NewCustomerService 创建客户服务
func NewCustomerService(repo *repository.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// CreateCustomer 创建客户
func (s *CustomerService) CreateCustomer(ctx context.Context, customer *entity.Customer, createdBy string) error {
	if customer.CustomerCode == "" {
		return fmt.Errorf("customer code is required")
	}
	if customer.Name == "" {
		return fmt.Errorf("customer name is required")
	}

	now := nowUTC()
	customer.ID = uuid.New().String()[:32]
	if customer.Status == "" {
		customer.Status = entity.CustomerStatusActive
	}
	customer.CreatedBy = createdBy
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return s.repo.Create(ctx, customer)
}

// GetCustomer 客户详情
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*entity.Customer, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateCustomer 更新客户
func (s *CustomerService) UpdateCustomer(ctx context.Context, customer *entity.Customer) error {
	customer.UpdatedAt = nowUTC()
	return s.repo.Update(ctx, customer)
}

// ListCustomers 客户分页查询
func (s *CustomerService) ListCustomers(ctx context.Context, page, pageSize int, keyword string) ([]entity.Customer, int64, error) {
	return s.repo.List(ctx, page, pageSize, keyword)
}
