package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict 乐观锁版本冲突——调用方应重读快照后重试
	ErrVersionConflict = errors.New("job version conflict")
)

// Repositories 仓库集合
type Repositories struct {
	User       *UserRepository
	Customer   *CustomerRepository
	Forklift   *ForkliftRepository
	Job        *JobRepository
	JobRequest *JobRequestRepository
	Export     *ExportRepository
	Audit      *AuditRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Customer:   NewCustomerRepository(db),
		Forklift:   NewForkliftRepository(db),
		Job:        NewJobRepository(db),
		JobRequest: NewJobRequestRepository(db),
		Export:     NewExportRepository(db),
		Audit:      NewAuditRepository(db),
	}
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
