package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/shared/autocount"
	"go.uber.org/zap"
)

// ExportService AutoCount导出服务
// 导出记录状态机由引擎裁决，本服务负责持久化和实际推送
type ExportService struct {
	repos     *repository.Repositories
	client    *autocount.AutoCountClient
	exportDir string
	logger    *zap.Logger
}

// NewExportService 创建导出服务
func NewExportService(repos *repository.Repositories, client *autocount.AutoCountClient,
	exportDir string, logger *zap.Logger) *ExportService {
	return &ExportService{
		repos:     repos,
		client:    client,
		exportDir: exportDir,
		logger:    logger,
	}
}

// CreateForJob 为已结账工单创建导出记录
// 幂等：同一工单存在活动记录时引擎返回冲突
func (s *ExportService) CreateForJob(ctx context.Context, job *entity.Job, createdBy string) (*entity.AutoCountExportRecord, error) {
	existing, err := s.repos.Export.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list export records: %w", err)
	}

	debtorCode := ""
	if job.Customer != nil {
		debtorCode = job.Customer.AutoCountDebtor
	} else if job.CustomerID != "" {
		if customer, err := s.repos.Customer.FindByID(ctx, job.CustomerID); err == nil {
			debtorCode = customer.AutoCountDebtor
		}
	}

	invoiceNo := "INV-" + strings.TrimPrefix(job.JobCode, "JOB-")
	record, err := engine.NewExportRecord(job, existing, invoiceNo, debtorCode, createdBy, nowUTC())
	if err != nil {
		return nil, err
	}

	if err := s.repos.Export.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create export record: %w", err)
	}
	return record, nil
}

// Push 推送一条待导出记录
// 桥接服务可用则走HTTP，否则生成离线XLSX导入表；失败转failed待重试
func (s *ExportService) Push(ctx context.Context, record *entity.AutoCountExportRecord) error {
	if record.Status != entity.ExportStatusPending {
		return engine.Conflict(engine.ActionFinalize,
			fmt.Sprintf("export record is %s, not pending", record.Status))
	}

	job, err := s.repos.Job.FindByID(ctx, record.JobID)
	if err != nil {
		return fmt.Errorf("load job for export: %w", err)
	}

	inv := buildInvoice(job, record)

	var pushErr error
	if s.client.Enabled() {
		_, pushErr = s.client.PushInvoice(ctx, inv)
	} else {
		pushErr = s.writeOffline(inv)
	}

	now := nowUTC()
	if pushErr != nil {
		failed, err := engine.MarkExportFailed(record, pushErr.Error(), now)
		if err != nil {
			return err
		}
		if err := s.repos.Export.Update(ctx, failed); err != nil {
			return fmt.Errorf("persist failed export: %w", err)
		}
		s.logger.Warn("export push failed",
			zap.String("invoice_no", record.InvoiceNo), zap.Error(pushErr))
		return pushErr
	}

	exported, err := engine.MarkExported(record, now)
	if err != nil {
		return err
	}
	if err := s.repos.Export.Update(ctx, exported); err != nil {
		return fmt.Errorf("persist exported record: %w", err)
	}

	s.logger.Info("invoice exported",
		zap.String("invoice_no", record.InvoiceNo), zap.String("job_id", record.JobID))
	return nil
}

// buildInvoice 将工单财务明细组装为发票载荷
func buildInvoice(job *entity.Job, record *entity.AutoCountExportRecord) autocount.Invoice {
	inv := autocount.Invoice{
		DocNo:       record.InvoiceNo,
		DebtorCode:  record.DebtorCode,
		InvoiceDate: record.CreatedAt,
		Description: job.Title,
		Total:       job.InvoiceTotal(),
	}
	if job.InvoicedAt != nil {
		inv.InvoiceDate = *job.InvoicedAt
	}
	if job.Customer != nil {
		inv.DebtorName = job.Customer.Name
	}

	for _, p := range job.PartsUsed {
		inv.Lines = append(inv.Lines, autocount.InvoiceLine{
			ItemCode:    p.PartNo,
			Description: p.PartName,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			Amount:      p.Quantity * p.UnitPrice,
		})
	}
	for _, c := range job.ExtraCharges {
		inv.Lines = append(inv.Lines, autocount.InvoiceLine{
			ItemCode:    "CHARGE",
			Description: c.Description,
			Quantity:    1,
			UnitPrice:   c.Amount,
			Amount:      c.Amount,
		})
	}
	if job.LaborCost > 0 {
		inv.Lines = append(inv.Lines, autocount.InvoiceLine{
			ItemCode:    "LABOUR",
			Description: "Labour charge",
			Quantity:    1,
			UnitPrice:   job.LaborCost,
			Amount:      job.LaborCost,
		})
	}
	return inv
}

// writeOffline 离线模式：生成AutoCount导入表文件
func (s *ExportService) writeOffline(inv autocount.Invoice) error {
	f, err := autocount.BuildInvoiceWorkbook([]autocount.Invoice{inv})
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	path := filepath.Join(s.exportDir, inv.DocNo+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Retry 重试失败的导出
func (s *ExportService) Retry(ctx context.Context, recordID string) (*entity.AutoCountExportRecord, error) {
	record, err := s.repos.Export.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	siblings, err := s.repos.Export.ListByJob(ctx, record.JobID)
	if err != nil {
		return nil, fmt.Errorf("list export records: %w", err)
	}

	retried, err := engine.RetryExport(record, siblings, nowUTC())
	if err != nil {
		return nil, err
	}
	if err := s.repos.Export.Update(ctx, retried); err != nil {
		return nil, fmt.Errorf("persist retried export: %w", err)
	}
	return retried, nil
}

// Cancel 作废导出记录
func (s *ExportService) Cancel(ctx context.Context, recordID string) (*entity.AutoCountExportRecord, error) {
	record, err := s.repos.Export.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	cancelled, err := engine.CancelExport(record, nowUTC())
	if err != nil {
		return nil, err
	}
	if err := s.repos.Export.Update(ctx, cancelled); err != nil {
		return nil, fmt.Errorf("persist cancelled export: %w", err)
	}
	return cancelled, nil
}

// PushPending 批量推送待导出记录，由巡检任务调用
func (s *ExportService) PushPending(ctx context.Context, limit int) int {
	records, err := s.repos.Export.ListPending(ctx, limit)
	if err != nil {
		s.logger.Error("list pending exports failed", zap.Error(err))
		return 0
	}

	pushed := 0
	for i := range records {
		if err := s.Push(ctx, &records[i]); err != nil {
			continue
		}
		pushed++
	}
	return pushed
}

// Get 导出记录详情
func (s *ExportService) Get(ctx context.Context, id string) (*entity.AutoCountExportRecord, error) {
	return s.repos.Export.FindByID(ctx, id)
}

// ListByJob 工单的导出记录
func (s *ExportService) ListByJob(ctx context.Context, jobID string) ([]entity.AutoCountExportRecord, error) {
	return s.repos.Export.ListByJob(ctx, jobID)
}

// List 导出记录分页查询
func (s *ExportService) List(ctx context.Context, page, pageSize int, status string) ([]entity.AutoCountExportRecord, int64, error) {
	return s.repos.Export.List(ctx, page, pageSize, status)
}
