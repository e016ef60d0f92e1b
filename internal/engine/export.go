package engine

import (
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// 导出状态机动作
const (
	ExportActionCreate Action = "export_create"
	ExportActionMark   Action = "export_mark_exported"
	ExportActionFail   Action = "export_mark_failed"
	ExportActionRetry  Action = "export_retry"
	ExportActionCancel Action = "export_cancel"
)

// NewExportRecord 为已开票工单创建导出记录
// 幂等约束：同一工单存在pending或exported记录时拒绝新建
func NewExportRecord(job *entity.Job, existing []entity.AutoCountExportRecord, invoiceNo, debtorCode, createdBy string, now time.Time) (*entity.AutoCountExportRecord, error) {
	if job.InvoicedAt == nil {
		return nil, preconditionFailed(ExportActionCreate, job.Status, "job is not invoiced yet")
	}
	for i := range existing {
		if existing[i].Active() {
			return nil, Conflict(ExportActionCreate, "an active export record already exists for this job")
		}
	}
	return &entity.AutoCountExportRecord{
		JobID:      job.ID,
		InvoiceNo:  invoiceNo,
		DebtorCode: debtorCode,
		Amount:     job.InvoiceTotal(),
		Status:     entity.ExportStatusPending,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkExported pending → exported，终态
func MarkExported(rec *entity.AutoCountExportRecord, now time.Time) (*entity.AutoCountExportRecord, error) {
	if rec.Status != entity.ExportStatusPending {
		return nil, invalidTransition(ExportActionMark, rec.Status)
	}
	next := *rec
	next.Status = entity.ExportStatusExported
	next.ExportedAt = &now
	next.ExportError = ""
	next.UpdatedAt = now
	return &next, nil
}

// MarkExportFailed pending → failed，记录错误信息
func MarkExportFailed(rec *entity.AutoCountExportRecord, exportErr string, now time.Time) (*entity.AutoCountExportRecord, error) {
	if rec.Status != entity.ExportStatusPending {
		return nil, invalidTransition(ExportActionFail, rec.Status)
	}
	if exportErr == "" {
		return nil, validationError(ExportActionFail, "export error message is required")
	}
	next := *rec
	next.Status = entity.ExportStatusFailed
	next.ExportError = exportErr
	next.UpdatedAt = now
	return &next, nil
}

// RetryExport failed → pending，重试计数加一
// 同工单存在其他活动记录时拒绝，保持单活动记录不变式
func RetryExport(rec *entity.AutoCountExportRecord, siblings []entity.AutoCountExportRecord, now time.Time) (*entity.AutoCountExportRecord, error) {
	if rec.Status != entity.ExportStatusFailed {
		return nil, invalidTransition(ExportActionRetry, rec.Status)
	}
	for i := range siblings {
		if siblings[i].ID != rec.ID && siblings[i].Active() {
			return nil, Conflict(ExportActionRetry, "another active export record exists for this job")
		}
	}
	next := *rec
	next.Status = entity.ExportStatusPending
	next.RetryCount++
	next.UpdatedAt = now
	return &next, nil
}

// CancelExport pending → cancelled，终态
func CancelExport(rec *entity.AutoCountExportRecord, now time.Time) (*entity.AutoCountExportRecord, error) {
	if rec.Status != entity.ExportStatusPending {
		return nil, invalidTransition(ExportActionCancel, rec.Status)
	}
	next := *rec
	next.Status = entity.ExportStatusCancelled
	next.CancelledAt = &now
	next.UpdatedAt = now
	return &next, nil
}
