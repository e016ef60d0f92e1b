package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ph0en1x29/FT-sub003/internal/service"
)

// ExportHandler AutoCount导出处理器
type ExportHandler struct {
	svc *service.ExportService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// List 导出记录分页查询
func (h *ExportHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	records, total, err := h.svc.List(c.Request.Context(), page, pageSize, c.Query("status"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, ListResponse{
		Items: records,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get 导出记录详情
func (h *ExportHandler) Get(c *gin.Context) {
	record, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, record)
}

// ListByJob 工单的导出记录
func (h *ExportHandler) ListByJob(c *gin.Context) {
	records, err := h.svc.ListByJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"records": records})
}

// Retry 重试失败的导出
func (h *ExportHandler) Retry(c *gin.Context) {
	record, err := h.svc.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, record)
}

// Cancel 作废导出记录
func (h *ExportHandler) Cancel(c *gin.Context) {
	record, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, record)
}

// Push 立即推送一条待导出记录
func (h *ExportHandler) Push(c *gin.Context) {
	record, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.svc.Push(c.Request.Context(), record); err != nil {
		HandleError(c, err)
		return
	}

	updated, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, updated)
}
