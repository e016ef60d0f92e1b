package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/service"
)

// JobHandler 工单处理器
type JobHandler struct {
	svc        *service.JobService
	requestSvc *service.JobRequestService
}

// NewJobHandler 创建工单处理器
func NewJobHandler(svc *service.JobService, requestSvc *service.JobRequestService) *JobHandler {
	return &JobHandler{svc: svc, requestSvc: requestSvc}
}

// Create 创建工单
func (h *JobHandler) Create(c *gin.Context) {
	var req service.CreateJobInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	job, err := h.svc.CreateJob(c.Request.Context(), req, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, job)
}

// List 工单分页查询
func (h *JobHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.JobListParams{
		Page:         page,
		PageSize:     pageSize,
		Status:       c.Query("status"),
		JobType:      c.Query("job_type"),
		CustomerID:   c.Query("customer_id"),
		ForkliftID:   c.Query("forklift_id"),
		TechnicianID: c.Query("technician_id"),
	}
	if f := c.Query("flagged"); f != "" {
		flagged := f == "true"
		params.Flagged = &flagged
	}
	// 技师只看自己名下的工单
	if GetUserRole(c) == entity.RoleTechnician {
		params.TechnicianID = GetUserID(c)
	}

	jobs, total, err := h.svc.ListJobs(c.Request.Context(), params)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, ListResponse{
		Items: jobs,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get 工单详情
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.svc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, job)
}

// Delete 软删除工单
func (h *JobHandler) Delete(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.DeleteJob(c.Request.Context(), c.Param("id"), req.Reason, GetActor(c)); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// AuditTrail 工单审计轨迹
func (h *JobHandler) AuditTrail(c *gin.Context) {
	logs, err := h.svc.GetAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"logs": logs})
}

// Sla 工单SLA视图
func (h *JobHandler) Sla(c *gin.Context) {
	status, err := h.svc.SlaStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, status)
}

// applyAction 执行转换并按统一格式响应
func (h *JobHandler) applyAction(c *gin.Context, action engine.Action, p engine.Payload) {
	job, err := h.svc.ApplyAction(c.Request.Context(), c.Param("id"), action, GetActor(c), p)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, job)
}

// Assign 指派技师
func (h *JobHandler) Assign(c *gin.Context) {
	var req struct {
		TechnicianID string `json:"technician_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionAssign, engine.Payload{TechnicianID: req.TechnicianID})
}

// Accept 技师接单
func (h *JobHandler) Accept(c *gin.Context) {
	h.applyAction(c, engine.ActionAccept, engine.Payload{})
}

// Reject 技师拒单
func (h *JobHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionReject, engine.Payload{Reason: req.Reason})
}

// hourmeterRequest 携带小时表读数的请求体
type hourmeterRequest struct {
	HourmeterReading *float64   `json:"hourmeter_reading"`
	CapturedAt       *time.Time `json:"captured_at"`
	ManualFlag       bool       `json:"manual_flag"`
	UpgradeDecision  string     `json:"upgrade_decision"`
}

// Start 开工
func (h *JobHandler) Start(c *gin.Context) {
	var req hourmeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionStart, engine.Payload{
		HourmeterReading:    req.HourmeterReading,
		HourmeterCapturedAt: req.CapturedAt,
		ManualFlag:          req.ManualFlag,
		UpgradeDecision:     req.UpgradeDecision,
	})
}

// RecordHourmeter 补录小时表读数
func (h *JobHandler) RecordHourmeter(c *gin.Context) {
	var req hourmeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionRecordHourmeter, engine.Payload{
		HourmeterReading:    req.HourmeterReading,
		HourmeterCapturedAt: req.CapturedAt,
		ManualFlag:          req.ManualFlag,
	})
}

// ContinueTomorrow 今日未完，次日继续
func (h *JobHandler) ContinueTomorrow(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionContinueTomorrow, engine.Payload{Reason: req.Reason})
}

// Resume 继续施工
func (h *JobHandler) Resume(c *gin.Context) {
	h.applyAction(c, engine.ActionResume, engine.Payload{})
}

// completeRequest 完工请求体
type completeRequest struct {
	Checklist           entity.ChecklistMap `json:"checklist"`
	CheckAll            bool                `json:"check_all"`
	EndHourmeterReading *float64            `json:"end_hourmeter_reading"`
	TechnicianSignature bool                `json:"technician_signature"`
	CustomerSignature   bool                `json:"customer_signature"`
	AfterPhotoMediaID   string              `json:"after_photo_media_id"`
	EvidenceMediaIDs    []string            `json:"evidence_media_ids"`
	OverrideChecklist   bool                `json:"override_checklist"`
	Reason              string              `json:"reason"`
	Notes               string              `json:"notes"`
}

// Complete 现场完工
func (h *JobHandler) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionComplete, engine.Payload{
		Checklist:           req.Checklist,
		CheckAll:            req.CheckAll,
		EndHourmeterReading: req.EndHourmeterReading,
		TechnicianSignature: req.TechnicianSignature,
		CustomerSignature:   req.CustomerSignature,
		AfterPhotoMediaID:   req.AfterPhotoMediaID,
		EvidenceMediaIDs:    req.EvidenceMediaIDs,
		OverrideChecklist:   req.OverrideChecklist,
		Reason:              req.Reason,
		Notes:               req.Notes,
	})
}

// DeferComplete 客户未签字的延迟完成
func (h *JobHandler) DeferComplete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionDeferComplete, engine.Payload{
		Checklist:           req.Checklist,
		CheckAll:            req.CheckAll,
		EndHourmeterReading: req.EndHourmeterReading,
		TechnicianSignature: req.TechnicianSignature,
		AfterPhotoMediaID:   req.AfterPhotoMediaID,
		EvidenceMediaIDs:    req.EvidenceMediaIDs,
		OverrideChecklist:   req.OverrideChecklist,
		Reason:              req.Reason,
		Notes:               req.Notes,
	})
}

// Dispute 客户对延迟完成提出异议
func (h *JobHandler) Dispute(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionDispute, engine.Payload{Reason: req.Reason})
}

// ResolveDispute 处理异议
func (h *JobHandler) ResolveDispute(c *gin.Context) {
	var req struct {
		Outcome string `json:"outcome" binding:"required,oneof=rework uphold"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionResolveDispute, engine.Payload{
		DisputeOutcome: req.Outcome,
		Notes:          req.Notes,
	})
}

// ConfirmParts 仓管确认用料
func (h *JobHandler) ConfirmParts(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)
	h.applyAction(c, engine.ActionConfirmParts, engine.Payload{Notes: req.Notes})
}

// ConfirmJob 主管确认工单
func (h *JobHandler) ConfirmJob(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)
	h.applyAction(c, engine.ActionConfirmJob, engine.Payload{Notes: req.Notes})
}

// Finalize 会计结账开票
func (h *JobHandler) Finalize(c *gin.Context) {
	h.applyAction(c, engine.ActionFinalize, engine.Payload{})
}

// Cancel 取消工单
func (h *JobHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.applyAction(c, engine.ActionCancel, engine.Payload{Reason: req.Reason})
}

// Acknowledge 响应插单SLA
func (h *JobHandler) Acknowledge(c *gin.Context) {
	h.applyAction(c, engine.ActionAcknowledge, engine.Payload{})
}

// AddPart 登记用料
func (h *JobHandler) AddPart(c *gin.Context) {
	var req struct {
		PartNo       string  `json:"part_no" binding:"required"`
		PartName     string  `json:"part_name" binding:"required"`
		Quantity     float64 `json:"quantity" binding:"required"`
		UnitPrice    float64 `json:"unit_price"`
		FromVanStock bool    `json:"from_van_stock"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	usage := &entity.PartUsage{
		PartNo:       req.PartNo,
		PartName:     req.PartName,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		FromVanStock: req.FromVanStock,
	}
	if err := h.svc.AddPart(c.Request.Context(), c.Param("id"), usage, GetActor(c)); err != nil {
		HandleError(c, err)
		return
	}
	Created(c, usage)
}

// AddCharge 登记附加费用
func (h *JobHandler) AddCharge(c *gin.Context) {
	var req struct {
		Description string  `json:"description" binding:"required"`
		Amount      float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	charge := &entity.Charge{
		Description: req.Description,
		Amount:      req.Amount,
	}
	if err := h.svc.AddCharge(c.Request.Context(), c.Param("id"), charge, GetActor(c)); err != nil {
		HandleError(c, err)
		return
	}
	Created(c, charge)
}

// CreateRequest 技师发起现场请求
func (h *JobHandler) CreateRequest(c *gin.Context) {
	var req struct {
		RequestType string `json:"request_type" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.requestSvc.CreateRequest(c.Request.Context(), c.Param("id"),
		req.RequestType, req.Description, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, request)
}

// ListRequests 工单内请求列表
func (h *JobHandler) ListRequests(c *gin.Context) {
	requests, err := h.requestSvc.ListByJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"requests": requests})
}

// ListPendingRequests 待处理请求列表
func (h *JobHandler) ListPendingRequests(c *gin.Context) {
	requests, err := h.requestSvc.ListPending(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"requests": requests})
}

// ResolveRequest 裁决现场请求
func (h *JobHandler) ResolveRequest(c *gin.Context) {
	var req struct {
		Approve bool   `json:"approve"`
		Note    string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.requestSvc.ResolveRequest(c.Request.Context(), c.Param("id"),
		req.Approve, req.Note, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, request)
}

// ChecklistCatalog 检查清单目录
func (h *JobHandler) ChecklistCatalog(c *gin.Context) {
	template := c.Query("template")
	Success(c, gin.H{
		"template": template,
		"items":    engine.CatalogItems(template),
	})
}
