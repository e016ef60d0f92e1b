package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/service"
)

// ForkliftHandler 叉车处理器
type ForkliftHandler struct {
	svc *service.ForkliftService
}

// NewForkliftHandler 创建叉车处理器
func NewForkliftHandler(svc *service.ForkliftService) *ForkliftHandler {
	return &ForkliftHandler{svc: svc}
}

// Create 登记叉车
func (h *ForkliftHandler) Create(c *gin.Context) {
	var req struct {
		FleetNo            string  `json:"fleet_no" binding:"required"`
		SerialNo           string  `json:"serial_no"`
		Brand              string  `json:"brand"`
		Model              string  `json:"model"`
		CustomerID         string  `json:"customer_id"`
		CurrentHourmeter   float64 `json:"current_hourmeter"`
		AvgDailyUsageHours float64 `json:"avg_daily_usage_hours"`
		Notes              string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	forklift := &entity.Forklift{
		FleetNo:            req.FleetNo,
		SerialNo:           req.SerialNo,
		Brand:              req.Brand,
		Model:              req.Model,
		CustomerID:         req.CustomerID,
		CurrentHourmeter:   req.CurrentHourmeter,
		AvgDailyUsageHours: req.AvgDailyUsageHours,
		Notes:              req.Notes,
	}
	if err := h.svc.CreateForklift(c.Request.Context(), forklift); err != nil {
		HandleError(c, err)
		return
	}
	Created(c, forklift)
}

// Get 叉车详情
func (h *ForkliftHandler) Get(c *gin.Context) {
	forklift, err := h.svc.GetForklift(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, forklift)
}

// Update 更新叉车档案
func (h *ForkliftHandler) Update(c *gin.Context) {
	forklift, err := h.svc.GetForklift(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	if err := c.ShouldBindJSON(forklift); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	forklift.ID = c.Param("id")

	if err := h.svc.UpdateForklift(c.Request.Context(), forklift); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, forklift)
}

// List 叉车列表
func (h *ForkliftHandler) List(c *gin.Context) {
	serviceDueOnly := c.Query("service_due") == "true"
	forklifts, err := h.svc.ListForklifts(c.Request.Context(), c.Query("customer_id"), serviceDueOnly)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"forklifts": forklifts})
}

// Readings 小时表读数历史
func (h *ForkliftHandler) Readings(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	readings, err := h.svc.ListReadings(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"readings": readings})
}

// UpgradeAdvice 保养升级建议
func (h *ForkliftHandler) UpgradeAdvice(c *gin.Context) {
	advice, err := h.svc.UpgradeAdvice(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, advice)
}

// ListPendingAmendments 待复核的读数修正单
func (h *ForkliftHandler) ListPendingAmendments(c *gin.Context) {
	amendments, err := h.svc.ListPendingAmendments(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"amendments": amendments})
}

// ResolveAmendment 复核读数修正单
func (h *ForkliftHandler) ResolveAmendment(c *gin.Context) {
	var req struct {
		Approve          bool     `json:"approve"`
		CorrectedReading *float64 `json:"corrected_reading"`
		Justification    string   `json:"justification"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amendment, err := h.svc.ResolveAmendment(c.Request.Context(), c.Param("id"),
		req.Approve, req.CorrectedReading, req.Justification, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, amendment)
}
