package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/service"
)

// CustomerHandler 客户处理器
type CustomerHandler struct {
	svc *service.CustomerService
}

// NewCustomerHandler 创建客户处理器
func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

// Create 创建客户
func (h *CustomerHandler) Create(c *gin.Context) {
	var req struct {
		CustomerCode    string  `json:"customer_code" binding:"required"`
		Name            string  `json:"name" binding:"required"`
		ContactName     string  `json:"contact_name"`
		Phone           string  `json:"phone"`
		Email           string  `json:"email"`
		Address         string  `json:"address"`
		AutoCountDebtor string  `json:"autocount_debtor"`
		CreditLimit     float64 `json:"credit_limit"`
		PaymentTerms    string  `json:"payment_terms"`
		Notes           string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customer := &entity.Customer{
		CustomerCode:    req.CustomerCode,
		Name:            req.Name,
		ContactName:     req.ContactName,
		Phone:           req.Phone,
		Email:           req.Email,
		Address:         req.Address,
		AutoCountDebtor: req.AutoCountDebtor,
		CreditLimit:     req.CreditLimit,
		PaymentTerms:    req.PaymentTerms,
		Notes:           req.Notes,
	}
	if err := h.svc.CreateCustomer(c.Request.Context(), customer, GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	Created(c, customer)
}

// Get 客户详情
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.svc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, customer)
}

// Update 更新客户
func (h *CustomerHandler) Update(c *gin.Context) {
	customer, err := h.svc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	if err := c.ShouldBindJSON(customer); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	customer.ID = c.Param("id")

	if err := h.svc.UpdateCustomer(c.Request.Context(), customer); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, customer)
}

// List 客户分页查询
func (h *CustomerHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	customers, total, err := h.svc.ListCustomers(c.Request.Context(), page, pageSize, c.Query("keyword"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, ListResponse{
		Items: customers,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}
