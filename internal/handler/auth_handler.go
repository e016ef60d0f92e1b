package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ph0en1x29/FT-sub003/internal/config"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authSvc *service.AuthService
	userSvc *service.UserService
	cfg     *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authSvc *service.AuthService, userSvc *service.UserService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, userSvc: userSvc, cfg: cfg}
}

// Login 用户名密码登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, tokenPair, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			Unauthorized(c, "invalid username or password")
			return
		}
		HandleError(c, err)
		return
	}

	Success(c, gin.H{
		"user":  user,
		"token": tokenPair,
	})
}

// Refresh 刷新Token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tokenPair, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		Unauthorized(c, err.Error())
		return
	}

	Success(c, tokenPair)
}

// Logout 登出
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(c.Request.Context(), GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// Me 当前登录用户
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}

// CreateUser 创建用户（仅管理员）
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req struct {
		Username  string `json:"username" binding:"required"`
		Password  string `json:"password" binding:"required"`
		Name      string `json:"name" binding:"required"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Role      string `json:"role" binding:"required,oneof=admin supervisor technician storeman accountant"`
		NotifyURL string `json:"notify_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user := &entity.User{
		Username:  req.Username,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		NotifyURL: req.NotifyURL,
	}
	if err := h.authSvc.CreateUser(c.Request.Context(), user, req.Password); err != nil {
		HandleError(c, err)
		return
	}

	Created(c, user)
}

// ListUsers 用户列表
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.userSvc.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"users": users})
}
