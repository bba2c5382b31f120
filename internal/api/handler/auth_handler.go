package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/service"
	"collegestudy/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			response.Error(c, http.StatusConflict, 11002, "邮箱已被注册")
		case errors.Is(err, service.ErrBranchNotFound):
			response.BadRequest(c, 11003, "分院不存在")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, result)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, 11001, "邮箱或密码错误")
		case errors.Is(err, service.ErrUserDisabled):
			response.Forbidden(c, 11004, "账号已停用")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), &req)
	if err != nil {
		// 无论 Token 非法、用户不存在还是已停用，对外统一为 401
		response.Unauthorized(c, 11005, "Token 无效或已过期")
		return
	}

	response.OK(c, result)
}

// Logout 用户登出（当前 Token 进入黑名单）
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, 10002, "认证头格式无效")
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), parts[1]); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// GetCurrentUser 获取当前用户信息
// GET /api/v1/users/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetMe(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 20001, "用户不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, user)
}
