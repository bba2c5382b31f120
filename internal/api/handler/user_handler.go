package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/service"
	"collegestudy/backend/pkg/response"
)

// UserHandler 用户目录与角色管理 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListUsers 用户列表（管理员）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// GetUser 用户详情（管理员）
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), c.Param("id"))
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

// PromoteUser 提升用户为 admin
// POST /api/v1/users/:id/promote
func (h *UserHandler) PromoteUser(c *gin.Context) {
	callerID, callerRole, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.userSvc.PromoteToAdmin(c.Request.Context(), callerID, callerRole, c.Param("id")); err != nil {
		handleRoleError(c, err)
		return
	}
	response.OK(c, nil)
}

// DemoteUser 降级用户为 student
// POST /api/v1/users/:id/demote
func (h *UserHandler) DemoteUser(c *gin.Context) {
	callerID, callerRole, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.userSvc.DemoteToStudent(c.Request.Context(), callerID, callerRole, c.Param("id")); err != nil {
		handleRoleError(c, err)
		return
	}
	response.OK(c, nil)
}

// RemoveUser 移除用户
// DELETE /api/v1/users/:id
func (h *UserHandler) RemoveUser(c *gin.Context) {
	callerID, callerRole, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.userSvc.Remove(c.Request.Context(), callerID, callerRole, c.Param("id")); err != nil {
		handleRoleError(c, err)
		return
	}
	response.OK(c, nil)
}

func handleRoleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	case errors.Is(err, service.ErrUnauthorized):
		response.Forbidden(c, 20002, "权限不足")
	case errors.Is(err, service.ErrInvalidTransition):
		response.BadRequest(c, 20003, "角色转换非法")
	case errors.Is(err, service.ErrProtectedPrincipal):
		response.Forbidden(c, 20004, "不可对 owner 执行该操作")
	default:
		response.InternalError(c)
	}
}
