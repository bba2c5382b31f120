package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/service"
	"collegestudy/backend/pkg/response"
)

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notifySvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notifySvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifySvc: notifySvc}
}

// CreateNotification 创建并投递广播通知（管理员）
// POST /api/v1/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	callerID, callerRole, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.notifySvc.CreateBroadcast(c.Request.Context(), callerID, callerRole, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			response.Forbidden(c, 30001, "权限不足")
		case errors.Is(err, service.ErrInvalidTargeting):
			response.BadRequest(c, 30002, "targeting 规格非法")
		case errors.Is(err, service.ErrInvalidNotifyType):
			response.BadRequest(c, 30003, "通知类型或优先级非法")
		case errors.Is(err, service.ErrInvalidTimeWindow):
			response.BadRequest(c, 30004, "生效时间窗非法")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, result)
}

// ListMyNotifications 当前用户通知列表（仅 live 通知，最新优先）
// GET /api/v1/notifications
func (h *NotificationHandler) ListMyNotifications(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, total, err := h.notifySvc.ListForUser(c.Request.Context(), userID, page.GetPage(), page.GetPageSize())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, items, total, page.GetPage(), page.GetPageSize())
}

// GetUnreadCount 当前用户未读数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	count, err := h.notifySvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: count})
}

// MarkRead 标记单条通知已读（幂等）
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if _, err := h.notifySvc.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.NotFound(c, 30005, "通知不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// MarkAllRead 标记全部通知已读
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	updated, err := h.notifySvc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.MarkAllReadResponse{Updated: updated})
}

// DismissNotification 忽略单条通知（从列表移出，幂等）
// POST /api/v1/notifications/:id/dismiss
func (h *NotificationHandler) DismissNotification(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notifySvc.Dismiss(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.NotFound(c, 30005, "通知不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// GetPreferences 当前用户通知偏好
// GET /api/v1/notifications/preferences
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	pref, err := h.notifySvc.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, pref)
}

// UpdatePreferences 更新当前用户通知偏好
// PUT /api/v1/notifications/preferences
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	pref, err := h.notifySvc.UpdatePreferences(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, pref)
}
