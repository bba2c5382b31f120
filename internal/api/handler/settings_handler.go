package handler

import (
	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/service"
	"collegestudy/backend/pkg/response"
)

// SettingsHandler 通知引擎参数 HTTP 处理器
type SettingsHandler struct {
	settingsSvc service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(settingsSvc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

// GetSettings 查询通知引擎参数（管理员）
// GET /api/v1/settings/notifications
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsSvc.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, settings)
}

// UpdateSettings 更新通知引擎参数（仅 owner）
// PUT /api/v1/settings/notifications
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	settings, err := h.settingsSvc.Update(c.Request.Context(), callerID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, settings)
}
