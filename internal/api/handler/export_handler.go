package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/service"
	"collegestudy/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDeliveryReport 导出通知投递报表（管理员）
// GET /api/v1/notifications/:id/report
func (h *ExportHandler) ExportDeliveryReport(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportDeliveryReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotificationNotFound):
			response.NotFound(c, 30005, "通知不存在")
		case errors.Is(err, service.ErrExportGenerateFail):
			response.InternalError(c)
		default:
			response.InternalError(c)
		}
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
