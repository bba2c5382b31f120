package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/service"
	"collegestudy/backend/pkg/response"
)

// ExamHandler 考试日历导入 HTTP 处理器
type ExamHandler struct {
	examSvc service.ExamService
}

// NewExamHandler 创建 ExamHandler
func NewExamHandler(examSvc service.ExamService) *ExamHandler {
	return &ExamHandler{examSvc: examSvc}
}

// ImportExams 导入 ICS 考试日历（管理员）
// POST /api/v1/exams/import
//
// 方式：multipart/form-data, field="file"
func (h *ExamHandler) ImportExams(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 42001, "请上传 ICS 日历文件")
		return
	}
	defer file.Close()

	resp, err := h.examSvc.ImportCalendar(c.Request.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCalendar):
			response.BadRequest(c, 42002, "日历中没有考试事件")
		default:
			response.BadRequest(c, 42003, "ICS 格式解析失败")
		}
		return
	}

	response.Created(c, resp)
}
