package handler

import (
	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/service"
	"collegestudy/backend/pkg/response"
)

// BranchHandler 分院目录 HTTP 处理器
type BranchHandler struct {
	branchSvc service.BranchService
}

// NewBranchHandler 创建 BranchHandler
func NewBranchHandler(branchSvc service.BranchService) *BranchHandler {
	return &BranchHandler{branchSvc: branchSvc}
}

// ListBranches 分院列表（注册页下拉框用，无需认证）
// GET /api/v1/branches
func (h *BranchHandler) ListBranches(c *gin.Context) {
	branches, err := h.branchSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": branches})
}
