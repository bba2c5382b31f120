package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	BranchCode string `form:"branch_code" binding:"omitempty,max=20"`
	Role       string `form:"role"        binding:"omitempty,oneof=student admin owner"`
	Keyword    string `form:"keyword"     binding:"omitempty,max=50"`
}
