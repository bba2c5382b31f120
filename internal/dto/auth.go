package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email      string `json:"email"    binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=50"`
	Email      string `json:"email"       binding:"required,email"`
	Password   string `json:"password"    binding:"required,min=8,max=64"`
	BranchCode string `json:"branch_code" binding:"required,max=20"`
	Year       int    `json:"year"        binding:"required,min=1,max=6"`
	Semester   int    `json:"semester"    binding:"required,min=1,max=12"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
