package handler

import (
	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/model"
	"collegestudy/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (model.Role, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || !model.Role(s).Valid() {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return model.Role(s), true
}

// MustGetCaller 同时提取 user_id 与 role。
func MustGetCaller(c *gin.Context) (string, model.Role, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return "", "", false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return "", "", false
	}
	return userID, role, true
}
