package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"collegestudy/backend/internal/model"
	"collegestudy/backend/pkg/jwt"
	"collegestudy/backend/pkg/redis"
	"collegestudy/backend/pkg/response"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// 已登出（黑名单）的 Token 拒绝；rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		// 黑名单检查；Redis 出错时降级放行（可用性优先于强制登出）
		if rdb != nil {
			blacklisted, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && blacklisted {
				response.Unauthorized(c, 10002, "Token 已登出")
				c.Abort()
				return
			}
		}

		// 将用户信息注入上下文
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("branch_code", claims.BranchCode)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户角色是否达到指定的最低角色（owner > admin > student）
func RoleAuth(minRole model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole := model.Role(role.(string))
		if !userRole.Valid() || !userRole.AtLeast(minRole) {
			response.Forbidden(c, 10003, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
