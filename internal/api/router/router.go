package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collegestudy/backend/config"
	"collegestudy/backend/internal/api/handler"
	"collegestudy/backend/internal/api/middleware"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/pkg/jwt"
	"collegestudy/backend/pkg/redis"
)

// rateLimitWindow 注册/登录接口的限流窗口
const rateLimitWindow = time.Minute

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", middleware.RateLimit(rdb, 10, rateLimitWindow), h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(rdb, 20, rateLimitWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 分院目录（注册页下拉框用）
		v1.GET("/branches", h.Branch.ListBranches)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/me", h.Auth.GetCurrentUser)
				users.GET("", middleware.RoleAuth(model.RoleAdmin), h.User.ListUsers)
				users.GET("/:id", middleware.RoleAuth(model.RoleAdmin), h.User.GetUser)
				users.POST("/:id/promote", middleware.RoleAuth(model.RoleAdmin), h.User.PromoteUser)
				users.POST("/:id/demote", middleware.RoleAuth(model.RoleOwner), h.User.DemoteUser)
				users.DELETE("/:id", middleware.RoleAuth(model.RoleOwner), h.User.RemoveUser)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListMyNotifications)
				notifications.GET("/unread-count", h.Notification.GetUnreadCount)
				notifications.GET("/preferences", h.Notification.GetPreferences)
				notifications.PUT("/preferences", h.Notification.UpdatePreferences)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
				notifications.POST("/:id/read", h.Notification.MarkRead)
				notifications.POST("/:id/dismiss", h.Notification.DismissNotification)
				notifications.POST("", middleware.RoleAuth(model.RoleAdmin), h.Notification.CreateNotification)
				notifications.GET("/:id/report", middleware.RoleAuth(model.RoleAdmin), h.Export.ExportDeliveryReport)
			}

			// 通知引擎参数
			settings := authorized.Group("/settings")
			{
				settings.GET("/notifications", middleware.RoleAuth(model.RoleAdmin), h.Settings.GetSettings)
				settings.PUT("/notifications", middleware.RoleAuth(model.RoleOwner), h.Settings.UpdateSettings)
			}

			// 考试日历导入
			authorized.POST("/exams/import", middleware.RoleAuth(model.RoleAdmin), h.Exam.ImportExams)
		}
	}

	return r
}
