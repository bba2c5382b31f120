package service

import (
	"go.uber.org/zap"

	"collegestudy/backend/config"
	"collegestudy/backend/internal/repository"
	"collegestudy/backend/pkg/jwt"
	"collegestudy/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Branch       BranchService
	Notification NotificationService
	Settings     SettingsService
	Export       ExportService
	Exam         ExamService
	Adapter      EventAdapter
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	resolver := NewAudienceResolver(repo, logger)
	notification := NewNotificationService(cfg, repo, resolver, rdb, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:         NewUserService(repo, logger),
		Branch:       NewBranchService(repo, logger),
		Notification: notification,
		Settings:     NewSettingsService(repo, logger),
		Export:       NewExportService(repo, logger),
		Exam:         NewExamService(repo, logger),
		Adapter:      NewEventAdapter(repo, notification, logger),
	}
}
