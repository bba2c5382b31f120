package handler

import "collegestudy/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Notification *NotificationHandler
	Settings     *SettingsHandler
	Branch       *BranchHandler
	Exam         *ExamHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Notification: NewNotificationHandler(svc.Notification),
		Settings:     NewSettingsHandler(svc.Settings),
		Branch:       NewBranchHandler(svc.Branch),
		Exam:         NewExamHandler(svc.Exam),
		Export:       NewExportHandler(svc.Export),
	}
}
