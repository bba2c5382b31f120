package service

import (
	"context"

	"go.uber.org/zap"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/repository"
)

// SettingsService 通知引擎参数业务接口（单例行，仅 owner 可修改）
type SettingsService interface {
	Get(ctx context.Context) (*dto.SettingsResponse, error)
	Update(ctx context.Context, callerID string, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
}

type settingsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(repo *repository.Repository, logger *zap.Logger) SettingsService {
	return &settingsService{repo: repo, logger: logger}
}

func (s *settingsService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	settings, err := s.repo.Settings.Get(ctx)
	if err != nil {
		s.logger.Error("读取通知引擎参数失败", zap.Error(err))
		return nil, err
	}
	return &dto.SettingsResponse{
		OpportunityUrgentDays: settings.OpportunityUrgentDays,
		ExamWeekReminder:      settings.ExamWeekReminder,
		ExamDayReminder:       settings.ExamDayReminder,
		EventExpiryHours:      settings.EventExpiryHours,
	}, nil
}

func (s *settingsService) Update(ctx context.Context, callerID string, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	settings, err := s.repo.Settings.Get(ctx)
	if err != nil {
		s.logger.Error("读取通知引擎参数失败", zap.Error(err))
		return nil, err
	}

	if req.OpportunityUrgentDays != nil {
		settings.OpportunityUrgentDays = *req.OpportunityUrgentDays
	}
	if req.ExamWeekReminder != nil {
		settings.ExamWeekReminder = *req.ExamWeekReminder
	}
	if req.ExamDayReminder != nil {
		settings.ExamDayReminder = *req.ExamDayReminder
	}
	if req.EventExpiryHours != nil {
		settings.EventExpiryHours = *req.EventExpiryHours
	}
	settings.UpdatedBy = &callerID

	if err := s.repo.Settings.Update(ctx, settings); err != nil {
		s.logger.Error("更新通知引擎参数失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("通知引擎参数已更新", zap.String("updated_by", callerID))

	return &dto.SettingsResponse{
		OpportunityUrgentDays: settings.OpportunityUrgentDays,
		ExamWeekReminder:      settings.ExamWeekReminder,
		ExamDayReminder:       settings.ExamDayReminder,
		EventExpiryHours:      settings.EventExpiryHours,
	}, nil
}
