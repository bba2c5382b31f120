package repository

import (
	"context"

	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
)

// SettingsRepository 通知引擎参数（单例行）数据访问接口
type SettingsRepository interface {
	Get(ctx context.Context) (*model.NotificationSettings, error)
	Update(ctx context.Context, settings *model.NotificationSettings) error
}

// settingsRepo SettingsRepository 的 GORM 实现
type settingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepo 创建 SettingsRepository 实例
func NewSettingsRepo(db *gorm.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context) (*model.NotificationSettings, error) {
	var s model.NotificationSettings
	err := r.db.WithContext(ctx).
		Where("singleton = TRUE").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) Update(ctx context.Context, settings *model.NotificationSettings) error {
	settings.Singleton = true
	return r.db.WithContext(ctx).
		Where("singleton = TRUE").
		Save(settings).Error
}
