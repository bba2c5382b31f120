package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collegestudy/backend/internal/model"
)

// PreferenceRepository 通知偏好数据访问接口
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*model.Preference, error)
	Upsert(ctx context.Context, pref *model.Preference) error
	// DisabledUserIDs 返回显式关闭了指定类型通知的用户集合
	// （未建偏好行的用户视为全部开启）
	DisabledUserIDs(ctx context.Context, typ model.NotificationType) ([]string, error)
}

// preferenceRepo PreferenceRepository 的 GORM 实现
type preferenceRepo struct {
	db *gorm.DB
}

// NewPreferenceRepo 创建 PreferenceRepository 实例
func NewPreferenceRepo(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) Get(ctx context.Context, userID string) (*model.Preference, error) {
	var pref model.Preference
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepo) Upsert(ctx context.Context, pref *model.Preference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(pref).Error
}

// preferenceColumn 通知类型到偏好列名的映射；welcome 等不可退订类型返回空串
func preferenceColumn(typ model.NotificationType) string {
	switch typ {
	case model.TypeCustom:
		return "custom"
	case model.TypeExamReminder:
		return "exam_reminder"
	case model.TypeOpportunity:
		return "opportunity"
	case model.TypeEvent:
		return "event"
	case model.TypeTimetableUpdate:
		return "timetable_update"
	case model.TypeAnnouncement:
		return "announcement"
	default:
		return ""
	}
}

func (r *preferenceRepo) DisabledUserIDs(ctx context.Context, typ model.NotificationType) ([]string, error) {
	col := preferenceColumn(typ)
	if col == "" {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Preference{}).
		Where(fmt.Sprintf("%s = FALSE", col)).
		Pluck("user_id", &ids).Error
	return ids, err
}
