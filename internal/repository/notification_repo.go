package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
)

// NotificationRepository 通知定义数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	// GetByRelated 按自动生成来源查找（适配器去重用）
	GetByRelated(ctx context.Context, relatedType, relatedID string, typ model.NotificationType) (*model.Notification, error)
	// SetRecipientCount 回写接收者数量；总是整值覆盖，绝不自增
	SetRecipientCount(ctx context.Context, id string, count int64) error
	// DeleteExpiredBefore 物理删除过期已久的通知（存储回收，非正确性依赖）
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// notificationRepo NotificationRepository 的 GORM 实现
type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) GetByRelated(ctx context.Context, relatedType, relatedID string, typ model.NotificationType) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("related_type = ? AND related_id = ? AND type = ?", relatedType, relatedID, typ).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) SetRecipientCount(ctx context.Context, id string, count int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", id).
		Update("recipient_count", count).Error
}

func (r *notificationRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
