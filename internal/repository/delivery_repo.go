package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collegestudy/backend/internal/model"
)

// DeliveryStats 单条通知的投递统计（导出报表用）
type DeliveryStats struct {
	Total     int64
	Read      int64
	Dismissed int64
}

// DeliveryRepository 投递记录数据访问接口
type DeliveryRepository interface {
	// BulkInsertIgnoreDuplicates 批量投递：单条语句插入全部接收者，
	// 主键冲突视为 no-op，保证 Fan-out 重试收敛（幂等基石）
	BulkInsertIgnoreDuplicates(ctx context.Context, notificationID string, userIDs []string) error
	// CountByNotification 统计通知的实际投递行数（回写 recipient_count 的数据来源）
	CountByNotification(ctx context.Context, notificationID string) (int64, error)
	// MarkRead 标记单条投递已读；已读时为 no-op，返回是否发生变更
	MarkRead(ctx context.Context, notificationID, userID string, at time.Time) (bool, error)
	// MarkAllRead 标记用户全部未读投递为已读，返回变更行数
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	// Dismiss 标记单条投递已忽略（幂等）
	Dismiss(ctx context.Context, notificationID, userID string, at time.Time) (bool, error)
	// UnreadCount 统计用户未读且父通知当前 live 的投递数
	UnreadCount(ctx context.Context, userID string, now time.Time) (int64, error)
	// ListForUser 分页列出用户的投递（仅 live 通知），最新优先
	ListForUser(ctx context.Context, userID string, now time.Time, offset, limit int) ([]model.Delivery, int64, error)
	// Get 读取单条投递
	Get(ctx context.Context, notificationID, userID string) (*model.Delivery, error)
	// ListByNotification 列出通知的全部投递（导出报表用）
	ListByNotification(ctx context.Context, notificationID string) ([]model.Delivery, error)
	// Stats 汇总通知的已读/忽略计数
	Stats(ctx context.Context, notificationID string) (*DeliveryStats, error)
}

// deliveryRepo DeliveryRepository 的 GORM 实现
type deliveryRepo struct {
	db *gorm.DB
}

// NewDeliveryRepo 创建 DeliveryRepository 实例
func NewDeliveryRepo(db *gorm.DB) DeliveryRepository {
	return &deliveryRepo{db: db}
}

func (r *deliveryRepo) BulkInsertIgnoreDuplicates(ctx context.Context, notificationID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]model.Delivery, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, model.Delivery{
			NotificationID: notificationID,
			UserID:         uid,
		})
	}
	// ON CONFLICT (notification_id, user_id) DO NOTHING
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *deliveryRepo) CountByNotification(ctx context.Context, notificationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Delivery{}).
		Where("notification_id = ?", notificationID).
		Count(&count).Error
	return count, err
}

func (r *deliveryRepo) MarkRead(ctx context.Context, notificationID, userID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Delivery{}).
		Where("notification_id = ? AND user_id = ? AND is_read = FALSE", notificationID, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *deliveryRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Delivery{}).
		Where("user_id = ? AND is_read = FALSE", userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *deliveryRepo) Dismiss(ctx context.Context, notificationID, userID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Delivery{}).
		Where("notification_id = ? AND user_id = ? AND is_dismissed = FALSE", notificationID, userID).
		Updates(map[string]interface{}{
			"is_dismissed": true,
			"dismissed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

// liveJoin 过滤父通知当前 live 的投递：now ∈ [scheduled_for, expires_at)
// 过期通知在读取时被排除，投递行本身保留（阅读历史不因过期丢失）
func (r *deliveryRepo) liveJoin(ctx context.Context, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Delivery{}).
		Joins("JOIN notifications ON notifications.notification_id = notification_deliveries.notification_id").
		Where("notifications.scheduled_for <= ?", now).
		Where("notifications.expires_at IS NULL OR notifications.expires_at > ?", now)
}

func (r *deliveryRepo) UnreadCount(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := r.liveJoin(ctx, now).
		Where("notification_deliveries.user_id = ? AND notification_deliveries.is_read = FALSE", userID).
		Where("notification_deliveries.is_dismissed = FALSE").
		Count(&count).Error
	return count, err
}

func (r *deliveryRepo) ListForUser(ctx context.Context, userID string, now time.Time, offset, limit int) ([]model.Delivery, int64, error) {
	var total int64
	base := r.liveJoin(ctx, now).
		Where("notification_deliveries.user_id = ?", userID).
		Where("notification_deliveries.is_dismissed = FALSE")

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deliveries []model.Delivery
	if err := base.
		Preload("Notification").
		Order("notifications.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&deliveries).Error; err != nil {
		return nil, 0, err
	}

	return deliveries, total, nil
}

func (r *deliveryRepo) Get(ctx context.Context, notificationID, userID string) (*model.Delivery, error) {
	var d model.Delivery
	err := r.db.WithContext(ctx).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deliveryRepo) ListByNotification(ctx context.Context, notificationID string) ([]model.Delivery, error) {
	var deliveries []model.Delivery
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("created_at").
		Find(&deliveries).Error
	return deliveries, err
}

func (r *deliveryRepo) Stats(ctx context.Context, notificationID string) (*DeliveryStats, error) {
	var stats DeliveryStats
	if err := r.db.WithContext(ctx).Model(&model.Delivery{}).
		Where("notification_id = ?", notificationID).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Delivery{}).
		Where("notification_id = ? AND is_read = TRUE", notificationID).
		Count(&stats.Read).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Delivery{}).
		Where("notification_id = ? AND is_dismissed = TRUE", notificationID).
		Count(&stats.Dismissed).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
