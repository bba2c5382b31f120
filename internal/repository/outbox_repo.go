package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
)

// OutboxRepository 通知 Outbox 数据访问接口
type OutboxRepository interface {
	// Enqueue 追加一条待处理事件；领域协作方在自身事务内调用
	Enqueue(ctx context.Context, event *model.OutboxEvent) error
	// ListPending 按写入顺序取一批待处理事件
	ListPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	// MarkProcessed 标记事件处理成功
	MarkProcessed(ctx context.Context, eventID string) error
	// MarkFailed 记录一次失败；final 为 true 时转入 failed 终态，否则保留待重试
	MarkFailed(ctx context.Context, eventID string, errMsg string, final bool) error
}

// outboxRepo OutboxRepository 的 GORM 实现
type outboxRepo struct {
	db *gorm.DB
}

// NewOutboxRepo 创建 OutboxRepository 实例
func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Enqueue(ctx context.Context, event *model.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *outboxRepo) ListPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("created_at").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       model.OutboxProcessed,
			"attempts":     gorm.Expr("attempts + 1"),
			"processed_at": now,
		}).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, eventID string, errMsg string, final bool) error {
	status := model.OutboxPending
	if final {
		status = model.OutboxFailed
	}
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": errMsg,
		}).Error
}
