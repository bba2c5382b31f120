package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Branch       BranchRepository
	Notification NotificationRepository
	Delivery     DeliveryRepository
	Preference   PreferenceRepository
	Outbox       OutboxRepository
	Event        EventRepository
	Opportunity  OpportunityRepository
	Exam         ExamRepository
	Timetable    TimetableRepository
	Settings     SettingsRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Branch:       NewBranchRepo(db),
		Notification: NewNotificationRepo(db),
		Delivery:     NewDeliveryRepo(db),
		Preference:   NewPreferenceRepo(db),
		Outbox:       NewOutboxRepo(db),
		Event:        NewEventRepo(db),
		Opportunity:  NewOpportunityRepo(db),
		Exam:         NewExamRepo(db),
		Timetable:    NewTimetableRepo(db),
		Settings:     NewSettingsRepo(db),
		db:           db,
	}
}

// Transaction 在单个数据库事务内执行 fn，fn 收到绑定事务连接的 Repository 副本。
// fn 返回错误时整体回滚。未绑定 *gorm.DB 的聚合（内存实现）直接执行 fn。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
