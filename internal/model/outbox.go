package model

import "time"

// OutboxStatus Outbox 事件处理状态
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxProcessed OutboxStatus = "processed"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEventType 领域事件类型
type OutboxEventType string

const (
	EventEventPublished   OutboxEventType = "event_published"
	EventOpportunityAdded OutboxEventType = "opportunity_posted"
	EventTimetableUpdated OutboxEventType = "timetable_updated"
	EventUserRegistered   OutboxEventType = "user_registered"
)

// OutboxEvent 通知 Outbox 表 — 对应 notification_outbox
// 领域事务内写入，调度器异步消费；适配器失败只标记本行，绝不影响领域事务
type OutboxEvent struct {
	EventID     string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	EventType   OutboxEventType `gorm:"type:varchar(30);not null"                      json:"event_type"`
	Payload     string          `gorm:"type:jsonb;not null"                            json:"payload"`
	Status      OutboxStatus    `gorm:"type:varchar(10);not null;default:'pending'"    json:"status"`
	Attempts    int             `gorm:"not null;default:0"                             json:"attempts"`
	LastError   *string         `gorm:"type:text"                                      json:"last_error,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (OutboxEvent) TableName() string { return "notification_outbox" }
