package model

import "time"

// NotificationSettings 通知引擎可调参数（单例行，singleton 恒为 true）
type NotificationSettings struct {
	Singleton             bool      `gorm:"primaryKey;default:true"  json:"-"`
	OpportunityUrgentDays int       `gorm:"not null;default:7"       json:"opportunity_urgent_days"`
	ExamWeekReminder      bool      `gorm:"not null;default:true"    json:"exam_week_reminder"`
	ExamDayReminder       bool      `gorm:"not null;default:true"    json:"exam_day_reminder"`
	EventExpiryHours      int       `gorm:"not null;default:24"      json:"event_expiry_hours"`
	UpdatedAt             time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy             *string   `gorm:"type:uuid"                json:"updated_by,omitempty"`
}

// TableName 指定表名
func (NotificationSettings) TableName() string { return "notification_settings" }
