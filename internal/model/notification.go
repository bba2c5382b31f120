package model

import "time"

// NotificationType 通知类别
type NotificationType string

const (
	TypeCustom          NotificationType = "custom"
	TypeExamReminder    NotificationType = "exam_reminder"
	TypeOpportunity     NotificationType = "opportunity"
	TypeEvent           NotificationType = "event"
	TypeTimetableUpdate NotificationType = "timetable_update"
	TypeAnnouncement    NotificationType = "announcement"
	TypeWelcome         NotificationType = "welcome"
)

// Valid 判断通知类别是否合法
func (t NotificationType) Valid() bool {
	switch t {
	case TypeCustom, TypeExamReminder, TypeOpportunity, TypeEvent,
		TypeTimetableUpdate, TypeAnnouncement, TypeWelcome:
		return true
	}
	return false
}

// Priority 通知优先级（有序枚举）
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid 判断优先级取值是否合法
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification 通知广播定义表 — 对应 notifications
// 创建后不可变；唯一例外是 Fan-out 完成时回写的 RecipientCount
type Notification struct {
	NotificationID string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	Title          string           `gorm:"type:varchar(200);not null"                     json:"title"`
	Body           string           `gorm:"type:text;not null"                             json:"body"`
	Type           NotificationType `gorm:"type:varchar(30);not null"                      json:"type"`
	Priority       Priority         `gorm:"type:varchar(10);not null;default:'normal'"     json:"priority"`

	// Targeting 判别联合的存储展开（见 target.go）
	TargetKind      TargetKind  `gorm:"type:varchar(10);not null" json:"target_kind"`
	TargetBranches  StringArray `gorm:"type:text[]"               json:"target_branches,omitempty"`
	TargetSemesters IntArray    `gorm:"type:int[]"                json:"target_semesters,omitempty"`
	TargetYears     IntArray    `gorm:"type:int[]"                json:"target_years,omitempty"`
	TargetUserIDs   StringArray `gorm:"type:text[]"               json:"target_user_ids,omitempty"`

	// 有效时间窗：now ∈ [ScheduledFor, ExpiresAt) 时为 live；ExpiresAt 为空表示永不过期
	ScheduledFor time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"scheduled_for"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	// 自动生成来源回溯（去重用途，非所有权关系）
	RelatedType *string `gorm:"type:varchar(30)"  json:"related_type,omitempty"`
	RelatedID   *string `gorm:"type:varchar(100)" json:"related_id,omitempty"`

	RecipientCount int       `gorm:"not null;default:0"                 json:"recipient_count"`
	CreatedBy      *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// LiveAt 判断通知在 now 时刻是否有效
func (n *Notification) LiveAt(now time.Time) bool {
	if now.Before(n.ScheduledFor) {
		return false
	}
	return n.ExpiresAt == nil || now.Before(*n.ExpiresAt)
}

// Delivery 每接收者投递记录 — 对应 notification_deliveries
// 复合主键 (notification_id, user_id) 唯一，是 Fan-out 幂等性的唯一并发正确性机制；
// 状态字段仅允许接收者本人修改
type Delivery struct {
	NotificationID string     `gorm:"type:uuid;primaryKey" json:"notification_id"`
	UserID         string     `gorm:"type:uuid;primaryKey" json:"user_id"`
	IsRead         bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	IsDismissed    bool       `gorm:"not null;default:false" json:"is_dismissed"`
	DismissedAt    *time.Time `json:"dismissed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// 关联
	Notification *Notification `gorm:"foreignKey:NotificationID;references:NotificationID" json:"notification,omitempty"`
}

// TableName 指定表名
func (Delivery) TableName() string { return "notification_deliveries" }

// Preference 每用户通知类型偏好表 — 对应 notification_preferences（与 users 1:1）
// welcome 类型不可退订，故无对应列
type Preference struct {
	UserID          string    `gorm:"type:uuid;primaryKey"  json:"user_id"`
	Custom          bool      `gorm:"not null;default:true" json:"custom"`
	ExamReminder    bool      `gorm:"not null;default:true" json:"exam_reminder"`
	Opportunity     bool      `gorm:"not null;default:true" json:"opportunity"`
	Event           bool      `gorm:"not null;default:true" json:"event"`
	TimetableUpdate bool      `gorm:"not null;default:true" json:"timetable_update"`
	Announcement    bool      `gorm:"not null;default:true" json:"announcement"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (Preference) TableName() string { return "notification_preferences" }

// Allows 判断该偏好是否接收指定类型的通知
func (p *Preference) Allows(t NotificationType) bool {
	switch t {
	case TypeCustom:
		return p.Custom
	case TypeExamReminder:
		return p.ExamReminder
	case TypeOpportunity:
		return p.Opportunity
	case TypeEvent:
		return p.Event
	case TypeTimetableUpdate:
		return p.TimetableUpdate
	case TypeAnnouncement:
		return p.Announcement
	default:
		// welcome 等不可退订类型
		return true
	}
}
