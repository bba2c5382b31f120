package dto

// ── 通知模块 DTO ──

// TargetRequest 通知受众规格（判别联合）
// kind=filtered 时 nil 维度表示不限制；kind=users 时仅 user_ids 生效
type TargetRequest struct {
	Kind      string   `json:"kind"       binding:"required,oneof=all filtered users"`
	Branches  []string `json:"branches"   binding:"omitempty,dive,max=20"`
	Semesters []int    `json:"semesters"  binding:"omitempty,dive,min=1,max=12"`
	Years     []int    `json:"years"      binding:"omitempty,dive,min=1,max=6"`
	UserIDs   []string `json:"user_ids"   binding:"omitempty,dive,uuid"`
}

// CreateNotificationRequest 创建并投递广播通知请求
type CreateNotificationRequest struct {
	Title        string        `json:"title"         binding:"required,max=200"`
	Body         string        `json:"body"          binding:"required"`
	Type         string        `json:"type"          binding:"required,oneof=custom exam_reminder opportunity event timetable_update announcement welcome"`
	Priority     string        `json:"priority"      binding:"omitempty,oneof=low normal high urgent"`
	Target       TargetRequest `json:"target"        binding:"required"`
	ScheduledFor *string       `json:"scheduled_for" binding:"omitempty"` // RFC3339，省略为立即生效
	ExpiresAt    *string       `json:"expires_at"    binding:"omitempty"` // RFC3339，省略为永不过期
}

// CreateNotificationResponse 创建通知响应
type CreateNotificationResponse struct {
	NotificationID string `json:"notification_id"`
	RecipientCount int    `json:"recipient_count"`
}

// NotificationItem 用户通知列表单项（投递 + 父通知）
type NotificationItem struct {
	NotificationID string  `json:"notification_id"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	Type           string  `json:"type"`
	Priority       string  `json:"priority"`
	IsRead         bool    `json:"is_read"`
	ReadAt         *string `json:"read_at,omitempty"`
	RelatedType    *string `json:"related_type,omitempty"`
	RelatedID      *string `json:"related_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
}

// UnreadCountResponse 未读数响应
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse 全部标记已读响应
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// PreferenceRequest 更新通知偏好请求（nil 字段不更新）
type PreferenceRequest struct {
	Custom          *bool `json:"custom"`
	ExamReminder    *bool `json:"exam_reminder"`
	Opportunity     *bool `json:"opportunity"`
	Event           *bool `json:"event"`
	TimetableUpdate *bool `json:"timetable_update"`
	Announcement    *bool `json:"announcement"`
}

// PreferenceResponse 通知偏好响应
type PreferenceResponse struct {
	Custom          bool `json:"custom"`
	ExamReminder    bool `json:"exam_reminder"`
	Opportunity     bool `json:"opportunity"`
	Event           bool `json:"event"`
	TimetableUpdate bool `json:"timetable_update"`
	Announcement    bool `json:"announcement"`
}

// ── 通知引擎参数 DTO ──

// SettingsResponse 通知引擎参数响应
type SettingsResponse struct {
	OpportunityUrgentDays int  `json:"opportunity_urgent_days"`
	ExamWeekReminder      bool `json:"exam_week_reminder"`
	ExamDayReminder       bool `json:"exam_day_reminder"`
	EventExpiryHours      int  `json:"event_expiry_hours"`
}

// UpdateSettingsRequest 更新通知引擎参数请求（nil 字段不更新）
type UpdateSettingsRequest struct {
	OpportunityUrgentDays *int  `json:"opportunity_urgent_days" binding:"omitempty,min=1,max=60"`
	ExamWeekReminder      *bool `json:"exam_week_reminder"`
	ExamDayReminder       *bool `json:"exam_day_reminder"`
	EventExpiryHours      *int  `json:"event_expiry_hours"      binding:"omitempty,min=1,max=720"`
}

// ── 考试导入 DTO ──

// ImportExamsResponse ICS 日历导入响应
type ImportExamsResponse struct {
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Errors   []ImportExamError `json:"errors,omitempty"`
}

// ImportExamError 导入错误详情
type ImportExamError struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}
