package model

import "time"

// Event 校园活动表 — 对应 events
// 内容 CRUD 由外部协作方负责；本服务只读其 targeting 限制与发布状态
type Event struct {
	EventID     string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	Title       string      `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string      `gorm:"type:text"                                      json:"description"`
	StartsAt    time.Time   `gorm:"not null"                                       json:"starts_at"`
	Branches    StringArray `gorm:"type:text[]"                                    json:"branches,omitempty"`
	Semesters   IntArray    `gorm:"type:int[]"                                     json:"semesters,omitempty"`
	IsPublished bool        `gorm:"not null;default:false"                         json:"is_published"`
	CreatedAt   time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Event) TableName() string { return "events" }
