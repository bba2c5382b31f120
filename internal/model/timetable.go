package model

import "time"

// TimetableEntry 课表条目 — 对应 timetable_entries
// 仅保留通知适配器所需的最小字段（变更影响哪个分院哪个学期）
type TimetableEntry struct {
	EntryID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	BranchCode string    `gorm:"type:varchar(20);not null"                      json:"branch_code"`
	Semester   int       `gorm:"type:int;not null"                              json:"semester"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (TimetableEntry) TableName() string { return "timetable_entries" }
