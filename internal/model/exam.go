package model

import "time"

// Exam 考试安排表 — 对应 exams
// 考试提醒由周期扫描产生（非行触发器），按 (exam_id, 提醒窗口) 去重
type Exam struct {
	ExamID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"exam_id"`
	Subject    string    `gorm:"type:varchar(200);not null"                     json:"subject"`
	BranchCode string    `gorm:"type:varchar(20)"                               json:"branch_code"`
	Semester   int       `gorm:"type:int"                                       json:"semester"`
	ExamDate   time.Time `gorm:"not null"                                       json:"exam_date"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Exam) TableName() string { return "exams" }
