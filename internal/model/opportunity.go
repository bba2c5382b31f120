package model

import "time"

// Opportunity 实习/招聘机会表 — 对应 opportunities（外部协作方维护，只读）
type Opportunity struct {
	OpportunityID string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"opportunity_id"`
	Title         string      `gorm:"type:varchar(200);not null"                     json:"title"`
	Company       string      `gorm:"type:varchar(200)"                              json:"company"`
	Description   string      `gorm:"type:text"                                      json:"description"`
	Deadline      time.Time   `gorm:"not null"                                       json:"deadline"`
	Branches      StringArray `gorm:"type:text[]"                                    json:"branches,omitempty"`
	Years         IntArray    `gorm:"type:int[]"                                     json:"years,omitempty"`
	CreatedAt     time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Opportunity) TableName() string { return "opportunities" }
