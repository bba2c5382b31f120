package model

import "time"

// Branch 分院/系查询表 — 对应 branches
// 层级数据录入由外部系统负责，本服务只读
type Branch struct {
	BranchCode string    `gorm:"type:varchar(20);primaryKey" json:"branch_code"`
	Name       string    `gorm:"type:varchar(100);not null"  json:"name"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Branch) TableName() string { return "branches" }
