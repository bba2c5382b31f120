package model

import "gorm.io/gorm"

// User 用户目录表 — 对应 users
// branch_code / year / semester 构成通知 targeting 的三个过滤维度
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	BranchCode   string `gorm:"type:varchar(20)"                               json:"branch_code"`
	Year         int    `gorm:"type:int"                                       json:"year"`
	Semester     int    `gorm:"type:int"                                       json:"semester"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"     json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`

	// 关联
	Branch *Branch `gorm:"foreignKey:BranchCode;references:BranchCode" json:"branch,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
