package repository

import (
	"context"

	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
)

// BranchRepository 分院查询表数据访问接口（只读协作方）
type BranchRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Branch, error)
	List(ctx context.Context) ([]model.Branch, error)
}

// branchRepo BranchRepository 的 GORM 实现
type branchRepo struct {
	db *gorm.DB
}

// NewBranchRepo 创建 BranchRepository 实例
func NewBranchRepo(db *gorm.DB) BranchRepository {
	return &branchRepo{db: db}
}

func (r *branchRepo) GetByCode(ctx context.Context, code string) (*model.Branch, error) {
	var branch model.Branch
	err := r.db.WithContext(ctx).
		Where("branch_code = ?", code).
		First(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepo) List(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	err := r.db.WithContext(ctx).
		Order("branch_code").
		Find(&branches).Error
	return branches, err
}
