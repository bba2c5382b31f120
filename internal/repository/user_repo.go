package repository

import (
	"context"

	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
)

// UserListFilters 用户列表查询条件
type UserListFilters struct {
	BranchCode string
	Role       string
	Keyword    string
}

// AudienceFilter 受众维度过滤条件；nil 切片表示该维度不限制
type AudienceFilter struct {
	Branches  []string
	Semesters []int
	Years     []int
}

// UserRepository 用户目录数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdateRole(ctx context.Context, id string, role model.Role, callerID string) error
	Delete(ctx context.Context, id string, callerID string) error
	List(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)

	// ── 受众解析专用查询 ──
	ListActiveIDs(ctx context.Context) ([]string, error)
	ListIDsByFilter(ctx context.Context, f AudienceFilter) ([]string, error)
	FilterExistingIDs(ctx context.Context, ids []string) ([]string, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Branch").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) UpdateRole(ctx context.Context, id string, role model.Role, callerID string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_by": callerID,
		}).Error
}

func (r *userRepo) Delete(ctx context.Context, id string, callerID string) error {
	// 先记录删除者，再软删除；投递行由外键级联清理
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Update("deleted_by", callerID).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("user_id = ?", id).
		Delete(&model.User{}).Error
}

func (r *userRepo) List(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if filters != nil {
		if filters.BranchCode != "" {
			db = db.Where("branch_code = ?", filters.BranchCode)
		}
		if filters.Role != "" {
			db = db.Where("role = ?", filters.Role)
		}
		if filters.Keyword != "" {
			kw := "%" + filters.Keyword + "%"
			db = db.Where("name ILIKE ? OR email ILIKE ?", kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Branch").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepo) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("role = ?", role).
		Count(&count).Error
	return count, err
}

func (r *userRepo) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("is_active = TRUE").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListIDsByFilter 按维度交集筛选活跃用户；nil 维度不参与过滤
// 对应 targeting 的"NULL 即不限制"语义，整个交集在单条 SQL 内完成
func (r *userRepo) ListIDsByFilter(ctx context.Context, f AudienceFilter) ([]string, error) {
	db := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("is_active = TRUE")

	if f.Branches != nil {
		db = db.Where("branch_code IN ?", []string(f.Branches))
	}
	if f.Semesters != nil {
		db = db.Where("semester IN ?", []int(f.Semesters))
	}
	if f.Years != nil {
		db = db.Where("year IN ?", []int(f.Years))
	}

	var ids []string
	err := db.Pluck("user_id", &ids).Error
	return ids, err
}

// FilterExistingIDs 返回 ids 中实际存在且活跃的用户（静默丢弃未知 id）
func (r *userRepo) FilterExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var existing []string
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id IN ? AND is_active = TRUE", ids).
		Pluck("user_id", &existing).Error
	return existing, err
}
