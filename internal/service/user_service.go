package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// UserService 用户目录与角色管理业务接口
//
// 角色变更的权限判定全部委托给角色门卫（见 role_guard.go），
// 本层只负责加载目标用户、落库与记录审计日志。
type UserService interface {
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	GetByID(ctx context.Context, userID string) (*dto.UserResponse, error)
	// PromoteToAdmin student → admin（admin 及以上可操作）
	PromoteToAdmin(ctx context.Context, callerID string, callerRole model.Role, targetID string) error
	// DemoteToStudent admin → student（仅 owner 可操作）
	DemoteToStudent(ctx context.Context, callerID string, callerRole model.Role, targetID string) error
	// Remove 软删除用户；历史投递行随通知清理级联回收
	Remove(ctx context.Context, callerID string, callerRole model.Role, targetID string) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── List / GetByID ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filters := &repository.UserListFilters{
		BranchCode: req.BranchCode,
		Role:       req.Role,
		Keyword:    req.Keyword,
	}
	users, total, err := s.repo.User.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}
	return items, total, nil
}

func (s *userService) GetByID(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── PromoteToAdmin ──────────────────────

func (s *userService) PromoteToAdmin(ctx context.Context, callerID string, callerRole model.Role, targetID string) error {
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := CanPromote(callerRole, target.Role); err != nil {
		return err
	}

	if err := s.repo.User.UpdateRole(ctx, targetID, model.RoleAdmin, callerID); err != nil {
		s.logger.Error("提升角色失败", zap.String("target_id", targetID), zap.Error(err))
		return err
	}
	s.logger.Info("用户已提升为 admin",
		zap.String("target_id", targetID),
		zap.String("caller_id", callerID))
	return nil
}

// ────────────────────── DemoteToStudent ──────────────────────

func (s *userService) DemoteToStudent(ctx context.Context, callerID string, callerRole model.Role, targetID string) error {
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := CanDemote(callerRole, target.Role); err != nil {
		return err
	}

	if err := s.repo.User.UpdateRole(ctx, targetID, model.RoleStudent, callerID); err != nil {
		s.logger.Error("降级角色失败", zap.String("target_id", targetID), zap.Error(err))
		return err
	}
	s.logger.Info("用户已降级为 student",
		zap.String("target_id", targetID),
		zap.String("caller_id", callerID))
	return nil
}

// ────────────────────── Remove ──────────────────────

func (s *userService) Remove(ctx context.Context, callerID string, callerRole model.Role, targetID string) error {
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := CanRemove(callerRole, target.Role); err != nil {
		return err
	}

	if err := s.repo.User.Delete(ctx, targetID, callerID); err != nil {
		s.logger.Error("移除用户失败", zap.String("target_id", targetID), zap.Error(err))
		return err
	}
	s.logger.Info("用户已移除",
		zap.String("target_id", targetID),
		zap.String("caller_id", callerID))
	return nil
}

// ── 内部辅助 ──

func (s *userService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}
