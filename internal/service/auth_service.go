package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"collegestudy/backend/config"
	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
	"collegestudy/backend/pkg/jwt"
	"collegestudy/backend/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrEmailTaken         = errors.New("邮箱已被注册")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserDisabled       = errors.New("账号已停用")
	ErrBranchNotFound     = errors.New("分院不存在")
)

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, rawToken string) error
	GetMe(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	// 1. 校验分院存在
	if _, err := s.repo.Branch.GetByCode(ctx, req.BranchCode); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		s.logger.Error("查询分院失败", zap.Error(err))
		return nil, err
	}

	// 2. 邮箱唯一性
	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 3. 密码散列
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码散列失败", zap.Error(err))
		return nil, err
	}

	// 4. 引导不变式：系统首个用户成为 owner，此后注册一律 student
	role := model.RoleStudent
	ownerCount, err := s.repo.User.CountByRole(ctx, model.RoleOwner)
	if err != nil {
		s.logger.Error("统计 owner 数量失败", zap.Error(err))
		return nil, err
	}
	if ownerCount == 0 {
		role = model.RoleOwner
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		BranchCode:   req.BranchCode,
		Year:         req.Year,
		Semester:     req.Semester,
		IsActive:     true,
	}

	// 5. 用户创建与 user_registered 事件入队同事务提交
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.User.Create(ctx, user); err != nil {
			// 预检与并发注册之间的窗口由 users.email 唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			s.logger.Error("创建用户失败", zap.Error(err))
			return err
		}
		payload, err := json.Marshal(userRegisteredPayload{UserID: user.UserID})
		if err != nil {
			return err
		}
		if err := txRepo.Outbox.Enqueue(ctx, &model.OutboxEvent{
			EventType: model.EventUserRegistered,
			Payload:   string(payload),
		}); err != nil {
			s.logger.Error("写入注册事件失败", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("用户注册成功",
		zap.String("user_id", user.UserID),
		zap.String("role", string(user.Role)),
		zap.String("branch_code", user.BranchCode))

	return &dto.RegisterResponse{
		ID:    user.UserID,
		Name:  user.Name,
		Email: user.Email,
	}, nil
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(user, req.RememberMe)
}

// ────────────────────── RefreshToken ──────────────────────

func (s *authService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil {
		return nil, jwt.ErrTokenInvalid
	}
	if claims.TokenType != "refresh" {
		return nil, jwt.ErrTokenInvalid
	}

	// 已登出的 RefreshToken 不可续签
	if s.rdb != nil {
		blacklisted, err := s.rdb.IsBlacklisted(ctx, claims.ID)
		if err == nil && blacklisted {
			return nil, jwt.ErrTokenInvalid
		}
	}

	// 角色可能已变更，以库内最新状态签发
	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	return s.issueTokens(user, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

// Logout 将当前 Token 加入黑名单直至其自然过期；rdb 不可用时登出降级为客户端丢弃
func (s *authService) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.jwtMgr.ParseToken(rawToken)
	if err != nil {
		return jwt.ErrTokenInvalid
	}
	if s.rdb == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetMe ──────────────────────

func (s *authService) GetMe(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ── 内部辅助 ──

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, string(user.Role), user.BranchCode)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, string(user.Role), user.BranchCode, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func toUserResponse(user *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:       user.UserID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     string(user.Role),
		Year:     user.Year,
		Semester: user.Semester,
		IsActive: user.IsActive,
	}
	if user.Branch != nil {
		resp.Branch = &dto.BranchResponse{
			Code: user.Branch.BranchCode,
			Name: user.Branch.Name,
		}
	} else if user.BranchCode != "" {
		resp.Branch = &dto.BranchResponse{Code: user.BranchCode}
	}
	return resp
}
