package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/pkg/jwt"
)

func setupAuthService(t *testing.T) (*testRepos, AuthService) {
	t.Helper()
	tr, repo := newTestRepos()
	cfg := newTestConfig()
	tr.branch.branches["CSE"] = &model.Branch{BranchCode: "CSE", Name: "计算机分院"}
	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())
	return tr, svc
}

func registerReq(name, email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Name:       name,
		Email:      email,
		Password:   "password123",
		BranchCode: "CSE",
		Year:       2,
		Semester:   3,
	}
}

func TestRegisterFirstUserBecomesOwner(t *testing.T) {
	tr, svc := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerReq("张三", "first@example.com"))
	if err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
	first := tr.user.users[resp.ID]
	if first == nil {
		t.Fatal("用户未持久化")
	}
	if first.Role != model.RoleOwner {
		t.Errorf("首个用户角色 = %s, 期望 owner", first.Role)
	}

	resp2, err := svc.Register(ctx, registerReq("李四", "second@example.com"))
	if err != nil {
		t.Fatalf("第二次 Register 失败: %v", err)
	}
	if tr.user.users[resp2.ID].Role != model.RoleStudent {
		t.Errorf("后续用户角色 = %s, 期望 student", tr.user.users[resp2.ID].Role)
	}
}

func TestRegisterEnqueuesWelcomeEvent(t *testing.T) {
	tr, svc := setupAuthService(t)

	resp, err := svc.Register(context.Background(), registerReq("张三", "a@example.com"))
	if err != nil {
		t.Fatalf("Register 失败: %v", err)
	}

	if len(tr.outbox.events) != 1 {
		t.Fatalf("Outbox 事件数 = %d, 期望 1", len(tr.outbox.events))
	}
	ev := tr.outbox.events[0]
	if ev.EventType != model.EventUserRegistered {
		t.Errorf("事件类型 = %s, 期望 user_registered", ev.EventType)
	}
	if ev.Status != model.OutboxPending {
		t.Errorf("事件状态 = %s, 期望 pending", ev.Status)
	}
	want := `{"user_id":"` + resp.ID + `"}`
	if ev.Payload != want {
		t.Errorf("事件载荷 = %s, 期望 %s", ev.Payload, want)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, svc := setupAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("张三", "dup@example.com")); err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
	if _, err := svc.Register(ctx, registerReq("李四", "dup@example.com")); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("重复邮箱期望 ErrEmailTaken, 实际 %v", err)
	}
}

func TestRegisterConcurrentDuplicateEmail(t *testing.T) {
	// 预检通过后、写入前另一并发注册抢先提交，唯一索引冲突应映射为 ErrEmailTaken
	tr, svc := setupAuthService(t)
	ctx := context.Background()

	tr.user.createErr = gorm.ErrDuplicatedKey
	if _, err := svc.Register(ctx, registerReq("张三", "race@example.com")); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("唯一索引冲突期望 ErrEmailTaken, 实际 %v", err)
	}
	if len(tr.outbox.events) != 0 {
		t.Errorf("注册失败后不应残留事件, 实际 %d 条", len(tr.outbox.events))
	}
}

func TestRegisterUnknownBranch(t *testing.T) {
	_, svc := setupAuthService(t)
	req := registerReq("张三", "a@example.com")
	req.BranchCode = "NOPE"
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("未知分院期望 ErrBranchNotFound, 实际 %v", err)
	}
}

func TestLogin(t *testing.T) {
	tr, svc := setupAuthService(t)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	u := seedUser(tr, "u1", model.RoleStudent, "CSE", 3, 2)
	u.Email = "login@example.com"
	u.PasswordHash = string(hash)

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("登录响应应包含 access 与 refresh token")
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"密码错误", "login@example.com", "wrong-password"},
		{"用户不存在", "ghost@example.com", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, &dto.LoginRequest{Email: tt.email, Password: tt.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("期望 ErrInvalidCredentials, 实际 %v", err)
			}
		})
	}
}

func TestLoginDisabledUser(t *testing.T) {
	tr, svc := setupAuthService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	u := seedUser(tr, "u1", model.RoleStudent, "CSE", 3, 2)
	u.Email = "disabled@example.com"
	u.PasswordHash = string(hash)
	u.IsActive = false

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "disabled@example.com", Password: "password123"})
	if !errors.Is(err, ErrUserDisabled) {
		t.Errorf("停用用户登录期望 ErrUserDisabled, 实际 %v", err)
	}
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	tr, svc := setupAuthService(t)
	cfg := newTestConfig()
	mgr := jwt.NewManager(&cfg.Auth)
	seedUser(tr, "u1", model.RoleStudent, "CSE", 3, 2)

	accessToken, err := mgr.GenerateAccessToken("u1", "student", "CSE")
	if err != nil {
		t.Fatalf("生成 access token 失败: %v", err)
	}

	_, err = svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: accessToken})
	if !errors.Is(err, jwt.ErrTokenInvalid) {
		t.Errorf("用 access token 刷新期望 ErrTokenInvalid, 实际 %v", err)
	}
}

func TestRefreshTokenReflectsRoleChange(t *testing.T) {
	tr, svc := setupAuthService(t)
	cfg := newTestConfig()
	mgr := jwt.NewManager(&cfg.Auth)
	u := seedUser(tr, "u1", model.RoleStudent, "CSE", 3, 2)

	refreshToken, err := mgr.GenerateRefreshToken("u1", "student", "CSE", false)
	if err != nil {
		t.Fatalf("生成 refresh token 失败: %v", err)
	}

	// 刷新前用户被提升，新 access token 应携带新角色
	u.Role = model.RoleAdmin

	resp, err := svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		t.Fatalf("RefreshToken 失败: %v", err)
	}
	claims, err := mgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("解析新 access token 失败: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("新 token 角色 = %s, 期望 admin", claims.Role)
	}
}
