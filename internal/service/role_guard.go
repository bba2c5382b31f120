package service

import (
	"errors"

	"collegestudy/backend/internal/model"
)

// ── 角色权限业务错误 ──

var (
	ErrUnauthorized       = errors.New("权限不足")
	ErrInvalidTransition  = errors.New("角色转换非法")
	ErrProtectedPrincipal = errors.New("不可对 owner 执行该操作")
)

// ── 角色门卫 ──────────────────────────────────────────────
//
// 纯函数判定，无任何 I/O。角色全序 owner > admin > student，
// 规则集中在此一处，Service 与 Handler 不得各自散落 if role == "admin" 判断。
//
// 角色单调性：promote 只能 student→admin，demote 只能 admin→student，
// 不存在任何到达/离开 owner 角色的运行时转换。
// ─────────────────────────────────────────────────────────────

// CanCreateBroadcast 判定能否创建广播通知（admin 及以上）
func CanCreateBroadcast(caller model.Role) error {
	if !caller.AtLeast(model.RoleAdmin) {
		return ErrUnauthorized
	}
	return nil
}

// CanPromote 判定 caller 能否将 target 提升为 admin
// 仅 student 可被提升；对 admin/owner 的提升请求是非法转换而非权限问题
func CanPromote(caller, target model.Role) error {
	if !caller.AtLeast(model.RoleAdmin) {
		return ErrUnauthorized
	}
	if target != model.RoleStudent {
		return ErrInvalidTransition
	}
	return nil
}

// CanDemote 判定 caller 能否将 target 降级为 student
func CanDemote(caller, target model.Role) error {
	if caller != model.RoleOwner {
		return ErrUnauthorized
	}
	if target == model.RoleOwner {
		return ErrProtectedPrincipal
	}
	if target != model.RoleAdmin {
		return ErrInvalidTransition
	}
	return nil
}

// CanRemove 判定 caller 能否移除 target 账号
func CanRemove(caller, target model.Role) error {
	if caller != model.RoleOwner {
		return ErrUnauthorized
	}
	if target == model.RoleOwner {
		return ErrProtectedPrincipal
	}
	return nil
}
