package model

import "errors"

// TargetKind targeting 判别联合的标签
type TargetKind string

const (
	TargetAll      TargetKind = "all"      // 全部活跃用户
	TargetFiltered TargetKind = "filtered" // 维度过滤交集（nil 维度 = 不限制）
	TargetUsers    TargetKind = "users"    // 显式用户列表
)

var (
	// ErrInvalidTargeting targeting 规格非法或含糊（如 users 与维度过滤混用）
	ErrInvalidTargeting = errors.New("targeting 规格非法")
)

// Target 通知受众规格。
// 显式建模为判别联合而非一组可空数组，消除"NULL 即通配"的隐式语义陷阱：
//   - all：忽略全部过滤字段
//   - filtered：Branches/Semesters/Years 取交集，nil 表示该维度不限制
//   - users：仅 UserIDs 生效，不得与维度过滤组合（避免歧义优先级）
type Target struct {
	Kind      TargetKind  `json:"kind"`
	Branches  StringArray `json:"branches,omitempty"`
	Semesters IntArray    `json:"semesters,omitempty"`
	Years     IntArray    `json:"years,omitempty"`
	UserIDs   StringArray `json:"user_ids,omitempty"`
}

// AllUsers 构造全员受众
func AllUsers() Target {
	return Target{Kind: TargetAll}
}

// FilteredTarget 构造维度过滤受众；nil 参数表示对应维度不限制
func FilteredTarget(branches []string, semesters, years []int) Target {
	return Target{
		Kind:      TargetFiltered,
		Branches:  branches,
		Semesters: semesters,
		Years:     years,
	}
}

// ExplicitUsers 构造显式用户列表受众
func ExplicitUsers(userIDs []string) Target {
	return Target{Kind: TargetUsers, UserIDs: userIDs}
}

// Validate 校验判别联合的形状
func (t Target) Validate() error {
	switch t.Kind {
	case TargetAll:
		if t.Branches != nil || t.Semesters != nil || t.Years != nil || t.UserIDs != nil {
			return ErrInvalidTargeting
		}
	case TargetFiltered:
		if t.UserIDs != nil {
			return ErrInvalidTargeting
		}
		// 三个维度全为 nil 等价于 all，但作为显式规格仍然合法
	case TargetUsers:
		if t.Branches != nil || t.Semesters != nil || t.Years != nil {
			return ErrInvalidTargeting
		}
		if len(t.UserIDs) == 0 {
			return ErrInvalidTargeting
		}
	default:
		return ErrInvalidTargeting
	}
	return nil
}
