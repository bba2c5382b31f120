package model

// Role 用户角色，单一事实来源（无历史遗留的 is_admin 布尔列）
// 权限全序：owner > admin > student
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

// roleRank 角色权重，用于全序比较
var roleRank = map[Role]int{
	RoleStudent: 0,
	RoleAdmin:   1,
	RoleOwner:   2,
}

// Valid 判断角色取值是否合法
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast 判断本角色权限是否不低于 other
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}
