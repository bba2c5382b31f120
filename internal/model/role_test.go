package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		r     Role
		other Role
		want  bool
	}{
		{RoleOwner, RoleOwner, true},
		{RoleOwner, RoleAdmin, true},
		{RoleOwner, RoleStudent, true},
		{RoleAdmin, RoleOwner, false},
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleStudent, true},
		{RoleStudent, RoleAdmin, false},
		{RoleStudent, RoleStudent, true},
	}

	for _, tt := range tests {
		if got := tt.r.AtLeast(tt.other); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, 期望 %v", tt.r, tt.other, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleStudent, RoleAdmin, RoleOwner} {
		if !r.Valid() {
			t.Errorf("%s 应为合法角色", r)
		}
	}
	for _, r := range []Role{"", "superuser", "Admin"} {
		if r.Valid() {
			t.Errorf("%q 不应为合法角色", r)
		}
	}
}
