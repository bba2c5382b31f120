package model

import (
	"errors"
	"testing"
	"time"
)

func TestTargetValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr bool
	}{
		{"all", AllUsers(), false},
		{"all 携带分院维度", Target{Kind: TargetAll, Branches: []string{"CSE"}}, true},
		{"all 携带用户列表", Target{Kind: TargetAll, UserIDs: []string{"u1"}}, true},
		{"filtered 单维度", FilteredTarget([]string{"CSE"}, nil, nil), false},
		{"filtered 三维度", FilteredTarget([]string{"CSE"}, []int{3}, []int{2}), false},
		{"filtered 全 nil 等价 all 仍合法", FilteredTarget(nil, nil, nil), false},
		{"filtered 混用用户列表", Target{Kind: TargetFiltered, UserIDs: []string{"u1"}}, true},
		{"users 显式列表", ExplicitUsers([]string{"u1", "u2"}), false},
		{"users 空列表", Target{Kind: TargetUsers}, true},
		{"users 混用维度", Target{Kind: TargetUsers, UserIDs: []string{"u1"}, Years: []int{2}}, true},
		{"未知 kind", Target{Kind: "everyone"}, true},
		{"空 kind", Target{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTargeting) {
					t.Errorf("期望 ErrInvalidTargeting, 实际 %v", err)
				}
			} else if err != nil {
				t.Errorf("合法规格校验失败: %v", err)
			}
		})
	}
}

func TestNotificationLiveAt(t *testing.T) {
	base := mustParse(t, "2026-09-01T12:00:00Z")
	expiry := mustParse(t, "2026-09-02T12:00:00Z")

	n := &Notification{ScheduledFor: base, ExpiresAt: &expiry}
	forever := &Notification{ScheduledFor: base}

	tests := []struct {
		name string
		n    *Notification
		at   string
		want bool
	}{
		{"生效前不可见", n, "2026-09-01T11:59:59Z", false},
		{"生效时刻可见（左闭）", n, "2026-09-01T12:00:00Z", true},
		{"窗口内可见", n, "2026-09-02T00:00:00Z", true},
		{"过期时刻不可见（右开）", n, "2026-09-02T12:00:00Z", false},
		{"无过期时间永久可见", forever, "2030-01-01T00:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.LiveAt(mustParse(t, tt.at)); got != tt.want {
				t.Errorf("LiveAt(%s) = %v, 期望 %v", tt.at, got, tt.want)
			}
		})
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("解析时间失败: %v", err)
	}
	return ts
}
