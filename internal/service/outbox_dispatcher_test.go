package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// panicAdapter 用于验证调度器的 panic 隔离
type panicAdapter struct{}

func (panicAdapter) HandleEvent(context.Context, *model.OutboxEvent) error {
	panic("适配器内部错误")
}

func (panicAdapter) SweepExamReminders(context.Context) error { return nil }

func setupDispatcher(t *testing.T) (*testRepos, *repository.Repository, *OutboxDispatcher) {
	t.Helper()
	tr, repo := newTestRepos()
	resolver := NewAudienceResolver(repo, zap.NewNop())
	notifier := NewNotificationService(newTestConfig(), repo, resolver, nil, zap.NewNop())
	adapter := NewEventAdapter(repo, notifier, zap.NewNop())
	return tr, repo, NewOutboxDispatcher(newTestConfig(), repo, adapter, zap.NewNop())
}

func TestProcessBatchFailureIsolation(t *testing.T) {
	tr, repo, d := setupDispatcher(t)
	seedUser(tr, "u1", model.RoleStudent, "CSE", 3, 2)
	ctx := context.Background()

	// 坏事件夹在两个好事件之间
	good1 := &model.OutboxEvent{EventType: model.EventUserRegistered, Payload: `{"user_id":"u1"}`}
	bad := &model.OutboxEvent{EventType: "mystery_event", Payload: `{}`}
	good2 := &model.OutboxEvent{EventType: model.EventTimetableUpdated, Payload: `{"entry_id":"tt-1"}`}
	tr.timetable.entries["tt-1"] = &model.TimetableEntry{EntryID: "tt-1", BranchCode: "CSE", Semester: 3}
	for _, ev := range []*model.OutboxEvent{good1, bad, good2} {
		if err := repo.Outbox.Enqueue(ctx, ev); err != nil {
			t.Fatalf("Enqueue 失败: %v", err)
		}
	}

	processed := d.ProcessBatch(ctx)
	if processed != 2 {
		t.Errorf("成功条数 = %d, 期望 2（坏事件不阻断其余事件）", processed)
	}

	if ev := tr.outbox.find(good1.EventID); ev.Status != model.OutboxProcessed {
		t.Errorf("good1 状态 = %s, 期望 processed", ev.Status)
	}
	if ev := tr.outbox.find(good2.EventID); ev.Status != model.OutboxProcessed {
		t.Errorf("good2 状态 = %s, 期望 processed", ev.Status)
	}
	badRow := tr.outbox.find(bad.EventID)
	if badRow.Status != model.OutboxPending {
		t.Errorf("坏事件首次失败后状态 = %s, 期望仍为 pending 以待重试", badRow.Status)
	}
	if badRow.Attempts != 1 || badRow.LastError == nil {
		t.Errorf("坏事件应记录 attempts=1 与错误信息, 实际 attempts=%d", badRow.Attempts)
	}
}

func TestProcessBatchFailedEventReachesTerminalState(t *testing.T) {
	tr, repo, d := setupDispatcher(t)
	ctx := context.Background()

	bad := &model.OutboxEvent{EventType: "mystery_event", Payload: `{}`}
	if err := repo.Outbox.Enqueue(ctx, bad); err != nil {
		t.Fatalf("Enqueue 失败: %v", err)
	}

	// maxAttempts = 3：前两轮失败保持 pending，第三轮转入 failed 终态
	for i := 0; i < 3; i++ {
		d.ProcessBatch(ctx)
	}

	row := tr.outbox.find(bad.EventID)
	if row.Status != model.OutboxFailed {
		t.Errorf("达到最大尝试次数后状态 = %s, 期望 failed", row.Status)
	}
	if row.Attempts != 3 {
		t.Errorf("attempts = %d, 期望 3", row.Attempts)
	}

	// 终态事件不再被拉取
	if got := d.ProcessBatch(ctx); got != 0 {
		t.Errorf("failed 终态事件不应再被处理, 实际处理 %d 条", got)
	}
	if row.Attempts != 3 {
		t.Errorf("终态后 attempts 不应再增长, 实际 %d", row.Attempts)
	}
}

func TestProcessBatchRecoversFromPanic(t *testing.T) {
	tr, repo := newTestRepos()
	d := NewOutboxDispatcher(newTestConfig(), repo, panicAdapter{}, zap.NewNop())
	ctx := context.Background()

	ev := &model.OutboxEvent{EventType: model.EventUserRegistered, Payload: `{"user_id":"u1"}`}
	if err := repo.Outbox.Enqueue(ctx, ev); err != nil {
		t.Fatalf("Enqueue 失败: %v", err)
	}

	// 不应把 panic 抛到轮询循环
	processed := d.ProcessBatch(ctx)
	if processed != 0 {
		t.Errorf("panic 事件成功条数 = %d, 期望 0", processed)
	}

	row := tr.outbox.find(ev.EventID)
	if row.LastError == nil {
		t.Fatal("panic 应转为普通错误记录到事件行")
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	_, _, d := setupDispatcher(t)
	if processed := d.ProcessBatch(context.Background()); processed != 0 {
		t.Errorf("空队列处理条数 = %d, 期望 0", processed)
	}
}
