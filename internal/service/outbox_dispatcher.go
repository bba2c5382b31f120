package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"collegestudy/backend/config"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// OutboxDispatcher Outbox 调度器：周期轮询待处理事件并交给适配器装配通知
//
// 失败隔离：单条事件的处理错误（含 panic）只记录到该事件行，
// 达到最大尝试次数后转入 failed 终态，绝不中断轮询循环，
// 更不可能波及产生事件的领域事务（事务早已提交）。
type OutboxDispatcher struct {
	repo        *repository.Repository
	adapter     EventAdapter
	logger      *zap.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

// NewOutboxDispatcher 创建 OutboxDispatcher 实例
func NewOutboxDispatcher(cfg *config.Config, repo *repository.Repository, adapter EventAdapter, logger *zap.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		repo:        repo,
		adapter:     adapter,
		logger:      logger,
		interval:    cfg.Notification.OutboxPollInterval,
		batchSize:   cfg.Notification.OutboxBatchSize,
		maxAttempts: cfg.Notification.OutboxMaxAttempts,
	}
}

// Run 阻塞运行轮询循环，直到 ctx 取消
func (d *OutboxDispatcher) Run(ctx context.Context) {
	d.logger.Info("Outbox 调度器已启动",
		zap.Duration("poll_interval", d.interval),
		zap.Int("batch_size", d.batchSize),
		zap.Int("max_attempts", d.maxAttempts))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox 调度器已停止")
			return
		case <-ticker.C:
			d.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch 处理一批待处理事件，返回成功条数
func (d *OutboxDispatcher) ProcessBatch(ctx context.Context) int {
	events, err := d.repo.Outbox.ListPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("拉取待处理事件失败", zap.Error(err))
		return 0
	}

	processed := 0
	for i := range events {
		ev := &events[i]
		if err := d.handle(ctx, ev); err != nil {
			final := ev.Attempts+1 >= d.maxAttempts
			if markErr := d.repo.Outbox.MarkFailed(ctx, ev.EventID, err.Error(), final); markErr != nil {
				d.logger.Error("记录事件失败状态失败", zap.String("event_id", ev.EventID), zap.Error(markErr))
			}
			d.logger.Error("处理领域事件失败",
				zap.String("event_id", ev.EventID),
				zap.String("event_type", string(ev.EventType)),
				zap.Int("attempts", ev.Attempts+1),
				zap.Bool("final", final),
				zap.Error(err))
			continue
		}
		if err := d.repo.Outbox.MarkProcessed(ctx, ev.EventID); err != nil {
			d.logger.Error("标记事件已处理失败", zap.String("event_id", ev.EventID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed
}

// handle 处理单条事件，panic 转为普通错误
func (d *OutboxDispatcher) handle(ctx context.Context, ev *model.OutboxEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("事件处理 panic: %v", r)
		}
	}()
	return d.adapter.HandleEvent(ctx, ev)
}
