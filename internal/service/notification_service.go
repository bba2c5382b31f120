package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"collegestudy/backend/config"
	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
	"collegestudy/backend/pkg/redis"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("通知不存在")
	ErrInvalidTargeting     = model.ErrInvalidTargeting
	ErrInvalidNotifyType    = errors.New("通知类型非法")
	ErrInvalidTimeWindow    = errors.New("生效时间窗非法")
)

// NotificationService 通知业务接口
//
// 设计说明：
//   - 通知本体创建后不可变，接收者集合是创建时刻的一次性快照，
//     之后注册/转入的用户不会补投（补投语义由上层重新广播表达）
//   - Fan-out 在单事务内完成：通知行 + 投递行 + recipient_count 回写
//     要么全部可见要么全部不可见
//   - recipient_count 永远由 COUNT(*) 整值回写，绝不自增，
//     幂等重试下天然收敛
//   - 未读数走 Redis 旁路缓存，写路径只做失效不做更新；rdb 为 nil 时直读库
type NotificationService interface {
	// CreateBroadcast 管理员手工创建并投递广播通知
	CreateBroadcast(ctx context.Context, callerID string, callerRole model.Role, req *dto.CreateNotificationRequest) (*dto.CreateNotificationResponse, error)
	// DeliverFromSource 系统自动生成通知的投递入口（适配器调用，不经角色门卫）
	DeliverFromSource(ctx context.Context, n *model.Notification, target model.Target) (int, error)

	// ── 接收者侧读模型 ──
	ListForUser(ctx context.Context, userID string, page, pageSize int) ([]dto.NotificationItem, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Dismiss(ctx context.Context, userID, notificationID string) error

	// ── 偏好 ──
	GetPreferences(ctx context.Context, userID string) (*dto.PreferenceResponse, error)
	UpdatePreferences(ctx context.Context, userID string, req *dto.PreferenceRequest) (*dto.PreferenceResponse, error)

	// CleanupExpired 物理删除过期超过保留期的通知（投递行级联删除）
	CleanupExpired(ctx context.Context) (int64, error)
}

type notificationService struct {
	cfg      *config.Config
	repo     *repository.Repository
	resolver AudienceResolver
	rdb      *redis.Client
	logger   *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(
	cfg *config.Config,
	repo *repository.Repository,
	resolver AudienceResolver,
	rdb *redis.Client,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		cfg:      cfg,
		repo:     repo,
		resolver: resolver,
		rdb:      rdb,
		logger:   logger,
	}
}

// ────────────────────── CreateBroadcast ──────────────────────

func (s *notificationService) CreateBroadcast(ctx context.Context, callerID string, callerRole model.Role, req *dto.CreateNotificationRequest) (*dto.CreateNotificationResponse, error) {
	// 1. 角色门卫
	if err := CanCreateBroadcast(callerRole); err != nil {
		return nil, err
	}

	// 2. 组装并校验 targeting 判别联合
	target := model.Target{
		Kind:      model.TargetKind(req.Target.Kind),
		Branches:  req.Target.Branches,
		Semesters: req.Target.Semesters,
		Years:     req.Target.Years,
		UserIDs:   req.Target.UserIDs,
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	typ := model.NotificationType(req.Type)
	if !typ.Valid() {
		return nil, ErrInvalidNotifyType
	}
	priority := model.PriorityNormal
	if req.Priority != "" {
		priority = model.Priority(req.Priority)
		if !priority.Valid() {
			return nil, ErrInvalidNotifyType
		}
	}

	// 3. 解析生效时间窗
	now := time.Now()
	scheduledFor := now
	if req.ScheduledFor != nil {
		t, err := time.Parse(time.RFC3339, *req.ScheduledFor)
		if err != nil {
			return nil, ErrInvalidTimeWindow
		}
		scheduledFor = t
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return nil, ErrInvalidTimeWindow
		}
		if !t.After(scheduledFor) {
			return nil, ErrInvalidTimeWindow
		}
		expiresAt = &t
	}

	n := &model.Notification{
		Title:        req.Title,
		Body:         req.Body,
		Type:         typ,
		Priority:     priority,
		ScheduledFor: scheduledFor,
		ExpiresAt:    expiresAt,
		CreatedBy:    &callerID,
	}

	// 4. Fan-out
	count, err := s.deliver(ctx, n, target)
	if err != nil {
		return nil, err
	}

	s.logger.Info("广播通知已创建",
		zap.String("notification_id", n.NotificationID),
		zap.String("type", string(typ)),
		zap.String("target_kind", string(target.Kind)),
		zap.Int("recipient_count", count),
		zap.String("created_by", callerID))

	return &dto.CreateNotificationResponse{
		NotificationID: n.NotificationID,
		RecipientCount: count,
	}, nil
}

// ────────────────────── DeliverFromSource ──────────────────────

func (s *notificationService) DeliverFromSource(ctx context.Context, n *model.Notification, target model.Target) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	return s.deliver(ctx, n, target)
}

// deliver 解析受众并在单事务内完成通知创建与投递扩散。
// 接收者集合为空时仍创建通知（recipient_count=0），与人工核对语义一致。
func (s *notificationService) deliver(ctx context.Context, n *model.Notification, target model.Target) (int, error) {
	recipients, err := s.resolver.Resolve(ctx, target, n.Type)
	if err != nil {
		return 0, err
	}

	// targeting 规格随通知本体持久化，供审计与报表回溯
	n.TargetKind = target.Kind
	n.TargetBranches = target.Branches
	n.TargetSemesters = target.Semesters
	n.TargetYears = target.Years
	n.TargetUserIDs = target.UserIDs

	var count int64
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Notification.Create(ctx, n); err != nil {
			s.logger.Error("创建通知失败", zap.Error(err))
			return err
		}
		if len(recipients) > 0 {
			if err := txRepo.Delivery.BulkInsertIgnoreDuplicates(ctx, n.NotificationID, recipients); err != nil {
				s.logger.Error("批量投递失败", zap.String("notification_id", n.NotificationID), zap.Error(err))
				return err
			}
		}

		// recipient_count = COUNT(*) 整值回写
		var err error
		count, err = txRepo.Delivery.CountByNotification(ctx, n.NotificationID)
		if err != nil {
			return err
		}
		return txRepo.Notification.SetRecipientCount(ctx, n.NotificationID, count)
	})
	if err != nil {
		return 0, err
	}
	n.RecipientCount = int(count)

	// 缓存失效尽力而为，失败只记日志
	if s.rdb != nil && len(recipients) > 0 {
		if err := s.rdb.InvalidateUnreadCounts(ctx, recipients); err != nil {
			s.logger.Warn("未读数缓存批量失效失败", zap.Error(err))
		}
	}
	return int(count), nil
}

// ────────────────────── 接收者侧读模型 ──────────────────────

func (s *notificationService) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]dto.NotificationItem, int64, error) {
	offset := (page - 1) * pageSize
	deliveries, total, err := s.repo.Delivery.ListForUser(ctx, userID, time.Now(), offset, pageSize)
	if err != nil {
		s.logger.Error("查询用户通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	items := make([]dto.NotificationItem, 0, len(deliveries))
	for _, d := range deliveries {
		if d.Notification == nil {
			continue
		}
		items = append(items, toNotificationItem(&d))
	}
	return items, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if s.rdb != nil {
		if count, err := s.rdb.GetUnreadCount(ctx, userID); err == nil {
			return count, nil
		}
	}

	count, err := s.repo.Delivery.UnreadCount(ctx, userID, time.Now())
	if err != nil {
		s.logger.Error("查询未读数失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	if s.rdb != nil {
		if err := s.rdb.SetUnreadCount(ctx, userID, count); err != nil {
			s.logger.Warn("写入未读数缓存失败", zap.Error(err))
		}
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	if _, err := s.repo.Delivery.Get(ctx, notificationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotificationNotFound
		}
		return false, err
	}

	changed, err := s.repo.Delivery.MarkRead(ctx, notificationID, userID, time.Now())
	if err != nil {
		s.logger.Error("标记已读失败", zap.String("notification_id", notificationID), zap.Error(err))
		return false, err
	}
	if changed {
		s.invalidateUnread(ctx, userID)
	}
	return changed, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.repo.Delivery.MarkAllRead(ctx, userID, time.Now())
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	if updated > 0 {
		s.invalidateUnread(ctx, userID)
	}
	return updated, nil
}

func (s *notificationService) Dismiss(ctx context.Context, userID, notificationID string) error {
	if _, err := s.repo.Delivery.Get(ctx, notificationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}

	changed, err := s.repo.Delivery.Dismiss(ctx, notificationID, userID, time.Now())
	if err != nil {
		s.logger.Error("忽略通知失败", zap.String("notification_id", notificationID), zap.Error(err))
		return err
	}
	if changed {
		s.invalidateUnread(ctx, userID)
	}
	return nil
}

func (s *notificationService) invalidateUnread(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.InvalidateUnreadCount(ctx, userID); err != nil {
		s.logger.Warn("未读数缓存失效失败", zap.String("user_id", userID), zap.Error(err))
	}
}

// ────────────────────── 偏好 ──────────────────────

func (s *notificationService) GetPreferences(ctx context.Context, userID string) (*dto.PreferenceResponse, error) {
	pref, err := s.getOrDefaultPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toPreferenceResponse(pref), nil
}

func (s *notificationService) UpdatePreferences(ctx context.Context, userID string, req *dto.PreferenceRequest) (*dto.PreferenceResponse, error) {
	pref, err := s.getOrDefaultPreference(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Custom != nil {
		pref.Custom = *req.Custom
	}
	if req.ExamReminder != nil {
		pref.ExamReminder = *req.ExamReminder
	}
	if req.Opportunity != nil {
		pref.Opportunity = *req.Opportunity
	}
	if req.Event != nil {
		pref.Event = *req.Event
	}
	if req.TimetableUpdate != nil {
		pref.TimetableUpdate = *req.TimetableUpdate
	}
	if req.Announcement != nil {
		pref.Announcement = *req.Announcement
	}

	if err := s.repo.Preference.Upsert(ctx, pref); err != nil {
		s.logger.Error("更新通知偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toPreferenceResponse(pref), nil
}

// getOrDefaultPreference 无偏好行时返回全开启默认值（不落库）
func (s *notificationService) getOrDefaultPreference(ctx context.Context, userID string) (*model.Preference, error) {
	pref, err := s.repo.Preference.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.Preference{
				UserID:          userID,
				Custom:          true,
				ExamReminder:    true,
				Opportunity:     true,
				Event:           true,
				TimetableUpdate: true,
				Announcement:    true,
			}, nil
		}
		s.logger.Error("查询通知偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return pref, nil
}

// ────────────────────── CleanupExpired ──────────────────────

func (s *notificationService) CleanupExpired(ctx context.Context) (int64, error) {
	retention := time.Duration(s.cfg.Notification.CleanupRetentionDays) * 24 * time.Hour
	cutoff := time.Now().Add(-retention)

	deleted, err := s.repo.Notification.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("清理过期通知失败", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("过期通知已清理", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

// ── DTO 映射 ──

func toNotificationItem(d *model.Delivery) dto.NotificationItem {
	n := d.Notification
	item := dto.NotificationItem{
		NotificationID: n.NotificationID,
		Title:          n.Title,
		Body:           n.Body,
		Type:           string(n.Type),
		Priority:       string(n.Priority),
		IsRead:         d.IsRead,
		RelatedType:    n.RelatedType,
		RelatedID:      n.RelatedID,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
	if d.ReadAt != nil {
		readAt := d.ReadAt.Format(time.RFC3339)
		item.ReadAt = &readAt
	}
	if n.ExpiresAt != nil {
		expiresAt := n.ExpiresAt.Format(time.RFC3339)
		item.ExpiresAt = &expiresAt
	}
	return item
}

func toPreferenceResponse(p *model.Preference) *dto.PreferenceResponse {
	return &dto.PreferenceResponse{
		Custom:          p.Custom,
		ExamReminder:    p.ExamReminder,
		Opportunity:     p.Opportunity,
		Event:           p.Event,
		TimetableUpdate: p.TimetableUpdate,
		Announcement:    p.Announcement,
	}
}
