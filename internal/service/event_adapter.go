package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// ErrUnknownEventType Outbox 中出现未注册的事件类型（终态失败，不重试）
var ErrUnknownEventType = errors.New("未知的领域事件类型")

// EventAdapter 领域事件 → 通知的适配器
//
// 设计说明：
//   - 每类事件一个装配函数：决定类型、优先级、targeting、有效期与去重键
//   - 去重靠 (related_type, related_id, type) 查询 + 唯一索引兜底，
//     同一来源事件重放不会产生第二条通知
//   - 任何装配失败只影响当前事件行，由调度器记录，绝不向领域事务传播
//   - 考试提醒不由行级事件驱动，而是周期扫描两个提醒窗口
type EventAdapter interface {
	// HandleEvent 处理一条 Outbox 事件；返回错误表示本次处理失败
	HandleEvent(ctx context.Context, ev *model.OutboxEvent) error
	// SweepExamReminders 扫描考试提醒窗口，生成到期的提醒通知
	SweepExamReminders(ctx context.Context) error
}

type eventAdapter struct {
	repo     *repository.Repository
	notifier NotificationService
	logger   *zap.Logger
}

// NewEventAdapter 创建 EventAdapter 实例
func NewEventAdapter(repo *repository.Repository, notifier NotificationService, logger *zap.Logger) EventAdapter {
	return &eventAdapter{repo: repo, notifier: notifier, logger: logger}
}

// ── 事件载荷 ──

type eventPublishedPayload struct {
	EventID string `json:"event_id"`
}

type opportunityPostedPayload struct {
	OpportunityID string `json:"opportunity_id"`
}

type timetableUpdatedPayload struct {
	EntryID string `json:"entry_id"`
}

type userRegisteredPayload struct {
	UserID string `json:"user_id"`
}

// ────────────────────── HandleEvent ──────────────────────

func (a *eventAdapter) HandleEvent(ctx context.Context, ev *model.OutboxEvent) error {
	switch ev.EventType {
	case model.EventEventPublished:
		return a.handleEventPublished(ctx, ev)
	case model.EventOpportunityAdded:
		return a.handleOpportunityPosted(ctx, ev)
	case model.EventTimetableUpdated:
		return a.handleTimetableUpdated(ctx, ev)
	case model.EventUserRegistered:
		return a.handleUserRegistered(ctx, ev)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventType, ev.EventType)
	}
}

// handleEventPublished 活动发布 → 面向活动限定受众的 event 通知
// 活动自身的 branches/semesters 限制即 targeting；无限制则全员
func (a *eventAdapter) handleEventPublished(ctx context.Context, ev *model.OutboxEvent) error {
	var payload eventPublishedPayload
	if err := json.Unmarshal([]byte(ev.Payload), &payload); err != nil {
		return fmt.Errorf("解析 event_published 载荷失败: %w", err)
	}

	event, err := a.repo.Event.GetByID(ctx, payload.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 活动在事件消费前被删除，跳过
			a.logger.Warn("活动已不存在，跳过通知", zap.String("event_id", payload.EventID))
			return nil
		}
		return err
	}
	if !event.IsPublished {
		a.logger.Warn("活动未发布，跳过通知", zap.String("event_id", event.EventID))
		return nil
	}

	exists, err := a.alreadyNotified(ctx, "event", event.EventID, model.TypeEvent)
	if err != nil || exists {
		return err
	}

	settings, err := a.repo.Settings.Get(ctx)
	if err != nil {
		return err
	}

	var target model.Target
	if event.Branches == nil && event.Semesters == nil {
		target = model.AllUsers()
	} else {
		target = model.FilteredTarget(event.Branches, event.Semesters, nil)
	}

	expiresAt := event.StartsAt.Add(time.Duration(settings.EventExpiryHours) * time.Hour)
	relatedType, relatedID := "event", event.EventID
	n := &model.Notification{
		Title:        "校园活动：" + event.Title,
		Body:         event.Description,
		Type:         model.TypeEvent,
		Priority:     model.PriorityNormal,
		ExpiresAt:    &expiresAt,
		ScheduledFor: time.Now(),
		RelatedType:  &relatedType,
		RelatedID:    &relatedID,
	}
	return a.send(ctx, n, target)
}

// handleOpportunityPosted 机会发布 → opportunity 通知
// 截止日在紧急窗口内时优先级提升为 high；通知在截止日过期
func (a *eventAdapter) handleOpportunityPosted(ctx context.Context, ev *model.OutboxEvent) error {
	var payload opportunityPostedPayload
	if err := json.Unmarshal([]byte(ev.Payload), &payload); err != nil {
		return fmt.Errorf("解析 opportunity_posted 载荷失败: %w", err)
	}

	opp, err := a.repo.Opportunity.GetByID(ctx, payload.OpportunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.Warn("机会已不存在，跳过通知", zap.String("opportunity_id", payload.OpportunityID))
			return nil
		}
		return err
	}

	exists, err := a.alreadyNotified(ctx, "opportunity", opp.OpportunityID, model.TypeOpportunity)
	if err != nil || exists {
		return err
	}

	settings, err := a.repo.Settings.Get(ctx)
	if err != nil {
		return err
	}

	priority := model.PriorityNormal
	urgentWindow := time.Duration(settings.OpportunityUrgentDays) * 24 * time.Hour
	if time.Until(opp.Deadline) <= urgentWindow {
		priority = model.PriorityHigh
	}

	title := "实习/招聘机会：" + opp.Title
	if opp.Company != "" {
		title += "（" + opp.Company + "）"
	}
	deadline := opp.Deadline
	relatedType, relatedID := "opportunity", opp.OpportunityID
	n := &model.Notification{
		Title:        title,
		Body:         opp.Description,
		Type:         model.TypeOpportunity,
		Priority:     priority,
		ExpiresAt:    &deadline,
		ScheduledFor: time.Now(),
		RelatedType:  &relatedType,
		RelatedID:    &relatedID,
	}
	return a.send(ctx, n, model.FilteredTarget(opp.Branches, nil, opp.Years))
}

// handleTimetableUpdated 课表变更 → 面向该分院该学期的 timetable_update 通知
// 去重键带上变更时间戳：同一条目的多次更新各自产生一条通知
func (a *eventAdapter) handleTimetableUpdated(ctx context.Context, ev *model.OutboxEvent) error {
	var payload timetableUpdatedPayload
	if err := json.Unmarshal([]byte(ev.Payload), &payload); err != nil {
		return fmt.Errorf("解析 timetable_updated 载荷失败: %w", err)
	}

	entry, err := a.repo.Timetable.GetByID(ctx, payload.EntryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.Warn("课表条目已不存在，跳过通知", zap.String("entry_id", payload.EntryID))
			return nil
		}
		return err
	}

	relatedID := fmt.Sprintf("%s:%d", entry.EntryID, entry.UpdatedAt.Unix())
	exists, err := a.alreadyNotified(ctx, "timetable", relatedID, model.TypeTimetableUpdate)
	if err != nil || exists {
		return err
	}

	relatedType := "timetable"
	n := &model.Notification{
		Title:        "课表更新提醒",
		Body:         fmt.Sprintf("%s 分院第 %d 学期的课表已更新，请查看最新安排。", entry.BranchCode, entry.Semester),
		Type:         model.TypeTimetableUpdate,
		Priority:     model.PriorityNormal,
		ScheduledFor: time.Now(),
		RelatedType:  &relatedType,
		RelatedID:    &relatedID,
	}
	target := model.FilteredTarget([]string{entry.BranchCode}, []int{entry.Semester}, nil)
	return a.send(ctx, n, target)
}

// handleUserRegistered 新用户注册 → 仅投递给本人的 welcome 通知
func (a *eventAdapter) handleUserRegistered(ctx context.Context, ev *model.OutboxEvent) error {
	var payload userRegisteredPayload
	if err := json.Unmarshal([]byte(ev.Payload), &payload); err != nil {
		return fmt.Errorf("解析 user_registered 载荷失败: %w", err)
	}

	user, err := a.repo.User.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.Warn("用户已不存在，跳过欢迎通知", zap.String("user_id", payload.UserID))
			return nil
		}
		return err
	}

	exists, err := a.alreadyNotified(ctx, "user", user.UserID, model.TypeWelcome)
	if err != nil || exists {
		return err
	}

	relatedType, relatedID := "user", user.UserID
	n := &model.Notification{
		Title:        "欢迎加入 CollegeStudy",
		Body:         fmt.Sprintf("%s，你好！欢迎使用学生门户，请在个人中心完善资料并查看通知偏好设置。", user.Name),
		Type:         model.TypeWelcome,
		Priority:     model.PriorityNormal,
		ScheduledFor: time.Now(),
		RelatedType:  &relatedType,
		RelatedID:    &relatedID,
	}
	return a.send(ctx, n, model.ExplicitUsers([]string{user.UserID}))
}

// ────────────────────── SweepExamReminders ──────────────────────

// examWindow 提醒窗口定义：related_id 后缀区分 1 周/1 天两档
type examWindow struct {
	suffix    string
	lookahead time.Duration
	priority  model.Priority
	label     string
}

func (a *eventAdapter) SweepExamReminders(ctx context.Context) error {
	settings, err := a.repo.Settings.Get(ctx)
	if err != nil {
		a.logger.Error("读取通知引擎参数失败", zap.Error(err))
		return err
	}

	var windows []examWindow
	if settings.ExamWeekReminder {
		windows = append(windows, examWindow{
			suffix:    "1w",
			lookahead: 7 * 24 * time.Hour,
			priority:  model.PriorityNormal,
			label:     "一周后",
		})
	}
	if settings.ExamDayReminder {
		windows = append(windows, examWindow{
			suffix:    "1d",
			lookahead: 24 * time.Hour,
			priority:  model.PriorityHigh,
			label:     "明天",
		})
	}

	now := time.Now()
	for _, w := range windows {
		exams, err := a.repo.Exam.ListBetween(ctx, now, now.Add(w.lookahead))
		if err != nil {
			a.logger.Error("扫描考试窗口失败", zap.String("window", w.suffix), zap.Error(err))
			continue
		}
		for i := range exams {
			// 单场考试失败不阻断整轮扫描
			if err := a.remindExam(ctx, &exams[i], w); err != nil {
				a.logger.Error("生成考试提醒失败",
					zap.String("exam_id", exams[i].ExamID),
					zap.String("window", w.suffix),
					zap.Error(err))
			}
		}
	}
	return nil
}

func (a *eventAdapter) remindExam(ctx context.Context, exam *model.Exam, w examWindow) error {
	relatedID := exam.ExamID + ":" + w.suffix
	exists, err := a.alreadyNotified(ctx, "exam", relatedID, model.TypeExamReminder)
	if err != nil || exists {
		return err
	}

	var branches []string
	if exam.BranchCode != "" {
		branches = []string{exam.BranchCode}
	}
	var semesters []int
	if exam.Semester > 0 {
		semesters = []int{exam.Semester}
	}

	examDate := exam.ExamDate
	relatedType := "exam"
	n := &model.Notification{
		Title:        "考试提醒：" + exam.Subject,
		Body:         fmt.Sprintf("《%s》考试将于%s（%s）举行，请做好准备。", exam.Subject, w.label, exam.ExamDate.Format("2006-01-02 15:04")),
		Type:         model.TypeExamReminder,
		Priority:     w.priority,
		ExpiresAt:    &examDate,
		ScheduledFor: time.Now(),
		RelatedType:  &relatedType,
		RelatedID:    &relatedID,
	}
	return a.send(ctx, n, model.FilteredTarget(branches, semesters, nil))
}

// ── 公共辅助 ──

// alreadyNotified 按来源三元组查重
func (a *eventAdapter) alreadyNotified(ctx context.Context, relatedType, relatedID string, typ model.NotificationType) (bool, error) {
	_, err := a.repo.Notification.GetByRelated(ctx, relatedType, relatedID, typ)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (a *eventAdapter) send(ctx context.Context, n *model.Notification, target model.Target) error {
	count, err := a.notifier.DeliverFromSource(ctx, n, target)
	if err != nil {
		return err
	}
	a.logger.Info("自动通知已生成",
		zap.String("notification_id", n.NotificationID),
		zap.String("type", string(n.Type)),
		zap.Stringp("related_id", n.RelatedID),
		zap.Int("recipient_count", count))
	return nil
}
