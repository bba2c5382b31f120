package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"collegestudy/backend/config"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
	// createErr 注入一次性的 Create 失败，模拟并发写入触发唯一索引冲突
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) UpdateRole(_ context.Context, id string, role model.Role, _ string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, callerID string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.DeletedBy = &callerID
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filters != nil {
			if filters.BranchCode != "" && u.BranchCode != filters.BranchCode {
				continue
			}
			if filters.Role != "" && string(u.Role) != filters.Role {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(u.Name, filters.Keyword) && !strings.Contains(u.Email, filters.Keyword) {
				continue
			}
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, role model.Role) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) ListActiveIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id, u := range m.users {
		if u.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRepo) ListIDsByFilter(_ context.Context, f repository.AudienceFilter) ([]string, error) {
	var ids []string
	for id, u := range m.users {
		if !u.IsActive {
			continue
		}
		if f.Branches != nil && !containsString(f.Branches, u.BranchCode) {
			continue
		}
		if f.Semesters != nil && !containsInt(f.Semesters, u.Semester) {
			continue
		}
		if f.Years != nil && !containsInt(f.Years, u.Year) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRepo) FilterExistingIDs(_ context.Context, candidates []string) ([]string, error) {
	var ids []string
	for _, id := range candidates {
		if u, ok := m.users[id]; ok && u.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var users []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

// ── Mock BranchRepository ──

type mockBranchRepo struct {
	branches map[string]*model.Branch
}

func newMockBranchRepo() *mockBranchRepo {
	return &mockBranchRepo{branches: make(map[string]*model.Branch)}
}

func (m *mockBranchRepo) GetByCode(_ context.Context, code string) (*model.Branch, error) {
	if b, ok := m.branches[code]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBranchRepo) List(_ context.Context) ([]model.Branch, error) {
	var result []model.Branch
	for _, b := range m.branches {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BranchCode < result[j].BranchCode })
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications map[string]*model.Notification
	seq           int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*model.Notification)}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.NotificationID == "" {
		m.seq++
		n.NotificationID = fmt.Sprintf("notif-%d", m.seq)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	// 去重唯一索引的内存等价物
	if n.RelatedType != nil && n.RelatedID != nil {
		for _, other := range m.notifications {
			if other.RelatedType != nil && *other.RelatedType == *n.RelatedType &&
				other.RelatedID != nil && *other.RelatedID == *n.RelatedID &&
				other.Type == n.Type {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	m.notifications[n.NotificationID] = n
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) GetByRelated(_ context.Context, relatedType, relatedID string, typ model.NotificationType) (*model.Notification, error) {
	for _, n := range m.notifications {
		if n.RelatedType != nil && *n.RelatedType == relatedType &&
			n.RelatedID != nil && *n.RelatedID == relatedID &&
			n.Type == typ {
			return n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) SetRecipientCount(_ context.Context, id string, count int64) error {
	n, ok := m.notifications[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.RecipientCount = int(count)
	return nil
}

func (m *mockNotificationRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, n := range m.notifications {
		if n.ExpiresAt != nil && n.ExpiresAt.Before(cutoff) {
			delete(m.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

// ── Mock DeliveryRepository ──
//
// live 过滤需要父通知的时间窗，故持有 notification mock 的引用

type mockDeliveryRepo struct {
	deliveries    map[string]*model.Delivery // key: notificationID|userID
	notifications *mockNotificationRepo
}

func newMockDeliveryRepo(notifications *mockNotificationRepo) *mockDeliveryRepo {
	return &mockDeliveryRepo{
		deliveries:    make(map[string]*model.Delivery),
		notifications: notifications,
	}
}

func deliveryKey(notificationID, userID string) string {
	return notificationID + "|" + userID
}

func (m *mockDeliveryRepo) BulkInsertIgnoreDuplicates(_ context.Context, notificationID string, userIDs []string) error {
	for _, uid := range userIDs {
		key := deliveryKey(notificationID, uid)
		if _, exists := m.deliveries[key]; exists {
			continue // 主键冲突视为 no-op
		}
		m.deliveries[key] = &model.Delivery{
			NotificationID: notificationID,
			UserID:         uid,
			CreatedAt:      time.Now(),
		}
	}
	return nil
}

func (m *mockDeliveryRepo) CountByNotification(_ context.Context, notificationID string) (int64, error) {
	var n int64
	for _, d := range m.deliveries {
		if d.NotificationID == notificationID {
			n++
		}
	}
	return n, nil
}

func (m *mockDeliveryRepo) MarkRead(_ context.Context, notificationID, userID string, at time.Time) (bool, error) {
	d, ok := m.deliveries[deliveryKey(notificationID, userID)]
	if !ok || d.IsRead {
		return false, nil
	}
	d.IsRead = true
	d.ReadAt = &at
	return true, nil
}

func (m *mockDeliveryRepo) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	var updated int64
	for _, d := range m.deliveries {
		if d.UserID == userID && !d.IsRead {
			d.IsRead = true
			readAt := at
			d.ReadAt = &readAt
			updated++
		}
	}
	return updated, nil
}

func (m *mockDeliveryRepo) Dismiss(_ context.Context, notificationID, userID string, at time.Time) (bool, error) {
	d, ok := m.deliveries[deliveryKey(notificationID, userID)]
	if !ok || d.IsDismissed {
		return false, nil
	}
	d.IsDismissed = true
	d.DismissedAt = &at
	return true, nil
}

func (m *mockDeliveryRepo) isLive(d *model.Delivery, now time.Time) bool {
	n, ok := m.notifications.notifications[d.NotificationID]
	if !ok {
		return false
	}
	return n.LiveAt(now)
}

func (m *mockDeliveryRepo) UnreadCount(_ context.Context, userID string, now time.Time) (int64, error) {
	var n int64
	for _, d := range m.deliveries {
		if d.UserID == userID && !d.IsRead && !d.IsDismissed && m.isLive(d, now) {
			n++
		}
	}
	return n, nil
}

func (m *mockDeliveryRepo) ListForUser(_ context.Context, userID string, now time.Time, offset, limit int) ([]model.Delivery, int64, error) {
	var all []model.Delivery
	for _, d := range m.deliveries {
		if d.UserID != userID || d.IsDismissed || !m.isLive(d, now) {
			continue
		}
		copied := *d
		if n, ok := m.notifications.notifications[d.NotificationID]; ok {
			copied.Notification = n
		}
		all = append(all, copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Notification.CreatedAt.After(all[j].Notification.CreatedAt)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockDeliveryRepo) Get(_ context.Context, notificationID, userID string) (*model.Delivery, error) {
	if d, ok := m.deliveries[deliveryKey(notificationID, userID)]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeliveryRepo) ListByNotification(_ context.Context, notificationID string) ([]model.Delivery, error) {
	var result []model.Delivery
	for _, d := range m.deliveries {
		if d.NotificationID == notificationID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockDeliveryRepo) Stats(_ context.Context, notificationID string) (*repository.DeliveryStats, error) {
	stats := &repository.DeliveryStats{}
	for _, d := range m.deliveries {
		if d.NotificationID != notificationID {
			continue
		}
		stats.Total++
		if d.IsRead {
			stats.Read++
		}
		if d.IsDismissed {
			stats.Dismissed++
		}
	}
	return stats, nil
}

// ── Mock PreferenceRepository ──

type mockPreferenceRepo struct {
	prefs map[string]*model.Preference
}

func newMockPreferenceRepo() *mockPreferenceRepo {
	return &mockPreferenceRepo{prefs: make(map[string]*model.Preference)}
}

func (m *mockPreferenceRepo) Get(_ context.Context, userID string) (*model.Preference, error) {
	if p, ok := m.prefs[userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPreferenceRepo) Upsert(_ context.Context, pref *model.Preference) error {
	m.prefs[pref.UserID] = pref
	return nil
}

func (m *mockPreferenceRepo) DisabledUserIDs(_ context.Context, typ model.NotificationType) ([]string, error) {
	var ids []string
	for uid, p := range m.prefs {
		if !p.Allows(typ) {
			ids = append(ids, uid)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Mock OutboxRepository ──

type mockOutboxRepo struct {
	events []*model.OutboxEvent
	seq    int
}

func newMockOutboxRepo() *mockOutboxRepo {
	return &mockOutboxRepo{}
}

func (m *mockOutboxRepo) Enqueue(_ context.Context, event *model.OutboxEvent) error {
	if event.EventID == "" {
		m.seq++
		event.EventID = fmt.Sprintf("evt-%d", m.seq)
	}
	if event.Status == "" {
		event.Status = model.OutboxPending
	}
	event.CreatedAt = time.Now()
	m.events = append(m.events, event)
	return nil
}

func (m *mockOutboxRepo) ListPending(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	var result []model.OutboxEvent
	for _, ev := range m.events {
		if ev.Status != model.OutboxPending {
			continue
		}
		result = append(result, *ev)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockOutboxRepo) MarkProcessed(_ context.Context, eventID string) error {
	for _, ev := range m.events {
		if ev.EventID == eventID {
			now := time.Now()
			ev.Status = model.OutboxProcessed
			ev.Attempts++
			ev.ProcessedAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockOutboxRepo) MarkFailed(_ context.Context, eventID string, errMsg string, final bool) error {
	for _, ev := range m.events {
		if ev.EventID == eventID {
			ev.Attempts++
			ev.LastError = &errMsg
			if final {
				ev.Status = model.OutboxFailed
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockOutboxRepo) find(eventID string) *model.OutboxEvent {
	for _, ev := range m.events {
		if ev.EventID == eventID {
			return ev
		}
	}
	return nil
}

// ── Mock 内容协作方 Repository ──

type mockEventRepo struct {
	events map[string]*model.Event
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]*model.Event)}
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	if e, ok := m.events[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockOpportunityRepo struct {
	opportunities map[string]*model.Opportunity
}

func newMockOpportunityRepo() *mockOpportunityRepo {
	return &mockOpportunityRepo{opportunities: make(map[string]*model.Opportunity)}
}

func (m *mockOpportunityRepo) GetByID(_ context.Context, id string) (*model.Opportunity, error) {
	if o, ok := m.opportunities[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockExamRepo struct {
	exams map[string]*model.Exam
	seq   int
}

func newMockExamRepo() *mockExamRepo {
	return &mockExamRepo{exams: make(map[string]*model.Exam)}
}

func (m *mockExamRepo) GetByID(_ context.Context, id string) (*model.Exam, error) {
	if e, ok := m.exams[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExamRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Exam, error) {
	var result []model.Exam
	for _, e := range m.exams {
		if !e.ExamDate.Before(from) && e.ExamDate.Before(to) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExamDate.Before(result[j].ExamDate) })
	return result, nil
}

func (m *mockExamRepo) BatchCreate(_ context.Context, exams []model.Exam) error {
	for i := range exams {
		if exams[i].ExamID == "" {
			m.seq++
			exams[i].ExamID = fmt.Sprintf("exam-%d", m.seq)
		}
		e := exams[i]
		m.exams[e.ExamID] = &e
	}
	return nil
}

type mockTimetableRepo struct {
	entries map[string]*model.TimetableEntry
}

func newMockTimetableRepo() *mockTimetableRepo {
	return &mockTimetableRepo{entries: make(map[string]*model.TimetableEntry)}
}

func (m *mockTimetableRepo) GetByID(_ context.Context, id string) (*model.TimetableEntry, error) {
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock SettingsRepository ──

type mockSettingsRepo struct {
	settings *model.NotificationSettings
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{
		settings: &model.NotificationSettings{
			Singleton:             true,
			OpportunityUrgentDays: 7,
			ExamWeekReminder:      true,
			ExamDayReminder:       true,
			EventExpiryHours:      24,
		},
	}
}

func (m *mockSettingsRepo) Get(_ context.Context) (*model.NotificationSettings, error) {
	return m.settings, nil
}

func (m *mockSettingsRepo) Update(_ context.Context, settings *model.NotificationSettings) error {
	settings.Singleton = true
	m.settings = settings
	return nil
}

// ── 测试装配 ──

// testRepos 持有全部 mock，便于测试用例直接检查内部状态
type testRepos struct {
	user         *mockUserRepo
	branch       *mockBranchRepo
	notification *mockNotificationRepo
	delivery     *mockDeliveryRepo
	preference   *mockPreferenceRepo
	outbox       *mockOutboxRepo
	event        *mockEventRepo
	opportunity  *mockOpportunityRepo
	exam         *mockExamRepo
	timetable    *mockTimetableRepo
	settings     *mockSettingsRepo
}

func newTestRepos() (*testRepos, *repository.Repository) {
	tr := &testRepos{
		user:        newMockUserRepo(),
		branch:      newMockBranchRepo(),
		preference:  newMockPreferenceRepo(),
		outbox:      newMockOutboxRepo(),
		event:       newMockEventRepo(),
		opportunity: newMockOpportunityRepo(),
		exam:        newMockExamRepo(),
		timetable:   newMockTimetableRepo(),
		settings:    newMockSettingsRepo(),
	}
	tr.notification = newMockNotificationRepo()
	tr.delivery = newMockDeliveryRepo(tr.notification)

	repo := &repository.Repository{
		User:         tr.user,
		Branch:       tr.branch,
		Notification: tr.notification,
		Delivery:     tr.delivery,
		Preference:   tr.preference,
		Outbox:       tr.outbox,
		Event:        tr.event,
		Opportunity:  tr.opportunity,
		Exam:         tr.exam,
		Timetable:    tr.timetable,
		Settings:     tr.settings,
	}
	return tr, repo
}

// ── 通用辅助 ──

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-tests",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Notification: config.NotificationConfig{
			OutboxPollInterval:   time.Second,
			OutboxBatchSize:      50,
			OutboxMaxAttempts:    3,
			ExamSweepInterval:    time.Hour,
			CleanupInterval:      time.Hour,
			CleanupRetentionDays: 30,
		},
	}
}

// seedUser 注入一个活跃用户，ID 形如 user-N
func seedUser(tr *testRepos, id string, role model.Role, branch string, semester, year int) *model.User {
	u := &model.User{
		UserID:     id,
		Name:       "用户" + id,
		Email:      id + "@example.com",
		Role:       role,
		BranchCode: branch,
		Semester:   semester,
		Year:       year,
		IsActive:   true,
	}
	tr.user.users[id] = u
	return u
}
