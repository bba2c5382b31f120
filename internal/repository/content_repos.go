package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
)

// 内容协作方（活动/机会/考试/课表）的数据访问接口。
// 内容 CRUD 归外部系统所有，本服务仅保留适配器所需的只读查询；
// 考试额外提供批量写入以支撑 ICS 日历导入。

// EventRepository 校园活动只读访问
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

type eventRepo struct {
	db *gorm.DB
}

// NewEventRepo 创建 EventRepository 实例
func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	if err := r.db.WithContext(ctx).Where("event_id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// OpportunityRepository 实习/招聘机会只读访问
type OpportunityRepository interface {
	GetByID(ctx context.Context, id string) (*model.Opportunity, error)
}

type opportunityRepo struct {
	db *gorm.DB
}

// NewOpportunityRepo 创建 OpportunityRepository 实例
func NewOpportunityRepo(db *gorm.DB) OpportunityRepository {
	return &opportunityRepo{db: db}
}

func (r *opportunityRepo) GetByID(ctx context.Context, id string) (*model.Opportunity, error) {
	var o model.Opportunity
	if err := r.db.WithContext(ctx).Where("opportunity_id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ExamRepository 考试安排访问（提醒扫描 + ICS 导入）
type ExamRepository interface {
	GetByID(ctx context.Context, id string) (*model.Exam, error)
	// ListBetween 列出考试时间落在 [from, to) 内的考试
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Exam, error)
	BatchCreate(ctx context.Context, exams []model.Exam) error
}

type examRepo struct {
	db *gorm.DB
}

// NewExamRepo 创建 ExamRepository 实例
func NewExamRepo(db *gorm.DB) ExamRepository {
	return &examRepo{db: db}
}

func (r *examRepo) GetByID(ctx context.Context, id string) (*model.Exam, error) {
	var e model.Exam
	if err := r.db.WithContext(ctx).Where("exam_id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *examRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.db.WithContext(ctx).
		Where("exam_date >= ? AND exam_date < ?", from, to).
		Order("exam_date").
		Find(&exams).Error
	return exams, err
}

func (r *examRepo) BatchCreate(ctx context.Context, exams []model.Exam) error {
	if len(exams) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&exams).Error
}

// TimetableRepository 课表条目只读访问
type TimetableRepository interface {
	GetByID(ctx context.Context, id string) (*model.TimetableEntry, error)
}

type timetableRepo struct {
	db *gorm.DB
}

// NewTimetableRepo 创建 TimetableRepository 实例
func NewTimetableRepo(db *gorm.DB) TimetableRepository {
	return &timetableRepo{db: db}
}

func (r *timetableRepo) GetByID(ctx context.Context, id string) (*model.TimetableEntry, error) {
	var t model.TimetableEntry
	if err := r.db.WithContext(ctx).Where("entry_id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
