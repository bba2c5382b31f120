package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// ── ICS 考试日历导入 ──────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为考试安排并入库。
//
// 解析约定：
//   - SUMMARY → 科目名称
//   - DTSTART → 考试时间（必填，过去的时间拒绝）
//   - DESCRIPTION 中的 "branch: <code>" / "semester: <n>" 行 → targeting 维度，
//     缺省表示面向全部分院/学期
//   - 单个 VEVENT 解析失败只计入错误列表，不阻断整体导入
// ─────────────────────────────────────────────────────────────

const icsMaxFileSize = 5 * 1024 * 1024 // 5MB

// ErrEmptyCalendar 日历中无可导入的考试事件
var ErrEmptyCalendar = errors.New("日历中没有考试事件")

// ExamService 考试日历导入业务接口
type ExamService interface {
	// ImportCalendar 解析 ICS 数据流并批量创建考试安排
	ImportCalendar(ctx context.Context, reader io.Reader) (*dto.ImportExamsResponse, error)
}

type examService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExamService 创建 ExamService 实例
func NewExamService(repo *repository.Repository, logger *zap.Logger) ExamService {
	return &examService{repo: repo, logger: logger}
}

// ────────────────────── ImportCalendar ──────────────────────

func (s *examService) ImportCalendar(ctx context.Context, reader io.Reader) (*dto.ImportExamsResponse, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	events := cal.Events()
	if len(events) == 0 {
		return nil, ErrEmptyCalendar
	}

	now := time.Now()
	var (
		exams      []model.Exam
		importErrs []dto.ImportExamError
	)
	for _, evt := range events {
		exam, err := parseExamEvent(evt, now)
		if err != nil {
			importErrs = append(importErrs, dto.ImportExamError{
				Event:  eventSummary(evt),
				Reason: err.Error(),
			})
			continue
		}
		exams = append(exams, *exam)
	}

	if len(exams) > 0 {
		if err := s.repo.Exam.BatchCreate(ctx, exams); err != nil {
			s.logger.Error("批量创建考试失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("考试日历导入完成",
		zap.Int("imported", len(exams)),
		zap.Int("skipped", len(importErrs)))

	return &dto.ImportExamsResponse{
		Imported: len(exams),
		Skipped:  len(importErrs),
		Errors:   importErrs,
	}, nil
}

// ── VEVENT 解析 ──

func parseExamEvent(evt *ics.VEvent, now time.Time) (*model.Exam, error) {
	subject := eventSummary(evt)
	if subject == "" {
		return nil, errors.New("缺少科目名称 (SUMMARY)")
	}

	examDate, err := evt.GetStartAt()
	if err != nil {
		return nil, errors.New("缺少或无法解析考试时间 (DTSTART)")
	}
	if examDate.Before(now) {
		return nil, errors.New("考试时间已过")
	}

	branch, semester, err := parseExamMeta(evt)
	if err != nil {
		return nil, err
	}

	return &model.Exam{
		Subject:    subject,
		BranchCode: branch,
		Semester:   semester,
		ExamDate:   examDate,
	}, nil
}

// parseExamMeta 从 DESCRIPTION 提取 branch/semester 维度；两者均可缺省
func parseExamMeta(evt *ics.VEvent) (string, int, error) {
	prop := evt.GetProperty(ics.ComponentPropertyDescription)
	if prop == nil {
		return "", 0, nil
	}

	var (
		branch   string
		semester int
	)
	for _, line := range strings.Split(prop.Value, "\\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "branch":
			branch = value
		case "semester":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 12 {
				return "", 0, fmt.Errorf("学期取值非法: %q", value)
			}
			semester = n
		}
	}
	return branch, semester, nil
}

func eventSummary(evt *ics.VEvent) string {
	if prop := evt.GetProperty(ics.ComponentPropertySummary); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}
