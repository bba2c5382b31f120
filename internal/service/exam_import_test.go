package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func icsCalendar(events ...string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n")
	for _, e := range events {
		b.WriteString(e)
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func icsExam(uid, summary string, start time.Time, description string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VEVENT\r\n")
	b.WriteString("UID:" + uid + "\r\n")
	b.WriteString("DTSTAMP:20260101T000000Z\r\n")
	if summary != "" {
		b.WriteString("SUMMARY:" + summary + "\r\n")
	}
	if !start.IsZero() {
		b.WriteString("DTSTART:" + start.UTC().Format("20060102T150405Z") + "\r\n")
	}
	if description != "" {
		b.WriteString("DESCRIPTION:" + description + "\r\n")
	}
	b.WriteString("END:VEVENT\r\n")
	return b.String()
}

func setupExamService(t *testing.T) (*testRepos, ExamService) {
	t.Helper()
	tr, repo := newTestRepos()
	return tr, NewExamService(repo, zap.NewNop())
}

func TestImportCalendar(t *testing.T) {
	tr, svc := setupExamService(t)
	future := time.Now().Add(10 * 24 * time.Hour)

	cal := icsCalendar(
		icsExam("e1", "数据结构期末", future, "branch: CSE\\nsemester: 3"),
		icsExam("e2", "高等数学期末", future.Add(24*time.Hour), ""),
	)

	resp, err := svc.ImportCalendar(context.Background(), strings.NewReader(cal))
	if err != nil {
		t.Fatalf("ImportCalendar 失败: %v", err)
	}
	if resp.Imported != 2 || resp.Skipped != 0 {
		t.Fatalf("imported=%d skipped=%d, 期望 2/0", resp.Imported, resp.Skipped)
	}
	if len(tr.exam.exams) != 2 {
		t.Fatalf("入库考试数 = %d, 期望 2", len(tr.exam.exams))
	}

	var withMeta bool
	for _, e := range tr.exam.exams {
		if e.Subject == "数据结构期末" {
			withMeta = true
			if e.BranchCode != "CSE" || e.Semester != 3 {
				t.Errorf("维度解析 = (%s, %d), 期望 (CSE, 3)", e.BranchCode, e.Semester)
			}
		}
	}
	if !withMeta {
		t.Error("带维度的考试未入库")
	}
}

func TestImportCalendarPartialFailure(t *testing.T) {
	tr, svc := setupExamService(t)
	future := time.Now().Add(10 * 24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	cal := icsCalendar(
		icsExam("e1", "操作系统期末", future, ""),
		icsExam("e2", "", future, ""),           // 缺 SUMMARY
		icsExam("e3", "编译原理补考", past, ""), // 时间已过
		icsExam("e4", "数据库期末", future, "semester: thirteen"), // 学期非法
	)

	resp, err := svc.ImportCalendar(context.Background(), strings.NewReader(cal))
	if err != nil {
		t.Fatalf("ImportCalendar 失败: %v", err)
	}
	if resp.Imported != 1 {
		t.Errorf("imported = %d, 期望 1", resp.Imported)
	}
	if resp.Skipped != 3 || len(resp.Errors) != 3 {
		t.Errorf("skipped = %d, errors = %d, 期望 3/3", resp.Skipped, len(resp.Errors))
	}
	if len(tr.exam.exams) != 1 {
		t.Errorf("入库考试数 = %d, 期望 1（失败事件不入库）", len(tr.exam.exams))
	}
}

func TestImportCalendarEmpty(t *testing.T) {
	_, svc := setupExamService(t)

	_, err := svc.ImportCalendar(context.Background(), strings.NewReader(icsCalendar()))
	if !errors.Is(err, ErrEmptyCalendar) {
		t.Errorf("空日历期望 ErrEmptyCalendar, 实际 %v", err)
	}
}

func TestImportCalendarMalformed(t *testing.T) {
	_, svc := setupExamService(t)

	_, err := svc.ImportCalendar(context.Background(), strings.NewReader("这不是一个日历文件"))
	if err == nil {
		t.Error("非法 ICS 内容应返回解析错误")
	}
}
