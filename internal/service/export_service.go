package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// ErrExportGenerateFail Excel 文件生成失败
var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 设计说明：
//   - 投递报表导出为 Excel (.xlsx)：汇总 Sheet + 逐接收者明细 Sheet
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportDeliveryReport 导出指定通知的投递报表
	ExportDeliveryReport(ctx context.Context, notificationID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportDeliveryReport — 导出投递报表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "汇总"：通知元信息 + 投递/已读/忽略计数与比率
//   - Sheet "明细"：接收者姓名、邮箱、分院、已读状态、已读时间、忽略状态
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportDeliveryReport(ctx context.Context, notificationID string) (*bytes.Buffer, string, error) {
	// 1. 查询通知本体
	n, err := s.repo.Notification.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotificationNotFound
		}
		s.logger.Error("查询通知失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 查询投递明细与汇总
	deliveries, err := s.repo.Delivery.ListByNotification(ctx, notificationID)
	if err != nil {
		s.logger.Error("查询投递明细失败", zap.Error(err))
		return nil, "", err
	}
	stats, err := s.repo.Delivery.Stats(ctx, notificationID)
	if err != nil {
		s.logger.Error("查询投递统计失败", zap.Error(err))
		return nil, "", err
	}

	// 3. 批量加载接收者信息
	userIDs := make([]string, 0, len(deliveries))
	for _, d := range deliveries {
		userIDs = append(userIDs, d.UserID)
	}
	users, err := s.repo.User.ListByIDs(ctx, userIDs)
	if err != nil {
		s.logger.Error("查询接收者信息失败", zap.Error(err))
		return nil, "", err
	}
	userIndex := make(map[string]*model.User, len(users))
	for i := range users {
		userIndex[users[i].UserID] = &users[i]
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSummarySheet(f, n, stats); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	if err := s.writeDetailSheet(f, deliveries, userIndex); err != nil {
		return nil, "", ErrExportGenerateFail
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写入 Excel 缓冲失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("delivery_report_%s_%s.xlsx", n.NotificationID[:8], time.Now().Format("20060102"))
	return buf, filename, nil
}

func (s *exportService) writeSummarySheet(f *excelize.File, n *model.Notification, stats *repository.DeliveryStats) error {
	const sheet = "汇总"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	readRate := "0%"
	if stats.Total > 0 {
		readRate = fmt.Sprintf("%.1f%%", float64(stats.Read)/float64(stats.Total)*100)
	}

	rows := [][]interface{}{
		{"通知 ID", n.NotificationID},
		{"标题", n.Title},
		{"类型", string(n.Type)},
		{"优先级", string(n.Priority)},
		{"受众规格", string(n.TargetKind)},
		{"创建时间", n.CreatedAt.Format("2006-01-02 15:04:05")},
		{"投递总数", stats.Total},
		{"已读数", stats.Read},
		{"已读率", readRate},
		{"忽略数", stats.Dismissed},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "B", 28)
}

func (s *exportService) writeDetailSheet(f *excelize.File, deliveries []model.Delivery, userIndex map[string]*model.User) error {
	const sheet = "明细"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"接收者", "邮箱", "分院", "学期", "已读", "已读时间", "已忽略"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, d := range deliveries {
		name, email, branch := "（已注销）", "", ""
		semester := 0
		if u, ok := userIndex[d.UserID]; ok {
			name, email, branch, semester = u.Name, u.Email, u.BranchCode, u.Semester
		}

		readText, readAt := "否", ""
		if d.IsRead {
			readText = "是"
			if d.ReadAt != nil {
				readAt = d.ReadAt.Format("2006-01-02 15:04:05")
			}
		}
		dismissedText := "否"
		if d.IsDismissed {
			dismissedText = "是"
		}

		row := []interface{}{name, email, branch, semester, readText, readAt, dismissedText}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "G", 22)
}
