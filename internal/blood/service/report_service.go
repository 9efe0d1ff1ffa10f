package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/xuri/excelize/v2"
)

// ReportService 管理端报表导出服务
type ReportService struct {
	donationRepo *repository.DonationRepository
	userRepo     *repository.UserRepository
}

// NewReportService 创建报表服务
func NewReportService(donationRepo *repository.DonationRepository, userRepo *repository.UserRepository) *ReportService {
	return &ReportService{donationRepo: donationRepo, userRepo: userRepo}
}

var donationExportHeaders = []string{
	"编号", "捐献者", "血型", "捐献类型", "单位数", "血站", "完成时间",
}

// ExportDonations 导出指定时间范围内的已完成捐献记录
func (s *ReportService) ExportDonations(ctx context.Context, from, to *time.Time) (*excelize.File, string, error) {
	donations, err := s.donationRepo.ListCompleted(ctx, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("list donations: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Donations"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range donationExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, d := range donations {
		row := i + 2
		donorName := ""
		bloodType := ""
		if d.Donor != nil {
			donorName = d.Donor.Name
			bloodType = d.Donor.BloodType
		}
		completedAt := ""
		if d.CompletedAt != nil {
			completedAt = d.CompletedAt.Format("2006-01-02 15:04")
		}
		values := []interface{}{d.ID, donorName, bloodType, d.DonationType, d.Units, d.BloodBankName, completedAt}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	// 月度汇总页
	summary := "Monthly"
	f.NewSheet(summary)
	f.SetCellValue(summary, "A1", "月份")
	f.SetCellValue(summary, "B1", "捐献次数")
	f.SetCellValue(summary, "C1", "单位数")
	f.SetCellStyle(summary, "A1", "C1", boldStyle)

	monthly, err := s.donationRepo.MonthlyCompleted(ctx, 12)
	if err != nil {
		return nil, "", fmt.Errorf("monthly summary: %w", err)
	}
	for i, m := range monthly {
		row := i + 2
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), m["month"])
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), m["count"])
		f.SetCellValue(summary, fmt.Sprintf("C%d", row), m["units"])
	}

	fileName := fmt.Sprintf("donations_%s.xlsx", time.Now().Format("20060102"))
	return f, fileName, nil
}
