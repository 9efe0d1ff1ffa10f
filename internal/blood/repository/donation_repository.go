package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"gorm.io/gorm"
)

// DonationRepository 捐献记录仓库
type DonationRepository struct {
	db *gorm.DB
}

// NewDonationRepository 创建捐献记录仓库
func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create 创建捐献预约
func (r *DonationRepository) Create(ctx context.Context, d *entity.Donation) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// FindByID 根据ID查找捐献记录
func (r *DonationRepository) FindByID(ctx context.Context, id string) (*entity.Donation, error) {
	var d entity.Donation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Update 更新捐献记录
func (r *DonationRepository) Update(ctx context.Context, d *entity.Donation) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// ListByDonor 捐献者的历史记录，按预约时间倒序
func (r *DonationRepository) ListByDonor(ctx context.Context, donorID string) ([]entity.Donation, error) {
	var ds []entity.Donation
	err := r.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("scheduled_date DESC").
		Find(&ds).Error
	return ds, err
}

// HasScheduled 捐献者是否已有未完成的预约
func (r *DonationRepository) HasScheduled(ctx context.Context, donorID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Donation{}).
		Where("donor_id = ? AND status = ?", donorID, entity.DonationStatusScheduled).
		Count(&n).Error
	return n > 0, err
}

// ListCompleted 已完成捐献（管理端报表），时间范围可选
func (r *DonationRepository) ListCompleted(ctx context.Context, from, to *time.Time) ([]entity.Donation, error) {
	var ds []entity.Donation
	query := r.db.WithContext(ctx).
		Preload("Donor").
		Where("status = ?", entity.DonationStatusCompleted)
	if from != nil {
		query = query.Where("completed_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("completed_at < ?", *to)
	}
	err := query.Order("completed_at DESC").Find(&ds).Error
	return ds, err
}

// CountCompletedUnits 累计完成的捐献单位数
func (r *DonationRepository) CountCompletedUnits(ctx context.Context) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).Model(&entity.Donation{}).
		Select("sum(units)").
		Where("status = ?", entity.DonationStatusCompleted).
		Scan(&total).Error
	if err != nil || total == nil {
		return 0, err
	}
	return *total, nil
}

// MonthlyCompleted 按月统计完成捐献数（管理端分析，近N月）
func (r *DonationRepository) MonthlyCompleted(ctx context.Context, months int) ([]map[string]interface{}, error) {
	type row struct {
		Month string
		N     int64
		Units int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&entity.Donation{}).
		Select("to_char(completed_at, 'YYYY-MM') as month, count(*) as n, sum(units) as units").
		Where("status = ? AND completed_at >= now() - make_interval(months => ?)", entity.DonationStatusCompleted, months).
		Group("month").
		Order("month").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]interface{}{
			"month": r.Month, "donations": r.N, "units": r.Units,
		})
	}
	return out, nil
}
