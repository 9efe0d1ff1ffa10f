package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"gorm.io/gorm"
)

// DriveRepository 线上捐献活动仓库
type DriveRepository struct {
	db *gorm.DB
}

// NewDriveRepository 创建活动仓库
func NewDriveRepository(db *gorm.DB) *DriveRepository {
	return &DriveRepository{db: db}
}

// Create 创建活动
func (r *DriveRepository) Create(ctx context.Context, d *entity.BloodDrive) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// FindByID 根据ID查找活动
func (r *DriveRepository) FindByID(ctx context.Context, id string) (*entity.BloodDrive, error) {
	var d entity.BloodDrive
	err := r.db.WithContext(ctx).
		Preload("Host").
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Update 更新活动
func (r *DriveRepository) Update(ctx context.Context, d *entity.BloodDrive) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// ListActive 进行中的活动（未过结束日期）
func (r *DriveRepository) ListActive(ctx context.Context, now time.Time) ([]entity.BloodDrive, error) {
	var ds []entity.BloodDrive
	err := r.db.WithContext(ctx).
		Preload("Host").
		Where("status = ? AND end_date >= ?", entity.DriveStatusActive, now).
		Order("start_date").
		Find(&ds).Error
	return ds, err
}

// FindParticipant 查找参与记录，不存在返回nil
func (r *DriveRepository) FindParticipant(ctx context.Context, driveID, userID string) (*entity.DriveParticipant, error) {
	var p entity.DriveParticipant
	err := r.db.WithContext(ctx).
		Where("drive_id = ? AND user_id = ?", driveID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CreateParticipant 创建参与记录
func (r *DriveRepository) CreateParticipant(ctx context.Context, p *entity.DriveParticipant) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// UpdateParticipant 更新参与记录
func (r *DriveRepository) UpdateParticipant(ctx context.Context, p *entity.DriveParticipant) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ListParticipants 活动的参与记录，按捐献单位倒序
func (r *DriveRepository) ListParticipants(ctx context.Context, driveID string) ([]entity.DriveParticipant, error) {
	var ps []entity.DriveParticipant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("drive_id = ?", driveID).
		Order("donated_units DESC, pledged_units DESC").
		Find(&ps).Error
	return ps, err
}

// DriveProgress 活动进度汇总
func (r *DriveRepository) DriveProgress(ctx context.Context, driveID string) (donors int64, units int64, err error) {
	err = r.db.WithContext(ctx).Model(&entity.DriveParticipant{}).
		Where("drive_id = ?", driveID).
		Count(&donors).Error
	if err != nil {
		return 0, 0, err
	}
	var sum *int64
	err = r.db.WithContext(ctx).Model(&entity.DriveParticipant{}).
		Select("sum(donated_units)").
		Where("drive_id = ?", driveID).
		Scan(&sum).Error
	if err != nil {
		return 0, 0, err
	}
	if sum != nil {
		units = *sum
	}
	return donors, units, nil
}
