package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DonationService 捐献预约服务
type DonationService struct {
	db           *gorm.DB
	donationRepo *repository.DonationRepository
	userRepo     *repository.UserRepository
	driveRepo    *repository.DriveRepository
	notifySvc    *NotificationService
	logger       *zap.Logger
}

// NewDonationService 创建捐献预约服务
func NewDonationService(
	db *gorm.DB,
	donationRepo *repository.DonationRepository,
	userRepo *repository.UserRepository,
	driveRepo *repository.DriveRepository,
	notifySvc *NotificationService,
	logger *zap.Logger,
) *DonationService {
	return &DonationService{
		db:           db,
		donationRepo: donationRepo,
		userRepo:     userRepo,
		driveRepo:    driveRepo,
		notifySvc:    notifySvc,
		logger:       logger,
	}
}

// ScheduleInput 预约参数
type ScheduleInput struct {
	ScheduledDate    time.Time `json:"scheduled_date" binding:"required"`
	BloodBankName    string    `json:"blood_bank_name" binding:"required"`
	BloodBankAddress string    `json:"blood_bank_address"`
	DonationType     string    `json:"donation_type"`
	Units            int       `json:"units"`
	RequestID        *string   `json:"request_id"`
	DriveID          *string   `json:"drive_id"`
}

var validDonationTypes = map[string]bool{
	entity.DonationTypeWholeBlood: true,
	entity.DonationTypePlatelets:  true,
	entity.DonationTypePlasma:     true,
}

// Schedule 预约捐献
// 56天冷却期未满或已有未完成预约时拒绝
func (s *DonationService) Schedule(ctx context.Context, donorID string, input *ScheduleInput) (*entity.Donation, error) {
	donor, err := s.userRepo.FindByID(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("查询捐献者失败: %w", err)
	}
	if !donor.IsDonor() {
		return nil, fmt.Errorf("only donors can schedule donations")
	}
	if !entity.CanDonateAgain(donor.LastDonationDate, time.Now()) {
		return nil, ErrNotEligible
	}

	hasScheduled, err := s.donationRepo.HasScheduled(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("查询预约记录失败: %w", err)
	}
	if hasScheduled {
		return nil, fmt.Errorf("donor already has a scheduled donation")
	}

	donationType := input.DonationType
	if donationType == "" {
		donationType = entity.DonationTypeWholeBlood
	}
	if !validDonationTypes[donationType] {
		return nil, fmt.Errorf("invalid donation type: %s", donationType)
	}
	units := input.Units
	if units <= 0 {
		units = 1
	}

	donation := &entity.Donation{
		ID:               uuid.New().String()[:32],
		DonorID:          donorID,
		RequestID:        input.RequestID,
		DriveID:          input.DriveID,
		ScheduledDate:    input.ScheduledDate,
		BloodBankName:    input.BloodBankName,
		BloodBankAddress: input.BloodBankAddress,
		DonationType:     donationType,
		Units:            units,
		Status:           entity.DonationStatusScheduled,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		return nil, fmt.Errorf("创建捐献预约失败: %w", err)
	}

	s.logger.Info("donation scheduled",
		zap.String("donation_id", donation.ID),
		zap.String("donor_id", donorID),
		zap.Time("scheduled_date", donation.ScheduledDate))
	return donation, nil
}

// Complete 确认捐献完成，由血站侧的管理员或配送员在核验后调用
// 累加捐献次数、刷新末次捐献日期并重算勋章，关联活动时同步进度
func (s *DonationService) Complete(ctx context.Context, donationID, confirmerID string) (*entity.Donation, error) {
	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.Status != entity.DonationStatusScheduled {
		return nil, fmt.Errorf("donation is not scheduled")
	}
	donorID := donation.DonorID

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		donation.Status = entity.DonationStatusCompleted
		donation.CompletedAt = &now
		if err := tx.WithContext(ctx).Save(donation).Error; err != nil {
			return fmt.Errorf("更新捐献记录失败: %w", err)
		}

		var donor entity.User
		if err := tx.WithContext(ctx).First(&donor, "id = ?", donorID).Error; err != nil {
			return fmt.Errorf("查询捐献者失败: %w", err)
		}
		donor.DonationCount++
		donor.LastDonationDate = &now
		donor.RecomputeBadge()
		if err := tx.WithContext(ctx).Save(&donor).Error; err != nil {
			return fmt.Errorf("更新捐献者失败: %w", err)
		}

		if donation.DriveID != nil {
			if err := s.applyToDrive(ctx, tx, *donation.DriveID, donorID, donation.Units); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("donation completed",
		zap.String("donation_id", donation.ID),
		zap.String("donor_id", donorID),
		zap.String("confirmed_by", confirmerID),
		zap.Int("units", donation.Units))
	s.notifySvc.Push(ctx, donorID, entity.NotifyDonationDone,
		"感谢您的捐献，记录已更新", map[string]string{"donation_id": donation.ID})
	return donation, nil
}

// applyToDrive 在事务内累计活动进度
func (s *DonationService) applyToDrive(ctx context.Context, tx *gorm.DB, driveID, donorID string, units int) error {
	var p entity.DriveParticipant
	err := tx.WithContext(ctx).
		Where("drive_id = ? AND user_id = ?", driveID, donorID).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			p = entity.DriveParticipant{
				ID:       uuid.New().String()[:32],
				DriveID:  driveID,
				UserID:   donorID,
				JoinedAt: time.Now(),
			}
		} else {
			return fmt.Errorf("查询活动参与记录失败: %w", err)
		}
	}
	p.DonatedUnits += units
	return tx.WithContext(ctx).Save(&p).Error
}

// Cancel 取消预约
func (s *DonationService) Cancel(ctx context.Context, donationID, donorID string) error {
	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return err
	}
	if donation.DonorID != donorID {
		return fmt.Errorf("donation does not belong to donor")
	}
	if donation.Status != entity.DonationStatusScheduled {
		return fmt.Errorf("only scheduled donations can be cancelled")
	}
	donation.Status = entity.DonationStatusCancelled
	return s.donationRepo.Update(ctx, donation)
}

// History 捐献历史
func (s *DonationService) History(ctx context.Context, donorID string) ([]entity.Donation, error) {
	return s.donationRepo.ListByDonor(ctx, donorID)
}
