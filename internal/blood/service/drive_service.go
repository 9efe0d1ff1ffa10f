package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DriveService 线上捐献活动服务
type DriveService struct {
	driveRepo *repository.DriveRepository
	userRepo  *repository.UserRepository
	logger    *zap.Logger
}

// NewDriveService 创建活动服务
func NewDriveService(driveRepo *repository.DriveRepository, userRepo *repository.UserRepository, logger *zap.Logger) *DriveService {
	return &DriveService{driveRepo: driveRepo, userRepo: userRepo, logger: logger}
}

// CreateDriveInput 创建活动参数
type CreateDriveInput struct {
	Name        string    `json:"name" binding:"required,min=2,max=128"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	GoalDonors  int       `json:"goal_donors" binding:"required,min=1"`
	GoalUnits   int       `json:"goal_units" binding:"required,min=1"`
}

// Create 创建活动
func (s *DriveService) Create(ctx context.Context, hostID string, input *CreateDriveInput) (*entity.BloodDrive, error) {
	if !input.EndDate.After(input.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	drive := &entity.BloodDrive{
		ID:          uuid.New().String()[:32],
		Name:        input.Name,
		Description: input.Description,
		HostID:      hostID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		GoalDonors:  input.GoalDonors,
		GoalUnits:   input.GoalUnits,
		Status:      entity.DriveStatusActive,
	}
	if err := s.driveRepo.Create(ctx, drive); err != nil {
		return nil, fmt.Errorf("创建活动失败: %w", err)
	}

	s.logger.Info("blood drive created",
		zap.String("drive_id", drive.ID),
		zap.String("host_id", hostID),
		zap.String("name", drive.Name))
	return drive, nil
}

// Join 报名参与活动
func (s *DriveService) Join(ctx context.Context, driveID, userID string, pledgedUnits int) (*entity.DriveParticipant, error) {
	drive, err := s.driveRepo.FindByID(ctx, driveID)
	if err != nil {
		return nil, err
	}
	if drive.Status != entity.DriveStatusActive {
		return nil, fmt.Errorf("drive is not active")
	}
	if time.Now().After(drive.EndDate) {
		return nil, fmt.Errorf("drive has ended")
	}

	existing, err := s.driveRepo.FindParticipant(ctx, driveID, userID)
	if err != nil {
		return nil, fmt.Errorf("查询参与记录失败: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("already joined this drive")
	}

	if pledgedUnits <= 0 {
		pledgedUnits = 1
	}
	p := &entity.DriveParticipant{
		ID:           uuid.New().String()[:32],
		DriveID:      driveID,
		UserID:       userID,
		PledgedUnits: pledgedUnits,
		JoinedAt:     time.Now(),
	}
	if err := s.driveRepo.CreateParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("创建参与记录失败: %w", err)
	}
	return p, nil
}

// DriveProgress 活动进度
type DriveProgress struct {
	Drive        *entity.BloodDrive `json:"drive"`
	Donors       int64              `json:"donors"`
	DonatedUnits int64              `json:"donated_units"`
	DonorsPct    float64            `json:"donors_pct"`
	UnitsPct     float64            `json:"units_pct"`
}

// Progress 查询活动进度
func (s *DriveService) Progress(ctx context.Context, driveID string) (*DriveProgress, error) {
	drive, err := s.driveRepo.FindByID(ctx, driveID)
	if err != nil {
		return nil, err
	}
	donors, units, err := s.driveRepo.DriveProgress(ctx, driveID)
	if err != nil {
		return nil, fmt.Errorf("查询活动进度失败: %w", err)
	}

	progress := &DriveProgress{Drive: drive, Donors: donors, DonatedUnits: units}
	if drive.GoalDonors > 0 {
		progress.DonorsPct = float64(donors) / float64(drive.GoalDonors) * 100
	}
	if drive.GoalUnits > 0 {
		progress.UnitsPct = float64(units) / float64(drive.GoalUnits) * 100
	}
	return progress, nil
}

// ListActive 进行中的活动
func (s *DriveService) ListActive(ctx context.Context) ([]entity.BloodDrive, error) {
	return s.driveRepo.ListActive(ctx, time.Now())
}

// Participants 活动参与者列表
func (s *DriveService) Participants(ctx context.Context, driveID string) ([]entity.DriveParticipant, error) {
	return s.driveRepo.ListParticipants(ctx, driveID)
}

// Close 主办方结束活动
func (s *DriveService) Close(ctx context.Context, driveID, hostID string) error {
	drive, err := s.driveRepo.FindByID(ctx, driveID)
	if err != nil {
		return err
	}
	if drive.HostID != hostID {
		return fmt.Errorf("drive does not belong to host")
	}
	if drive.Status != entity.DriveStatusActive {
		return fmt.Errorf("drive is not active")
	}
	drive.Status = entity.DriveStatusCompleted
	return s.driveRepo.Update(ctx, drive)
}

// Pledge 调整自己在活动中的认捐单位数
func (s *DriveService) Pledge(ctx context.Context, driveID, userID string, units int) (*entity.DriveParticipant, error) {
	if units <= 0 {
		return nil, fmt.Errorf("pledged units must be positive")
	}
	drive, err := s.driveRepo.FindByID(ctx, driveID)
	if err != nil {
		return nil, err
	}
	if drive.Status != entity.DriveStatusActive {
		return nil, fmt.Errorf("drive is not active")
	}

	p, err := s.driveRepo.FindParticipant(ctx, driveID, userID)
	if err != nil {
		return nil, fmt.Errorf("查询参与记录失败: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("not a participant of this drive")
	}
	p.PledgedUnits = units
	if err := s.driveRepo.UpdateParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("更新认捐单位失败: %w", err)
	}
	return p, nil
}

// DriveLeaderboardEntry 活动内排行条目
type DriveLeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	BloodType    string `json:"blood_type"`
	PledgedUnits int    `json:"pledged_units"`
	DonatedUnits int    `json:"donated_units"`
}

// Leaderboard 活动内按实捐单位排行
func (s *DriveService) Leaderboard(ctx context.Context, driveID string) ([]DriveLeaderboardEntry, error) {
	if _, err := s.driveRepo.FindByID(ctx, driveID); err != nil {
		return nil, err
	}
	ps, err := s.driveRepo.ListParticipants(ctx, driveID)
	if err != nil {
		return nil, fmt.Errorf("查询参与者失败: %w", err)
	}
	entries := make([]DriveLeaderboardEntry, 0, len(ps))
	for i, p := range ps {
		e := DriveLeaderboardEntry{
			Rank:         i + 1,
			UserID:       p.UserID,
			PledgedUnits: p.PledgedUnits,
			DonatedUnits: p.DonatedUnits,
		}
		if p.User != nil {
			e.Name = p.User.Name
			e.BloodType = p.User.BloodType
		}
		entries = append(entries, e)
	}
	return entries, nil
}
