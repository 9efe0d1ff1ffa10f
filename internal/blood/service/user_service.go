package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"go.uber.org/zap"
)

// UserService 用户资料/资格/位置服务
type UserService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(userRepo *repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

// Get 获取用户
func (s *UserService) Get(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// List 分页用户列表，角色可选
func (s *UserService) List(ctx context.Context, page, pageSize int, role string) ([]entity.User, int64, error) {
	return s.userRepo.List(ctx, page, pageSize, role)
}

// UpdateProfileInput 资料更新参数
type UpdateProfileInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateProfile 更新资料
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input *UpdateProfileInput) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return user, nil
}

// UpdateLocation 上报位置
func (s *UserService) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("invalid coordinates")
	}
	return s.userRepo.UpdateLocation(ctx, userID, lat, lng)
}

// Eligibility 捐献资格查询结果
type Eligibility struct {
	Eligible         bool       `json:"eligible"`
	LastDonationDate *time.Time `json:"last_donation_date"`
	NextEligibleDate *time.Time `json:"next_eligible_date"`
	DaysRemaining    int        `json:"days_remaining"`
}

// CheckEligibility 查询捐献资格
// 从未捐献视为可捐，否则按56天间隔计算
func (s *UserService) CheckEligibility(ctx context.Context, donorID string) (*Eligibility, error) {
	donor, err := s.userRepo.FindByID(ctx, donorID)
	if err != nil {
		return nil, err
	}

	e := &Eligibility{LastDonationDate: donor.LastDonationDate}
	if entity.CanDonateAgain(donor.LastDonationDate, time.Now()) {
		e.Eligible = true
		return e, nil
	}

	next := donor.LastDonationDate.AddDate(0, 0, entity.DonationIntervalDays)
	e.NextEligibleDate = &next
	elapsed := int(time.Since(*donor.LastDonationDate).Hours() / 24)
	e.DaysRemaining = entity.DonationIntervalDays - elapsed
	return e, nil
}

// NearbyDonors 查询附近可捐献且血型相容的捐献者
func (s *UserService) NearbyDonors(ctx context.Context, recipientType string, lat, lng, radiusKm float64, limit int) ([]entity.User, error) {
	if !entity.IsValidBloodType(recipientType) {
		return nil, entity.ErrInvalidBloodType
	}
	if radiusKm <= 0 {
		radiusKm = 10
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	donorTypes, err := entity.CompatibleDonorTypes(recipientType)
	if err != nil {
		return nil, err
	}
	donors, err := s.userRepo.FindNearbyDonors(ctx, lat, lng, radiusKm, donorTypes, limit)
	if err != nil {
		return nil, fmt.Errorf("查询附近捐献者失败: %w", err)
	}

	// 距离筛出后再过滤冷却期内的捐献者
	now := time.Now()
	eligible := donors[:0]
	for _, d := range donors {
		if entity.CanDonateAgain(d.LastDonationDate, now) {
			eligible = append(eligible, d)
		}
	}
	return eligible, nil
}

// BloodCard 献血卡，卡号可公开查验
type BloodCard struct {
	CardNo        string     `json:"card_no"`
	Name          string     `json:"name"`
	BloodType     string     `json:"blood_type"`
	DonationCount int        `json:"donation_count"`
	BadgeLevel    string     `json:"badge_level"`
	LastDonation  *time.Time `json:"last_donation_date,omitempty"`
	MemberSince   time.Time  `json:"member_since"`
}

func cardOf(u *entity.User) *BloodCard {
	return &BloodCard{
		CardNo:        u.CardNo,
		Name:          u.Name,
		BloodType:     u.BloodType,
		DonationCount: u.DonationCount,
		BadgeLevel:    u.BadgeLevel,
		LastDonation:  u.LastDonationDate,
		MemberSince:   u.CreatedAt,
	}
}

// Card 当前用户自己的献血卡
func (s *UserService) Card(ctx context.Context, userID string) (*BloodCard, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cardOf(user), nil
}

// CardByNumber 按卡号查献血卡，给扫码核验页使用
func (s *UserService) CardByNumber(ctx context.Context, cardNo string) (*BloodCard, error) {
	user, err := s.userRepo.FindByCardNo(ctx, cardNo)
	if err != nil {
		return nil, err
	}
	if user.Status != entity.UserStatusActive {
		return nil, repository.ErrNotFound
	}
	return cardOf(user), nil
}

// SetStatus 管理员启用/禁用账号
func (s *UserService) SetStatus(ctx context.Context, userID, status string) (*entity.User, error) {
	if status != entity.UserStatusActive && status != entity.UserStatusDisabled {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Status = status
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户状态失败: %w", err)
	}
	s.logger.Info("user status updated",
		zap.String("user_id", userID),
		zap.String("status", status))
	return user, nil
}
