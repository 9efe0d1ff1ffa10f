package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail 根据邮箱查找用户，不存在返回nil
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByCardNo 根据血卡号查找用户
func (r *UserRepository) FindByCardNo(ctx context.Context, cardNo string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("card_no = ?", cardNo).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update 更新用户
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdateLocation 更新用户实时位置
func (r *UserRepository) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"lat":         lat,
			"lng":         lng,
			"location_at": now,
		}).Error
}

// List 分页列出用户（管理端）
func (r *UserRepository) List(ctx context.Context, page, pageSize int, role string) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	return users, total, err
}

// ListDonorsByBloodTypes 列出指定血型、激活状态的捐献者
func (r *UserRepository) ListDonorsByBloodTypes(ctx context.Context, bloodTypes []string) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND status = ? AND blood_type IN ?", entity.RoleDonor, entity.UserStatusActive, bloodTypes).
		Find(&users).Error
	return users, err
}

// haversineExpr 球面距离（公里），least保护acos定义域
const haversineExpr = "(6371 * acos(least(1.0, cos(radians(?)) * cos(radians(lat)) * cos(radians(lng) - radians(?)) + sin(radians(?)) * sin(radians(lat)))))"

// FindNearbyDonors 半径搜索附近捐献者（Haversine，radiusKm为公里）
// 只返回有位置上报且血型兼容的激活捐献者，按距离升序
func (r *UserRepository) FindNearbyDonors(ctx context.Context, lat, lng, radiusKm float64, bloodTypes []string, limit int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Select("*, "+haversineExpr+" AS distance_km", lat, lng, lat).
		Where("role = ? AND status = ? AND lat IS NOT NULL AND lng IS NOT NULL", entity.RoleDonor, entity.UserStatusActive).
		Where("blood_type IN ?", bloodTypes).
		Where(haversineExpr+" <= ?", lat, lng, lat, radiusKm).
		Order("distance_km").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// TopDonors 按捐献次数排行
func (r *UserRepository) TopDonors(ctx context.Context, limit int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND donation_count > 0", entity.RoleDonor).
		Order("donation_count DESC, last_donation_date DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// CountByRole 按角色统计用户数
func (r *UserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}
