package repository

import (
	"context"
	"errors"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"gorm.io/gorm"
)

// DeliveryRepository 配送仓库
type DeliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository 创建配送仓库
func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Create 创建配送单
func (r *DeliveryRepository) Create(ctx context.Context, d *entity.Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// FindByID 根据ID查找配送单
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*entity.Delivery, error) {
	var d entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("Request").
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

// Update 更新配送单
func (r *DeliveryRepository) Update(ctx context.Context, d *entity.Delivery) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// ListByCourier 配送员名下的配送单
func (r *DeliveryRepository) ListByCourier(ctx context.Context, courierID string) ([]entity.Delivery, error) {
	var ds []entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("Request").
		Where("courier_id = ?", courierID).
		Order("created_at DESC").
		Find(&ds).Error
	return ds, err
}

// ListByRecipient 受血者名下的配送单
func (r *DeliveryRepository) ListByRecipient(ctx context.Context, recipientID string) ([]entity.Delivery, error) {
	var ds []entity.Delivery
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&ds).Error
	return ds, err
}

// CountActive 进行中的配送数（管理端）
func (r *DeliveryRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Delivery{}).
		Where("status IN ?", []string{
			entity.DeliveryStatusAssigned,
			entity.DeliveryStatusPickedUp,
			entity.DeliveryStatusInTransit,
		}).
		Count(&n).Error
	return n, err
}
