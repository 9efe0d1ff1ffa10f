package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/sse"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeliveryService 血液配送服务
type DeliveryService struct {
	deliveryRepo *repository.DeliveryRepository
	requestRepo  *repository.RequestRepository
	userRepo     *repository.UserRepository
	hub          *sse.Hub
	notifySvc    *NotificationService
	logger       *zap.Logger
}

// NewDeliveryService 创建配送服务
func NewDeliveryService(
	deliveryRepo *repository.DeliveryRepository,
	requestRepo *repository.RequestRepository,
	userRepo *repository.UserRepository,
	hub *sse.Hub,
	notifySvc *NotificationService,
	logger *zap.Logger,
) *DeliveryService {
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		requestRepo:  requestRepo,
		userRepo:     userRepo,
		hub:          hub,
		notifySvc:    notifySvc,
		logger:       logger,
	}
}

// AssignInput 派单参数
type AssignInput struct {
	RequestID      string `json:"request_id" binding:"required"`
	CourierID      string `json:"courier_id" binding:"required"`
	PickupName     string `json:"pickup_name" binding:"required"`
	PickupAddress  string `json:"pickup_address"`
	DropoffName    string `json:"dropoff_name" binding:"required"`
	DropoffAddress string `json:"dropoff_address"`
}

// Assign 为已达成的血液请求派配送单
func (s *DeliveryService) Assign(ctx context.Context, input *AssignInput) (*entity.Delivery, error) {
	request, err := s.requestRepo.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != entity.RequestStatusFulfilled {
		return nil, fmt.Errorf("delivery can only be assigned to a fulfilled request")
	}

	courier, err := s.userRepo.FindByID(ctx, input.CourierID)
	if err != nil {
		return nil, err
	}
	if courier.Role != entity.RoleDelivery {
		return nil, fmt.Errorf("courier must have delivery role")
	}

	delivery := &entity.Delivery{
		ID:             uuid.New().String()[:32],
		RequestID:      request.ID,
		CourierID:      courier.ID,
		RecipientID:    request.RecipientID,
		PickupName:     input.PickupName,
		PickupAddress:  input.PickupAddress,
		DropoffName:    input.DropoffName,
		DropoffAddress: input.DropoffAddress,
		Status:         entity.DeliveryStatusAssigned,
	}
	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("创建配送单失败: %w", err)
	}

	s.logger.Info("delivery assigned",
		zap.String("delivery_id", delivery.ID),
		zap.String("request_id", request.ID),
		zap.String("courier_id", courier.ID))

	s.hub.PublishDeliveryUpdate(delivery.ID, delivery.Status, courier.ID, request.RecipientID)
	s.notifySvc.Push(ctx, courier.ID, entity.NotifyDeliveryUpdated,
		"您有新的血液配送任务", map[string]string{"delivery_id": delivery.ID})
	return delivery, nil
}

// UpdateStatus 推进配送状态
// 迁移不合法时拒绝，送达时落终态并通知双方
func (s *DeliveryService) UpdateStatus(ctx context.Context, deliveryID, courierID, status string) (*entity.Delivery, error) {
	delivery, err := s.deliveryRepo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.CourierID != courierID {
		return nil, fmt.Errorf("delivery does not belong to courier")
	}
	if !entity.CanTransitionDelivery(delivery.Status, status) {
		return nil, fmt.Errorf("invalid delivery transition: %s -> %s", delivery.Status, status)
	}

	delivery.Status = status
	if status == entity.DeliveryStatusDelivered {
		now := time.Now()
		delivery.DeliveredAt = &now
	}
	if err := s.deliveryRepo.Update(ctx, delivery); err != nil {
		return nil, fmt.Errorf("更新配送单失败: %w", err)
	}

	s.logger.Info("delivery status updated",
		zap.String("delivery_id", delivery.ID),
		zap.String("status", status))

	s.hub.PublishDeliveryUpdate(delivery.ID, status, delivery.CourierID, delivery.RecipientID)
	s.notifySvc.Push(ctx, delivery.RecipientID, entity.NotifyDeliveryUpdated,
		fmt.Sprintf("您的血液配送状态更新为 %s", status),
		map[string]string{"delivery_id": delivery.ID, "status": status})
	return delivery, nil
}

// UpdatePosition 上报配送实时位置
func (s *DeliveryService) UpdatePosition(ctx context.Context, deliveryID, courierID string, lat, lng float64) error {
	delivery, err := s.deliveryRepo.FindByID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if delivery.CourierID != courierID {
		return fmt.Errorf("delivery does not belong to courier")
	}
	if delivery.Status == entity.DeliveryStatusDelivered || delivery.Status == entity.DeliveryStatusCancelled {
		return fmt.Errorf("delivery is already closed")
	}
	delivery.Lat = &lat
	delivery.Lng = &lng
	return s.deliveryRepo.Update(ctx, delivery)
}

// Get 查询配送单
func (s *DeliveryService) Get(ctx context.Context, deliveryID string) (*entity.Delivery, error) {
	return s.deliveryRepo.FindByID(ctx, deliveryID)
}

// ListForCourier 配送员任务列表
func (s *DeliveryService) ListForCourier(ctx context.Context, courierID string) ([]entity.Delivery, error) {
	return s.deliveryRepo.ListByCourier(ctx, courierID)
}

// ListForRecipient 受血者配送列表
func (s *DeliveryService) ListForRecipient(ctx context.Context, recipientID string) ([]entity.Delivery, error) {
	return s.deliveryRepo.ListByRecipient(ctx, recipientID)
}
