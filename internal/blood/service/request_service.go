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
	"gorm.io/gorm"
)

// 响应决定
const (
	DecisionAccept  = "accept"
	DecisionDecline = "decline"
)

// RequestService 血液请求服务，承载请求生命周期和捐献者响应状态机
type RequestService struct {
	db          *gorm.DB
	requestRepo *repository.RequestRepository
	userRepo    *repository.UserRepository
	hub         *sse.Hub
	notifySvc   *NotificationService
	logger      *zap.Logger
}

// NewRequestService 创建血液请求服务
func NewRequestService(
	db *gorm.DB,
	requestRepo *repository.RequestRepository,
	userRepo *repository.UserRepository,
	hub *sse.Hub,
	notifySvc *NotificationService,
	logger *zap.Logger,
) *RequestService {
	return &RequestService{
		db:          db,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		hub:         hub,
		notifySvc:   notifySvc,
		logger:      logger,
	}
}

// CreateRequestInput 创建请求参数
type CreateRequestInput struct {
	BloodType       string   `json:"blood_type" binding:"required"`
	Units           int      `json:"units" binding:"required,min=1"`
	Urgency         string   `json:"urgency"`
	Reason          string   `json:"reason"`
	HospitalName    string   `json:"hospital_name"`
	HospitalAddress string   `json:"hospital_address"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
}

// Create 受血者创建血液请求，创建后通知所有兼容且符合间隔的捐献者
func (s *RequestService) Create(ctx context.Context, recipientID string, input *CreateRequestInput) (*entity.BloodRequest, error) {
	if !entity.IsValidBloodType(input.BloodType) {
		return nil, entity.ErrInvalidBloodType
	}
	urgency := input.Urgency
	if urgency == "" {
		urgency = entity.UrgencyNormal
	}
	if !entity.IsValidUrgency(urgency) {
		return nil, fmt.Errorf("invalid urgency: %s", urgency)
	}
	if input.Units < 1 {
		return nil, fmt.Errorf("units must be at least 1")
	}

	req := &entity.BloodRequest{
		ID:              uuid.New().String()[:32],
		RecipientID:     recipientID,
		BloodType:       input.BloodType,
		Units:           input.Units,
		Urgency:         urgency,
		Reason:          input.Reason,
		HospitalName:    input.HospitalName,
		HospitalAddress: input.HospitalAddress,
		Lat:             input.Lat,
		Lng:             input.Lng,
		Status:          entity.RequestStatusOpen,
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("创建血液请求失败: %w", err)
	}

	s.broadcastNewRequest(ctx, req)
	return req, nil
}

// broadcastNewRequest 推送新请求给兼容且当前可捐献的捐献者
func (s *RequestService) broadcastNewRequest(ctx context.Context, req *entity.BloodRequest) {
	donorTypes, err := entity.CompatibleDonorTypes(req.BloodType)
	if err != nil {
		s.logger.Error("Compatible donor lookup failed", zap.String("blood_type", req.BloodType), zap.Error(err))
		return
	}
	donors, err := s.userRepo.ListDonorsByBloodTypes(ctx, donorTypes)
	if err != nil {
		s.logger.Error("List donors for broadcast failed", zap.Error(err))
		return
	}

	now := time.Now()
	message := fmt.Sprintf("%s blood needed (%d units, %s)", req.BloodType, req.Units, req.Urgency)
	var targets []string
	for _, d := range donors {
		if !entity.CanDonateAgain(d.LastDonationDate, now) {
			continue
		}
		targets = append(targets, d.ID)
		s.notifySvc.Push(ctx, d.ID, entity.NotifyNewBloodRequest, message, req)
	}
	s.hub.PublishNewBloodRequest(targets, message, req)

	s.logger.Info("New blood request broadcast",
		zap.String("request_id", req.ID),
		zap.String("blood_type", req.BloodType),
		zap.Int("notified_donors", len(targets)),
	)
}

// ListForDonor 捐献者可见的开放请求：血型兼容是硬条件，逐条重新校验
func (s *RequestService) ListForDonor(ctx context.Context, donorID string) ([]entity.BloodRequest, error) {
	donor, err := s.userRepo.FindByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	recipientTypes, err := entity.CompatibleRecipients(donor.BloodType)
	if err != nil {
		return nil, fmt.Errorf("捐献者血型非法: %w", err)
	}
	reqs, err := s.requestRepo.ListOpenByBloodTypes(ctx, recipientTypes)
	if err != nil {
		return nil, fmt.Errorf("查询开放请求失败: %w", err)
	}
	// 查询已按血型过滤，这里逐条复核，不信任缓存的兼容标记
	out := reqs[:0]
	for _, r := range reqs {
		ok, err := entity.IsCompatible(donor.BloodType, r.BloodType)
		if err != nil || !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ListForRecipient 受血者自己的请求
func (s *RequestService) ListForRecipient(ctx context.Context, recipientID string) ([]entity.BloodRequest, error) {
	return s.requestRepo.ListByRecipient(ctx, recipientID)
}

// Get 查询单个请求
func (s *RequestService) Get(ctx context.Context, id string) (*entity.BloodRequest, error) {
	return s.requestRepo.FindByID(ctx, id)
}

// Respond 捐献者对请求的响应状态机
// no-entry → pending → {accepted, declined}，终态后再响应返回ErrAlreadyResponded
// 整个迁移在一个事务内完成，外部调用失败不落任何本地变更
func (s *RequestService) Respond(ctx context.Context, requestID, donorID, decision string) (*entity.MatchEntry, error) {
	if decision != DecisionAccept && decision != DecisionDecline {
		return nil, fmt.Errorf("invalid decision: %s", decision)
	}

	donor, err := s.userRepo.FindByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.IsDonor() {
		return nil, fmt.Errorf("user %s is not a donor", donorID)
	}

	now := time.Now()
	var entry *entity.MatchEntry
	var fulfilled bool
	var req *entity.BloodRequest

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		req, txErr = s.requestRepo.FindByIDForUpdate(ctx, tx, requestID)
		if txErr != nil {
			return txErr
		}

		switch req.Status {
		case entity.RequestStatusFulfilled:
			return ErrRequestAlreadyFulfilled
		case entity.RequestStatusCancelled:
			return ErrRequestCancelled
		}

		// 服务端重新校验兼容性，血型已在注册时校验过，表查询失败属于契约破坏
		compatible, txErr := entity.IsCompatible(donor.BloodType, req.BloodType)
		if txErr != nil {
			return fmt.Errorf("blood type contract violation: %w", txErr)
		}
		if !compatible {
			return ErrNotCompatible
		}
		// 间隔限制只挡接受，拒绝不需要献血
		if decision == DecisionAccept && !entity.CanDonateAgain(donor.LastDonationDate, now) {
			return ErrNotEligible
		}

		existing, txErr := s.requestRepo.FindMatchEntryTx(ctx, tx, requestID, donorID)
		if txErr != nil {
			return txErr
		}
		if existing != nil && existing.IsTerminal() {
			return ErrAlreadyResponded
		}

		status := entity.MatchStatusDeclined
		if decision == DecisionAccept {
			status = entity.MatchStatusAccepted
		}

		if existing != nil {
			existing.Status = status
			existing.RespondedAt = &now
			if txErr = tx.WithContext(ctx).Save(existing).Error; txErr != nil {
				return txErr
			}
			entry = existing
		} else {
			entry = &entity.MatchEntry{
				ID:          uuid.New().String()[:32],
				RequestID:   requestID,
				DonorID:     donorID,
				Status:      status,
				RespondedAt: &now,
			}
			if txErr = tx.WithContext(ctx).Create(entry).Error; txErr != nil {
				return txErr
			}
		}

		if status == entity.MatchStatusAccepted {
			accepted, txErr := s.requestRepo.CountAcceptedTx(ctx, tx, requestID)
			if txErr != nil {
				return txErr
			}
			if accepted >= int64(req.Units) {
				req.Status = entity.RequestStatusFulfilled
				req.FulfilledAt = &now
				if txErr = tx.WithContext(ctx).Save(req).Error; txErr != nil {
					return txErr
				}
				fulfilled = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Donor responded to request",
		zap.String("request_id", requestID),
		zap.String("donor_id", donorID),
		zap.String("decision", decision),
		zap.Bool("fulfilled", fulfilled),
	)

	if decision == DecisionAccept {
		s.hub.PublishDonorAccepted(requestID, donorID, donor.Name, req.RecipientID)
		s.notifySvc.Push(ctx, req.RecipientID, entity.NotifyDonorAccepted,
			fmt.Sprintf("%s accepted your blood request", donor.Name),
			map[string]string{"request_id": requestID, "donor_id": donorID})
		if fulfilled {
			s.hub.PublishRequestFulfilled(req.RecipientID, requestID)
			s.notifySvc.Push(ctx, req.RecipientID, entity.NotifyRequestFulfilled,
				"Your blood request has been fulfilled",
				map[string]string{"request_id": requestID})
		}
	}
	return entry, nil
}

// Cancel 受血者取消自己的开放请求
func (s *RequestService) Cancel(ctx context.Context, requestID, recipientID string) (*entity.BloodRequest, error) {
	var req *entity.BloodRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		req, txErr = s.requestRepo.FindByIDForUpdate(ctx, tx, requestID)
		if txErr != nil {
			return txErr
		}
		if req.RecipientID != recipientID {
			return fmt.Errorf("request %s does not belong to recipient %s", requestID, recipientID)
		}
		switch req.Status {
		case entity.RequestStatusFulfilled:
			return ErrRequestAlreadyFulfilled
		case entity.RequestStatusCancelled:
			return ErrRequestCancelled
		}
		req.Status = entity.RequestStatusCancelled
		return tx.WithContext(ctx).Save(req).Error
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ApplyDonorAccepted 应用donor-accepted事件，幂等
// (request, donor) 已是accepted时不产生任何变化，也不会生成重复匹配记录
func (s *RequestService) ApplyDonorAccepted(ctx context.Context, requestID, donorID string) error {
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.requestRepo.FindByIDForUpdate(ctx, tx, requestID); err != nil {
			return err
		}
		existing, err := s.requestRepo.FindMatchEntryTx(ctx, tx, requestID, donorID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == entity.MatchStatusAccepted {
				return nil
			}
			existing.Status = entity.MatchStatusAccepted
			existing.RespondedAt = &now
			return tx.WithContext(ctx).Save(existing).Error
		}
		entry := &entity.MatchEntry{
			ID:          uuid.New().String()[:32],
			RequestID:   requestID,
			DonorID:     donorID,
			Status:      entity.MatchStatusAccepted,
			RespondedAt: &now,
		}
		return tx.WithContext(ctx).Create(entry).Error
	})
}
