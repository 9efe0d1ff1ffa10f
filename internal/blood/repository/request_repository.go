package repository

import (
	"context"
	"errors"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository 血液请求仓库
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建血液请求仓库
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// DB 返回底层连接，事务型服务使用
func (r *RequestRepository) DB() *gorm.DB {
	return r.db
}

// Create 创建请求
func (r *RequestRepository) Create(ctx context.Context, req *entity.BloodRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// FindByID 根据ID查找请求（带匹配记录和捐献者）
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*entity.BloodRequest, error) {
	var req entity.BloodRequest
	err := r.db.WithContext(ctx).
		Preload("MatchedDonors").
		Preload("MatchedDonors.Donor").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindByIDForUpdate 行锁查找请求，必须在事务内调用
func (r *RequestRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*entity.BloodRequest, error) {
	var req entity.BloodRequest
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Update 更新请求
func (r *RequestRepository) Update(ctx context.Context, req *entity.BloodRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// ListOpenByBloodTypes 列出指定血型集合的开放请求，按紧急程度、时间排序
func (r *RequestRepository) ListOpenByBloodTypes(ctx context.Context, bloodTypes []string) ([]entity.BloodRequest, error) {
	var reqs []entity.BloodRequest
	err := r.db.WithContext(ctx).
		Preload("MatchedDonors").
		Preload("Recipient").
		Where("status = ? AND blood_type IN ?", entity.RequestStatusOpen, bloodTypes).
		Order("CASE urgency WHEN 'critical' THEN 1 WHEN 'urgent' THEN 2 ELSE 3 END, created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListByRecipient 列出受血者自己的请求
func (r *RequestRepository) ListByRecipient(ctx context.Context, recipientID string) ([]entity.BloodRequest, error) {
	var reqs []entity.BloodRequest
	err := r.db.WithContext(ctx).
		Preload("MatchedDonors").
		Preload("MatchedDonors.Donor").
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// FindMatchEntry 查找某捐献者对某请求的匹配记录，不存在返回nil
func (r *RequestRepository) FindMatchEntry(ctx context.Context, requestID, donorID string) (*entity.MatchEntry, error) {
	var m entity.MatchEntry
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND donor_id = ?", requestID, donorID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// FindMatchEntryTx 事务内查找匹配记录，不存在返回nil
func (r *RequestRepository) FindMatchEntryTx(ctx context.Context, tx *gorm.DB, requestID, donorID string) (*entity.MatchEntry, error) {
	var m entity.MatchEntry
	err := tx.WithContext(ctx).
		Where("request_id = ? AND donor_id = ?", requestID, donorID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// CreateMatchEntry 创建匹配记录
func (r *RequestRepository) CreateMatchEntry(ctx context.Context, m *entity.MatchEntry) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// CountAcceptedTx 事务内统计请求的已接受匹配数
func (r *RequestRepository) CountAcceptedTx(ctx context.Context, tx *gorm.DB, requestID string) (int64, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&entity.MatchEntry{}).
		Where("request_id = ? AND status = ?", requestID, entity.MatchStatusAccepted).
		Count(&n).Error
	return n, err
}

// CountByStatus 按状态统计请求数（管理端）
func (r *RequestRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.BloodRequest{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// CountByUrgency 按紧急程度统计开放请求数（管理端）
func (r *RequestRepository) CountByUrgency(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Urgency string
		N       int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&entity.BloodRequest{}).
		Select("urgency, count(*) as n").
		Where("status = ?", entity.RequestStatusOpen).
		Group("urgency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Urgency] = r.N
	}
	return out, nil
}
