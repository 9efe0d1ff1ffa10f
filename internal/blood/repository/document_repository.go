package repository

import (
	"context"
	"errors"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"gorm.io/gorm"
)

// DocumentRepository 医疗文件元数据仓库
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建医疗文件仓库
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create 创建文件记录
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.MedicalDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// FindByID 根据ID查找文件记录
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*entity.MedicalDocument, error) {
	var doc entity.MedicalDocument
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListByUser 用户名下的文件
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string) ([]entity.MedicalDocument, error) {
	var docs []entity.MedicalDocument
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}
