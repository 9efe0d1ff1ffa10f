package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// DocumentService 医疗证明文件服务，文件存MinIO
type DocumentService struct {
	docRepo     *repository.DocumentRepository
	minioClient *minio.Client
	bucketName  string
}

// NewDocumentService 创建文件服务
func NewDocumentService(docRepo *repository.DocumentRepository, minioClient *minio.Client, bucketName string) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		minioClient: minioClient,
		bucketName:  bucketName,
	}
}

// Upload 上传医疗证明
func (s *DocumentService) Upload(ctx context.Context, userID string, requestID *string, reader io.Reader, fileName string, fileSize int64, contentType string) (*entity.MedicalDocument, error) {
	objectKey := fmt.Sprintf("medical/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	if s.minioClient != nil {
		_, err := s.minioClient.PutObject(ctx, s.bucketName, objectKey, reader, fileSize, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return nil, fmt.Errorf("upload file: %w", err)
		}
	}

	doc := &entity.MedicalDocument{
		ID:          uuid.New().String()[:32],
		UserID:      userID,
		RequestID:   requestID,
		FileName:    fileName,
		ObjectKey:   objectKey,
		ContentType: contentType,
		Size:        fileSize,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("创建文件记录失败: %w", err)
	}
	return doc, nil
}

// Download 下载医疗证明，校验归属
func (s *DocumentService) Download(ctx context.Context, docID, userID string, isAdmin bool) (*entity.MedicalDocument, io.ReadCloser, error) {
	doc, err := s.docRepo.FindByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if doc.UserID != userID && !isAdmin {
		return nil, nil, fmt.Errorf("document does not belong to user")
	}
	if s.minioClient == nil {
		return nil, nil, fmt.Errorf("object storage is not configured")
	}

	obj, err := s.minioClient.GetObject(ctx, s.bucketName, doc.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("download file: %w", err)
	}
	return doc, obj, nil
}

// ListForUser 用户文件列表
func (s *DocumentService) ListForUser(ctx context.Context, userID string) ([]entity.MedicalDocument, error) {
	return s.docRepo.ListByUser(ctx, userID)
}
