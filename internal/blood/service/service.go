package service

import (
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/sse"
	"github.com/bloodstream/bloodstream/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth         *AuthService
	User         *UserService
	Request      *RequestService
	Donation     *DonationService
	Delivery     *DeliveryService
	Drive        *DriveService
	Leaderboard  *LeaderboardService
	Notification *NotificationService
	Document     *DocumentService
	Report       *ReportService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, hub *sse.Hub, logger *zap.Logger) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio init failed, continuing without object storage", zap.Error(err))
			minioClient = nil
		}
	}

	notifySvc := NewNotificationService(rdb, logger)

	return &Services{
		Auth:         NewAuthService(repos.User, rdb, cfg),
		User:         NewUserService(repos.User, logger),
		Request:      NewRequestService(db, repos.Request, repos.User, hub, notifySvc, logger),
		Donation:     NewDonationService(db, repos.Donation, repos.User, repos.Drive, notifySvc, logger),
		Delivery:     NewDeliveryService(repos.Delivery, repos.Request, repos.User, hub, notifySvc, logger),
		Drive:        NewDriveService(repos.Drive, repos.User, logger),
		Leaderboard:  NewLeaderboardService(repos.User, repos.Request, repos.Donation, repos.Delivery, rdb, logger),
		Notification: notifySvc,
		Document:     NewDocumentService(repos.Document, minioClient, cfg.MinIO.Bucket),
		Report:       NewReportService(repos.Donation, repos.User),
	}
}
