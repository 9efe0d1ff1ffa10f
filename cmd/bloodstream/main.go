package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/handler"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/bloodstream/bloodstream/internal/blood/sse"
	"github.com/bloodstream/bloodstream/internal/config"
	"github.com/bloodstream/bloodstream/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting bloodstream service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.BloodRequest{},
		&entity.MatchEntry{},
		&entity.Donation{},
		&entity.Delivery{},
		&entity.BloodDrive{},
		&entity.DriveParticipant{},
		&entity.MedicalDocument{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// 历史库可能缺坐标列，补齐
	db.Exec("ALTER TABLE users ADD COLUMN IF NOT EXISTS lat DOUBLE PRECISION")
	db.Exec("ALTER TABLE users ADD COLUMN IF NOT EXISTS lng DOUBLE PRECISION")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_blood_requests_status_blood_type ON blood_requests(status, blood_type)")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// SSE Hub
	hub := sse.NewHub(zapLogger)

	// 初始化各层
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, cfg, hub, zapLogger)
	handlers := handler.NewHandlers(services, hub, cfg, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 公开的平台统计与排行榜
		public := v1.Group("/public")
		{
			public.GET("/leaderboard", h.Leaderboard.TopDonors)
			public.GET("/heroes", h.Leaderboard.Heroes)
			public.GET("/stats", h.Leaderboard.Stats)
			public.GET("/card/:cardNo", h.User.PublicCard)
		}

		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("/sse")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/events", h.SSE.Stream)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前用户
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/users/me", h.User.Me)
			authorized.PUT("/users/me", h.User.UpdateProfile)
			authorized.PUT("/users/me/location", h.User.UpdateLocation)
			authorized.GET("/users/me/eligibility", h.User.Eligibility)
			authorized.GET("/users/me/card", h.User.Card)
			authorized.GET("/donors/nearby", h.User.NearbyDonors)

			// 血液请求
			requests := authorized.Group("/requests")
			{
				requests.POST("", middleware.RequireRole(entity.RoleRecipient), h.Request.Create)
				requests.GET("/mine", middleware.RequireRole(entity.RoleRecipient), h.Request.ListMine)
				requests.GET("/available", middleware.RequireRole(entity.RoleDonor), h.Request.ListForDonor)
				requests.GET("/:id", h.Request.Get)
				requests.POST("/:id/accept", middleware.RequireRole(entity.RoleDonor), h.Request.Accept)
				requests.POST("/:id/decline", middleware.RequireRole(entity.RoleDonor), h.Request.Decline)
				requests.POST("/:id/cancel", middleware.RequireRole(entity.RoleRecipient), h.Request.Cancel)
			}

			// 捐献预约，完成确认由血站侧人员操作
			donations := authorized.Group("/donations")
			{
				donations.POST("", middleware.RequireRole(entity.RoleDonor), h.Donation.Schedule)
				donations.GET("", middleware.RequireRole(entity.RoleDonor), h.Donation.History)
				donations.POST("/:id/complete", middleware.RequireRole(entity.RoleDelivery), h.Donation.Complete)
				donations.POST("/:id/cancel", middleware.RequireRole(entity.RoleDonor), h.Donation.Cancel)
			}

			// 配送
			deliveries := authorized.Group("/deliveries")
			{
				deliveries.POST("", middleware.RequireRole(entity.RoleAdmin), h.Delivery.Assign)
				deliveries.GET("", h.Delivery.List)
				deliveries.GET("/:id", h.Delivery.Get)
				deliveries.PUT("/:id/status", middleware.RequireRole(entity.RoleDelivery), h.Delivery.UpdateStatus)
				deliveries.PUT("/:id/position", middleware.RequireRole(entity.RoleDelivery), h.Delivery.UpdatePosition)
			}

			// 线上捐献活动
			drives := authorized.Group("/drives")
			{
				drives.GET("", h.Drive.ListActive)
				drives.POST("", h.Drive.Create)
				drives.GET("/:id/progress", h.Drive.Progress)
				drives.GET("/:id/participants", h.Drive.Participants)
				drives.GET("/:id/leaderboard", h.Drive.Leaderboard)
				drives.POST("/:id/join", middleware.RequireRole(entity.RoleDonor), h.Drive.Join)
				drives.POST("/:id/pledge", middleware.RequireRole(entity.RoleDonor), h.Drive.Pledge)
				drives.POST("/:id/close", h.Drive.Close)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.DELETE("/:id", h.Notification.Remove)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
			}

			// 医疗证明文件
			documents := authorized.Group("/documents")
			{
				documents.POST("", h.Document.Upload)
				documents.GET("", h.Document.List)
				documents.GET("/:id/download", h.Document.Download)
			}

			// 管理端
			admin := authorized.Group("/admin")
			admin.Use(middleware.RequireRole(entity.RoleAdmin))
			{
				admin.GET("/users", h.Admin.ListUsers)
				admin.PUT("/users/:id/status", h.Admin.SetUserStatus)
				admin.GET("/stats", h.Admin.Stats)
				admin.GET("/analytics", h.Admin.Analytics)
				admin.GET("/reports/donations", h.Admin.ExportDonations)
			}
		}
	}
}
