package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	leaderboardCacheKey = "cache:leaderboard"
	statsCacheKey       = "cache:platform_stats"
	leaderboardCacheTTL = 5 * time.Minute
)

// LeaderboardService 捐献排行与平台统计服务，结果走Redis缓存
type LeaderboardService struct {
	userRepo     *repository.UserRepository
	requestRepo  *repository.RequestRepository
	donationRepo *repository.DonationRepository
	deliveryRepo *repository.DeliveryRepository
	rdb          *redis.Client
	logger       *zap.Logger
}

// NewLeaderboardService 创建排行服务
func NewLeaderboardService(
	userRepo *repository.UserRepository,
	requestRepo *repository.RequestRepository,
	donationRepo *repository.DonationRepository,
	deliveryRepo *repository.DeliveryRepository,
	rdb *redis.Client,
	logger *zap.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		userRepo:     userRepo,
		requestRepo:  requestRepo,
		donationRepo: donationRepo,
		deliveryRepo: deliveryRepo,
		rdb:          rdb,
		logger:       logger,
	}
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	BloodType     string `json:"blood_type"`
	DonationCount int    `json:"donation_count"`
	BadgeLevel    string `json:"badge_level"`
}

// TopDonors 捐献排行榜
func (s *LeaderboardService) TopDonors(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("%s:%d", leaderboardCacheKey, limit)
	if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var entries []LeaderboardEntry
		if json.Unmarshal([]byte(cached), &entries) == nil {
			return entries, nil
		}
	}

	donors, err := s.userRepo.TopDonors(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("查询捐献排行失败: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(donors))
	for i, d := range donors {
		entries = append(entries, LeaderboardEntry{
			Rank:          i + 1,
			UserID:        d.ID,
			Name:          d.Name,
			BloodType:     d.BloodType,
			DonationCount: d.DonationCount,
			BadgeLevel:    d.BadgeLevel,
		})
	}

	if data, err := json.Marshal(entries); err == nil {
		s.rdb.Set(ctx, cacheKey, data, leaderboardCacheTTL)
	}
	return entries, nil
}

// PlatformStats 平台统计
type PlatformStats struct {
	TotalDonors       int64            `json:"total_donors"`
	TotalRecipients   int64            `json:"total_recipients"`
	OpenRequests      int64            `json:"open_requests"`
	FulfilledRequests int64            `json:"fulfilled_requests"`
	DonatedUnits      int64            `json:"donated_units"`
	ActiveDeliveries  int64            `json:"active_deliveries"`
	LivesTouched      int64            `json:"lives_touched"`
	RequestsByUrgency map[string]int64 `json:"requests_by_urgency"`
}

// Stats 平台统计，缓存5分钟
func (s *LeaderboardService) Stats(ctx context.Context) (*PlatformStats, error) {
	if cached, err := s.rdb.Get(ctx, statsCacheKey).Result(); err == nil {
		var stats PlatformStats
		if json.Unmarshal([]byte(cached), &stats) == nil {
			return &stats, nil
		}
	}

	stats := &PlatformStats{}
	var err error
	if stats.TotalDonors, err = s.userRepo.CountByRole(ctx, entity.RoleDonor); err != nil {
		return nil, fmt.Errorf("统计捐献者失败: %w", err)
	}
	if stats.TotalRecipients, err = s.userRepo.CountByRole(ctx, entity.RoleRecipient); err != nil {
		return nil, fmt.Errorf("统计受血者失败: %w", err)
	}
	if stats.OpenRequests, err = s.requestRepo.CountByStatus(ctx, entity.RequestStatusOpen); err != nil {
		return nil, fmt.Errorf("统计待匹配请求失败: %w", err)
	}
	if stats.FulfilledRequests, err = s.requestRepo.CountByStatus(ctx, entity.RequestStatusFulfilled); err != nil {
		return nil, fmt.Errorf("统计已达成请求失败: %w", err)
	}
	if stats.DonatedUnits, err = s.donationRepo.CountCompletedUnits(ctx); err != nil {
		return nil, fmt.Errorf("统计捐献单位数失败: %w", err)
	}
	if stats.ActiveDeliveries, err = s.deliveryRepo.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("统计进行中配送失败: %w", err)
	}
	if stats.RequestsByUrgency, err = s.requestRepo.CountByUrgency(ctx); err != nil {
		return nil, fmt.Errorf("统计请求紧急度失败: %w", err)
	}
	// 一单位血按惠及三人估算
	stats.LivesTouched = stats.DonatedUnits * 3

	if data, err := json.Marshal(stats); err == nil {
		s.rdb.Set(ctx, statsCacheKey, data, leaderboardCacheTTL)
	}
	return stats, nil
}

// HallOfHeroes 英雄榜页面数据，排行与平台统计合并返回
type HallOfHeroes struct {
	Heroes []LeaderboardEntry `json:"heroes"`
	Stats  *PlatformStats     `json:"stats"`
}

// Heroes 英雄榜
func (s *LeaderboardService) Heroes(ctx context.Context, limit int) (*HallOfHeroes, error) {
	heroes, err := s.TopDonors(ctx, limit)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &HallOfHeroes{Heroes: heroes, Stats: stats}, nil
}

// Analytics 后台分析数据
type Analytics struct {
	RequestsByUrgency map[string]int64         `json:"requests_by_urgency"`
	RequestsByStatus  map[string]int64         `json:"requests_by_status"`
	MonthlyDonations  []map[string]interface{} `json:"monthly_donations"`
}

// PlatformAnalytics 管理端分析，不走缓存
func (s *LeaderboardService) PlatformAnalytics(ctx context.Context) (*Analytics, error) {
	a := &Analytics{RequestsByStatus: make(map[string]int64)}
	var err error
	if a.RequestsByUrgency, err = s.requestRepo.CountByUrgency(ctx); err != nil {
		return nil, fmt.Errorf("统计请求紧急度失败: %w", err)
	}
	for _, status := range []string{
		entity.RequestStatusOpen,
		entity.RequestStatusFulfilled,
		entity.RequestStatusCancelled,
	} {
		n, err := s.requestRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("统计请求状态失败: %w", err)
		}
		a.RequestsByStatus[status] = n
	}
	if a.MonthlyDonations, err = s.donationRepo.MonthlyCompleted(ctx, 12); err != nil {
		return nil, fmt.Errorf("统计月度捐献失败: %w", err)
	}
	return a, nil
}
