package handler

import (
	"strconv"

	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// LeaderboardHandler 排行榜处理器
type LeaderboardHandler struct {
	svc *service.LeaderboardService
}

func NewLeaderboardHandler(svc *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{svc: svc}
}

// TopDonors 捐献排行榜
func (h *LeaderboardHandler) TopDonors(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries, err := h.svc.TopDonors(c.Request.Context(), limit)
	if err != nil {
		InternalError(c, "获取排行榜失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": entries})
}

// Stats 平台统计
func (h *LeaderboardHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		InternalError(c, "获取统计失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// Heroes 英雄榜
func (h *LeaderboardHandler) Heroes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	hall, err := h.svc.Heroes(c.Request.Context(), limit)
	if err != nil {
		InternalError(c, "获取英雄榜失败: "+err.Error())
		return
	}
	Success(c, hall)
}
