package handler

import (
	"errors"
	"net/url"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler 管理端处理器
type AdminHandler struct {
	userSvc        *service.UserService
	reportSvc      *service.ReportService
	leaderboardSvc *service.LeaderboardService
}

func NewAdminHandler(userSvc *service.UserService, reportSvc *service.ReportService, leaderboardSvc *service.LeaderboardService) *AdminHandler {
	return &AdminHandler{
		userSvc:        userSvc,
		reportSvc:      reportSvc,
		leaderboardSvc: leaderboardSvc,
	}
}

// ListUsers 用户列表
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := GetPagination(c)
	users, total, err := h.userSvc.List(c.Request.Context(), page, pageSize, c.Query("role"))
	if err != nil {
		InternalError(c, "获取用户列表失败: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, gin.H{
		"items": users,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// Stats 平台统计（管理端视角，与公开统计共用服务）
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.leaderboardSvc.Stats(c.Request.Context())
	if err != nil {
		InternalError(c, "获取统计失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// ExportDonations 导出捐献明细xlsx
func (h *AdminHandler) ExportDonations(c *gin.Context) {
	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = &t
		}
	}

	f, fileName, err := h.reportSvc.ExportDonations(c.Request.Context(), from, to)
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+url.QueryEscape(fileName)+`"`)
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出文件失败: "+err.Error())
	}
}

// Analytics 管理端分析数据
func (h *AdminHandler) Analytics(c *gin.Context) {
	a, err := h.leaderboardSvc.PlatformAnalytics(c.Request.Context())
	if err != nil {
		InternalError(c, "获取分析数据失败: "+err.Error())
		return
	}
	Success(c, a)
}

// UserStatusRequest 账号状态参数
type UserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetUserStatus 启用/禁用账号
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	var req UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userSvc.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, user)
}
