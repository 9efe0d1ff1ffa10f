package handler

import (
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知处理器
type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List 我的通知列表
func (h *NotificationHandler) List(c *gin.Context) {
	notifications, err := h.svc.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取通知失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": notifications})
}

// Remove 删除单条通知
func (h *NotificationHandler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		InternalError(c, "删除通知失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(c.Request.Context(), GetUserID(c)); err != nil {
		InternalError(c, "标记通知失败: "+err.Error())
		return
	}
	Success(c, nil)
}
