package handler

import (
	"errors"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// DeliveryHandler 配送处理器
type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// Assign 管理端派单
func (h *DeliveryHandler) Assign(c *gin.Context) {
	var input service.AssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	delivery, err := h.svc.Assign(c.Request.Context(), &input)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "请求或配送员不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Created(c, delivery)
}

// StatusRequest 状态推进参数
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 配送员推进状态
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	delivery, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), GetUserID(c), req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "配送单不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, delivery)
}

// UpdatePosition 配送员上报位置
func (h *DeliveryHandler) UpdatePosition(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.svc.UpdatePosition(c.Request.Context(), c.Param("id"), GetUserID(c), req.Lat, req.Lng); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "配送单不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, nil)
}

// Get 配送单详情
func (h *DeliveryHandler) Get(c *gin.Context) {
	delivery, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "配送单不存在")
			return
		}
		InternalError(c, "获取配送单失败: "+err.Error())
		return
	}

	// 只有当事人和管理员可见
	uid := GetUserID(c)
	role := GetUserRole(c)
	if delivery.CourierID != uid && delivery.RecipientID != uid && role != entity.RoleAdmin {
		Forbidden(c, "无权查看该配送单")
		return
	}
	Success(c, delivery)
}

// List 我的配送单列表（按角色区分视角）
func (h *DeliveryHandler) List(c *gin.Context) {
	uid := GetUserID(c)
	var (
		deliveries []entity.Delivery
		err        error
	)
	if GetUserRole(c) == entity.RoleDelivery {
		deliveries, err = h.svc.ListForCourier(c.Request.Context(), uid)
	} else {
		deliveries, err = h.svc.ListForRecipient(c.Request.Context(), uid)
	}
	if err != nil {
		InternalError(c, "获取配送列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": deliveries})
}
