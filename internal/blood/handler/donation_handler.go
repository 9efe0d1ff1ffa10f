package handler

import (
	"errors"

	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// DonationHandler 捐献预约处理器
type DonationHandler struct {
	svc *service.DonationService
}

func NewDonationHandler(svc *service.DonationService) *DonationHandler {
	return &DonationHandler{svc: svc}
}

// Schedule 预约捐献
func (h *DonationHandler) Schedule(c *gin.Context) {
	var input service.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	donation, err := h.svc.Schedule(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		if errors.Is(err, service.ErrNotEligible) {
			Conflict(c, err.Error())
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Created(c, donation)
}

// Complete 确认捐献完成，仅管理员/配送员可调用
func (h *DonationHandler) Complete(c *gin.Context) {
	donation, err := h.svc.Complete(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "捐献记录不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, donation)
}

// Cancel 取消预约
func (h *DonationHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "捐献记录不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, nil)
}

// History 捐献历史
func (h *DonationHandler) History(c *gin.Context) {
	donations, err := h.svc.History(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取捐献历史失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": donations})
}
