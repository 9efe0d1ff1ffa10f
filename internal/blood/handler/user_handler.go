package handler

import (
	"errors"
	"strconv"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me 当前用户资料
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		InternalError(c, "获取用户失败: "+err.Error())
		return
	}
	Success(c, user)
}

// UpdateProfile 更新资料
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input service.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		InternalError(c, "更新资料失败: "+err.Error())
		return
	}
	Success(c, user)
}

// LocationRequest 位置上报参数
type LocationRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

// UpdateLocation 上报位置
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.svc.UpdateLocation(c.Request.Context(), GetUserID(c), req.Lat, req.Lng); err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, nil)
}

// Eligibility 捐献资格查询
func (h *UserHandler) Eligibility(c *gin.Context) {
	e, err := h.svc.CheckEligibility(c.Request.Context(), GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		InternalError(c, "查询资格失败: "+err.Error())
		return
	}
	Success(c, e)
}

// NearbyDonors 附近兼容捐献者查询
func (h *UserHandler) NearbyDonors(c *gin.Context) {
	bloodType := c.Query("blood_type")
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		BadRequest(c, "lat and lng are required")
		return
	}
	radiusKm, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "10"), 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	donors, err := h.svc.NearbyDonors(c.Request.Context(), bloodType, lat, lng, radiusKm, limit)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidBloodType) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "查询附近捐献者失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": donors})
}

// Card 当前用户献血卡
func (h *UserHandler) Card(c *gin.Context) {
	card, err := h.svc.Card(c.Request.Context(), GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		InternalError(c, "获取献血卡失败: "+err.Error())
		return
	}
	Success(c, card)
}

// PublicCard 按卡号公开查验献血卡
func (h *UserHandler) PublicCard(c *gin.Context) {
	card, err := h.svc.CardByNumber(c.Request.Context(), c.Param("cardNo"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "卡号不存在")
			return
		}
		InternalError(c, "获取献血卡失败: "+err.Error())
		return
	}
	Success(c, card)
}
