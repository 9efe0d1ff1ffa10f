package handler

import (
	"errors"

	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// DriveHandler 线上捐献活动处理器
type DriveHandler struct {
	svc *service.DriveService
}

func NewDriveHandler(svc *service.DriveService) *DriveHandler {
	return &DriveHandler{svc: svc}
}

// Create 创建活动
func (h *DriveHandler) Create(c *gin.Context) {
	var input service.CreateDriveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	drive, err := h.svc.Create(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Created(c, drive)
}

// JoinRequest 报名参数
type JoinRequest struct {
	PledgedUnits int `json:"pledged_units"`
}

// Join 报名参与
func (h *DriveHandler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	p, err := h.svc.Join(c.Request.Context(), c.Param("id"), GetUserID(c), req.PledgedUnits)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Created(c, p)
}

// ListActive 进行中的活动
func (h *DriveHandler) ListActive(c *gin.Context) {
	drives, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		InternalError(c, "获取活动列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": drives})
}

// Progress 活动进度
func (h *DriveHandler) Progress(c *gin.Context) {
	progress, err := h.svc.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "获取活动进度失败: "+err.Error())
		return
	}
	Success(c, progress)
}

// Participants 参与者列表
func (h *DriveHandler) Participants(c *gin.Context) {
	participants, err := h.svc.Participants(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取参与者失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": participants})
}

// Close 结束活动
func (h *DriveHandler) Close(c *gin.Context) {
	if err := h.svc.Close(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, nil)
}

// PledgeRequest 认捐参数
type PledgeRequest struct {
	Units int `json:"units" binding:"required,min=1"`
}

// Pledge 调整认捐单位
func (h *DriveHandler) Pledge(c *gin.Context) {
	var req PledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	p, err := h.svc.Pledge(c.Request.Context(), c.Param("id"), GetUserID(c), req.Units)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, p)
}

// Leaderboard 活动内排行
func (h *DriveHandler) Leaderboard(c *gin.Context) {
	entries, err := h.svc.Leaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "获取活动排行失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": entries})
}
