package handler

import (
	"errors"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// RequestHandler 血液请求处理器
type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// Create 受血者创建血液请求
func (h *RequestHandler) Create(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	req, err := h.svc.Create(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidBloodType) {
			BadRequest(c, err.Error())
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Created(c, req)
}

// ListForDonor 捐献者可响应的请求列表
func (h *RequestHandler) ListForDonor(c *gin.Context) {
	requests, err := h.svc.ListForDonor(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取请求列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": requests})
}

// ListMine 受血者自己的请求列表
func (h *RequestHandler) ListMine(c *gin.Context) {
	requests, err := h.svc.ListForRecipient(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取请求列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": requests})
}

// Get 请求详情
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "请求不存在")
			return
		}
		InternalError(c, "获取请求失败: "+err.Error())
		return
	}
	Success(c, req)
}

// Accept 捐献者接受请求
func (h *RequestHandler) Accept(c *gin.Context) {
	h.respond(c, service.DecisionAccept)
}

// Decline 捐献者拒绝请求
func (h *RequestHandler) Decline(c *gin.Context) {
	h.respond(c, service.DecisionDecline)
}

func (h *RequestHandler) respond(c *gin.Context, decision string) {
	entry, err := h.svc.Respond(c.Request.Context(), c.Param("id"), GetUserID(c), decision)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "请求不存在")
		case errors.Is(err, service.ErrNotCompatible),
			errors.Is(err, service.ErrNotEligible):
			BadRequest(c, err.Error())
		case errors.Is(err, service.ErrAlreadyResponded),
			errors.Is(err, service.ErrRequestAlreadyFulfilled),
			errors.Is(err, service.ErrRequestCancelled):
			Conflict(c, err.Error())
		default:
			InternalError(c, "响应请求失败: "+err.Error())
		}
		return
	}
	Success(c, entry)
}

// Cancel 受血者取消请求
func (h *RequestHandler) Cancel(c *gin.Context) {
	req, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "请求不存在")
		case errors.Is(err, service.ErrRequestAlreadyFulfilled):
			Conflict(c, err.Error())
		default:
			BadRequest(c, err.Error())
		}
		return
	}
	Success(c, req)
}
