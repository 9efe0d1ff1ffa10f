package handler

import (
	"errors"
	"io"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/gin-gonic/gin"
)

// 医疗证明单文件大小上限
const maxDocumentSize = 20 << 20 // 20MB

// DocumentHandler 医疗证明文件处理器
type DocumentHandler struct {
	svc *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Upload 上传医疗证明（multipart）
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少文件: "+err.Error())
		return
	}
	if fileHeader.Size > maxDocumentSize {
		BadRequest(c, "文件过大")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "读取文件失败: "+err.Error())
		return
	}
	defer file.Close()

	var requestID *string
	if rid := c.PostForm("request_id"); rid != "" {
		requestID = &rid
	}

	doc, err := h.svc.Upload(c.Request.Context(), GetUserID(c), requestID, file,
		fileHeader.Filename, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		InternalError(c, "上传失败: "+err.Error())
		return
	}
	Created(c, doc)
}

// Download 下载医疗证明
func (h *DocumentHandler) Download(c *gin.Context) {
	isAdmin := GetUserRole(c) == entity.RoleAdmin
	doc, reader, err := h.svc.Download(c.Request.Context(), c.Param("id"), GetUserID(c), isAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "文件不存在")
			return
		}
		Forbidden(c, err.Error())
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	io.Copy(c.Writer, reader)
}

// List 我的文件列表
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.svc.ListForUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取文件列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": docs})
}
