package http

import (
	"fmt"
	"net/http"

	attachmentService "anoa.com/studentcommunity/internal/modules/attachment/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
)

const maxUploadSize = 5 << 20

type AttachmentHandler struct {
	service attachmentService.AttachmentService
}

func NewAttachmentHandler(service attachmentService.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ResponseError(c, fmt.Errorf("file is required: %w", apperror.ErrBadRequest))
		return
	}
	if file.Size > maxUploadSize {
		response.ResponseError(c, fmt.Errorf("file exceeds 5MB: %w", apperror.ErrBadRequest))
		return
	}

	f, err := file.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer f.Close()

	res, err := h.service.Upload(c.Request.Context(), userID, attachmentService.Upload{
		Reader:      f,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}
