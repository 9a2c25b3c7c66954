package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
)

type AttachmentResponse struct {
	ID        uint      `json:"id"`
	FileURL   string    `json:"file_url"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

func ToAttachmentResponse(a *entity.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        a.ID,
		FileURL:   a.FileURL,
		FileType:  a.FileType,
		CreatedAt: a.CreatedAt,
	}
}
