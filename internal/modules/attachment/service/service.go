package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/attachment/dto"
	attachmentRepo "anoa.com/studentcommunity/internal/modules/attachment/repository"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	uploadFolder = "attachments"
	// OrphanGrace is how long an unbound upload survives before cleanup.
	OrphanGrace = 24 * time.Hour
)

// Upload is one file from a multipart request.
type Upload struct {
	Reader      io.Reader
	FileName    string
	ContentType string
}

type AttachmentService interface {
	Upload(ctx context.Context, userID uuid.UUID, file Upload) (*dto.AttachmentResponse, error)
	BindToQuestionTx(ctx context.Context, tx *gorm.DB, ids []uint, questionID, userID uuid.UUID) error
	BindToAnswerTx(ctx context.Context, tx *gorm.DB, ids []uint, answerID, userID uuid.UUID) error
	CleanupOrphans(ctx context.Context) (int, error)
}

type attachmentService struct {
	repo        attachmentRepo.AttachmentRepository
	fileStorage storage.ImageStorage
	now         func() time.Time
}

// NewAttachmentService builds the upload service. fileStorage may be nil, in
// which case uploads are refused.
func NewAttachmentService(repo attachmentRepo.AttachmentRepository, fileStorage storage.ImageStorage) AttachmentService {
	return &attachmentService{
		repo:        repo,
		fileStorage: fileStorage,
		now:         time.Now,
	}
}

func (s *attachmentService) Upload(ctx context.Context, userID uuid.UUID, file Upload) (*dto.AttachmentResponse, error) {
	if s.fileStorage == nil {
		return nil, fmt.Errorf("attachment upload is not configured: %w", apperror.ErrBadRequest)
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return nil, fmt.Errorf("only images can be attached: %w", apperror.ErrBadRequest)
	}

	url, err := s.fileStorage.UploadImage(ctx, file.Reader, uploadFolder, file.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	attachment := &entity.Attachment{
		UserID:   userID,
		FileURL:  url,
		FileType: file.ContentType,
	}
	if err := s.repo.Create(ctx, attachment); err != nil {
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	res := dto.ToAttachmentResponse(attachment)
	return &res, nil
}

func (s *attachmentService) BindToQuestionTx(ctx context.Context, tx *gorm.DB, ids []uint, questionID, userID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	bound, err := s.repo.WithTx(tx).BindToQuestion(ctx, ids, questionID, userID)
	if err != nil {
		return err
	}
	if bound != int64(len(uniqueIDs(ids))) {
		return fmt.Errorf("some attachments cannot be used: %w", apperror.ErrBadRequest)
	}
	return nil
}

func (s *attachmentService) BindToAnswerTx(ctx context.Context, tx *gorm.DB, ids []uint, answerID, userID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	bound, err := s.repo.WithTx(tx).BindToAnswer(ctx, ids, answerID, userID)
	if err != nil {
		return err
	}
	if bound != int64(len(uniqueIDs(ids))) {
		return fmt.Errorf("some attachments cannot be used: %w", apperror.ErrBadRequest)
	}
	return nil
}

// CleanupOrphans removes stale unbound uploads from storage and the database.
// A failed storage delete keeps the row so the next run retries it.
func (s *attachmentService) CleanupOrphans(ctx context.Context) (int, error) {
	orphans, err := s.repo.FindOrphans(ctx, s.now().Add(-OrphanGrace))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, orphan := range orphans {
		if s.fileStorage != nil {
			if err := s.fileStorage.DeleteImage(ctx, orphan.FileURL); err != nil {
				log.Printf("Failed to delete attachment %d from storage: %v", orphan.ID, err)
				continue
			}
		}
		if err := s.repo.Delete(ctx, orphan.ID); err != nil {
			log.Printf("Failed to delete attachment %d: %v", orphan.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
