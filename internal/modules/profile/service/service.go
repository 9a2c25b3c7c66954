package profile

import (
	"context"
	"fmt"
	"log"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	profileDto "anoa.com/studentcommunity/internal/modules/profile/dto"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"anoa.com/studentcommunity/pkg/storage"
	"github.com/google/uuid"
)

const avatarFolder = "avatars"

type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.CurrentProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.AvatarFile) (*profileDto.CurrentProfileResponse, error)
}

type profileService struct {
	repo         userRepo.UserRepository
	imageStorage storage.ImageStorage
}

// NewProfileService builds the profile service. imageStorage may be nil, in
// which case avatar uploads are rejected.
func NewProfileService(repo userRepo.UserRepository, imageStorage storage.ImageStorage) ProfileService {
	return &profileService{
		repo:         repo,
		imageStorage: imageStorage,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, user)
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.CurrentProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	public, err := s.build(ctx, user)
	if err != nil {
		return nil, err
	}
	return &profileDto.CurrentProfileResponse{
		ProfileResponse: *public,
		Email:           user.Email,
		UpdatedAt:       user.UpdatedAt,
	}, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.AvatarFile) (*profileDto.CurrentProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", apperror.ErrBadRequest)
		}
		fields["name"] = name
	}
	if input.Bio != nil {
		fields["bio"] = normalizeOptional(input.Bio)
	}
	if input.Department != nil {
		fields["department"] = normalizeOptional(input.Department)
	}
	if input.Grade != nil {
		fields["grade"] = *input.Grade
	}

	if avatar != nil && avatar.Reader != nil {
		if s.imageStorage == nil {
			return nil, fmt.Errorf("avatar upload is not configured: %w", apperror.ErrBadRequest)
		}
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, avatarFolder, avatar.FileName)
		if err != nil {
			return nil, err
		}
		fields["avatar"] = url

		if user.Avatar != nil && *user.Avatar != "" {
			if err := s.imageStorage.DeleteImage(ctx, *user.Avatar); err != nil {
				log.Printf("Failed to delete previous avatar of user %s: %v", userID, err)
			}
		}
	}

	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}

	return s.GetCurrentProfile(ctx, userID)
}

func (s *profileService) build(ctx context.Context, user *entity.User) (*profileDto.ProfileResponse, error) {
	questions, answers, err := s.repo.CountContributions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &profileDto.ProfileResponse{
		ID:                 user.ID,
		Name:               user.Name,
		Role:               user.Role.Name,
		Avatar:             user.Avatar,
		Bio:                user.Bio,
		Department:         user.Department,
		Grade:              user.Grade,
		Rank:               user.Rank,
		Level:              user.Level,
		Xp:                 user.Xp,
		QuestionCount:      questions,
		AnswerCount:        answers,
		GamificationStatus: xpService.Progress(user.Xp, user.Rank),
		CreatedAt:          user.CreatedAt,
	}, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}

	result := trimmed
	return &result
}
