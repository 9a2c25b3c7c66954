package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/admin/dto"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	"anoa.com/studentcommunity/pkg/apperror"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"anoa.com/studentcommunity/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AdminService interface {
	CreateUser(ctx context.Context, input dto.CreateUserInput, avatar *commonDto.AvatarFile) (*dto.AdminUserResponse, error)
	GetAllUsers(ctx context.Context, query dto.ListUsersQuery) (*dto.AdminUserListResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, input dto.UpdateAdminUserInput, avatar *commonDto.AvatarFile) (*dto.AdminUserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type adminService struct {
	repo         userRepo.UserRepository
	imageStorage storage.ImageStorage
}

func NewAdminService(repo userRepo.UserRepository, imageStorage storage.ImageStorage) AdminService {
	return &adminService{
		repo:         repo,
		imageStorage: imageStorage,
	}
}

func (s *adminService) CreateUser(ctx context.Context, input dto.CreateUserInput, avatar *commonDto.AvatarFile) (*dto.AdminUserResponse, error) {
	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", apperror.ErrConflict)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	role, err := s.repo.FindRoleByName(ctx, input.Role)
	if err != nil {
		return nil, badRequestIfMissing(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	avatarURL, err := s.uploadAvatar(ctx, avatar)
	if err != nil {
		return nil, err
	}

	roleID := role.ID
	user := &entity.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		RoleID:       &roleID,
		Avatar:       avatarURL,
		Bio:          normalizeOptional(input.Bio),
		Department:   normalizeOptional(input.Department),
		Grade:        input.Grade,
		Rank:         entity.Rank(input.Rank),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AdminUserResponse{User: created}, nil
}

func (s *adminService) GetAllUsers(ctx context.Context, query dto.ListUsersQuery) (*dto.AdminUserListResponse, error) {
	page := max(query.Page, 1)
	limit := query.Limit
	if limit < 1 {
		limit = 50
	}

	users, total, err := s.repo.List(ctx, userRepo.UserFilter{Offset: (page - 1) * limit, Limit: limit})
	if err != nil {
		return nil, err
	}

	data := make([]*entity.User, 0, len(users))
	for i := range users {
		data = append(data, &users[i])
	}
	return &dto.AdminUserListResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

func (s *adminService) UpdateUser(ctx context.Context, id uuid.UUID, input dto.UpdateAdminUserInput, avatar *commonDto.AvatarFile) (*dto.AdminUserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if input.Name != nil {
		fields["name"] = strings.TrimSpace(*input.Name)
	}

	if input.Email != nil && !strings.EqualFold(*input.Email, user.Email) {
		if _, err := s.repo.FindByEmail(ctx, *input.Email); err == nil {
			return nil, fmt.Errorf("email already registered: %w", apperror.ErrConflict)
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		fields["email"] = *input.Email
	}

	if input.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password_hash"] = string(hashedPassword)
	}

	if input.Role != nil && *input.Role != user.Role.Name {
		role, err := s.repo.FindRoleByName(ctx, *input.Role)
		if err != nil {
			return nil, badRequestIfMissing(err)
		}
		fields["role_id"] = role.ID
	}

	if input.Department != nil {
		fields["department"] = normalizeOptional(input.Department)
	}
	if input.Bio != nil {
		fields["bio"] = normalizeOptional(input.Bio)
	}
	if input.Grade != nil {
		fields["grade"] = *input.Grade
	}
	// rank override; xp awards never lower it afterwards
	if input.Rank != nil {
		fields["rank"] = entity.Rank(*input.Rank)
	}

	avatarURL, err := s.uploadAvatar(ctx, avatar)
	if err != nil {
		return nil, err
	}
	if avatarURL != nil {
		fields["avatar"] = *avatarURL
		if user.Avatar != nil && *user.Avatar != "" {
			if err := s.imageStorage.DeleteImage(ctx, *user.Avatar); err != nil {
				log.Printf("Failed to delete previous avatar of user %s: %v", id, err)
			}
		}
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.AdminUserResponse{User: updated}, nil
}

func (s *adminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *adminService) uploadAvatar(ctx context.Context, avatar *commonDto.AvatarFile) (*string, error) {
	if avatar == nil || avatar.Reader == nil {
		return nil, nil
	}
	if s.imageStorage == nil {
		return nil, fmt.Errorf("avatar upload is not configured: %w", apperror.ErrBadRequest)
	}
	url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, "avatars", avatar.FileName)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func badRequestIfMissing(err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("%s: %w", err.Error(), apperror.ErrBadRequest)
	}
	return err
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
